// Package extract walks semi-structured CMS documents and emits addressable
// text fragments.
//
// A document is parsed into a typed value tree (object/array/scalar) and
// traversed depth-first. At every object node the walker rebuilds the
// inherited envelope (addressing, locale, model, provenance) and the sibling
// facets, classifies each field as content-bearing, analytics, or structural,
// and emits one Fragment per content-bearing value with the envelope and
// facets snapshot attached. Extracted text is cleansed of macro placeholders
// and HTML markup before it leaves the package.
package extract
