// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extract

import (
	"regexp"
	"strings"

	"github.com/poiesic/corpus/core"
)

// Reserved attribute names consumed by the envelope rather than the facets.
const (
	pathAttr       = "path"
	modelAttr      = "model"
	provenanceAttr = "provenance"
)

// Reserved facet prefixes for flattened media metadata.
var mediaFacetKeys = []string{"icon", "image"}

// localeRe matches a /xx_YY/ or /xx-YY/ path segment.
var localeRe = regexp.MustCompile(`(?:^|/)([a-z]{2})[_-]([A-Z]{2})(?:/|$)`)

// Envelope carries the inherited addressing, locale, model, and provenance
// metadata for one traversal node. Envelopes are passed by value down the
// recursion; a child derives its own copy without mutating the parent's.
type Envelope struct {
	SourcePath string
	Model      string
	Locale     string
	Language   string
	Country    string
	Provenance map[string]string
}

// deriveEnvelope computes a node's envelope from its parent's. The node's
// explicit path attribute wins; otherwise the structural traversal path keeps
// the node addressable. Locale is re-parsed whenever the path changes, and
// the provenance map is inherited unless the node overrides it.
func deriveEnvelope(parent Envelope, node *Value, structuralPath string) Envelope {
	env := parent

	if p := node.StringField(pathAttr); p != "" {
		env.SourcePath = p
	} else {
		env.SourcePath = structuralPath
	}

	if m := node.StringField(modelAttr); m != "" {
		env.Model = m
	}

	if locale, lang, country, ok := parseLocale(env.SourcePath); ok {
		env.Locale, env.Language, env.Country = locale, lang, country
	}

	if prov := node.Field(provenanceAttr); prov != nil && prov.IsObject() {
		override := make(map[string]string)
		for _, k := range prov.Keys() {
			if s, ok := prov.Field(k).Scalar(); ok {
				override[k] = s
			}
		}
		env.Provenance = override
	}

	return env
}

// parseLocale extracts a locale from a /xx_YY/ or /xx-YY/ path segment.
// The canonical form uses an underscore: "en_US".
func parseLocale(path string) (locale, language, country string, ok bool) {
	m := localeRe.FindStringSubmatch(path)
	if m == nil {
		return "", "", "", false
	}
	return m[1] + "_" + m[2], m[1], m[2], true
}

// collectFacets gathers every scalar sibling field of a node, plus flattened
// icon/image metadata, excluding the content fields themselves and the
// reserved envelope attributes.
func collectFacets(node *Value) map[string]string {
	facets := make(map[string]string)
	for _, k := range node.Keys() {
		if isContentField(k) || isEnvelopeAttr(k) {
			continue
		}
		child := node.Field(k)
		if s, ok := child.Scalar(); ok {
			facets[k] = s
			continue
		}
		if child.IsObject() && isMediaFacet(k) {
			flattenMedia(child, k, facets)
		}
	}
	return facets
}

// flattenMedia flattens icon/image metadata objects into prefixed facet keys,
// skipping the keys that are content in their own right.
func flattenMedia(node *Value, prefix string, facets map[string]string) {
	for _, k := range node.Keys() {
		if isContentField(k) {
			continue
		}
		child := node.Field(k)
		if s, ok := child.Scalar(); ok {
			facets[prefix+"."+k] = s
		} else if child.IsObject() {
			flattenMedia(child, prefix+"."+k, facets)
		}
	}
}

func isEnvelopeAttr(key string) bool {
	return key == pathAttr || key == modelAttr || key == provenanceAttr
}

func isMediaFacet(key string) bool {
	lower := strings.ToLower(key)
	for _, p := range mediaFacetKeys {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// snapshot freezes the envelope and facets into the context carried by a
// fragment. Maps are copied so later traversal cannot alias into an emitted
// fragment.
func snapshot(env Envelope, facets map[string]string) core.FragmentContext {
	ctx := core.FragmentContext{
		Locale:   env.Locale,
		Language: env.Language,
		Country:  env.Country,
		Model:    env.Model,
	}
	if len(env.Provenance) > 0 {
		ctx.Provenance = make(map[string]string, len(env.Provenance))
		for k, v := range env.Provenance {
			ctx.Provenance[k] = v
		}
	}
	if len(facets) > 0 {
		ctx.Facets = make(map[string]string, len(facets))
		for k, v := range facets {
			ctx.Facets[k] = v
		}
	}
	return ctx
}
