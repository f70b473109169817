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
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/corpus/core"
)

// Content-bearing field keys, extracted directly or one level deeper when the
// value is a nested object.
var contentFields = map[string]bool{
	"copy":        true,
	"text":        true,
	"url":         true,
	"disclaimers": true,
}

// nestedContentKeys is the scan order for content held one level deeper.
var nestedContentKeys = []string{"copy", "text", "value", "url"}

const disclaimersField = "disclaimers"

func isContentField(key string) bool {
	return contentFields[key]
}

func isAnalyticsField(key string) bool {
	return strings.Contains(strings.ToLower(key), "analytics")
}

// Stats summarizes one extraction run. Blank-after-cleanse drops are counted
// separately from values that were empty before cleansing.
type Stats struct {
	Extracted    int
	Analytics    int
	BlankDropped int
	EmptyDropped int
	Excluded     int
}

// Walker traverses a document tree and emits fragments.
type Walker struct {
	cleanser        *Cleanser
	excludePrefixes []string
	keepBlank       bool
	logger          *slog.Logger
}

// Option configures a Walker.
type Option func(*Walker)

// WithExcludedPrefixes marks fragments whose field key starts with any of the
// given prefixes as excluded from enrichment. They are still extracted and
// fingerprinted.
func WithExcludedPrefixes(prefixes ...string) Option {
	return func(w *Walker) {
		w.excludePrefixes = append(w.excludePrefixes, prefixes...)
	}
}

// WithKeepBlank keeps fragments whose cleansed text is blank instead of
// dropping them.
func WithKeepBlank(keep bool) Option {
	return func(w *Walker) {
		w.keepBlank = keep
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Walker) {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
	}
}

// NewWalker creates an extraction walker.
func NewWalker(opts ...Option) *Walker {
	w := &Walker{
		cleanser: NewCleanser(),
		logger:   slog.Default().With("component", "extract-walker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Extract walks the document and returns every content-bearing fragment.
// rootPath is the document's own address and seeds the envelope; a document
// node carrying an explicit path attribute overrides it.
func (w *Walker) Extract(doc *Value, rootPath string) ([]core.Fragment, Stats, error) {
	if doc == nil {
		return nil, Stats{}, ErrNilDocument
	}

	var (
		fragments []core.Fragment
		stats     Stats
	)
	root := Envelope{SourcePath: rootPath}
	if locale, lang, country, ok := parseLocale(rootPath); ok {
		root.Locale, root.Language, root.Country = locale, lang, country
	}

	w.walkObject(doc, root, rootPath, &fragments, &stats)

	w.logger.Debug("extraction complete",
		"root", rootPath,
		"fragments", stats.Extracted,
		"analytics", stats.Analytics,
		"blankDropped", stats.BlankDropped,
		"emptyDropped", stats.EmptyDropped)

	return fragments, stats, nil
}

func (w *Walker) walkObject(node *Value, parent Envelope, structuralPath string, out *[]core.Fragment, stats *Stats) {
	env := deriveEnvelope(parent, node, structuralPath)
	facets := collectFacets(node)
	ctx := snapshot(env, facets)

	for _, key := range node.Keys() {
		child := node.Field(key)

		switch {
		case key == disclaimersField:
			w.extractDisclaimers(child, env, ctx, out, stats)

		case isContentField(key):
			w.extractContent(key, child, env, ctx, structuralPath, out, stats)

		case isAnalyticsField(key):
			w.extractAnalytics(key, child, env, ctx, out, stats)

		case child.IsObject():
			w.walkObject(child, env, structuralPath+"/"+key, out, stats)

		case child.IsArray():
			for i, elem := range child.Items() {
				if elem.IsObject() {
					w.walkObject(elem, env, fmt.Sprintf("%s/%s[%d]", structuralPath, key, i), out, stats)
				}
			}
		}
	}
}

// extractContent handles a copy/text/url field: a scalar directly, a nested
// object one level deeper, or an array fanning out per element.
func (w *Walker) extractContent(key string, child *Value, env Envelope, ctx core.FragmentContext, structuralPath string, out *[]core.Fragment, stats *Stats) {
	if s, ok := child.Scalar(); ok {
		w.emit(out, stats, env.SourcePath, env.SourcePath, key, s, ctx, false)
		return
	}

	if child.IsObject() {
		w.extractNested(key, child, env, structuralPath+"/"+key, out, stats)
		return
	}

	if child.IsArray() {
		for i, elem := range child.Items() {
			indexed := fmt.Sprintf("%s[%d]", key, i)
			if s, ok := elem.Scalar(); ok {
				w.emit(out, stats, env.SourcePath, env.SourcePath, indexed, s, ctx, false)
			} else if elem.IsObject() {
				w.extractNested(indexed, elem, env, fmt.Sprintf("%s/%s", structuralPath, indexed), out, stats)
			}
		}
	}
}

// extractNested pulls content held one level deeper in a nested object. When
// the object carries its own path attribute the fragment is a shared one: its
// identity follows its own path while the usage path records the container.
func (w *Walker) extractNested(fieldKey string, node *Value, container Envelope, structuralPath string, out *[]core.Fragment, stats *Stats) {
	env := deriveEnvelope(container, node, structuralPath)
	ownPath := container.SourcePath
	if p := node.StringField(pathAttr); p != "" {
		ownPath = p
	}

	// The node's own content keys are not facets.
	facets := collectFacets(node)
	for _, k := range nestedContentKeys {
		delete(facets, k)
	}
	ctx := snapshot(env, facets)

	for _, k := range nestedContentKeys {
		if s, ok := node.Field(k).scalarOrNone(); ok {
			w.emit(out, stats, ownPath, container.SourcePath, fieldKey, s, ctx, false)
			return
		}
	}
}

// extractDisclaimers fans a disclaimers value out per (group, item) pair.
func (w *Walker) extractDisclaimers(child *Value, env Envelope, ctx core.FragmentContext, out *[]core.Fragment, stats *Stats) {
	if child == nil || !child.IsArray() {
		return
	}
	for g, group := range child.Items() {
		if s, ok := group.Scalar(); ok {
			key := fmt.Sprintf("%s[%d][0]", disclaimersField, g)
			w.emit(out, stats, env.SourcePath, env.SourcePath, key, s, ctx, false)
			continue
		}
		for i, item := range group.Items() {
			key := fmt.Sprintf("%s[%d][%d]", disclaimersField, g, i)
			if s, ok := item.Scalar(); ok {
				w.emit(out, stats, env.SourcePath, env.SourcePath, key, s, ctx, false)
				continue
			}
			if item.IsObject() {
				for _, k := range nestedContentKeys {
					if s, ok := item.Field(k).scalarOrNone(); ok {
						w.emit(out, stats, env.SourcePath, env.SourcePath, key, s, ctx, false)
						break
					}
				}
			}
		}
	}
}

// extractAnalytics walks an analytics subtree, emitting every scalar leaf and
// every value-bearing object as its own fragment.
func (w *Walker) extractAnalytics(fieldKey string, node *Value, env Envelope, ctx core.FragmentContext, out *[]core.Fragment, stats *Stats) {
	if s, ok := node.Scalar(); ok {
		w.emit(out, stats, env.SourcePath, env.SourcePath, fieldKey, s, ctx, true)
		return
	}

	if node.IsObject() {
		if s, ok := node.Field("value").scalarOrNone(); ok {
			w.emit(out, stats, env.SourcePath, env.SourcePath, fieldKey, s, ctx, true)
			return
		}
		for _, k := range node.Keys() {
			w.extractAnalytics(fieldKey+"."+k, node.Field(k), env, ctx, out, stats)
		}
		return
	}

	if node.IsArray() {
		for i, elem := range node.Items() {
			w.extractAnalytics(fmt.Sprintf("%s[%d]", fieldKey, i), elem, env, ctx, out, stats)
		}
	}
}

func (w *Walker) emit(out *[]core.Fragment, stats *Stats, ownPath, containerPath, fieldKey, raw string, ctx core.FragmentContext, analytics bool) {
	if raw == "" {
		stats.EmptyDropped++
		return
	}

	cleansed := w.cleanser.Cleanse(raw)
	if cleansed == "" && !w.keepBlank {
		stats.BlankDropped++
		return
	}

	skip := w.isExcluded(fieldKey)
	if skip {
		stats.Excluded++
	}
	if analytics {
		stats.Analytics++
	}
	stats.Extracted++

	*out = append(*out, core.Fragment{
		SourcePath: ownPath,
		UsagePath:  core.JoinUsagePath(containerPath, ownPath),
		FieldKey:   fieldKey,
		Model:      ctx.Model,
		RawValue:   raw,
		Cleansed:   cleansed,
		Skip:       skip,
		Context:    ctx,
	})
}

func (w *Walker) isExcluded(fieldKey string) bool {
	for _, p := range w.excludePrefixes {
		if strings.HasPrefix(fieldKey, p) {
			return true
		}
	}
	return false
}

// scalarOrNone is Scalar tolerant of a nil receiver, for optional fields.
func (v *Value) scalarOrNone() (string, bool) {
	if v == nil {
		return "", false
	}
	return v.Scalar()
}
