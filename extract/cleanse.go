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
)

// Cleansing order matters: whitespace-like macros become spaces first, footnote
// and metadata macros are removed, link macros are unwrapped to their inner
// text (repeatedly, for nested links), then HTML tags are stripped and
// whitespace is collapsed. The whole pass is idempotent.
var (
	spaceMacroRe = regexp.MustCompile(`\{%\s*(?:nbsp|br)\s*%\}`)
	sosumiRe     = regexp.MustCompile(`\{%\s*sosumi\b[^%]*%\}`)
	linkOpenRe   = regexp.MustCompile(`\{%\s*link\b[^%]*%\}`)
	linkCloseRe  = regexp.MustCompile(`\{%\s*/\s*link\s*%\}`)
	macroRe      = regexp.MustCompile(`\{%[^%]*%\}`)
	htmlTagRe    = regexp.MustCompile(`<[^<>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// maxLinkNesting bounds link-macro unwrapping so pathological input cannot
// loop forever.
const maxLinkNesting = 8

// Cleanser normalizes extracted text.
type Cleanser struct{}

// NewCleanser creates a text cleanser.
func NewCleanser() *Cleanser {
	return &Cleanser{}
}

// Cleanse strips macro placeholders and HTML tags from text, normalizes
// non-breaking spaces, and collapses repeated whitespace.
// Cleanse(Cleanse(x)) == Cleanse(x) for all x.
func (c *Cleanser) Cleanse(text string) string {
	if text == "" {
		return ""
	}

	out := spaceMacroRe.ReplaceAllString(text, " ")
	out = sosumiRe.ReplaceAllString(out, "")

	// Unwrap link macros, keeping the linked text. Nested links need
	// multiple passes.
	for i := 0; i < maxLinkNesting; i++ {
		stripped := linkOpenRe.ReplaceAllString(out, "")
		stripped = linkCloseRe.ReplaceAllString(stripped, "")
		if stripped == out {
			break
		}
		out = stripped
	}

	// Any remaining macro is generic metadata and carries no copy text.
	out = macroRe.ReplaceAllString(out, "")

	out = htmlTagRe.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, "\u00a0", " ")
	out = whitespaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// IsBlank reports whether text cleanses down to nothing.
func (c *Cleanser) IsBlank(text string) bool {
	return c.Cleanse(text) == ""
}
