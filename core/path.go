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

package core

import "strings"

// UsagePathDelimiter joins a container path and a fragment path inside one
// usage path. It never occurs in normalized document paths, so splitting is
// unambiguous.
const UsagePathDelimiter = "||"

// JoinUsagePath builds a usage path from a container path and the fragment's
// own addressable path. When the container is empty or identical to the
// fragment path, the fragment path alone is the usage path.
func JoinUsagePath(container, fragment string) string {
	if container == "" || container == fragment {
		return fragment
	}
	return container + UsagePathDelimiter + fragment
}

// SplitUsagePath splits a usage path into the section path (the container,
// i.e. the physical usage location) and the section URI (the fragment's own
// address). A usage path without a recorded container yields the fallback
// path for both halves.
func SplitUsagePath(usagePath, fallback string) (sectionPath, sectionURI string) {
	if i := strings.Index(usagePath, UsagePathDelimiter); i >= 0 {
		return usagePath[:i], usagePath[i+len(UsagePathDelimiter):]
	}
	if usagePath == "" {
		return fallback, fallback
	}
	return fallback, usagePath
}
