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
	"sort"
	"strconv"

	"github.com/goccy/go-json"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindObject
	KindArray
	KindString
	KindNumber
	KindBool
)

// Value is one node of a parsed document tree. It replaces dynamically typed
// map traversal with an explicit object/array/scalar variant so the walker
// never type-switches on raw interface values.
type Value struct {
	kind Kind
	obj  map[string]*Value
	arr  []*Value
	str  string
	num  float64
	b    bool
}

// ParseDocument parses a UTF-8 JSON document into a value tree. The top level
// must be a JSON object.
func ParseDocument(data []byte) (*Value, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	v := fromAny(raw)
	if v.kind != KindObject {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformedDocument)
	}
	return v, nil
}

func fromAny(raw any) *Value {
	switch t := raw.(type) {
	case map[string]any:
		obj := make(map[string]*Value, len(t))
		for k, v := range t {
			obj[k] = fromAny(v)
		}
		return &Value{kind: KindObject, obj: obj}
	case []any:
		arr := make([]*Value, len(t))
		for i, v := range t {
			arr[i] = fromAny(v)
		}
		return &Value{kind: KindArray, arr: arr}
	case string:
		return &Value{kind: KindString, str: t}
	case float64:
		return &Value{kind: KindNumber, num: t}
	case bool:
		return &Value{kind: KindBool, b: t}
	default:
		return &Value{kind: KindNull}
	}
}

// Kind returns the variant of this value.
func (v *Value) Kind() Kind { return v.kind }

// IsObject reports whether the value is an object node.
func (v *Value) IsObject() bool { return v.kind == KindObject }

// IsArray reports whether the value is an array node.
func (v *Value) IsArray() bool { return v.kind == KindArray }

// IsScalar reports whether the value is a string, number, or bool.
func (v *Value) IsScalar() bool {
	return v.kind == KindString || v.kind == KindNumber || v.kind == KindBool
}

// Field returns the named field of an object node, or nil.
func (v *Value) Field(name string) *Value {
	if v.kind != KindObject {
		return nil
	}
	return v.obj[name]
}

// Keys returns the object's field names in sorted order, so traversal is
// deterministic across runs.
func (v *Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Items returns the elements of an array node.
func (v *Value) Items() []*Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Scalar returns the scalar value rendered as text. The second return is
// false for objects, arrays, and nulls.
func (v *Value) Scalar() (string, bool) {
	switch v.kind {
	case KindString:
		return v.str, true
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.b), true
	}
	return "", false
}

// StringField returns the named field's string value, or "" when the field
// is absent or not a string.
func (v *Value) StringField(name string) string {
	f := v.Field(name)
	if f == nil || f.kind != KindString {
		return ""
	}
	return f.str
}
