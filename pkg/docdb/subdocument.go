// Copyright 2014 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package docdb

import (
	"fmt"
	"sort"
)

// SubDocument is either a primitive leaf, an object (an ordered mapping from
// Primitive keys to SubDocuments, iterated in primitive key sort order), or
// an array (reserved; array semantics are not otherwise specified). A zero
// SubDocument has type code 0 (ValueTypeGroupEnd), not the null primitive.
type SubDocument struct {
	typ      ValueType // ValueTypeObject, ValueTypeArray, or a primitive type
	prim     Primitive
	object   map[string]SubDocument
	objOrder []Primitive // keys of object, kept sorted by EncodePrimitiveKey
	array    []SubDocument
}

// NewPrimitiveSubDocument wraps a leaf primitive.
func NewPrimitiveSubDocument(p Primitive) SubDocument {
	return SubDocument{typ: p.Type(), prim: p}
}

// NewObjectSubDocument returns an empty object SubDocument.
func NewObjectSubDocument() SubDocument {
	return SubDocument{typ: ValueTypeObject, object: map[string]SubDocument{}}
}

// NewArraySubDocument returns an empty array SubDocument.
func NewArraySubDocument() SubDocument {
	return SubDocument{typ: ValueTypeArray}
}

// IsObject reports whether d is an object.
func (d SubDocument) IsObject() bool { return d.typ == ValueTypeObject }

// IsArray reports whether d is an array.
func (d SubDocument) IsArray() bool { return d.typ == ValueTypeArray }

// IsPrimitive reports whether d is a leaf.
func (d SubDocument) IsPrimitive() bool { return d.typ.IsPrimitive() }

// Primitive returns the wrapped leaf value. Valid only when IsPrimitive().
func (d SubDocument) Primitive() Primitive { return d.prim }

// Elements returns the array's elements in order. Valid only when IsArray().
func (d SubDocument) Elements() []SubDocument { return d.array }

// AppendElement appends an element to an array SubDocument.
func (d *SubDocument) AppendElement(elem SubDocument) {
	d.array = append(d.array, elem)
}

// Keys returns the object's keys in the order children are iterated:
// ascending by the keys' encoded key-form bytes.
func (d SubDocument) Keys() []Primitive { return d.objOrder }

// Get returns the child stored under key, and whether it was present.
func (d SubDocument) Get(key Primitive) (SubDocument, bool) {
	child, ok := d.object[string(EncodePrimitiveKey(nil, key))]
	return child, ok
}

// Set inserts or replaces the child stored under key, keeping Keys() sorted.
func (d *SubDocument) Set(key Primitive, child SubDocument) {
	if d.object == nil {
		d.typ = ValueTypeObject
		d.object = map[string]SubDocument{}
	}
	encKey := string(EncodePrimitiveKey(nil, key))
	if _, exists := d.object[encKey]; !exists {
		i := sort.Search(len(d.objOrder), func(i int) bool {
			return string(EncodePrimitiveKey(nil, d.objOrder[i])) >= encKey
		})
		d.objOrder = append(d.objOrder, Primitive{})
		copy(d.objOrder[i+1:], d.objOrder[i:])
		d.objOrder[i] = key
	}
	d.object[encKey] = child
}

func (d SubDocument) String() string {
	switch {
	case d.IsObject():
		s := "{"
		for i, k := range d.objOrder {
			if i > 0 {
				s += ", "
			}
			child, _ := d.Get(k)
			s += fmt.Sprintf("%s: %s", k.String(), child.String())
		}
		return s + "}"
	case d.IsArray():
		s := "["
		for i, e := range d.array {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + "]"
	default:
		return d.prim.String()
	}
}
