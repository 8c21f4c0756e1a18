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

// ValueType is the one-byte tag that prefixes every encoded primitive, both
// in keys (as a subkey) and in values (as the type of the node stored at a
// path). The numeric codes below are part of the on-disk format: sorting
// keys bytewise must match the intended type order, so the codes are
// assigned in ascending order for the types that can appear side by side as
// object keys. They must never be reassigned once written to a store.
type ValueType byte

const (
	// ValueTypeGroupEnd terminates a variable-length sequence of encoded
	// primitives (the hashed-range or range components of a DocKey, or the
	// subkey path of a SubDocKey) when something other than another
	// primitive follows. It is the lowest-valued byte in the type space so
	// that a key which ends at a given path sorts before any key that
	// continues past that path with a deeper subkey.
	ValueTypeGroupEnd ValueType = 0x00

	ValueTypeNull      ValueType = 0x01
	ValueTypeFalse     ValueType = 0x02
	ValueTypeTrue      ValueType = 0x03
	ValueTypeInt64     ValueType = 0x04
	ValueTypeDouble    ValueType = 0x05
	ValueTypeString    ValueType = 0x06
	ValueTypeTimestamp ValueType = 0x07
	ValueTypeUUID      ValueType = 0x08
	ValueTypeDecimal   ValueType = 0x09

	// ValueTypeObject and ValueTypeArray never appear as subkeys (nothing
	// can use an object or an array as a dictionary key), only as the value
	// type of a node. They're placed well above the primitive range so a
	// future primitive type can be slotted in between without renumbering.
	ValueTypeObject ValueType = 0x20
	ValueTypeArray  ValueType = 0x21

	// ValueTypeTombstone marks a deleted node. Like Object/Array, it is a
	// node type, never a subkey.
	ValueTypeTombstone ValueType = 0x30

	// ValueTypeTTL prefixes a value that carries an expiration; the actual
	// wrapped value's own type byte follows the TTL payload. Reserved as a
	// key-space sentinel but only ever produced by ValueEncoder.
	ValueTypeTTL ValueType = 0x40

	// ValueTypeInvalid is never written; InternalDocIterator.ValueType
	// returns it when the cursor is not on a matching key, and together with
	// an error when the stored value cannot be decoded.
	ValueTypeInvalid ValueType = 0xFF
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeGroupEnd:
		return "GroupEnd"
	case ValueTypeNull:
		return "Null"
	case ValueTypeFalse:
		return "False"
	case ValueTypeTrue:
		return "True"
	case ValueTypeInt64:
		return "Int64"
	case ValueTypeDouble:
		return "Double"
	case ValueTypeString:
		return "String"
	case ValueTypeTimestamp:
		return "Timestamp"
	case ValueTypeUUID:
		return "UUID"
	case ValueTypeDecimal:
		return "Decimal"
	case ValueTypeObject:
		return "Object"
	case ValueTypeArray:
		return "Array"
	case ValueTypeTombstone:
		return "Tombstone"
	case ValueTypeTTL:
		return "TTL"
	default:
		return "Invalid"
	}
}

// IsPrimitive reports whether t identifies a scalar that may appear as a
// subkey (an object's dictionary key), as opposed to a node type
// (object/array/tombstone) or a wrapper (TTL) or the group-end marker.
func (t ValueType) IsPrimitive() bool {
	switch t {
	case ValueTypeNull, ValueTypeFalse, ValueTypeTrue, ValueTypeInt64,
		ValueTypeDouble, ValueTypeString, ValueTypeTimestamp, ValueTypeUUID,
		ValueTypeDecimal:
		return true
	default:
		return false
	}
}
