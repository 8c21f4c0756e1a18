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

	"github.com/google/uuid"
	"gopkg.in/inf.v0"
)

// Primitive is a tagged scalar: the leaf value type of the document model,
// and the only kind of value that may serve as an object's dictionary key
// (a subkey). A zero Primitive has type code 0 (ValueTypeGroupEnd), not
// ValueTypeNull; NewNullPrimitive returns the null primitive.
type Primitive struct {
	typ ValueType
	i   int64     // Int64, and Timestamp (microseconds since the Unix epoch)
	f   float64   // Double
	s   string    // String
	u   uuid.UUID // UUID
	dec *inf.Dec  // Decimal
}

// NewNullPrimitive returns the null primitive.
func NewNullPrimitive() Primitive { return Primitive{typ: ValueTypeNull} }

// NewBoolPrimitive returns the true or false primitive.
func NewBoolPrimitive(v bool) Primitive {
	if v {
		return Primitive{typ: ValueTypeTrue}
	}
	return Primitive{typ: ValueTypeFalse}
}

// NewInt64Primitive returns a signed 64-bit integer primitive.
func NewInt64Primitive(v int64) Primitive {
	return Primitive{typ: ValueTypeInt64, i: v}
}

// NewDoublePrimitive returns a double-precision float primitive.
func NewDoublePrimitive(v float64) Primitive {
	return Primitive{typ: ValueTypeDouble, f: v}
}

// NewStringPrimitive returns a UTF-8 string primitive. The string may
// contain NUL bytes, also as a subkey: the key encoding escapes them, so
// such strings round-trip through it unchanged.
func NewStringPrimitive(v string) Primitive {
	return Primitive{typ: ValueTypeString, s: v}
}

// NewTimestampPrimitive returns a timestamp primitive, stored with
// microsecond resolution relative to the Unix epoch.
func NewTimestampPrimitive(microsSinceEpoch int64) Primitive {
	return Primitive{typ: ValueTypeTimestamp, i: microsSinceEpoch}
}

// NewUUIDPrimitive returns a UUID primitive.
func NewUUIDPrimitive(v uuid.UUID) Primitive {
	return Primitive{typ: ValueTypeUUID, u: v}
}

// NewDecimalPrimitive returns an arbitrary-precision decimal primitive.
func NewDecimalPrimitive(v *inf.Dec) Primitive {
	return Primitive{typ: ValueTypeDecimal, dec: v}
}

// Type returns the primitive's ValueType tag.
func (p Primitive) Type() ValueType { return p.typ }

// AsInt64 returns the wrapped int64. Valid only when Type() == ValueTypeInt64
// or ValueTypeTimestamp.
func (p Primitive) AsInt64() int64 { return p.i }

// AsDouble returns the wrapped float64. Valid only when Type() == ValueTypeDouble.
func (p Primitive) AsDouble() float64 { return p.f }

// AsString returns the wrapped string. Valid only when Type() == ValueTypeString.
func (p Primitive) AsString() string { return p.s }

// AsUUID returns the wrapped UUID. Valid only when Type() == ValueTypeUUID.
func (p Primitive) AsUUID() uuid.UUID { return p.u }

// AsDecimal returns the wrapped decimal. Valid only when Type() == ValueTypeDecimal.
func (p Primitive) AsDecimal() *inf.Dec { return p.dec }

// AsBool returns the wrapped boolean. Valid only when Type() is
// ValueTypeTrue or ValueTypeFalse.
func (p Primitive) AsBool() bool { return p.typ == ValueTypeTrue }

func (p Primitive) String() string {
	switch p.typ {
	case ValueTypeNull:
		return "null"
	case ValueTypeTrue:
		return "true"
	case ValueTypeFalse:
		return "false"
	case ValueTypeInt64:
		return fmt.Sprintf("%d", p.i)
	case ValueTypeDouble:
		return fmt.Sprintf("%g", p.f)
	case ValueTypeString:
		return fmt.Sprintf("%q", p.s)
	case ValueTypeTimestamp:
		return fmt.Sprintf("ts(%d)", p.i)
	case ValueTypeUUID:
		return p.u.String()
	case ValueTypeDecimal:
		return p.dec.String()
	default:
		return fmt.Sprintf("<primitive type=%s>", p.typ)
	}
}

// Equal reports whether p and other encode to the same bytes.
func (p Primitive) Equal(other Primitive) bool {
	if p.typ != other.typ {
		return false
	}
	switch p.typ {
	case ValueTypeInt64, ValueTypeTimestamp:
		return p.i == other.i
	case ValueTypeDouble:
		return p.f == other.f
	case ValueTypeString:
		return p.s == other.s
	case ValueTypeUUID:
		return p.u == other.u
	case ValueTypeDecimal:
		return p.dec.Cmp(other.dec) == 0
	default:
		return true
	}
}
