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
	"encoding/binary"
	"math"
	"math/big"

	"github.com/google/uuid"
	"gopkg.in/inf.v0"
)

// TTL is a duration attached to a value, in milliseconds. TTLNever means the
// value does not expire.
type TTL uint64

// TTLNever is the "no expiration" sentinel (kMaxTtl in the design docs).
const TTLNever TTL = ^TTL(0)

// Value is what gets stored under a SubDocKey: either a node-type marker
// (object, array, tombstone) or a wrapped Primitive, plus an optional TTL.
// Value encoding is independent of key encoding — sort order is irrelevant
// here, so e.g. int64 is stored as plain big-endian rather than with the
// sign bit flipped.
type Value struct {
	typ  ValueType
	prim Primitive
	ttl  TTL
}

// NewObjectValue returns the "object" node marker value (an init marker).
func NewObjectValue() Value { return Value{typ: ValueTypeObject, ttl: TTLNever} }

// NewArrayValue returns the "array" node marker value.
func NewArrayValue() Value { return Value{typ: ValueTypeArray, ttl: TTLNever} }

// NewTombstoneValue returns the deletion marker value.
func NewTombstoneValue() Value { return Value{typ: ValueTypeTombstone, ttl: TTLNever} }

// NewPrimitiveValue wraps a Primitive as a Value with no expiration.
func NewPrimitiveValue(p Primitive) Value {
	return Value{typ: p.Type(), prim: p, ttl: TTLNever}
}

// WithTTL returns a copy of v carrying the given TTL.
func (v Value) WithTTL(ttl TTL) Value {
	v.ttl = ttl
	return v
}

// Type reports the node type of the value: ValueTypeObject, ValueTypeArray,
// ValueTypeTombstone, or the primitive's own ValueType.
func (v Value) Type() ValueType { return v.typ }

// IsTombstone reports whether v is the deletion marker.
func (v Value) IsTombstone() bool { return v.typ == ValueTypeTombstone }

// IsObject reports whether v is the object init-marker.
func (v Value) IsObject() bool { return v.typ == ValueTypeObject }

// IsArray reports whether v is the array init-marker.
func (v Value) IsArray() bool { return v.typ == ValueTypeArray }

// IsPrimitive reports whether v wraps a Primitive.
func (v Value) IsPrimitive() bool { return v.typ.IsPrimitive() }

// Primitive returns the wrapped primitive. Valid only when IsPrimitive().
func (v Value) Primitive() Primitive { return v.prim }

// TTL returns the value's TTL, or TTLNever if it does not expire.
func (v Value) TTL() TTL { return v.ttl }

// EncodeValue appends the encoding of v to b: an optional TTL wrapper
// (ValueTypeTTL, a millisecond count, then the wrapped encoding), followed
// by the node-type byte and, for primitives, a type-specific payload.
func EncodeValue(b []byte, v Value) []byte {
	if v.ttl != TTLNever {
		b = append(b, byte(ValueTypeTTL))
		b = appendUint64(b, uint64(v.ttl))
	}
	switch v.typ {
	case ValueTypeObject, ValueTypeArray, ValueTypeTombstone:
		return append(b, byte(v.typ))
	default:
		return encodePrimitiveValue(b, v.prim)
	}
}

// DecodeValue is the inverse of EncodeValue.
func DecodeValue(b []byte) (Value, error) {
	ttl := TTLNever
	if len(b) > 0 && ValueType(b[0]) == ValueTypeTTL {
		if len(b) < 9 {
			return Value{}, CorruptValueError("truncated ttl wrapper: %x", b)
		}
		ttl = TTL(decodeUint64(b[1:9]))
		b = b[9:]
	}
	if len(b) == 0 {
		return Value{}, CorruptValueError("empty value payload")
	}
	switch ValueType(b[0]) {
	case ValueTypeObject:
		return Value{typ: ValueTypeObject, ttl: ttl}, nil
	case ValueTypeArray:
		return Value{typ: ValueTypeArray, ttl: ttl}, nil
	case ValueTypeTombstone:
		return Value{typ: ValueTypeTombstone, ttl: ttl}, nil
	default:
		prim, err := decodePrimitiveValue(b)
		if err != nil {
			return Value{}, err
		}
		return Value{typ: prim.Type(), prim: prim, ttl: ttl}, nil
	}
}

func appendUint64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

func decodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// encodePrimitiveValue writes a type byte followed by a plain (non
// order-preserving) payload for p.
func encodePrimitiveValue(b []byte, p Primitive) []byte {
	b = append(b, byte(p.typ))
	switch p.typ {
	case ValueTypeNull, ValueTypeFalse, ValueTypeTrue:
		return b
	case ValueTypeInt64:
		return appendUint64(b, uint64(p.i))
	case ValueTypeTimestamp:
		return appendUint64(b, uint64(p.i))
	case ValueTypeDouble:
		return appendUint64(b, math.Float64bits(p.f))
	case ValueTypeString:
		return appendLengthPrefixed(b, []byte(p.s))
	case ValueTypeUUID:
		return append(b, p.u[:]...)
	case ValueTypeDecimal:
		return encodeDecimalValue(b, p.dec)
	default:
		panic("encodePrimitiveValue: not a primitive type: " + p.typ.String())
	}
}

func decodePrimitiveValue(b []byte) (Primitive, error) {
	typ := ValueType(b[0])
	body := b[1:]
	switch typ {
	case ValueTypeNull:
		return NewNullPrimitive(), nil
	case ValueTypeFalse:
		return NewBoolPrimitive(false), nil
	case ValueTypeTrue:
		return NewBoolPrimitive(true), nil
	case ValueTypeInt64:
		if len(body) < 8 {
			return Primitive{}, CorruptValueError("truncated int64 value")
		}
		return NewInt64Primitive(int64(decodeUint64(body))), nil
	case ValueTypeTimestamp:
		if len(body) < 8 {
			return Primitive{}, CorruptValueError("truncated timestamp value")
		}
		return NewTimestampPrimitive(int64(decodeUint64(body))), nil
	case ValueTypeDouble:
		if len(body) < 8 {
			return Primitive{}, CorruptValueError("truncated double value")
		}
		return NewDoublePrimitive(math.Float64frombits(decodeUint64(body))), nil
	case ValueTypeString:
		s, _, err := decodeLengthPrefixed(body)
		if err != nil {
			return Primitive{}, err
		}
		return NewStringPrimitive(string(s)), nil
	case ValueTypeUUID:
		if len(body) < 16 {
			return Primitive{}, CorruptValueError("truncated uuid value")
		}
		var u uuid.UUID
		copy(u[:], body[:16])
		return NewUUIDPrimitive(u), nil
	case ValueTypeDecimal:
		dec, err := decodeDecimalValue(body)
		if err != nil {
			return Primitive{}, err
		}
		return NewDecimalPrimitive(dec), nil
	default:
		return Primitive{}, CorruptValueError("unknown value type byte %#x", b[0])
	}
}

func appendLengthPrefixed(b []byte, data []byte) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(data)))
	b = append(b, tmp[:n]...)
	return append(b, data...)
}

func decodeLengthPrefixed(b []byte) ([]byte, []byte, error) {
	length, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, nil, CorruptValueError("malformed length prefix")
	}
	b = b[n:]
	if uint64(len(b)) < length {
		return nil, nil, CorruptValueError("truncated length-prefixed payload")
	}
	return b[:length], b[length:], nil
}

func encodeDecimalValue(b []byte, d *inf.Dec) []byte {
	bi := d.UnscaledBig()
	b = appendLengthPrefixed(b, []byte(bi.String()))
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(int32(d.Scale())))
	return append(b, tmp[:]...)
}

func decodeDecimalValue(b []byte) (*inf.Dec, error) {
	digits, rest, err := decodeLengthPrefixed(b)
	if err != nil {
		return nil, err
	}
	if len(rest) < 4 {
		return nil, CorruptValueError("truncated decimal scale")
	}
	scale := inf.Scale(int32(binary.BigEndian.Uint32(rest[:4])))
	unscaled, success := new(big.Int).SetString(string(digits), 10)
	if !success {
		return nil, CorruptValueError("decimal digit string is not decimal: %q", digits)
	}
	dec := new(inf.Dec)
	dec.SetUnscaledBig(unscaled)
	dec.SetScale(scale)
	return dec, nil
}
