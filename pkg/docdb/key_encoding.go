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
	"math"

	"github.com/google/uuid"
)

// EncodePrimitiveKey appends the order-preserving, self-delimiting encoding
// of p to b and returns the extended slice. The type byte is always first;
// sorting two encodings bytewise matches sorting the two primitives by type
// code (the ValueType order in types.go) and then by value.
func EncodePrimitiveKey(b []byte, p Primitive) []byte {
	switch p.typ {
	case ValueTypeNull, ValueTypeFalse, ValueTypeTrue:
		return append(b, byte(p.typ))
	case ValueTypeInt64:
		return encodeInt64Key(b, p.i)
	case ValueTypeTimestamp:
		b = append(b, byte(ValueTypeTimestamp))
		return encodeInt64Bits(b, p.i)
	case ValueTypeDouble:
		return encodeDoubleKey(b, p.f)
	case ValueTypeString:
		b = append(b, byte(ValueTypeString))
		return encodeZeroEncodedString(b, p.s)
	case ValueTypeUUID:
		b = append(b, byte(ValueTypeUUID))
		return append(b, p.u[:]...)
	case ValueTypeDecimal:
		b = append(b, byte(ValueTypeDecimal))
		return encodeDecimalKey(b, p.dec)
	default:
		panic("EncodePrimitiveKey: not a primitive type: " + p.typ.String())
	}
}

// DecodePrimitiveKey decodes one primitive from the front of b, returning the
// remaining bytes and the decoded primitive. It returns CorruptKeyError on an
// unrecognized type byte or a truncated payload.
func DecodePrimitiveKey(b []byte) ([]byte, Primitive, error) {
	if len(b) == 0 {
		return nil, Primitive{}, CorruptKeyError("empty buffer, expected a primitive")
	}
	typ := ValueType(b[0])
	switch typ {
	case ValueTypeNull:
		return b[1:], NewNullPrimitive(), nil
	case ValueTypeFalse:
		return b[1:], NewBoolPrimitive(false), nil
	case ValueTypeTrue:
		return b[1:], NewBoolPrimitive(true), nil
	case ValueTypeInt64:
		return decodeInt64Key(b)
	case ValueTypeTimestamp:
		rest, v, err := decodeInt64Bits(b[1:])
		if err != nil {
			return nil, Primitive{}, err
		}
		return rest, NewTimestampPrimitive(v), nil
	case ValueTypeDouble:
		return decodeDoubleKey(b)
	case ValueTypeString:
		rest, s, err := decodeZeroEncodedString(b[1:])
		if err != nil {
			return nil, Primitive{}, err
		}
		return rest, NewStringPrimitive(s), nil
	case ValueTypeUUID:
		if len(b) < 17 {
			return nil, Primitive{}, CorruptKeyError("truncated uuid key: %x", b)
		}
		var u uuid.UUID
		copy(u[:], b[1:17])
		return b[17:], NewUUIDPrimitive(u), nil
	case ValueTypeDecimal:
		return decodeDecimalKey(b[1:])
	default:
		return nil, Primitive{}, CorruptKeyError("unknown type byte %#x at start of key", b[0])
	}
}

// encodeInt64Key encodes a signed int64 as a type byte followed by its
// big-endian representation with the sign bit flipped, so that bytewise
// order matches numeric order.
func encodeInt64Key(b []byte, v int64) []byte {
	b = append(b, byte(ValueTypeInt64))
	return encodeInt64Bits(b, v)
}

func encodeInt64Bits(b []byte, v int64) []byte {
	u := uint64(v) ^ (uint64(1) << 63)
	return append(b, byte(u>>56), byte(u>>48), byte(u>>40), byte(u>>32),
		byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
}

func decodeInt64Key(b []byte) ([]byte, Primitive, error) {
	rest, v, err := decodeInt64Bits(b[1:])
	if err != nil {
		return nil, Primitive{}, err
	}
	return rest, NewInt64Primitive(v), nil
}

func decodeInt64Bits(b []byte) ([]byte, int64, error) {
	if len(b) < 8 {
		return nil, 0, CorruptKeyError("insufficient bytes to decode int64: %x", b)
	}
	u := (uint64(b[0]) << 56) | (uint64(b[1]) << 48) |
		(uint64(b[2]) << 40) | (uint64(b[3]) << 32) |
		(uint64(b[4]) << 24) | (uint64(b[5]) << 16) |
		(uint64(b[6]) << 8) | uint64(b[7])
	u ^= uint64(1) << 63
	return b[8:], int64(u), nil
}

// encodeDoubleKey encodes a float64 as a type byte followed by its 64-bit
// IEEE-754 big-endian representation: if the sign bit is set, all bits are
// inverted (so larger-magnitude negatives sort first, as intended);
// otherwise only the sign bit is flipped (so positives sort after all
// negatives).
func encodeDoubleKey(b []byte, f float64) []byte {
	b = append(b, byte(ValueTypeDouble))
	u := math.Float64bits(f)
	if u&(uint64(1)<<63) != 0 {
		u = ^u
	} else {
		u |= uint64(1) << 63
	}
	return append(b, byte(u>>56), byte(u>>48), byte(u>>40), byte(u>>32),
		byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
}

func decodeDoubleKey(b []byte) ([]byte, Primitive, error) {
	if len(b) < 9 {
		return nil, Primitive{}, CorruptKeyError("insufficient bytes to decode double: %x", b)
	}
	b = b[1:]
	u := (uint64(b[0]) << 56) | (uint64(b[1]) << 48) |
		(uint64(b[2]) << 40) | (uint64(b[3]) << 32) |
		(uint64(b[4]) << 24) | (uint64(b[5]) << 16) |
		(uint64(b[6]) << 8) | uint64(b[7])
	if u&(uint64(1)<<63) != 0 {
		u &^= uint64(1) << 63
	} else {
		u = ^u
	}
	return b[8:], NewDoublePrimitive(math.Float64frombits(u)), nil
}

// zeroEscape and zeroTerm implement the "zero-encoded" string format: bytes
// are copied verbatim except any 0x00 is replaced by the two bytes 0x00 0x01;
// the string is terminated by the two bytes 0x00 0x00. This guarantees
// prefix-freedom (the terminator sequence cannot occur unescaped inside the
// payload) and preserves lexicographic string ordering.
const (
	zeroEscapeByte     byte = 0x00
	zeroEscapedLiteral byte = 0x01
	zeroTerminator     byte = 0x00
)

func encodeZeroEncodedString(b []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == zeroEscapeByte {
			b = append(b, zeroEscapeByte, zeroEscapedLiteral)
		} else {
			b = append(b, c)
		}
	}
	return append(b, zeroEscapeByte, zeroTerminator)
}

func decodeZeroEncodedString(b []byte) ([]byte, string, error) {
	out := make([]byte, 0, len(b))
	i := 0
	for {
		if i >= len(b) {
			return nil, "", CorruptKeyError("unterminated zero-encoded string: %x", b)
		}
		if b[i] != zeroEscapeByte {
			out = append(out, b[i])
			i++
			continue
		}
		if i+1 >= len(b) {
			return nil, "", CorruptKeyError("truncated escape in zero-encoded string: %x", b)
		}
		switch b[i+1] {
		case zeroTerminator:
			return b[i+2:], string(out), nil
		case zeroEscapedLiteral:
			out = append(out, 0x00)
			i += 2
		default:
			return nil, "", CorruptKeyError("invalid escape sequence %#x in zero-encoded string", b[i+1])
		}
	}
}

// encodeUvarintAscending appends an order-preserving variable-length
// encoding of v: a one-byte length prefix (the minimal number of bytes
// needed to hold v) followed by that many big-endian bytes. Because the
// prefix is exactly the byte count, and byte count is monotonic in v's
// magnitude, lexicographic comparison of two encodings matches numeric
// comparison of the values they encode.
func encodeUvarintAscending(b []byte, v uint64) []byte {
	switch {
	case v <= 0xff:
		return append(b, 1, byte(v))
	case v <= 0xffff:
		return append(b, 2, byte(v>>8), byte(v))
	case v <= 0xffffff:
		return append(b, 3, byte(v>>16), byte(v>>8), byte(v))
	case v <= 0xffffffff:
		return append(b, 4, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	case v <= 0xffffffffff:
		return append(b, 5, byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	case v <= 0xffffffffffff:
		return append(b, 6, byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	case v <= 0xffffffffffffff:
		return append(b, 7, byte(v>>48), byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	default:
		return append(b, 8, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
}

func decodeUvarintAscending(b []byte) ([]byte, uint64, error) {
	if len(b) == 0 {
		return nil, 0, CorruptKeyError("insufficient bytes to decode uvarint")
	}
	length := int(b[0])
	if length < 1 || length > 8 {
		return nil, 0, CorruptKeyError("invalid uvarint length byte %d", length)
	}
	b = b[1:]
	if len(b) < length {
		return nil, 0, CorruptKeyError("insufficient bytes to decode uvarint body")
	}
	var v uint64
	for _, c := range b[:length] {
		v = (v << 8) | uint64(c)
	}
	return b[length:], v, nil
}

// onesComplement flips every bit in b, in place.
func onesComplement(b []byte) {
	for i := range b {
		b[i] = ^b[i]
	}
}
