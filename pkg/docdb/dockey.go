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

// hashBucketMarker precedes a DocKey's two-byte hash bucket, when present.
// It must not collide with any ValueType code or the group-end marker so a
// decoder can peek one byte and know whether a hash bucket follows.
const hashBucketMarker byte = 0x10

// DocKey identifies a top-level document: an optional hash bucket (used to
// spread range-sharded tables across tablets), an ordered sequence of
// hashed-range primitives, and an ordered sequence of range primitives.
type DocKey struct {
	hasHash         bool
	hash            uint16
	hashedRange     []Primitive
	rangeComponents []Primitive
}

// NewDocKey returns an unhashed DocKey with the given range components.
func NewDocKey(rangeComponents ...Primitive) DocKey {
	return DocKey{rangeComponents: append([]Primitive(nil), rangeComponents...)}
}

// NewHashedDocKey returns a DocKey with an explicit hash bucket.
func NewHashedDocKey(hash uint16, hashedRange []Primitive, rangeComponents []Primitive) DocKey {
	return DocKey{
		hasHash:         true,
		hash:            hash,
		hashedRange:     append([]Primitive(nil), hashedRange...),
		rangeComponents: append([]Primitive(nil), rangeComponents...),
	}
}

// HasHash reports whether k carries an explicit hash bucket.
func (k DocKey) HasHash() bool { return k.hasHash }

// Hash returns the hash bucket. Valid only when HasHash().
func (k DocKey) Hash() uint16 { return k.hash }

// HashedRangeComponents returns the hashed-range primitives.
func (k DocKey) HashedRangeComponents() []Primitive { return k.hashedRange }

// RangeComponents returns the (unhashed) range primitives.
func (k DocKey) RangeComponents() []Primitive { return k.rangeComponents }

// Equal reports whether k and other encode to the same bytes.
func (k DocKey) Equal(other DocKey) bool {
	return string(EncodeDocKey(nil, k)) == string(EncodeDocKey(nil, other))
}

// EncodeDocKey appends the encoding of k to b: an optional hash marker and
// bucket, the hashed-range primitives terminated by a group-end marker, and
// the range primitives terminated by a second group-end marker.
func EncodeDocKey(b []byte, k DocKey) []byte {
	if k.hasHash {
		b = append(b, hashBucketMarker, byte(k.hash>>8), byte(k.hash))
	}
	for _, p := range k.hashedRange {
		b = EncodePrimitiveKey(b, p)
	}
	b = append(b, byte(ValueTypeGroupEnd))
	for _, p := range k.rangeComponents {
		b = EncodePrimitiveKey(b, p)
	}
	b = append(b, byte(ValueTypeGroupEnd))
	return b
}

// DecodeDocKey is the inverse of EncodeDocKey.
func DecodeDocKey(b []byte) ([]byte, DocKey, error) {
	var k DocKey
	if len(b) > 0 && b[0] == hashBucketMarker {
		if len(b) < 3 {
			return nil, DocKey{}, CorruptKeyError("truncated hash bucket: %x", b)
		}
		k.hasHash = true
		k.hash = uint16(b[1])<<8 | uint16(b[2])
		b = b[3:]
	}
	rest, hashed, err := decodePrimitiveSeq(b)
	if err != nil {
		return nil, DocKey{}, err
	}
	k.hashedRange = hashed
	rest, ranged, err := decodePrimitiveSeq(rest)
	if err != nil {
		return nil, DocKey{}, err
	}
	k.rangeComponents = ranged
	return rest, k, nil
}

// decodePrimitiveSeq decodes primitives from the front of b until a
// group-end marker is consumed, returning the bytes after the marker.
func decodePrimitiveSeq(b []byte) ([]byte, []Primitive, error) {
	var out []Primitive
	for {
		if len(b) == 0 {
			return nil, nil, CorruptKeyError("unterminated primitive sequence")
		}
		if b[0] == byte(ValueTypeGroupEnd) {
			return b[1:], out, nil
		}
		rest, p, err := DecodePrimitiveKey(b)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, p)
		b = rest
	}
}
