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

import "fmt"

// DocPath is a DocKey plus the subkey path below its root, with no
// HybridTime. It is the mutation layer's address: the WriteBatchCache and
// WriteBatchBuilder operate on DocPaths and only attach a HybridTime at the
// point of writing or seeking.
type DocPath struct {
	doc     DocKey
	subkeys []Primitive
}

// NewDocPath returns the DocPath rooted at doc with the given subkey chain.
func NewDocPath(doc DocKey, subkeys ...Primitive) DocPath {
	return DocPath{doc: doc, subkeys: append([]Primitive(nil), subkeys...)}
}

// DocKey returns the path's root document key.
func (p DocPath) DocKey() DocKey { return p.doc }

// Subkeys returns the path's subkey chain, root-to-leaf.
func (p DocPath) Subkeys() []Primitive { return p.subkeys }

// Len returns the number of subkeys (0 for the document root itself).
func (p DocPath) Len() int { return len(p.subkeys) }

// Parent returns the path with its last subkey removed, and false if p is
// already the document root.
func (p DocPath) Parent() (DocPath, bool) {
	if len(p.subkeys) == 0 {
		return DocPath{}, false
	}
	return DocPath{doc: p.doc, subkeys: p.subkeys[:len(p.subkeys)-1]}, true
}

// Child returns the path extended by one subkey.
func (p DocPath) Child(subkey Primitive) DocPath {
	subkeys := make([]Primitive, len(p.subkeys)+1)
	copy(subkeys, p.subkeys)
	subkeys[len(p.subkeys)] = subkey
	return DocPath{doc: p.doc, subkeys: subkeys}
}

// Equal reports whether p and other address the same node.
func (p DocPath) Equal(other DocPath) bool {
	return string(p.Encode()) == string(other.Encode())
}

// Encode appends the path's bytes to b: the DocKey followed by each subkey
// primitive, with no trailing group-end and no HybridTime. This is both the
// WriteBatchCache map key and the scan lower bound used to test whether a
// store key falls under this path.
func (p DocPath) Encode() []byte {
	b := EncodeDocKey(nil, p.doc)
	for _, sk := range p.subkeys {
		b = EncodePrimitiveKey(b, sk)
	}
	return b
}

// SeekBytes appends a group-end marker and the descending encoding of t to
// the path's encoding, producing the exact store key to seek to when
// positioning an InternalDocIterator at this path and HybridTime.
func (p DocPath) SeekBytes(t HybridTime) []byte {
	b := p.Encode()
	b = append(b, byte(ValueTypeGroupEnd))
	return encodeHybridTimeDescending(b, t)
}

// SubDocKey returns the fully qualified key reading/writing this path at t.
func (p DocPath) SubDocKey(t HybridTime) SubDocKey {
	return SubDocKey{path: p, hybridTime: t}
}

func (p DocPath) String() string {
	s := fmt.Sprintf("%v", p.doc.RangeComponents())
	for _, sk := range p.subkeys {
		s += "." + sk.String()
	}
	return s
}

// SubDocKey is a DocPath plus the HybridTime at which a node along it was
// written: the exact key format persisted to the store.
type SubDocKey struct {
	path       DocPath
	hybridTime HybridTime
}

// Path returns the key's DocPath (DocKey + subkeys, no HybridTime).
func (k SubDocKey) Path() DocPath { return k.path }

// HybridTime returns the key's generation timestamp.
func (k SubDocKey) HybridTime() HybridTime { return k.hybridTime }

// Encode appends the key's bytes to b. It is exactly path.SeekBytes(t).
func (k SubDocKey) Encode(b []byte) []byte {
	return append(b, k.path.SeekBytes(k.hybridTime)...)
}

// DecodeSubDocKey decodes a full SubDocKey from the front of b: a DocKey,
// an ordered sequence of subkey primitives terminated by a group-end
// marker, and a descending-encoded HybridTime.
func DecodeSubDocKey(b []byte) ([]byte, SubDocKey, error) {
	rest, doc, err := DecodeDocKey(b)
	if err != nil {
		return nil, SubDocKey{}, err
	}
	rest, subkeys, err := decodePrimitiveSeq(rest)
	if err != nil {
		return nil, SubDocKey{}, err
	}
	rest, t, err := decodeHybridTimeDescending(rest)
	if err != nil {
		return nil, SubDocKey{}, err
	}
	return rest, SubDocKey{path: DocPath{doc: doc, subkeys: subkeys}, hybridTime: t}, nil
}

func (k SubDocKey) String() string {
	return fmt.Sprintf("%s@%s", k.path.String(), k.hybridTime.String())
}
