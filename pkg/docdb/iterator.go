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

import "bytes"

// InternalDocIterator wraps a forward Cursor over the Store plus the key
// prefix it was last positioned at. It exclusively owns its Cursor and must
// not be shared across goroutines.
type InternalDocIterator struct {
	store  Store
	cursor Cursor
	prefix []byte
	seeks  *int // shared per-batch seek counter
}

// NewInternalDocIterator returns an iterator over store that attributes its
// seeks to the given counter (pass the same *int across a batch's iterators
// to bound total read amplification, per the design's instrumentation
// requirement).
func NewInternalDocIterator(store Store, seeks *int) *InternalDocIterator {
	if seeks == nil {
		seeks = new(int)
	}
	return &InternalDocIterator{store: store, seeks: seeks}
}

// SeekToKeyPrefix positions the cursor at the first stored key >= prefix,
// and matches subsequent keys against that same prefix.
func (it *InternalDocIterator) SeekToKeyPrefix(prefix []byte) error {
	return it.seek(prefix, prefix)
}

// SeekToPathAt positions the cursor at the newest entry (if any) at path
// whose HybridTime is <= t: it seeks to path's descending-HybridTime-suffixed
// key for t, but matches landed keys against path's own (shorter) prefix, so
// KeyMatchesPrefix reports whether path has any entry at all rather than
// requiring an exact HybridTime match.
func (it *InternalDocIterator) SeekToPathAt(path DocPath, t HybridTime) error {
	return it.seek(path.SeekBytes(t), path.Encode())
}

func (it *InternalDocIterator) seek(target, matchPrefix []byte) error {
	if it.cursor != nil {
		_ = it.cursor.Close()
	}
	cur, err := it.store.Seek(target)
	if err != nil {
		return err
	}
	it.cursor = cur
	it.prefix = append(it.prefix[:0], matchPrefix...)
	*it.seeks++
	return nil
}

// KeyMatchesPrefix reports whether the cursor is valid and its current key
// extends the match prefix of the last seek: the prefix passed to
// SeekToKeyPrefix, or path's own encoding for SeekToPathAt.
func (it *InternalDocIterator) KeyMatchesPrefix() bool {
	return it.cursor != nil && it.cursor.Valid() && bytes.HasPrefix(it.cursor.Key(), it.prefix)
}

// ValueType returns the node type stored at the cursor's current key, or
// ValueTypeInvalid if the cursor is not positioned on a matching key.
func (it *InternalDocIterator) ValueType() (ValueType, error) {
	if !it.KeyMatchesPrefix() {
		return ValueTypeInvalid, nil
	}
	v, err := DecodeValue(it.cursor.Value())
	if err != nil {
		return ValueTypeInvalid, err
	}
	return v.Type(), nil
}

// Value decodes the full Value stored at the cursor's current key.
func (it *InternalDocIterator) Value() (Value, error) {
	return DecodeValue(it.cursor.Value())
}

// GenerationTime returns the HybridTime encoded in the cursor's current key,
// and false if the cursor is not positioned on a matching key.
func (it *InternalDocIterator) GenerationTime() (HybridTime, bool, error) {
	if !it.KeyMatchesPrefix() {
		return 0, false, nil
	}
	_, subKey, err := DecodeSubDocKey(it.cursor.Key())
	if err != nil {
		return 0, false, err
	}
	return subKey.HybridTime(), true, nil
}

// Key returns the cursor's current raw key.
func (it *InternalDocIterator) Key() []byte {
	if it.cursor == nil || !it.cursor.Valid() {
		return nil
	}
	return it.cursor.Key()
}

// Next advances the cursor.
func (it *InternalDocIterator) Next() bool {
	return it.cursor != nil && it.cursor.Next()
}

// Close releases the iterator's cursor, if any.
func (it *InternalDocIterator) Close() error {
	if it.cursor == nil {
		return nil
	}
	err := it.cursor.Close()
	it.cursor = nil
	return err
}

// Seeks returns the number of seeks (SeekToKeyPrefix and SeekToPathAt
// calls) recorded in this iterator's shared counter so far.
func (it *InternalDocIterator) Seeks() int { return *it.seeks }
