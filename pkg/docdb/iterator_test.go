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
	"testing"

	"github.com/stretchr/testify/require"
)

func putSubDoc(t *testing.T, store Store, path DocPath, ht HybridTime, v Value) {
	t.Helper()
	batch := store.NewBatch()
	require.NoError(t, batch.Put(path.SubDocKey(ht).Encode(nil), EncodeValue(nil, v)))
	require.NoError(t, store.Write(batch))
}

func TestInternalDocIteratorSeekToPathAt(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	path := NewDocPath(doc, NewStringPrimitive("a"))

	putSubDoc(t, store, path, HybridTime(10), NewPrimitiveValue(NewInt64Primitive(7)))

	var seeks int
	it := NewInternalDocIterator(store, &seeks)
	defer it.Close()

	require.NoError(t, it.SeekToPathAt(path, HybridTimeMax))
	require.True(t, it.KeyMatchesPrefix())
	v, err := it.Value()
	require.NoError(t, err)
	require.Equal(t, int64(7), v.Primitive().AsInt64())
	require.Equal(t, 1, it.Seeks())

	genTime, ok, err := it.GenerationTime()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, HybridTime(10), genTime)
}

func TestInternalDocIteratorSeekToPathAtMissing(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	path := NewDocPath(doc, NewStringPrimitive("absent"))

	var seeks int
	it := NewInternalDocIterator(store, &seeks)
	defer it.Close()

	require.NoError(t, it.SeekToPathAt(path, HybridTimeMax))
	require.False(t, it.KeyMatchesPrefix())

	typ, err := it.ValueType()
	require.NoError(t, err)
	require.Equal(t, ValueTypeInvalid, typ)
}

func TestInternalDocIteratorSeekToKeyPrefixCountsSeeks(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	path := NewDocPath(doc, NewStringPrimitive("a"))
	putSubDoc(t, store, path, HybridTime(1), NewPrimitiveValue(NewInt64Primitive(1)))

	var seeks int
	it := NewInternalDocIterator(store, &seeks)
	defer it.Close()

	require.NoError(t, it.SeekToKeyPrefix(path.Encode()))
	require.NoError(t, it.SeekToKeyPrefix(path.Encode()))
	require.Equal(t, 2, seeks)
}

func TestInternalDocIteratorSharedCounterAcrossIterators(t *testing.T) {
	store := openTestStore(t)
	var seeks int
	it1 := NewInternalDocIterator(store, &seeks)
	it2 := NewInternalDocIterator(store, &seeks)
	defer it1.Close()
	defer it2.Close()

	require.NoError(t, it1.SeekToKeyPrefix(nil))
	require.NoError(t, it2.SeekToKeyPrefix(nil))
	require.Equal(t, 2, seeks)
	require.Equal(t, 2, it1.Seeks())
	require.Equal(t, 2, it2.Seeks())
}
