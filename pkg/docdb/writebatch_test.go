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

	"github.com/google/btree"
	"github.com/stretchr/testify/require"
)

func flush(t *testing.T, store Store, b *WriteBatchBuilder) {
	t.Helper()
	batch, err := b.Finish()
	require.NoError(t, err)
	require.NoError(t, store.Write(batch))
}

// dumpEntries reads every (path, HybridTime, Value) triple currently in
// store, in key order, for assertions that need to inspect physical layout
// rather than just the logical read result.
func dumpEntries(t *testing.T, store Store) []struct {
	Key SubDocKey
	Val Value
} {
	t.Helper()
	cursor, err := store.Seek(nil)
	require.NoError(t, err)
	defer cursor.Close()

	var out []struct {
		Key SubDocKey
		Val Value
	}
	for cursor.Valid() {
		_, sk, err := DecodeSubDocKey(cursor.Key())
		require.NoError(t, err)
		v, err := DecodeValue(cursor.Value())
		require.NoError(t, err)
		out = append(out, struct {
			Key SubDocKey
			Val Value
		}{sk, v})
		cursor.Next()
	}
	return out
}

func TestSetPrimitiveCreatesInitMarkersRequired(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	path := NewDocPath(doc, NewStringPrimitive("a"), NewStringPrimitive("b"), NewStringPrimitive("c"))

	b := NewWriteBatchBuilder(store)
	require.NoError(t, b.SetPrimitive(path, NewPrimitiveValue(NewInt64Primitive(7)), HybridTime(10), InitMarkerRequired))
	flush(t, store, b)

	entries := dumpEntries(t, store)
	require.Len(t, entries, 3)

	byPathLen := map[int]Value{}
	for _, e := range entries {
		byPathLen[e.Key.Path().Len()] = e.Val
	}
	require.True(t, byPathLen[1].IsObject())
	require.True(t, byPathLen[2].IsObject())
	require.Equal(t, int64(7), byPathLen[3].Primitive().AsInt64())
}

func TestSetPrimitiveOptionalSkipsMarkers(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	path := NewDocPath(doc, NewStringPrimitive("a"), NewStringPrimitive("b"))

	b := NewWriteBatchBuilder(store)
	require.NoError(t, b.SetPrimitive(path, NewPrimitiveValue(NewInt64Primitive(1)), HybridTime(5), InitMarkerOptional))
	flush(t, store, b)

	entries := dumpEntries(t, store)
	require.Len(t, entries, 1)
	require.True(t, entries[0].Val.IsPrimitive())
}

func TestSetPrimitiveRejectsEmptyPath(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	b := NewWriteBatchBuilder(store)
	err := b.SetPrimitive(NewDocPath(doc), NewPrimitiveValue(NewInt64Primitive(1)), HybridTime(1), InitMarkerRequired)
	require.Error(t, err)
	require.Equal(t, KindBadArgument, KindOf(err))
}

// TestOverwritePrimitiveWithObjectWidens is scenario S2 at the batch level:
// set a.b="x" at t=5, then set a.b.c=1 at t=10 widens a.b from a primitive
// into an object. The widening stages both a tombstone and an object marker
// at a.b@10 in the builder, but the two share the exact same store key
// (path and HybridTime, independent of value); a normal scan surfaces only
// the one applied last within the batch. Canonical flush order puts the
// tombstone (rankAncestorTombstone) before the marker (rankAncestorMarker),
// so the marker is what ends up physically stored at a.b@10.
func TestOverwritePrimitiveWithObjectWidens(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	ab := NewDocPath(doc, NewStringPrimitive("a"), NewStringPrimitive("b"))
	abc := ab.Child(NewStringPrimitive("c"))

	b1 := NewWriteBatchBuilder(store)
	require.NoError(t, b1.SetPrimitive(ab, NewPrimitiveValue(NewStringPrimitive("x")), HybridTime(5), InitMarkerRequired))
	flush(t, store, b1)

	b2 := NewWriteBatchBuilder(store)
	require.NoError(t, b2.SetPrimitive(abc, NewPrimitiveValue(NewInt64Primitive(1)), HybridTime(10), InitMarkerRequired))
	batch, err := b2.Finish()
	require.NoError(t, err)
	require.Equal(t, 3, batch.Len(), "ancestor tombstone, ancestor marker, and the leaf effect are each staged once")
	require.NoError(t, store.Write(batch))

	entries := dumpEntries(t, store)
	var atAB10 []Value
	for _, e := range entries {
		if e.Key.Path().Equal(ab) && e.Key.HybridTime() == HybridTime(10) {
			atAB10 = append(atAB10, e.Val)
		}
	}
	require.Len(t, atAB10, 1, "tombstone and marker share a key; only the later-applied write survives a scan")
	require.True(t, atAB10[0].IsObject(), "the marker must be applied after the tombstone so the path reads back as an object")
}

func TestConflictingEffectWritesRejected(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	path := NewDocPath(doc, NewStringPrimitive("a"))

	b := NewWriteBatchBuilder(store)
	require.NoError(t, b.SetPrimitive(path, NewPrimitiveValue(NewInt64Primitive(1)), HybridTime(10), InitMarkerRequired))
	err := b.SetPrimitive(path, NewPrimitiveValue(NewInt64Primitive(2)), HybridTime(10), InitMarkerRequired)
	require.Error(t, err)
	require.Equal(t, KindInvariantViolation, KindOf(err))
}

func TestIdenticalDuplicateEffectWritesAreNotConflicts(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	path := NewDocPath(doc, NewStringPrimitive("a"))

	b := NewWriteBatchBuilder(store)
	require.NoError(t, b.SetPrimitive(path, NewPrimitiveValue(NewInt64Primitive(1)), HybridTime(10), InitMarkerRequired))
	require.NoError(t, b.SetPrimitive(path, NewPrimitiveValue(NewInt64Primitive(1)), HybridTime(10), InitMarkerRequired))
}

func TestDeleteSubDoc(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	path := NewDocPath(doc, NewStringPrimitive("a"))

	b1 := NewWriteBatchBuilder(store)
	require.NoError(t, b1.SetPrimitive(path, NewPrimitiveValue(NewInt64Primitive(1)), HybridTime(5), InitMarkerRequired))
	flush(t, store, b1)

	b2 := NewWriteBatchBuilder(store)
	require.NoError(t, b2.DeleteSubDoc(path, HybridTime(10), InitMarkerRequired))
	flush(t, store, b2)

	var latest Value
	for _, e := range dumpEntries(t, store) {
		if e.Key.Path().Equal(path) && e.Key.HybridTime() == HybridTime(10) {
			latest = e.Val
		}
	}
	require.True(t, latest.IsTombstone())
}

func TestExtendSubDocumentMergesWithoutClobberingSiblings(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	a := NewDocPath(doc, NewStringPrimitive("a"))

	existing := NewObjectSubDocument()
	existing.Set(NewStringPrimitive("x"), NewPrimitiveSubDocument(NewInt64Primitive(1)))
	b1 := NewWriteBatchBuilder(store)
	require.NoError(t, b1.ExtendSubDocument(a, existing, HybridTime(1), InitMarkerRequired, TTLNever))
	flush(t, store, b1)

	addition := NewObjectSubDocument()
	addition.Set(NewStringPrimitive("y"), NewPrimitiveSubDocument(NewInt64Primitive(2)))
	b2 := NewWriteBatchBuilder(store)
	require.NoError(t, b2.ExtendSubDocument(a, addition, HybridTime(2), InitMarkerRequired, TTLNever))
	flush(t, store, b2)

	reader := NewSubtreeReader(store)
	doc2, found, err := reader.GetSubDocument(a, HybridTimeMax)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, doc2.Keys(), 2)
	x, ok := doc2.Get(NewStringPrimitive("x"))
	require.True(t, ok)
	require.Equal(t, int64(1), x.Primitive().AsInt64())
	y, ok := doc2.Get(NewStringPrimitive("y"))
	require.True(t, ok)
	require.Equal(t, int64(2), y.Primitive().AsInt64())
}

// TestExtendSubDocumentWritesArrayOfObjects exercises ExtendSubDocument's
// array branch with elements that are themselves objects, nested under an
// object field, confirming array elements recurse through the same
// ExtendSubDocument merge logic as object keys (keyed by int64 index
// instead of a named subkey).
func TestExtendSubDocumentWritesArrayOfObjects(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	root := NewDocPath(doc, NewStringPrimitive("root"))

	elem0 := NewObjectSubDocument()
	elem0.Set(NewStringPrimitive("name"), NewPrimitiveSubDocument(NewStringPrimitive("a")))
	elem1 := NewObjectSubDocument()
	elem1.Set(NewStringPrimitive("name"), NewPrimitiveSubDocument(NewStringPrimitive("b")))

	arr := NewArraySubDocument()
	arr.AppendElement(elem0)
	arr.AppendElement(elem1)

	outer := NewObjectSubDocument()
	outer.Set(NewStringPrimitive("items"), arr)

	b := NewWriteBatchBuilder(store)
	require.NoError(t, b.ExtendSubDocument(root, outer, HybridTime(1), InitMarkerRequired, TTLNever))
	flush(t, store, b)

	reader := NewSubtreeReader(store)
	got, found, err := reader.GetSubDocument(root, HybridTimeMax)
	require.NoError(t, err)
	require.True(t, found)
	items, ok := got.Get(NewStringPrimitive("items"))
	require.True(t, ok)
	require.True(t, items.IsArray())
	require.Len(t, items.Elements(), 2)
	name0, ok := items.Elements()[0].Get(NewStringPrimitive("name"))
	require.True(t, ok)
	require.Equal(t, "a", name0.Primitive().AsString())
	name1, ok := items.Elements()[1].Get(NewStringPrimitive("name"))
	require.True(t, ok)
	require.Equal(t, "b", name1.Primitive().AsString())
}

// TestExtendSubDocumentArrayOptionalPolicyStillGetsMarker exercises the
// ensureAncestorContainer override: an array written fresh under
// InitMarkerOptional still gets an explicit marker, because without one the
// scan can't tell an integer-keyed object from a marker-less array.
func TestExtendSubDocumentArrayOptionalPolicyStillGetsMarker(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	a := NewDocPath(doc, NewStringPrimitive("a"))

	arr := NewArraySubDocument()
	arr.AppendElement(NewPrimitiveSubDocument(NewInt64Primitive(7)))

	b := NewWriteBatchBuilder(store)
	require.NoError(t, b.ExtendSubDocument(a, arr, HybridTime(1), InitMarkerOptional, TTLNever))
	flush(t, store, b)

	reader := NewSubtreeReader(store)
	got, found, err := reader.GetSubDocument(a, HybridTimeMax)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, got.IsArray())
	require.Len(t, got.Elements(), 1)
	require.Equal(t, int64(7), got.Elements()[0].Primitive().AsInt64())
}

func TestInsertSubDocumentReplacesWholeSubtree(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	a := NewDocPath(doc, NewStringPrimitive("a"))

	original := NewObjectSubDocument()
	original.Set(NewStringPrimitive("old"), NewPrimitiveSubDocument(NewInt64Primitive(1)))
	b1 := NewWriteBatchBuilder(store)
	require.NoError(t, b1.ExtendSubDocument(a, original, HybridTime(1), InitMarkerRequired, TTLNever))
	flush(t, store, b1)

	replacement := NewObjectSubDocument()
	replacement.Set(NewStringPrimitive("new"), NewPrimitiveSubDocument(NewInt64Primitive(2)))
	b2 := NewWriteBatchBuilder(store)
	require.NoError(t, b2.InsertSubDocument(a, replacement, HybridTime(2), InitMarkerRequired, TTLNever))
	flush(t, store, b2)

	reader := NewSubtreeReader(store)
	got, found, err := reader.GetSubDocument(a, HybridTimeMax)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got.Keys(), 1)
	_, hasOld := got.Get(NewStringPrimitive("old"))
	require.False(t, hasOld)
	newVal, hasNew := got.Get(NewStringPrimitive("new"))
	require.True(t, hasNew)
	require.Equal(t, int64(2), newVal.Primitive().AsInt64())
}

// TestInsertSubDocumentOptionalPolicyKeepsChildrenReadable exercises
// InsertSubDocument under InitMarkerOptional: the
// preparatory tombstone and the new subtree's leaves land at the same
// HybridTime, and the children must still read back even though no
// explicit marker was requested at any depth below path.
func TestInsertSubDocumentOptionalPolicyKeepsChildrenReadable(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	a := NewDocPath(doc, NewStringPrimitive("a"))

	original := NewObjectSubDocument()
	original.Set(NewStringPrimitive("old"), NewPrimitiveSubDocument(NewInt64Primitive(1)))
	b1 := NewWriteBatchBuilder(store)
	require.NoError(t, b1.ExtendSubDocument(a, original, HybridTime(1), InitMarkerRequired, TTLNever))
	flush(t, store, b1)

	replacement := NewObjectSubDocument()
	replacement.Set(NewStringPrimitive("new"), NewPrimitiveSubDocument(NewInt64Primitive(2)))
	b2 := NewWriteBatchBuilder(store)
	require.NoError(t, b2.InsertSubDocument(a, replacement, HybridTime(2), InitMarkerOptional, TTLNever))
	flush(t, store, b2)

	reader := NewSubtreeReader(store)
	got, found, err := reader.GetSubDocument(a, HybridTimeMax)
	require.NoError(t, err)
	require.True(t, found, "an InitMarkerOptional insert with live children must not read back as deleted")
	require.Len(t, got.Keys(), 1)
	_, hasOld := got.Get(NewStringPrimitive("old"))
	require.False(t, hasOld)
	newVal, hasNew := got.Get(NewStringPrimitive("new"))
	require.True(t, hasNew)
	require.Equal(t, int64(2), newVal.Primitive().AsInt64())
}

func TestWriteBatchBuilderCanonicalFlushOrderAncestorsBeforeDescendants(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	path := NewDocPath(doc, NewStringPrimitive("a"), NewStringPrimitive("b"))

	b := NewWriteBatchBuilder(store)
	require.NoError(t, b.SetPrimitive(path, NewPrimitiveValue(NewInt64Primitive(1)), HybridTime(1), InitMarkerRequired))
	var ranks []writeRank
	b.tree.Ascend(func(item btree.Item) bool {
		ranks = append(ranks, item.(*pendingWrite).rank)
		return true
	})
	// a's marker flushes before the leaf at a.b.
	require.Equal(t, []writeRank{rankAncestorMarker, rankEffect}, ranks)
	batch, err := b.Finish()
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())
}
