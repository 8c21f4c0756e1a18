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
	"bytes"
	"context"

	"github.com/google/btree"
)

// InitMarkerPolicy controls whether a path-level mutator writes explicit
// object entries at intermediate depths it creates.
type InitMarkerPolicy int

const (
	// InitMarkerRequired guarantees an explicit object entry at every
	// intermediate depth a mutator creates, so readers that don't reason
	// about generation-time ordering can still prove object existence.
	InitMarkerRequired InitMarkerPolicy = iota
	// InitMarkerOptional omits markers that would be redundant because a
	// descendant's own write already establishes the object's existence;
	// readers must fall back to deriving existence from descendants.
	InitMarkerOptional
)

type writeRank int

const (
	// rankAncestorTombstone is the tombstone half of a primitive-to-object
	// widening pair, emitted before the object marker that follows it.
	// InsertSubDocument's preparatory tombstone shares this rank.
	rankAncestorTombstone writeRank = 0
	// rankAncestorMarker is an object init-marker created to support
	// descending past a path that was absent or needed widening.
	rankAncestorMarker writeRank = 1
	// rankEffect is the mutator's own write: a leaf value or a DeleteSubDoc
	// tombstone.
	rankEffect writeRank = 2
)

// pendingWrite is one staged KV write, ordered in the BTree by
// (path bytes, rank, sequence). Because a DocPath's encoding is a byte
// prefix of every path that extends it, sorting by path bytes alone already
// places ancestors before descendants; the rank then breaks ties at a single
// path, and the sequence breaks ties within a single rank.
type pendingWrite struct {
	pathBytes []byte
	rank      writeRank
	seq       int
	key       SubDocKey
	value     Value
}

func (w *pendingWrite) Less(other btree.Item) bool {
	o := other.(*pendingWrite)
	if c := bytes.Compare(w.pathBytes, o.pathBytes); c != 0 {
		return c < 0
	}
	if w.rank != o.rank {
		return w.rank < o.rank
	}
	return w.seq < o.seq
}

// WriteBatchBuilder implements the four path-level mutators (SetPrimitive,
// ExtendSubDocument, InsertSubDocument, DeleteSubDoc) and accumulates their
// effects into a canonically ordered batch. It owns a WriteBatchCache and an
// InternalDocIterator exclusively for its own lifetime.
type WriteBatchBuilder struct {
	store Store
	cache *WriteBatchCache
	iter  *InternalDocIterator
	seeks int

	tree        *btree.BTree
	seq         int
	seenEffects map[string]string // seekBytes(path,t) -> encoded value, rankEffect writes only
}

// NewWriteBatchBuilder returns an empty builder over store.
func NewWriteBatchBuilder(store Store) *WriteBatchBuilder {
	b := &WriteBatchBuilder{
		store: store,
		cache: NewWriteBatchCache(),
		tree:  btree.New(32),
	}
	b.iter = NewInternalDocIterator(store, &b.seeks)
	return b
}

// Seeks returns the number of store seeks performed while building the
// batch so far.
func (b *WriteBatchBuilder) Seeks() int { return b.seeks }

// GetAndResetSeeks returns the seek count and resets it to zero, for tests
// that want to bound read amplification across successive operations on the
// same builder.
func (b *WriteBatchBuilder) GetAndResetSeeks() int {
	n := b.seeks
	b.seeks = 0
	return n
}

func isContainerType(t ValueType) bool {
	return t == ValueTypeObject || t == ValueTypeArray
}

// probe returns what is currently known about path: first the batch's own
// cache (which reflects writes already staged by this builder), falling
// back to a store seek on a miss. TTL expiry is a read-time (SubtreeReader)
// concern; existence here is decided purely by tombstone-or-not.
func (b *WriteBatchBuilder) probe(path DocPath) (CacheEntry, error) {
	if e, ok := b.cache.Get(path); ok {
		return e, nil
	}
	if err := b.iter.SeekToPathAt(path, HybridTimeMax); err != nil {
		return CacheEntry{}, err
	}
	var entry CacheEntry
	if b.iter.KeyMatchesPrefix() {
		v, err := b.iter.Value()
		if err != nil {
			return CacheEntry{}, err
		}
		_, sk, err := DecodeSubDocKey(b.iter.Key())
		if err != nil {
			return CacheEntry{}, err
		}
		entry = CacheEntry{Exists: !v.IsTombstone(), ValueType: v.Type(), GenerationTime: sk.HybridTime(), ObservedAt: HybridTimeMax}
	}
	b.cache.Put(path, entry)
	return entry, nil
}

// emit stages one KV write. rankEffect writes are checked against every
// other rankEffect write previously staged at the same (path, HybridTime):
// a mismatch is the same-key-conflicting-value hazard flagged in the design
// notes and is rejected as an InvariantViolation. Builder-internal
// tombstone/marker pairs (rankAncestorTombstone, rankAncestorMarker) are
// deliberately exempt: they are allowed, by design, to share a (path, t)
// with each other when a primitive is widened into an object.
func (b *WriteBatchBuilder) emit(path DocPath, t HybridTime, value Value, rank writeRank) error {
	if rank == rankEffect {
		k := string(path.SeekBytes(t))
		encoded := string(EncodeValue(nil, value))
		if prev, ok := b.seenEffects[k]; ok {
			if prev != encoded {
				return InvariantViolationError(
					"conflicting writes at %s: %q vs %q", path.String(), prev, encoded)
			}
			return nil
		}
		if b.seenEffects == nil {
			b.seenEffects = make(map[string]string)
		}
		b.seenEffects[k] = encoded
	}

	b.seq++
	b.tree.ReplaceOrInsert(&pendingWrite{
		pathBytes: path.Encode(),
		rank:      rank,
		seq:       b.seq,
		key:       path.SubDocKey(t),
		value:     value,
	})
	b.cache.Put(path, CacheEntry{
		Exists:         !value.IsTombstone(),
		ValueType:      value.Type(),
		GenerationTime: t,
		ObservedAt:     t,
	})
	return nil
}

// ensureAncestorObject makes p classify as an object as of t: if p is
// absent, it creates an object marker (when init requires one); if p
// already holds a primitive, it widens it into an object by tombstoning the
// old value and then writing the marker; if p is already a container (an
// object or an array), it is a no-op.
func (b *WriteBatchBuilder) ensureAncestorObject(p DocPath, t HybridTime, init InitMarkerPolicy) error {
	entry, err := b.probe(p)
	if err != nil {
		return err
	}
	if entry.Exists && isContainerType(entry.ValueType) {
		return nil
	}
	return b.ensureAncestorContainer(p, t, init, ValueTypeObject)
}

// ensureAncestorContainer makes p classify as a container of the given type
// (object or array) as of t: if p is absent, it creates a marker of that
// type (when init requires one); if p already holds a primitive or a
// container of the other kind, it widens it by tombstoning the old value
// and then writing the marker; if p already holds a container of the
// requested type, it is a no-op.
//
// An absent array always gets a marker even under InitMarkerOptional,
// unlike an absent object: a live child only proves that SOME container
// sits at p, and subtree_reader.go's scan defaults an unmarked container to
// an object, since an integer-keyed object and a marker-less array are
// otherwise indistinguishable from their children alone. Objects don't
// need this override because that default is already the right answer.
func (b *WriteBatchBuilder) ensureAncestorContainer(p DocPath, t HybridTime, init InitMarkerPolicy, typ ValueType) error {
	entry, err := b.probe(p)
	if err != nil {
		return err
	}
	switch {
	case !entry.Exists:
		if init == InitMarkerRequired || typ == ValueTypeArray {
			return b.emit(p, t, newContainerValue(typ), rankAncestorMarker)
		}
		return nil
	case entry.ValueType == typ:
		return nil
	default:
		if err := b.emit(p, t, NewTombstoneValue(), rankAncestorTombstone); err != nil {
			return err
		}
		return b.emit(p, t, newContainerValue(typ), rankAncestorMarker)
	}
}

// newContainerValue returns an empty marker value of the given container
// type.
func newContainerValue(typ ValueType) Value {
	if typ == ValueTypeArray {
		return NewArrayValue()
	}
	return NewObjectValue()
}

// ensurePathIsObject ensures every prefix of path, including path itself,
// classifies as a container as of t: an existing array is kept as it is,
// and any other prefix is made an object.
func (b *WriteBatchBuilder) ensurePathIsObject(path DocPath, t HybridTime, init InitMarkerPolicy) error {
	for i := 0; i < path.Len(); i++ {
		prefix := pathPrefix(path, i+1)
		if err := b.ensureAncestorObject(prefix, t, init); err != nil {
			return err
		}
	}
	return nil
}

// pathPrefix returns the DocPath sharing full's DocKey with only the first n
// of full's subkeys.
func pathPrefix(full DocPath, n int) DocPath {
	return DocPath{doc: full.doc, subkeys: full.subkeys[:n]}
}

// SetPrimitive sets path to value at t, creating any missing ancestor
// objects (and widening any ancestor that currently holds a primitive)
// along the way.
func (b *WriteBatchBuilder) SetPrimitive(path DocPath, value Value, t HybridTime, init InitMarkerPolicy) error {
	if path.Len() == 0 {
		return BadArgumentError("SetPrimitive: path must not be empty")
	}
	if value.IsObject() || value.IsArray() {
		return BadArgumentError("SetPrimitive: value must be a primitive or tombstone, got %s", value.Type())
	}
	if parent, ok := path.Parent(); ok {
		if err := b.ensurePathIsObject(parent, t, init); err != nil {
			return err
		}
	}
	return b.emit(path, t, value, rankEffect)
}

// ExtendSubDocument merges doc into the tree at path as of t: primitive
// leaves become SetPrimitive calls; object keys are merged with whatever
// already exists at path, leaving untouched siblings alone; array elements
// are written positionally, keyed by their 0-based index as an int64
// Primitive subkey (the same ordering the int64 key encoding already gives
// object keys), leaving any existing element past the new array's length
// untouched in place, the same non-destructive merge ExtendSubDocument
// already gives object keys not named in doc.
func (b *WriteBatchBuilder) ExtendSubDocument(path DocPath, doc SubDocument, t HybridTime, init InitMarkerPolicy, ttl TTL) error {
	switch {
	case doc.IsPrimitive():
		return b.SetPrimitive(path, NewPrimitiveValue(doc.Primitive()).WithTTL(ttl), t, init)
	case doc.IsArray():
		if parent, ok := path.Parent(); ok {
			if err := b.ensurePathIsObject(parent, t, init); err != nil {
				return err
			}
		}
		if err := b.ensureAncestorContainer(path, t, init, ValueTypeArray); err != nil {
			return err
		}
		for i, elem := range doc.Elements() {
			idx := NewInt64Primitive(int64(i))
			if err := b.ExtendSubDocument(path.Child(idx), elem, t, init, ttl); err != nil {
				return err
			}
		}
		return nil
	}
	if err := b.ensurePathIsObject(path, t, init); err != nil {
		return err
	}
	for _, key := range doc.Keys() {
		child, _ := doc.Get(key)
		if err := b.ExtendSubDocument(path.Child(key), child, t, init, ttl); err != nil {
			return err
		}
	}
	return nil
}

// InsertSubDocument fully replaces whatever subtree exists at path with doc:
// it tombstones path at t before extending it, so no sibling key of the old
// subtree survives the replacement. The preparatory tombstone shares
// rankAncestorTombstone with the primitive-to-object widening pattern in
// ensureAncestorObject, not rankEffect: when doc is itself an object,
// ensurePathIsObject below writes a fresh container marker at this same
// (path, t), and that marker must flush after (and so win over) this
// tombstone. Using rankEffect here would invert that order and leave the
// path tombstoned instead of rebuilt.
//
// path's own marker is written here unconditionally, regardless of init:
// under InitMarkerOptional, ensureAncestorObject would otherwise see the
// tombstone just staged above, read it as path being absent, and skip the
// marker on the theory that a descendant's own write already proves path
// exists. That reasoning doesn't hold for a replacement: the tombstone is
// a real entry that will persist unless something at the same (path, t)
// overwrites it, so a path whose new doc is non-empty would otherwise be
// left reading back as deleted instead of rebuilt (its subtree-level scan
// still handles the same-time collision correctly, but path's own entry
// should not depend on that). init still governs markers at every depth
// below path, exactly as ExtendSubDocument's recursion would apply it on
// its own.
func (b *WriteBatchBuilder) InsertSubDocument(path DocPath, doc SubDocument, t HybridTime, init InitMarkerPolicy, ttl TTL) error {
	if path.Len() == 0 {
		return BadArgumentError("InsertSubDocument: path must not be empty")
	}
	if err := b.emit(path, t, NewTombstoneValue(), rankAncestorTombstone); err != nil {
		return err
	}
	if !doc.IsPrimitive() && hasReplacementContent(doc) {
		marker := NewObjectValue()
		if doc.IsArray() {
			marker = NewArrayValue()
		}
		if err := b.emit(path, t, marker, rankAncestorMarker); err != nil {
			return err
		}
	}
	return b.ExtendSubDocument(path, doc, t, init, ttl)
}

// hasReplacementContent reports whether doc has at least one child that
// InsertSubDocument will actually write, i.e. whether path needs a marker
// to avoid reading back as deleted.
func hasReplacementContent(doc SubDocument) bool {
	if doc.IsArray() {
		return len(doc.Elements()) > 0
	}
	return len(doc.Keys()) > 0
}

// DeleteSubDoc tombstones path at t, hiding it and its descendants from any
// snapshot >= t.
func (b *WriteBatchBuilder) DeleteSubDoc(path DocPath, t HybridTime, init InitMarkerPolicy) error {
	if parent, ok := path.Parent(); ok {
		if err := b.ensurePathIsObject(parent, t, init); err != nil {
			return err
		}
	}
	return b.emit(path, t, NewTombstoneValue(), rankEffect)
}

// Finish flushes the builder's staged writes, in canonical flush order, into
// a new Batch on the underlying store. Finish also releases the builder's
// iterator, so a later Close is not needed. The builder must not be reused
// after Finish.
func (b *WriteBatchBuilder) Finish() (Batch, error) {
	logSeekSpike(withOpTag(context.Background(), "WriteBatchBuilder.Finish"), b.Seeks(), seekSpikeThreshold)
	if err := b.iter.Close(); err != nil {
		return nil, err
	}
	batch := b.store.NewBatch()
	var outerErr error
	b.tree.Ascend(func(item btree.Item) bool {
		w := item.(*pendingWrite)
		if err := batch.Put(w.key.Encode(nil), EncodeValue(nil, w.value)); err != nil {
			outerErr = err
			return false
		}
		return true
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return batch, nil
}

// Close releases the builder's iterator.
func (b *WriteBatchBuilder) Close() error {
	return b.iter.Close()
}
