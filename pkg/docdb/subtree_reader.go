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
)

// SubtreeReader reconstructs a live subtree at a snapshot time with a
// single ascending range scan: because a node's own entries sort before any
// of its descendants (the group-end marker is the lowest type byte), and
// siblings sort by their subkey's encoded bytes, one forward pass already
// visits nodes in the exact preorder a recursive descent needs.
type SubtreeReader struct {
	store Store
	seeks int
}

// NewSubtreeReader returns a reader over store.
func NewSubtreeReader(store Store) *SubtreeReader {
	return &SubtreeReader{store: store}
}

// Seeks returns the number of store seeks performed since the reader was
// created or last reset by GetAndResetSeeks; each scan adds exactly one.
func (r *SubtreeReader) Seeks() int { return r.seeks }

// GetAndResetSeeks returns the seek count and resets it to zero.
func (r *SubtreeReader) GetAndResetSeeks() int {
	n := r.seeks
	r.seeks = 0
	return n
}

// ScanSubDocument walks the subtree rooted at root as of snapshot, driving
// visitor. The scan seeks exactly once, regardless of subtree depth or
// width: scanNode consumes the whole cursor range under root and decides
// what root's subtree resolves to before any of it is replayed into
// visitor, so a node whose own entry is a tombstone with nothing surviving
// beneath it never produces a spurious Start/End call pair.
func (r *SubtreeReader) ScanSubDocument(root DocPath, snapshot HybridTime, visitor DocVisitor) error {
	it := NewInternalDocIterator(r.store, &r.seeks)
	defer it.Close()
	if err := it.SeekToKeyPrefix(root.Encode()); err != nil {
		return err
	}
	s := &subtreeScan{it: it, snapshot: snapshot}
	node, err := s.scanNode(root, HybridTimeMin)
	logSeekSpike(withOpTags(context.Background(), "SubtreeReader.ScanSubDocument", root), r.seeks, seekSpikeThreshold)
	if err != nil {
		return err
	}
	if node == nil {
		return nil
	}
	return node.replay(visitor)
}

// GetSubDocument is ScanSubDocument bound to a visitor that materializes the
// scanned subtree, returning it and whether root exists as of snapshot.
func (r *SubtreeReader) GetSubDocument(root DocPath, snapshot HybridTime) (SubDocument, bool, error) {
	b := newDocBuilder()
	if err := r.ScanSubDocument(root, snapshot, b); err != nil {
		return SubDocument{}, false, err
	}
	doc, found := b.Result()
	return doc, found, nil
}

type subtreeScan struct {
	it       *InternalDocIterator
	snapshot HybridTime
}

// scanNodeResult is what scanNode decides a node resolves to. scanNode never
// calls a DocVisitor method directly: whether a node exists at all can
// depend on its descendants (a tombstoned or TTL-expired own entry only
// hides descendants older than itself, so the node may still turn out to
// exist), and that isn't known until the whole subtree under it has been
// walked. replay emits the decided shape to visitor once it is final.
type scanNodeResult struct {
	key       SubDocKey
	container ValueType // ValueTypeObject or ValueTypeArray; zero for a leaf
	value     Primitive // set when this node is a primitive leaf
	childKeys []Primitive
	children  []*scanNodeResult
}

func (n *scanNodeResult) replay(visitor DocVisitor) error {
	if err := visitor.StartSubDocument(n.key); err != nil {
		return err
	}
	switch n.container {
	case ValueTypeObject:
		if err := visitor.StartObject(); err != nil {
			return err
		}
		for i, child := range n.children {
			if err := visitor.VisitKey(n.childKeys[i]); err != nil {
				return err
			}
			if err := child.replay(visitor); err != nil {
				return err
			}
		}
		if err := visitor.EndObject(); err != nil {
			return err
		}
	case ValueTypeArray:
		if err := visitor.StartArray(); err != nil {
			return err
		}
		for _, child := range n.children {
			if err := child.replay(visitor); err != nil {
				return err
			}
		}
		if err := visitor.EndArray(); err != nil {
			return err
		}
	default:
		if err := visitor.VisitValue(n.value); err != nil {
			return err
		}
	}
	return visitor.EndSubDocument()
}

// scanNode consumes every cursor entry under path's prefix: path's own
// version history first (descending time order), then each child subtree in
// subkey order. It returns nil if path does not exist as of the snapshot,
// and otherwise a scanNodeResult describing it, and leaves the cursor
// positioned at the first entry no longer under path's prefix (or invalid,
// at the end of the store).
//
// floor is the generation time of the closest ancestor's own entry (or
// HybridTimeMin at the root): an ancestor write establishes that the whole
// subtree below it is, as of that write, exactly what gets built from
// entries at or after that time. A node whose own winning entry predates
// floor is stale data left behind by an InsertSubDocument or a primitive-
// to-object widening that replaced this node's ancestor without visiting
// every descendant key individually, and is treated as absent.
//
// A node whose own entry is a tombstone (or TTL-expired) does not by itself
// hide every descendant: only descendants strictly older than its own
// generation time are hidden, the same rule the floor check above already
// enforces one level down. So when a subtree is replaced by a tombstone at
// t plus new contents written at that same t, the same-time writes are
// never shadowed by the tombstone, and path is reported as existing once
// any of them survive, even when no marker at path overwrites the
// tombstone.
func (s *subtreeScan) scanNode(path DocPath, floor HybridTime) (*scanNodeResult, error) {
	prefix := path.Encode()

	var (
		own     Value
		ownTime HybridTime
		haveOwn bool
	)
	for matchesPrefix(s.it, prefix) {
		_, key, err := DecodeSubDocKey(s.it.Key())
		if err != nil {
			return nil, err
		}
		if key.Path().Len() != path.Len() {
			// Entry belongs to a descendant, not path's own version history.
			break
		}
		if !haveOwn && key.HybridTime().LessOrEqual(s.snapshot) {
			v, err := s.it.Value()
			if err != nil {
				return nil, err
			}
			own, ownTime, haveOwn = v, key.HybridTime(), true
		}
		s.it.Next()
	}

	if haveOwn && ownTime.Less(floor) {
		return nil, s.skipRemainder(prefix)
	}

	ownHidden := haveOwn && (own.IsTombstone() || expired(own, ownTime, s.snapshot))

	if haveOwn && !ownHidden && own.IsPrimitive() {
		if err := s.skipRemainder(prefix); err != nil {
			return nil, err
		}
		return &scanNodeResult{key: path.SubDocKey(ownTime), value: own.Primitive()}, nil
	}

	// What's left is an explicit object/array marker, a hidden own entry
	// (tombstone or TTL expiry) that same-time descendants might still
	// survive, or (InitMarkerOptional) no own entry at all with a live
	// descendant proving existence. All three recurse the same way; the
	// children accumulated below decide whether this node turns out to
	// exist.
	childFloor := floor
	if haveOwn {
		childFloor = ownTime
	}
	asArray := haveOwn && !ownHidden && own.Type() == ValueTypeArray

	var childKeys []Primitive
	var children []*scanNodeResult
	for matchesPrefix(s.it, prefix) {
		_, key, err := DecodeSubDocKey(s.it.Key())
		if err != nil {
			return nil, err
		}
		childKeysFull := key.Path().Subkeys()
		childSubkey := childKeysFull[path.Len()]
		childPath := path.Child(childSubkey)
		child, err := s.scanNode(childPath, childFloor)
		if err != nil {
			return nil, err
		}
		if child == nil {
			continue
		}
		childKeys = append(childKeys, childSubkey)
		children = append(children, child)
	}

	if len(children) == 0 && !(haveOwn && !ownHidden) {
		return nil, nil
	}

	genTime := ownTime
	if !haveOwn {
		genTime = s.snapshot
	}
	container := ValueTypeObject
	if asArray {
		container = ValueTypeArray
	}
	return &scanNodeResult{
		key:       path.SubDocKey(genTime),
		container: container,
		childKeys: childKeys,
		children:  children,
	}, nil
}

// skipRemainder advances the cursor past every remaining entry under
// prefix without visiting any of them: used when path is tombstoned with
// nothing surviving its floor, TTL-expired, or holds a primitive that
// shadows stale descendant entries.
func (s *subtreeScan) skipRemainder(prefix []byte) error {
	for matchesPrefix(s.it, prefix) {
		s.it.Next()
	}
	return nil
}

func matchesPrefix(it *InternalDocIterator, prefix []byte) bool {
	k := it.Key()
	return k != nil && bytes.HasPrefix(k, prefix)
}

// expired reports whether a value written at genTime with its own TTL has
// expired by snapshot: generation time plus TTL, compared in the same
// (HybridTime-as-milliseconds) domain, at or before the snapshot.
func expired(v Value, genTime HybridTime, snapshot HybridTime) bool {
	if v.TTL() == TTLNever {
		return false
	}
	return HybridTime(uint64(genTime)+uint64(v.TTL())).LessOrEqual(snapshot)
}
