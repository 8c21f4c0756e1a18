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

// DocOperation is the interface the query layer hands the core: one
// mutation or read to apply within a transaction. A batch is a slice of
// DocOperations in the order the caller wants their lock requirements
// merged (PlanLocks is itself order-independent; see TESTABLE PROPERTY 8).
type DocOperation interface {
	// Locks returns the (DocPath, LockMode) pairs this operation requires:
	// shared on every strict ancestor of a mutated/read path below the
	// document root (the root itself is not locked), exclusive (or shared,
	// for a pure read) on the path itself.
	Locks() []PathLock
	// NeedsReadSnapshot reports whether Apply must read the store before
	// writing (a conditional write or read-modify-write).
	NeedsReadSnapshot() bool
	// Apply executes the operation against builder, reading through store
	// at snapshotTime if NeedsReadSnapshot.
	Apply(snapshotTime HybridTime, store Store, builder *WriteBatchBuilder) error
}

// ancestorLocks returns shared locks for every strict ancestor of path below
// the document root, plus a lock of mode on path itself: the standard lock shape for any mutator
// that writes at path and may need to create ancestor objects along the way.
func ancestorLocks(path DocPath, mode LockMode) []PathLock {
	locks := make([]PathLock, 0, path.Len())
	for i := 0; i < path.Len(); i++ {
		p := pathPrefix(path, i+1)
		if i == path.Len()-1 {
			locks = append(locks, PathLock{Path: p, Mode: mode})
		} else {
			locks = append(locks, PathLock{Path: p, Mode: LockShared})
		}
	}
	return locks
}

// SetPrimitiveOp is a DocOperation wrapping WriteBatchBuilder.SetPrimitive.
type SetPrimitiveOp struct {
	Path  DocPath
	Value Value
	Time  HybridTime
	Init  InitMarkerPolicy
}

func (op SetPrimitiveOp) Locks() []PathLock { return ancestorLocks(op.Path, LockExclusive) }

func (op SetPrimitiveOp) NeedsReadSnapshot() bool { return false }

func (op SetPrimitiveOp) Apply(_ HybridTime, _ Store, builder *WriteBatchBuilder) error {
	return builder.SetPrimitive(op.Path, op.Value, op.Time, op.Init)
}

// DeleteSubDocOp is a DocOperation wrapping WriteBatchBuilder.DeleteSubDoc.
type DeleteSubDocOp struct {
	Path DocPath
	Time HybridTime
	Init InitMarkerPolicy
}

func (op DeleteSubDocOp) Locks() []PathLock { return ancestorLocks(op.Path, LockExclusive) }

func (op DeleteSubDocOp) NeedsReadSnapshot() bool { return false }

func (op DeleteSubDocOp) Apply(_ HybridTime, _ Store, builder *WriteBatchBuilder) error {
	return builder.DeleteSubDoc(op.Path, op.Time, op.Init)
}

// InsertSubDocumentOp is a DocOperation wrapping
// WriteBatchBuilder.InsertSubDocument.
type InsertSubDocumentOp struct {
	Path DocPath
	Doc  SubDocument
	Time HybridTime
	Init InitMarkerPolicy
	TTL  TTL
}

func (op InsertSubDocumentOp) Locks() []PathLock { return ancestorLocks(op.Path, LockExclusive) }

func (op InsertSubDocumentOp) NeedsReadSnapshot() bool { return false }

func (op InsertSubDocumentOp) Apply(_ HybridTime, _ Store, builder *WriteBatchBuilder) error {
	return builder.InsertSubDocument(op.Path, op.Doc, op.Time, op.Init, op.TTL)
}

// ReadSubDocumentOp is a DocOperation that reads a subtree. It holds only
// shared locks and reports NeedsReadSnapshot, but performs no write; it
// exists so read-modify-write batches can express their read requirement
// through the same DocOperation/LockPlanner pipeline as writes.
type ReadSubDocumentOp struct {
	Path   DocPath
	Result *SubDocument
	Found  *bool
}

func (op ReadSubDocumentOp) Locks() []PathLock {
	locks := make([]PathLock, 0, op.Path.Len())
	for i := 0; i < op.Path.Len(); i++ {
		locks = append(locks, PathLock{Path: pathPrefix(op.Path, i+1), Mode: LockShared})
	}
	return locks
}

func (op ReadSubDocumentOp) NeedsReadSnapshot() bool { return true }

func (op ReadSubDocumentOp) Apply(snapshotTime HybridTime, store Store, _ *WriteBatchBuilder) error {
	reader := NewSubtreeReader(store)
	doc, found, err := reader.GetSubDocument(op.Path, snapshotTime)
	if err != nil {
		return err
	}
	if op.Result != nil {
		*op.Result = doc
	}
	if op.Found != nil {
		*op.Found = found
	}
	return nil
}
