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

// PrepareDocWriteTransaction computes the lock plan for ops without
// touching the store. The caller acquires PlanLocks's locks in the returned
// order before calling ApplyDocWriteTransaction.
func PrepareDocWriteTransaction(ops []DocOperation) LockPlan {
	return PlanLocks(ops)
}

// ApplyDocWriteTransaction drives ops against store at snapshotTime and
// returns the resulting Batch, ready to Write. The caller must hold the
// locks from the matching PrepareDocWriteTransaction call for the duration
// of this call and release them only after the store confirms the batch is
// durable.
func ApplyDocWriteTransaction(ops []DocOperation, snapshotTime HybridTime, store Store) (Batch, error) {
	builder := NewWriteBatchBuilder(store)
	defer builder.Close()
	for _, op := range ops {
		if err := op.Apply(snapshotTime, store, builder); err != nil {
			return nil, err
		}
	}
	return builder.Finish()
}
