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

func TestPrepareDocWriteTransactionIsPureLockPlanning(t *testing.T) {
	doc := NewDocKey(NewStringPrimitive("doc"))
	path := NewDocPath(doc, NewStringPrimitive("a"))
	ops := []DocOperation{
		SetPrimitiveOp{Path: path, Value: NewPrimitiveValue(NewInt64Primitive(1)), Time: 1, Init: InitMarkerOptional},
	}
	plan := PrepareDocWriteTransaction(ops)
	require.Equal(t, PlanLocks(ops), plan)
}

func TestApplyDocWriteTransactionAppliesAllOpsInOrder(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	a := NewDocPath(doc, NewStringPrimitive("a"))
	c := NewDocPath(doc, NewStringPrimitive("c"))

	ops := []DocOperation{
		SetPrimitiveOp{Path: a, Value: NewPrimitiveValue(NewInt64Primitive(1)), Time: 1, Init: InitMarkerOptional},
		SetPrimitiveOp{Path: c, Value: NewPrimitiveValue(NewInt64Primitive(2)), Time: 1, Init: InitMarkerOptional},
	}
	batch, err := ApplyDocWriteTransaction(ops, HybridTimeMax, store)
	require.NoError(t, err)
	require.NoError(t, store.Write(batch))

	reader := NewSubtreeReader(store)
	gotA, found, err := reader.GetSubDocument(a, HybridTimeMax)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(1), gotA.Primitive().AsInt64())

	gotC, found, err := reader.GetSubDocument(c, HybridTimeMax)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(2), gotC.Primitive().AsInt64())
}

func TestApplyDocWriteTransactionMixesReadAndWriteOps(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	a := NewDocPath(doc, NewStringPrimitive("a"))

	b1 := NewWriteBatchBuilder(store)
	require.NoError(t, SetPrimitiveOp{Path: a, Value: NewPrimitiveValue(NewInt64Primitive(7)), Time: 1, Init: InitMarkerOptional}.Apply(0, store, b1))
	flush(t, store, b1)

	var result SubDocument
	var found bool
	ops := []DocOperation{
		ReadSubDocumentOp{Path: a, Result: &result, Found: &found},
	}
	plan := PrepareDocWriteTransaction(ops)
	require.True(t, plan.NeedsReadSnapshot)

	batch, err := ApplyDocWriteTransaction(ops, HybridTimeMax, store)
	require.NoError(t, err)
	require.Equal(t, 0, batch.Len())
	require.True(t, found)
	require.Equal(t, int64(7), result.Primitive().AsInt64())
}

func TestApplyDocWriteTransactionPropagatesOpError(t *testing.T) {
	store := openTestStore(t)
	doc := NewDocKey(NewStringPrimitive("doc"))
	path := NewDocPath(doc)

	ops := []DocOperation{
		SetPrimitiveOp{Path: path, Value: NewPrimitiveValue(NewInt64Primitive(1)), Time: 1, Init: InitMarkerRequired},
	}
	_, err := ApplyDocWriteTransaction(ops, HybridTimeMax, store)
	require.Error(t, err)
	require.Equal(t, KindBadArgument, KindOf(err))
}
