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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func s6Ops() []DocOperation {
	doc := NewDocKey(NewStringPrimitive("doc"))
	abc := NewDocPath(doc, NewStringPrimitive("a"), NewStringPrimitive("b"), NewStringPrimitive("c"))
	abd := NewDocPath(doc, NewStringPrimitive("a"), NewStringPrimitive("b"), NewStringPrimitive("d"))
	ef := NewDocPath(doc, NewStringPrimitive("e"), NewStringPrimitive("f"))
	return []DocOperation{
		SetPrimitiveOp{Path: abc, Value: NewPrimitiveValue(NewInt64Primitive(1)), Time: 1, Init: InitMarkerRequired},
		SetPrimitiveOp{Path: abd, Value: NewPrimitiveValue(NewInt64Primitive(2)), Time: 1, Init: InitMarkerRequired},
		SetPrimitiveOp{Path: ef, Value: NewPrimitiveValue(NewInt64Primitive(3)), Time: 1, Init: InitMarkerRequired},
	}
}

// TestLockPlanS6 exercises the literal scenario from the design notes:
// set a.b.c, set a.b.d, set e.f lock every strict ancestor shared and each
// mutated leaf exclusive. a, a.b and e are only ever ancestors here, so they
// stay shared; only the three leaves are exclusive.
func TestLockPlanS6(t *testing.T) {
	plan := PlanLocks(s6Ops())
	require.False(t, plan.NeedsReadSnapshot)
	require.Len(t, plan.Locks, 6)

	doc := NewDocKey(NewStringPrimitive("doc"))
	a := NewDocPath(doc, NewStringPrimitive("a"))
	abc := NewDocPath(doc, NewStringPrimitive("a"), NewStringPrimitive("b"), NewStringPrimitive("c"))
	abd := NewDocPath(doc, NewStringPrimitive("a"), NewStringPrimitive("b"), NewStringPrimitive("d"))
	e := NewDocPath(doc, NewStringPrimitive("e"))
	ef := NewDocPath(doc, NewStringPrimitive("e"), NewStringPrimitive("f"))

	modes := map[string]LockMode{}
	for _, l := range plan.Locks {
		modes[string(l.Path.Encode())] = l.Mode
	}
	require.Equal(t, LockShared, modes[string(a.Encode())])
	require.Equal(t, LockExclusive, modes[string(abc.Encode())])
	require.Equal(t, LockExclusive, modes[string(abd.Encode())])
	require.Equal(t, LockShared, modes[string(e.Encode())])
	require.Equal(t, LockExclusive, modes[string(ef.Encode())])
}

func TestLockPlanDeterministicRegardlessOfInputOrder(t *testing.T) {
	ops := s6Ops()
	base := PlanLocks(ops)

	shuffled := append([]DocOperation(nil), ops...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	again := PlanLocks(shuffled)

	require.Equal(t, len(base.Locks), len(again.Locks))
	for i := range base.Locks {
		require.True(t, base.Locks[i].Path.Equal(again.Locks[i].Path))
		require.Equal(t, base.Locks[i].Mode, again.Locks[i].Mode)
	}
}

func TestLockPlanSortedByEncodedPath(t *testing.T) {
	plan := PlanLocks(s6Ops())
	for i := 1; i < len(plan.Locks); i++ {
		require.LessOrEqual(t, string(plan.Locks[i-1].Path.Encode()), string(plan.Locks[i].Path.Encode()))
	}
}

func TestLockPlanPromotesToExclusiveWhenAnyOpWantsExclusive(t *testing.T) {
	doc := NewDocKey(NewStringPrimitive("doc"))
	path := NewDocPath(doc, NewStringPrimitive("a"))
	ops := []DocOperation{
		ReadSubDocumentOp{Path: path},
		SetPrimitiveOp{Path: path, Value: NewPrimitiveValue(NewInt64Primitive(1)), Time: 1, Init: InitMarkerRequired},
	}
	plan := PlanLocks(ops)
	require.True(t, plan.NeedsReadSnapshot)
	require.Len(t, plan.Locks, 1)
	require.Equal(t, LockExclusive, plan.Locks[0].Mode)
}
