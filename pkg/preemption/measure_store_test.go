/*
 Licensed to the Apache Software Foundation (ASF) under one
 or more contributor license agreements.  See the NOTICE file
 distributed with this work for additional information
 regarding copyright ownership.  The ASF licenses this file
 to you under the Apache License, Version 2.0 (the
 "License"); you may not use this file except in compliance
 with the License.  You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package preemption

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/clustersched/preemption-core/pkg/common/resources"
)

func res(mem, vcore resources.Quantity) *resources.Resource {
	return resources.NewResourceFromMap(map[string]resources.Quantity{
		resources.MEMORY: mem,
		resources.VCORE:  vcore,
	})
}

func TestUpdatePartitionCreatesDebtor(t *testing.T) {
	s := newMeasureStore()
	result := s.updatePartition("B", "default", res(4, 4), res(2, 2))

	assert.Assert(t, result.measure.IsDebtor())
	assert.Assert(t, resources.Equals(res(2, 2), result.measure.MaxPreemptable()))
	assert.Assert(t, result.transitionedToDebtor)
	assert.Assert(t, !result.inNonDebtorBranch)
}

func TestUpdatePartitionCreatesNonDebtor(t *testing.T) {
	s := newMeasureStore()
	result := s.updatePartition("A", "default", res(4, 4), res(0, 0))

	assert.Assert(t, !result.measure.IsDebtor())
	// non-positive budget is negated: negate(0) == 0
	assert.Assert(t, resources.IsZero(result.measure.MaxPreemptable()))
	assert.Assert(t, !result.transitionedToDebtor)
	assert.Assert(t, result.inNonDebtorBranch)
}

func TestUpdatePartitionNonDebtorBranchFiresEveryCall(t *testing.T) {
	s := newMeasureStore()
	s.updatePartition("A", "default", res(4, 4), res(0, 0))
	result := s.updatePartition("A", "default", res(4, 4), res(0, 0))

	// every call landing in the non-debtor branch reports it, not just the transition
	assert.Assert(t, result.inNonDebtorBranch)
	assert.Assert(t, !result.transitionedToDebtor)
}

func TestUpdatePartitionDebtorTransitionOnlyOnFlip(t *testing.T) {
	s := newMeasureStore()
	s.updatePartition("B", "default", res(4, 4), res(2, 2))
	result := s.updatePartition("B", "default", res(4, 4), res(3, 3))

	assert.Assert(t, result.measure.IsDebtor())
	assert.Assert(t, !result.transitionedToDebtor, "already a debtor, this is not a transition")
}

func TestGetOrCreateIsStableByKey(t *testing.T) {
	s := newMeasureStore()
	m1 := s.getOrCreate("A", "default")
	m2 := s.getOrCreate("A", "default")
	assert.Assert(t, m1 == m2)

	assert.Assert(t, s.get("A_default") == m1)
	assert.Assert(t, s.get("unknown_default") == nil)
}

func TestDryRunSnapshotIsolatesCommittedState(t *testing.T) {
	s := newMeasureStore()
	result := s.updatePartition("B", "default", res(4, 4), res(2, 2))
	m := result.measure
	m.addMarked(res(1, 1))

	snapshot := m.snapshotForDryRun(1)
	resources.AddTo(snapshot, res(1, 1))

	assert.Assert(t, resources.Equals(res(1, 1), m.TotalMarkedPreempted()), "dry-run mutation must not leak into committed state")
	assert.Assert(t, resources.Equals(res(2, 2), m.snapshotForDryRun(1)), "same timestamp returns the same clone")

	snapshot2 := m.snapshotForDryRun(2)
	assert.Assert(t, resources.Equals(res(1, 1), snapshot2), "a new timestamp re-clones from committed state")
}
