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
	"github.com/clustersched/preemption-core/pkg/common/resources"
)

// measureStore is the authoritative per-(queue, partition) table of entity
// measures. It is not safe for concurrent use on its own; callers (the
// Cycle Coordinator) are expected to hold the process-wide write lock around
// any mutating call.
type measureStore struct {
	measures map[string]*EntityMeasure
}

func newMeasureStore() *measureStore {
	return &measureStore{measures: make(map[string]*EntityMeasure)}
}

// get returns the measure for key, or nil if it has never been referenced.
func (s *measureStore) get(key string) *EntityMeasure {
	return s.measures[key]
}

// getOrCreate returns the measure for queue/partition, creating an empty,
// non-debtor measure on first reference.
func (s *measureStore) getOrCreate(queue, partition string) *EntityMeasure {
	key := measureKey(queue, partition)
	m, ok := s.measures[key]
	if !ok {
		m = newEntityMeasure(queue, partition)
		s.measures[key] = m
	}
	return m
}

// updatePartitionResult reports what updatePartition did, so the Cycle
// Coordinator can drive the Relationship Store's unmark cascades.
type updatePartitionResult struct {
	measure *EntityMeasure
	// transitionedToDebtor is true only the call that flips the flag from
	// non-debtor to debtor; the demander-side cascade fires only then.
	transitionedToDebtor bool
	// inNonDebtorBranch is true on every call that lands the measure as a
	// non-debtor, transition or not; the container-side cascade fires on
	// every such call, per §4.1.
	inNonDebtorBranch bool
}

// updatePartition assigns ideal and recomputes the debtor flag and budget
// for queue/partition, per §4.1. It never deletes a measure.
func (s *measureStore) updatePartition(queue, partition string, ideal, maxPreempt *resources.Resource) updatePartitionResult {
	m := s.getOrCreate(queue, partition)
	wasDebtor := m.applyUpdate(ideal, maxPreempt)

	return updatePartitionResult{
		measure:              m,
		transitionedToDebtor: !wasDebtor && m.debtor,
		inNonDebtorBranch:    !m.debtor,
	}
}
