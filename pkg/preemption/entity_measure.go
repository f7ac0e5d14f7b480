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

// EntityMeasure is the authoritative per-(queue, partition) record of ideal
// share, preemption budget, and currently-marked total. It is created lazily
// on first reference and never removed for the lifetime of the process.
type EntityMeasure struct {
	Queue     string
	Partition string

	ideal                *resources.Resource
	maxPreemptable       *resources.Resource
	totalMarkedPreempted *resources.Resource
	debtor               bool

	dryRunTimestamp int64
	dryRunSnapshot  *resources.Resource
}

func newEntityMeasure(queue, partition string) *EntityMeasure {
	return &EntityMeasure{
		Queue:                queue,
		Partition:            partition,
		ideal:                resources.NewResource(),
		maxPreemptable:       resources.NewResource(),
		totalMarkedPreempted: resources.NewResource(),
	}
}

// Ideal returns the target allocation for this queue-partition.
func (m *EntityMeasure) Ideal() *resources.Resource {
	return m.ideal
}

// MaxPreemptable returns the preemption budget: the amount a debtor must
// give up, or the amount a creditor may reclaim from others.
func (m *EntityMeasure) MaxPreemptable() *resources.Resource {
	return m.maxPreemptable
}

// TotalMarkedPreempted returns the running total currently marked against
// this measure.
func (m *EntityMeasure) TotalMarkedPreempted() *resources.Resource {
	return m.totalMarkedPreempted
}

// IsDebtor reports whether this queue-partition currently owes resources.
func (m *EntityMeasure) IsDebtor() bool {
	return m.debtor
}

// applyUpdate assigns ideal and recomputes the debtor flag and budget from
// maxPreempt: a maxPreempt with any strictly positive component marks the
// entity a debtor and is stored as-is; otherwise the entity is a non-debtor
// and the budget is
// stored negated. Returns the previous debtor flag so the caller can detect
// a transition.
func (m *EntityMeasure) applyUpdate(ideal, maxPreempt *resources.Resource) (wasDebtor bool) {
	wasDebtor = m.debtor
	m.ideal = ideal.Clone()
	if resources.HasPositive(maxPreempt) {
		m.maxPreemptable = maxPreempt.Clone()
		m.debtor = true
	} else {
		m.maxPreemptable = resources.Negate(maxPreempt)
		m.debtor = false
	}
	return wasDebtor
}

// snapshotForDryRun returns the hypothetical marked total for the given
// dry-run cycle timestamp, lazily cloning totalMarkedPreempted the first
// time it is observed under that timestamp. Subsequent calls within the
// same dry-run return (and may further mutate) the same clone, without
// touching the committed totalMarkedPreempted.
func (m *EntityMeasure) snapshotForDryRun(timestamp int64) *resources.Resource {
	if m.dryRunSnapshot == nil || m.dryRunTimestamp != timestamp {
		m.dryRunTimestamp = timestamp
		m.dryRunSnapshot = m.totalMarkedPreempted.Clone()
	}
	return m.dryRunSnapshot
}

// addMarked adds to the committed totalMarkedPreempted. Used outside of
// dry-run exploration, when a selection is being reconciled.
func (m *EntityMeasure) addMarked(amount *resources.Resource) {
	resources.AddTo(m.totalMarkedPreempted, amount)
}

// subMarked subtracts from the committed totalMarkedPreempted.
func (m *EntityMeasure) subMarked(amount *resources.Resource) {
	resources.SubFrom(m.totalMarkedPreempted, amount)
}
