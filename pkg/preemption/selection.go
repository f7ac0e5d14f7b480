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
	"go.uber.org/zap"

	"github.com/clustersched/preemption-core/pkg/common/resources"
	"github.com/clustersched/preemption-core/pkg/log"
)

// selectionEngine runs the dry-run container-selection procedure of §4.3.
// It holds no state of its own across calls; every field it touches belongs
// to the measureStore/queue usage snapshot passed in.
type selectionEngine struct {
	measures *measureStore
}

func newSelectionEngine(measures *measureStore) *selectionEngine {
	return &selectionEngine{measures: measures}
}

// selectContainers runs the dry-run scan over candidates (already ordered by
// the caller's black-box policy) looking for enough resource to satisfy
// required. It returns the admitted subset (possibly empty), or nil if the
// scan exhausted candidates without satisfying required (per §4.3 step 4,
// "return none").
func (e *selectionEngine) selectContainers(
	candidates []ContainerHandle,
	required *resources.Resource,
	usage map[string]*resources.ResourceUsage,
	partition string,
	dryRunTimestamp int64,
	alreadySelecting map[string]bool,
) []ContainerHandle {
	totalSelected := resources.NewResource()
	selected := make([]ContainerHandle, 0)

	for _, c := range candidates {
		if c.IsAMContainer || alreadySelecting[c.ContainerID] {
			continue
		}

		measure := e.measures.get(measureKey(c.Queue, partition))
		if measure == nil || !measure.IsDebtor() {
			log.Logger().Debug("selection skipped candidate: no debtor measure",
				zap.String("containerID", c.ContainerID),
				zap.String("queue", c.Queue),
				zap.String("partition", partition))
			continue
		}

		markedDryRun := measure.snapshotForDryRun(dryRunTimestamp)
		queueUsage, ok := usage[c.Queue]
		if !ok {
			log.Logger().Debug("selection skipped candidate: no queue usage snapshot",
				zap.String("containerID", c.ContainerID),
				zap.String("queue", c.Queue))
			continue
		}
		used := queueUsage.Used(partition)

		if canPreempt(markedDryRun, c.Allocated, measure.MaxPreemptable(), used, measure.Ideal()) {
			resources.AddTo(markedDryRun, c.Allocated)
			alreadySelecting[c.ContainerID] = true
			selected = append(selected, c)
		}

		resources.AddTo(totalSelected, c.Allocated)
		if resources.FitsIn(totalSelected, required) {
			return selected
		}
	}

	return nil
}

// canPreempt implements the admission predicate of §4.3 step 3d: a
// candidate is admitted when adding it to the dry-run marked total still
// fits the budget (or nothing is marked against the queue yet in this dry
// run) AND still fits the queue's excess over its ideal.
func canPreempt(markedDryRun, allocated, maxPreemptable, used, ideal *resources.Resource) bool {
	trial := resources.Add(markedDryRun, allocated)

	budgetOK := resources.FitsIn(maxPreemptable, trial) || resources.IsZero(markedDryRun)
	if !budgetOK {
		return false
	}

	headroom := resources.Sub(used, ideal)
	return resources.FitsIn(headroom, trial)
}
