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
	"time"

	"go.uber.org/zap"

	"github.com/clustersched/preemption-core/pkg/common"
	"github.com/clustersched/preemption-core/pkg/common/resources"
	"github.com/clustersched/preemption-core/pkg/locking"
	"github.com/clustersched/preemption-core/pkg/log"
	"github.com/clustersched/preemption-core/pkg/metrics"
)

// DefaultWaitBeforeKillSeconds is the default grace window between first
// marking a container and promoting it to the kill set.
const DefaultWaitBeforeKillSeconds = 30

// PartitionUpdate is one entry of the bulk input to UpdatePartitions,
// modeling the external PreemptableQueuePartitionEntity collaborator.
type PartitionUpdate struct {
	Queue      string
	Partition  string
	Ideal      *resources.Resource
	MaxPreempt *resources.Resource
}

// Coordinator is the outward-facing façade described in §4.4: it accepts
// resource requirements, drives the Selection Engine, reconciles its output
// with the Relationship Store, advances the grace timer, and exposes the
// ready-to-kill set. One Coordinator instance is a complete, independently
// testable preemption engine; no package-level singleton is required.
type Coordinator struct {
	locking.RWMutex

	measures      *measureStore
	relationships *relationshipStore
	selection     *selectionEngine

	queueUsage map[string]*resources.ResourceUsage

	killSet             map[string]bool
	selectingContainers map[string]bool

	clock          common.Timer
	waitBeforeKill time.Duration
	cycleMetrics   metrics.CorePreemptionMetrics
	dryRunCounter  int64
}

// NewCoordinator constructs an empty Coordinator with no queues referenced
// yet. waitBeforeKill is the grace period (§6 WAIT_BEFORE_KILL_SEC); pass 0
// to use DefaultWaitBeforeKillSeconds.
func NewCoordinator(waitBeforeKill time.Duration, clock common.Timer) *Coordinator {
	if waitBeforeKill <= 0 {
		waitBeforeKill = DefaultWaitBeforeKillSeconds * time.Second
	}
	if clock == nil {
		clock = common.NewTimer()
	}
	measures := newMeasureStore()
	return &Coordinator{
		measures:            measures,
		relationships:       newRelationshipStore(),
		selection:           newSelectionEngine(measures),
		queueUsage:          make(map[string]*resources.ResourceUsage),
		killSet:             make(map[string]bool),
		selectingContainers: make(map[string]bool),
		clock:               clock,
		waitBeforeKill:      waitBeforeKill,
		cycleMetrics:        metrics.GetPreemptionMetrics(),
	}
}

func (c *Coordinator) now() time.Time {
	return time.Unix(0, c.clock.NanoTimeNow())
}

// TryPreempt drives one preemption cycle for requirement, given candidates
// ordered by the caller's black-box preemption-order policy and the
// partition to evaluate. It returns false, with no state mutated, if
// the Selection Engine could not find enough resource to satisfy required.
func (c *Coordinator) TryPreempt(requirement ResourceRequirement, candidates []ContainerHandle, partition string) bool {
	start := time.Now()
	c.Lock()
	defer c.Unlock()
	defer func() {
		if c.cycleMetrics != nil {
			c.cycleMetrics.ObserveCycleLatency(start)
		}
	}()

	for k := range c.selectingContainers {
		delete(c.selectingContainers, k)
	}

	filtered := make([]ContainerHandle, 0, len(candidates))
	for _, cand := range candidates {
		if ClassifyPreemptionType(cand, requirement.Application) == DifferentQueue {
			filtered = append(filtered, cand)
		}
	}

	c.dryRunCounter++
	selected := c.selection.selectContainers(filtered, requirement.Required, c.queueUsage, partition, c.dryRunCounter, c.selectingContainers)
	if selected == nil {
		if c.cycleMetrics != nil {
			c.cycleMetrics.IncCycleOutcome(false)
		}
		return false
	}

	now := c.now()
	marked := 0
	for _, cand := range selected {
		containerMeasure := c.measures.getOrCreate(cand.Queue, partition)
		demandingMeasure := c.measures.getOrCreate(requirement.Application.Queue, partition)

		existing, ok := c.relationships.getContainer(cand.ContainerID)
		switch {
		case !ok:
			mark := newToPreemptContainer(cand, requirement, containerMeasure, demandingMeasure, now)
			c.relationships.addMark(mark)
			marked++
		case !existing.Requirement.Equals(requirement):
			inheritedStart := existing.StartTimestamp
			c.relationships.unmarkContainer(cand.ContainerID)
			mark := newToPreemptContainer(cand, requirement, containerMeasure, demandingMeasure, inheritedStart)
			mark.LastListedTimestamp = now
			c.relationships.addMark(mark)
			marked++
		default:
			existing.LastListedTimestamp = now
			if now.Sub(existing.StartTimestamp) > c.waitBeforeKill {
				existing.fsm.promote()
				c.killSet[cand.ContainerID] = true
			}
		}
	}

	if c.cycleMetrics != nil {
		c.cycleMetrics.IncContainersMarked(marked)
		c.cycleMetrics.IncCycleOutcome(true)
		c.cycleMetrics.SetMarkedEntities(len(c.relationships.containers), len(c.relationships.demandingApps))
	}
	return true
}

// PullContainersToKill atomically swaps the kill set with an empty one and
// returns the previous contents. A second call before any further promotion
// returns an empty set.
func (c *Coordinator) PullContainersToKill() map[string]bool {
	c.Lock()
	defer c.Unlock()
	pulled := c.killSet
	c.killSet = make(map[string]bool)
	if c.cycleMetrics != nil {
		c.cycleMetrics.IncContainersKilled(len(pulled))
	}
	return pulled
}

// CanQueuePreempt reports whether queue/partition may currently demand
// resources, per §4.4: the measure must exist, be a non-debtor, and have
// headroom between its budget and what is already marked.
func (c *Coordinator) CanQueuePreempt(queue, partition string, demand *resources.Resource) bool {
	c.RLock()
	defer c.RUnlock()

	measure := c.measures.get(measureKey(queue, partition))
	if measure == nil || measure.IsDebtor() {
		return false
	}
	headroom := resources.Sub(measure.MaxPreemptable(), measure.TotalMarkedPreempted())
	return resources.FitsIn(headroom, demand)
}

// ResourcesMarkedFor returns attemptID's aggregate marked resource at
// (priority, resourceName), or zero if the attempt has no marks.
func (c *Coordinator) ResourcesMarkedFor(attemptID string, priority int32, resourceName string) *resources.Resource {
	c.RLock()
	defer c.RUnlock()

	demander, ok := c.relationships.demandingApps[attemptID]
	if !ok {
		return resources.NewResource()
	}
	return demander.ResourcesMarkedFor(priority, resourceName)
}

// UpdatePartitions bulk-applies updatePartition for each entity, running
// the debtor/non-debtor transition cascades described in §4.1.
func (c *Coordinator) UpdatePartitions(entities []PartitionUpdate) {
	c.Lock()
	defer c.Unlock()

	for _, e := range entities {
		result := c.measures.updatePartition(e.Queue, e.Partition, e.Ideal, e.MaxPreempt)

		if result.transitionedToDebtor {
			c.relationships.unmarkWhere(func(mark *ToPreemptContainer) bool {
				return mark.Requirement.Application.Queue == e.Queue
			})
		}
		if result.inNonDebtorBranch {
			c.relationships.unmarkWhere(func(mark *ToPreemptContainer) bool {
				return mark.Container.Queue == e.Queue
			})
		}
	}
}

// UnmarkContainer forwards to the Relationship Store under the write lock.
func (c *Coordinator) UnmarkContainer(containerID string) {
	c.Lock()
	defer c.Unlock()
	c.relationships.unmarkContainer(containerID)
}

// UnmarkDemandingApp forwards to the Relationship Store under the write lock.
func (c *Coordinator) UnmarkDemandingApp(attemptID string) {
	c.Lock()
	defer c.Unlock()
	c.relationships.unmarkDemandingApp(attemptID)
}

// QueueRefreshed rebuilds the leaf-queue resource-usage snapshot by BFS over
// root, replacing the map wholesale.
func (c *Coordinator) QueueRefreshed(root *QueueNode) {
	c.Lock()
	defer c.Unlock()

	fresh := make(map[string]*resources.ResourceUsage)
	if root != nil {
		queue := []*QueueNode{root}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			if len(node.Children) == 0 {
				fresh[node.Name] = node.Usage
			}
			queue = append(queue, node.Children...)
		}
	}
	c.queueUsage = fresh
}

// SweepStale drops every mark whose lastListedTimestamp is older than
// olderThan, resolving the staleness reclamation Open Question via a
// periodic sweep (§4.4, §9). olderThan should be at least one full
// preemption-cycle interval.
func (c *Coordinator) SweepStale(olderThan time.Duration) int {
	c.Lock()
	defer c.Unlock()

	cutoff := c.now().Add(-olderThan)
	before := len(c.relationships.containers)
	c.relationships.unmarkWhere(func(mark *ToPreemptContainer) bool {
		return mark.LastListedTimestamp.Before(cutoff)
	})
	swept := before - len(c.relationships.containers)
	if swept > 0 {
		log.Logger().Info("swept stale preemption marks",
			zap.Int("count", swept),
			zap.Duration("olderThan", olderThan))
	}
	return swept
}
