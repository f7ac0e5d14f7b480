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
	"time"

	"gotest.tools/v3/assert"

	"github.com/clustersched/preemption-core/pkg/common"
	"github.com/clustersched/preemption-core/pkg/common/resources"
)

func newTestCoordinator(t *testing.T, grace time.Duration) (*Coordinator, common.Timer) {
	t.Helper()
	clock := common.NewMockTimer()
	c := NewCoordinator(grace, clock)
	return c, clock
}

func demandReq(attempt, queue string, required *resources.Resource) ResourceRequirement {
	return testRequirement(attempt, queue, AnyResourceName, required)
}

// Basic reclaim, then grace-period promotion, then a single pull drains
// the kill set.
func TestTryPreemptBasicReclaimAndPromotion(t *testing.T) {
	c, clock := newTestCoordinator(t, 30*time.Second)
	c.UpdatePartitions([]PartitionUpdate{
		{Queue: "A", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(0, 0)},
		{Queue: "B", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(4, 4)},
	})
	c.QueueRefreshed(&QueueNode{
		Name: "root",
		Children: []*QueueNode{
			{Name: "A", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(4, 4)})},
			{Name: "B", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(10, 10)})},
		},
	})

	req := demandReq("appA", "A", res(2, 2))
	candidates := []ContainerHandle{
		testContainer("c1", "B", res(1, 1)),
		testContainer("c2", "B", res(1, 1)),
	}

	ok := c.TryPreempt(req, candidates, "P")
	assert.Assert(t, ok)
	assert.Equal(t, 2, len(c.relationships.containers))

	clock.Sleep(31 * time.Second)
	// re-run with the same candidates and requirement: this time the dry
	// run starts from the committed marked total, so both are re-admitted
	// (headroom and budget are wide enough to absorb double-counting) and
	// land in the already-marked branch, which promotes them.
	ok = c.TryPreempt(req, candidates, "P")
	assert.Assert(t, ok)

	killed := c.PullContainersToKill()
	assert.Equal(t, 2, len(killed))
	assert.Assert(t, killed["c1"])
	assert.Assert(t, killed["c2"])

	secondPull := c.PullContainersToKill()
	assert.Equal(t, 0, len(secondPull))
}

// A debtor->non-debtor transition clears every mark on that queue.
func TestUpdatePartitionsTransitionClearsMarks(t *testing.T) {
	c, _ := newTestCoordinator(t, 30*time.Second)
	c.UpdatePartitions([]PartitionUpdate{
		{Queue: "A", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(0, 0)},
		{Queue: "B", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(2, 2)},
	})
	c.QueueRefreshed(&QueueNode{
		Name: "root",
		Children: []*QueueNode{
			{Name: "A", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(4, 4)})},
			{Name: "B", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(6, 6)})},
		},
	})
	req := demandReq("appA", "A", res(2, 2))
	candidates := []ContainerHandle{
		testContainer("c1", "B", res(1, 1)),
		testContainer("c2", "B", res(1, 1)),
	}
	assert.Assert(t, c.TryPreempt(req, candidates, "P"))
	assert.Equal(t, 2, len(c.relationships.containers))

	c.UpdatePartitions([]PartitionUpdate{
		{Queue: "B", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(0, 0)},
	})

	assert.Equal(t, 0, len(c.relationships.containers))
	bMeasure := c.measures.get("B_P")
	aMeasure := c.measures.get("A_P")
	assert.Assert(t, resources.IsZero(bMeasure.TotalMarkedPreempted()))
	assert.Assert(t, resources.IsZero(aMeasure.TotalMarkedPreempted()))
	assert.Assert(t, resources.IsZero(c.ResourcesMarkedFor("appA", 1, AnyResourceName)))
}

// A requirement change for an already-marked container inherits the
// original startTimestamp instead of resetting the grace timer.
func TestTryPreemptRequirementChangeInheritsTimer(t *testing.T) {
	c, clock := newTestCoordinator(t, 30*time.Second)
	c.UpdatePartitions([]PartitionUpdate{
		{Queue: "A", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(0, 0)},
		{Queue: "B", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(2, 2)},
	})
	c.QueueRefreshed(&QueueNode{
		Name: "root",
		Children: []*QueueNode{
			{Name: "A", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(4, 4)})},
			{Name: "B", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(6, 6)})},
		},
	})

	container := testContainer("c", "B", res(1, 1))
	req1 := ResourceRequirement{Application: ApplicationHandle{ApplicationAttemptID: "appA", Queue: "A"}, Priority: 1, ResourceName: AnyResourceName, Required: res(1, 1)}
	assert.Assert(t, c.TryPreempt(req1, []ContainerHandle{container}, "P"))

	clock.Sleep(20 * time.Second)

	req2 := ResourceRequirement{Application: ApplicationHandle{ApplicationAttemptID: "appA", Queue: "A"}, Priority: 2, ResourceName: AnyResourceName, Required: res(1, 1)}
	assert.Assert(t, c.TryPreempt(req2, []ContainerHandle{container}, "P"))

	mark, ok := c.relationships.getContainer("c")
	assert.Assert(t, ok)
	assert.Assert(t, mark.StartTimestamp.Equal(time.Unix(0, 0)), "startTimestamp must be inherited, not reset")

	clock.Sleep(11 * time.Second)
	assert.Assert(t, c.TryPreempt(req2, []ContainerHandle{container}, "P"))
	killed := c.PullContainersToKill()
	assert.Assert(t, killed["c"])
}

// Removing a demanding app wholesale removes its marks without
// disturbing other demanders.
func TestUnmarkDemandingAppLeavesOthersIntact(t *testing.T) {
	c, _ := newTestCoordinator(t, 30*time.Second)
	c.UpdatePartitions([]PartitionUpdate{
		{Queue: "A", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(0, 0)},
		{Queue: "C", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(0, 0)},
		{Queue: "B", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(4, 4)},
	})
	c.QueueRefreshed(&QueueNode{
		Name: "root",
		Children: []*QueueNode{
			{Name: "A", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(4, 4)})},
			{Name: "C", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(4, 4)})},
			{Name: "B", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(8, 8)})},
		},
	})

	reqA := demandReq("appA", "A", res(1, 1))
	reqC := demandReq("appC", "C", res(1, 1))
	assert.Assert(t, c.TryPreempt(reqA, []ContainerHandle{testContainer("c1", "B", res(1, 1))}, "P"))
	assert.Assert(t, c.TryPreempt(reqC, []ContainerHandle{testContainer("c2", "B", res(1, 1))}, "P"))

	c.UnmarkDemandingApp("appA")

	_, ok := c.relationships.getContainer("c1")
	assert.Assert(t, !ok)
	_, ok = c.relationships.getContainer("c2")
	assert.Assert(t, ok, "appC's mark must survive appA's removal")
}

// A debtor can never pass canQueuePreempt, regardless of demand size.
func TestCanQueuePreemptDebtorAlwaysFalse(t *testing.T) {
	c, _ := newTestCoordinator(t, 30*time.Second)
	c.UpdatePartitions([]PartitionUpdate{
		{Queue: "B", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(2, 2)},
	})

	assert.Assert(t, !c.CanQueuePreempt("B", "P", res(1, 1)))
}

func TestCanQueuePreemptUnknownMeasureFalse(t *testing.T) {
	c, _ := newTestCoordinator(t, 30*time.Second)
	assert.Assert(t, !c.CanQueuePreempt("nowhere", "P", res(1, 1)))
}

func TestCanQueuePreemptNonDebtorWithHeadroom(t *testing.T) {
	c, _ := newTestCoordinator(t, 30*time.Second)
	c.UpdatePartitions([]PartitionUpdate{
		{Queue: "A", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(-2, -2)},
	})
	assert.Assert(t, c.CanQueuePreempt("A", "P", res(1, 1)))
	assert.Assert(t, !c.CanQueuePreempt("A", "P", res(3, 3)))
}

// Stale marks are dropped by a periodic sweep.
func TestSweepStaleDropsUnconfirmedMarks(t *testing.T) {
	c, clock := newTestCoordinator(t, 30*time.Second)
	c.UpdatePartitions([]PartitionUpdate{
		{Queue: "A", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(0, 0)},
		{Queue: "B", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(2, 2)},
	})
	c.QueueRefreshed(&QueueNode{
		Name: "root",
		Children: []*QueueNode{
			{Name: "A", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(4, 4)})},
			{Name: "B", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(6, 6)})},
		},
	})

	req := demandReq("appA", "A", res(1, 1))
	assert.Assert(t, c.TryPreempt(req, []ContainerHandle{testContainer("c1", "B", res(1, 1))}, "P"))

	clock.Sleep(2 * time.Minute)
	swept := c.SweepStale(time.Minute)
	assert.Equal(t, 1, swept)
	_, ok := c.relationships.getContainer("c1")
	assert.Assert(t, !ok)
}

func TestSweepStaleLeavesFreshMarks(t *testing.T) {
	c, _ := newTestCoordinator(t, 30*time.Second)
	c.UpdatePartitions([]PartitionUpdate{
		{Queue: "A", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(0, 0)},
		{Queue: "B", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(2, 2)},
	})
	c.QueueRefreshed(&QueueNode{
		Name: "root",
		Children: []*QueueNode{
			{Name: "A", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(4, 4)})},
			{Name: "B", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(6, 6)})},
		},
	})
	req := demandReq("appA", "A", res(1, 1))
	assert.Assert(t, c.TryPreempt(req, []ContainerHandle{testContainer("c1", "B", res(1, 1))}, "P"))

	swept := c.SweepStale(time.Minute)
	assert.Equal(t, 0, swept)
}

func TestTryPreemptFiltersSameQueueCandidates(t *testing.T) {
	c, _ := newTestCoordinator(t, 30*time.Second)
	c.UpdatePartitions([]PartitionUpdate{
		{Queue: "A", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(2, 2)},
	})
	c.QueueRefreshed(&QueueNode{
		Name:     "root",
		Children: []*QueueNode{{Name: "A", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(6, 6)})}},
	})

	// candidate is on the same queue as the demander: must be filtered out
	req := demandReq("appA", "A", res(1, 1))
	ok := c.TryPreempt(req, []ContainerHandle{testContainer("c1", "A", res(1, 1))}, "P")
	assert.Assert(t, !ok)
}

func TestDebugMarksOrderedByLastListed(t *testing.T) {
	c, clock := newTestCoordinator(t, 30*time.Second)
	c.UpdatePartitions([]PartitionUpdate{
		{Queue: "A", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(0, 0)},
		{Queue: "B", Partition: "P", Ideal: res(4, 4), MaxPreempt: res(4, 4)},
	})
	c.QueueRefreshed(&QueueNode{
		Name:     "root",
		Children: []*QueueNode{{Name: "B", Usage: resources.NewResourceUsageFromMap(map[string]*resources.Resource{"P": res(8, 8)})}},
	})

	req := demandReq("appA", "A", res(1, 1))
	assert.Assert(t, c.TryPreempt(req, []ContainerHandle{testContainer("c1", "B", res(1, 1))}, "P"))
	clock.Sleep(time.Second)
	assert.Assert(t, c.TryPreempt(req, []ContainerHandle{testContainer("c2", "B", res(1, 1))}, "P"))

	marks := c.DebugMarks()
	assert.Equal(t, 2, len(marks))
	assert.Assert(t, !marks[0].LastListedTimestamp.After(marks[1].LastListedTimestamp))
}
