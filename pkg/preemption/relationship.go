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

	"github.com/clustersched/preemption-core/pkg/common/resources"
)

// ToPreemptContainer is the mark record for one running container: it
// carries the requirement that justified the mark, the grace-period
// bookkeeping, and back-pointers to the two measures its allocated resource
// is counted against.
type ToPreemptContainer struct {
	Container   ContainerHandle
	Requirement ResourceRequirement

	StartTimestamp      time.Time
	LastListedTimestamp time.Time
	Type                PreemptionType

	containerQueueMeasure *EntityMeasure
	demandingQueueMeasure *EntityMeasure

	fsm *markFSM
}

// newToPreemptContainer builds a fresh mark record for container, wired to
// containerMeasure/demandingMeasure, starting its grace timer at start.
func newToPreemptContainer(container ContainerHandle, requirement ResourceRequirement, containerMeasure, demandingMeasure *EntityMeasure, start time.Time) *ToPreemptContainer {
	return &ToPreemptContainer{
		Container:             container,
		Requirement:           requirement,
		StartTimestamp:        start,
		LastListedTimestamp:   start,
		Type:                  DifferentQueue,
		containerQueueMeasure: containerMeasure,
		demandingQueueMeasure: demandingMeasure,
		fsm:                   newMarkFSM(container.ContainerID),
	}
}

// Killable reports whether the mark's grace period has elapsed and it has
// been promoted by the mark state machine.
func (t *ToPreemptContainer) Killable() bool {
	return t.fsm.isKillable()
}

// DemandingApp aggregates every mark caused by one application attempt.
type DemandingApp struct {
	Application ApplicationHandle

	toPreemptContainers map[string]bool
	// toPreemptResources is priority -> resourceName -> aggregate.
	toPreemptResources map[int32]map[string]*resources.Resource
	// containerIdToToPreemptResource records, for marks whose requirement
	// resource name is not AnyResourceName, the specific aggregate entry the
	// mark contributed to, so unmarking can subtract symmetrically without
	// re-deriving the bucket. Always populated when resourceName != ANY.
	containerIDToToPreemptResource map[string]*resources.Resource
}

func newDemandingApp(app ApplicationHandle) *DemandingApp {
	return &DemandingApp{
		Application:                    app,
		toPreemptContainers:            make(map[string]bool),
		toPreemptResources:             make(map[int32]map[string]*resources.Resource),
		containerIDToToPreemptResource: make(map[string]*resources.Resource),
	}
}

// ResourcesMarkedFor returns the demander's aggregate marked resource at
// (priority, resourceName), or a zero resource if either level is absent.
func (d *DemandingApp) ResourcesMarkedFor(priority int32, resourceName string) *resources.Resource {
	byName, ok := d.toPreemptResources[priority]
	if !ok {
		return resources.NewResource()
	}
	res, ok := byName[resourceName]
	if !ok {
		return resources.NewResource()
	}
	return res
}

func (d *DemandingApp) bucket(priority int32, resourceName string) *resources.Resource {
	byName, ok := d.toPreemptResources[priority]
	if !ok {
		byName = make(map[string]*resources.Resource)
		d.toPreemptResources[priority] = byName
	}
	res, ok := byName[resourceName]
	if !ok {
		res = resources.NewResource()
		byName[resourceName] = res
	}
	return res
}

// addContribution records that containerID contributed allocated at
// priority/resourceName, adding it to the ANY bucket and, when resourceName
// is specific, to that bucket too.
func (d *DemandingApp) addContribution(containerID string, priority int32, resourceName string, allocated *resources.Resource) {
	d.toPreemptContainers[containerID] = true

	any := d.bucket(priority, AnyResourceName)
	resources.AddTo(any, allocated)

	if resourceName != AnyResourceName {
		specific := d.bucket(priority, resourceName)
		resources.AddTo(specific, allocated)
		d.containerIDToToPreemptResource[containerID] = specific
	}
}

// removeContribution reverses addContribution for containerID, subtracting
// symmetrically from every bucket it added to.
func (d *DemandingApp) removeContribution(containerID string, priority int32, allocated *resources.Resource) {
	delete(d.toPreemptContainers, containerID)

	if specific, ok := d.containerIDToToPreemptResource[containerID]; ok {
		resources.SubFrom(specific, allocated)
		delete(d.containerIDToToPreemptResource, containerID)
	}

	any := d.bucket(priority, AnyResourceName)
	resources.SubFrom(any, allocated)
}

// isEmpty reports whether the demander no longer causes any marks.
func (d *DemandingApp) isEmpty() bool {
	return len(d.toPreemptContainers) == 0
}

// relationshipStore holds the two linked indices described in §4.2. Like
// measureStore, it is not internally synchronized; the Cycle Coordinator
// serializes access under the process-wide write lock.
type relationshipStore struct {
	containers    map[string]*ToPreemptContainer
	demandingApps map[string]*DemandingApp
}

func newRelationshipStore() *relationshipStore {
	return &relationshipStore{
		containers:    make(map[string]*ToPreemptContainer),
		demandingApps: make(map[string]*DemandingApp),
	}
}

func (s *relationshipStore) getContainer(containerID string) (*ToPreemptContainer, bool) {
	mark, ok := s.containers[containerID]
	return mark, ok
}

func (s *relationshipStore) getOrCreateDemandingApp(app ApplicationHandle) *DemandingApp {
	d, ok := s.demandingApps[app.ApplicationAttemptID]
	if !ok {
		d = newDemandingApp(app)
		s.demandingApps[app.ApplicationAttemptID] = d
	}
	return d
}

// addMark inserts a fresh mark record, wiring both measure back-pointers and
// the demanding-app aggregates, per §4.2 addMark.
func (s *relationshipStore) addMark(mark *ToPreemptContainer) {
	s.containers[mark.Container.ContainerID] = mark

	demander := s.getOrCreateDemandingApp(mark.Requirement.Application)
	demander.addContribution(mark.Container.ContainerID, mark.Requirement.Priority, mark.Requirement.ResourceName, mark.Container.Allocated)

	mark.containerQueueMeasure.addMarked(mark.Container.Allocated)
	mark.demandingQueueMeasure.addMarked(mark.Container.Allocated)
}

// unmarkContainer removes containerID's mark and reverses its bookkeeping.
// A missing containerID is a no-op (idempotent, per §4.2 failure semantics).
func (s *relationshipStore) unmarkContainer(containerID string) {
	mark, ok := s.containers[containerID]
	if !ok {
		return
	}
	delete(s.containers, containerID)

	if demander, ok := s.demandingApps[mark.Requirement.Application.ApplicationAttemptID]; ok {
		demander.removeContribution(containerID, mark.Requirement.Priority, mark.Container.Allocated)
		if demander.isEmpty() {
			delete(s.demandingApps, demander.Application.ApplicationAttemptID)
		}
	}

	mark.containerQueueMeasure.subMarked(mark.Container.Allocated)
	mark.demandingQueueMeasure.subMarked(mark.Container.Allocated)
}

// unmarkDemandingApp removes attemptID's DemandingApp wholesale, unwinding
// every container it owned. A missing attemptID is a no-op.
func (s *relationshipStore) unmarkDemandingApp(attemptID string) {
	demander, ok := s.demandingApps[attemptID]
	if !ok {
		return
	}
	for containerID := range demander.toPreemptContainers {
		mark, ok := s.containers[containerID]
		if !ok {
			continue
		}
		delete(s.containers, containerID)
		mark.containerQueueMeasure.subMarked(mark.Container.Allocated)
		mark.demandingQueueMeasure.subMarked(mark.Container.Allocated)
	}
	delete(s.demandingApps, attemptID)
}

// unmarkWhere removes every mark matching predicate. Used by the measure
// store transition cascades (§4.1) and the staleness sweep (§4.4).
func (s *relationshipStore) unmarkWhere(predicate func(*ToPreemptContainer) bool) {
	var toRemove []string
	for id, mark := range s.containers {
		if predicate(mark) {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		s.unmarkContainer(id)
	}
}
