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

// Package preemption implements the decision core of a capacity scheduler's
// container preemption: queue-partition debtor/creditor bookkeeping, dry-run
// container selection, mark/demand relationship bookkeeping, and the
// grace-period kill promotion state machine. The package has no wire
// protocol and no persistence; it is driven synchronously by whatever
// scheduler embeds it.
package preemption

import "github.com/clustersched/preemption-core/pkg/common/resources"

// AnyResourceName is the wildcard resource-name bucket every mark
// contributes to, regardless of the resource name carried by its
// requirement.
const AnyResourceName = "*"

// ContainerHandle is the capability set this core needs from a running
// container: enough to classify, price, and identify it for a mark.
type ContainerHandle struct {
	ContainerID   string
	Queue         string
	User          string
	Allocated     *resources.Resource
	IsAMContainer bool
}

// ApplicationHandle is the capability set this core needs from a scheduler
// application attempt: enough to resolve queue/user for classification.
type ApplicationHandle struct {
	ApplicationAttemptID string
	Queue                string
	User                 string
}

// ResourceRequirement is the input boundary object describing what a
// demanding application wants. Two requirements are equal iff all four
// fields are equal.
type ResourceRequirement struct {
	Application  ApplicationHandle
	Priority     int32
	ResourceName string
	Required     *resources.Resource
}

// Equals reports whether two requirements carry the same application,
// priority, resource name, and required amount.
func (r ResourceRequirement) Equals(other ResourceRequirement) bool {
	return r.Application.ApplicationAttemptID == other.Application.ApplicationAttemptID &&
		r.Priority == other.Priority &&
		r.ResourceName == other.ResourceName &&
		resources.Equals(r.Required, other.Required)
}

// PreemptionType classifies the relationship between a candidate container's
// queue and a demanding application's queue and user. Only DifferentQueue is
// acted on; the other two are reserved for intra-queue preemption.
type PreemptionType int

const (
	DifferentQueue PreemptionType = iota
	SameQueueDifferentUser
	SameQueueSameUser
)

func (t PreemptionType) String() string {
	switch t {
	case DifferentQueue:
		return "DifferentQueue"
	case SameQueueDifferentUser:
		return "SameQueueDifferentUser"
	case SameQueueSameUser:
		return "SameQueueSameUser"
	default:
		return "Unknown"
	}
}

// ClassifyPreemptionType returns the preemption type relating a candidate
// container to the application attempting to demand its resources.
func ClassifyPreemptionType(candidate ContainerHandle, demander ApplicationHandle) PreemptionType {
	if candidate.Queue != demander.Queue {
		return DifferentQueue
	}
	if candidate.User != demander.User {
		return SameQueueDifferentUser
	}
	return SameQueueSameUser
}

// measureKey builds the stable "<queue>_<partition>" key used by both the
// Entity Measure Store and mark back-pointers.
func measureKey(queue, partition string) string {
	return queue + "_" + partition
}
