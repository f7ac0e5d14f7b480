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

package resources

import (
	"fmt"
	"strings"

	"github.com/clustersched/preemption-core/pkg/locking"
)

// ResourceUsage tracks how much of a leaf queue's resources are currently
// used, broken down by node partition. One instance is built per leaf queue
// when the queue tree is refreshed and consumed read-only by the selection
// engine for the remainder of that cycle.
type ResourceUsage struct {
	usedByPartition map[string]*Resource

	locking.RWMutex
}

// NewResourceUsage creates an empty per-partition usage tracker.
func NewResourceUsage() *ResourceUsage {
	return &ResourceUsage{usedByPartition: make(map[string]*Resource)}
}

// NewResourceUsageFromMap wraps an existing partition -> used map.
// Used for testing purposes only.
func NewResourceUsageFromMap(m map[string]*Resource) *ResourceUsage {
	if m == nil {
		return NewResourceUsage()
	}
	return &ResourceUsage{usedByPartition: m}
}

func (ru *ResourceUsage) String() string {
	ru.RLock()
	defer ru.RUnlock()

	var parts []string
	for partition, used := range ru.usedByPartition {
		parts = append(parts, fmt.Sprintf("%s=%s", partition, used))
	}
	return fmt.Sprintf("ResourceUsage{%s}", strings.Join(parts, ","))
}

// Used returns the resources currently held by the queue in the given
// partition. An unknown partition returns an empty (not nil) resource so
// callers can use it directly in arithmetic without a nil check.
func (ru *ResourceUsage) Used(partition string) *Resource {
	ru.RLock()
	defer ru.RUnlock()
	if res, ok := ru.usedByPartition[partition]; ok {
		return res
	}
	return NewResource()
}

// SetUsed replaces the tracked usage for one partition. Called whenever the
// queue tree is refreshed with a freshly observed usage snapshot.
func (ru *ResourceUsage) SetUsed(partition string, used *Resource) {
	ru.Lock()
	defer ru.Unlock()
	ru.usedByPartition[partition] = used.Clone()
}

// Clone creates a deep copy of the usage snapshot.
func (ru *ResourceUsage) Clone() *ResourceUsage {
	if ru == nil {
		return nil
	}
	ret := NewResourceUsage()
	ru.RLock()
	defer ru.RUnlock()
	for k, v := range ru.usedByPartition {
		ret.usedByPartition[k] = v.Clone()
	}
	return ret
}
