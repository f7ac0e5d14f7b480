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
	"github.com/google/btree"
)

// markRef orders marks oldest-confirmed-first by lastListedTimestamp, ties
// broken by container id. It backs DebugMarks below, a read-only, debug-only
// view; it plays no part in the sweep or selection critical paths (see
// SPEC_FULL.md §4.4/§8 for why an ordered index wasn't used there).
type markRef struct {
	lastListed int64
	mark       *ToPreemptContainer
}

func (r markRef) Less(than btree.Item) bool {
	other, ok := than.(markRef)
	if !ok {
		return false
	}
	if r.lastListed != other.lastListed {
		return r.lastListed < other.lastListed
	}
	return r.mark.Container.ContainerID < other.mark.Container.ContainerID
}

// DebugMarks returns every current mark ordered oldest-confirmed-first,
// for the command-line entrypoint's debug endpoint. Building the tree on
// demand keeps the hot paths (addMark/unmarkContainer) free of tree
// maintenance; this is O(n log n) per call, acceptable for an
// operator-triggered debug snapshot.
func (c *Coordinator) DebugMarks() []*ToPreemptContainer {
	c.RLock()
	defer c.RUnlock()

	tree := btree.New(32)
	for _, mark := range c.relationships.containers {
		tree.ReplaceOrInsert(markRef{lastListed: mark.LastListedTimestamp.UnixNano(), mark: mark})
	}

	ordered := make([]*ToPreemptContainer, 0, tree.Len())
	tree.Ascend(func(item btree.Item) bool {
		ordered = append(ordered, item.(markRef).mark)
		return true
	})
	return ordered
}
