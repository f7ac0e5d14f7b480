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

import "github.com/clustersched/preemption-core/pkg/common/resources"

// QueueNode is the minimal external queue-tree capability QueueRefreshed
// consumes: enough to BFS the tree and collect each leaf's usage snapshot.
// This core never owns or mutates the tree; it is rebuilt wholesale on every
// refresh from whatever the outer scheduler currently has.
type QueueNode struct {
	Name     string
	Children []*QueueNode
	Usage    *resources.ResourceUsage
}
