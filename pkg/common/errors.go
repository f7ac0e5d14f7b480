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

package common

import "errors"

var (
	// ErrInvalidQueuePath returned when a queue path is empty or malformed.
	ErrInvalidQueuePath = errors.New("invalid queue path")
	// ErrUnknownEntity returned when an operation references a queue-partition entity that was never registered.
	ErrUnknownEntity = errors.New("unknown queue-partition entity")
	// ErrContainerAlreadyMarked returned when a mark is requested for a container that already carries one.
	ErrContainerAlreadyMarked = errors.New("container already marked for preemption")
	// ErrNoSuchMark returned when an unmark is requested for a container that carries no mark.
	ErrNoSuchMark = errors.New("no active mark for container")
)

// Constant messages used in cycle diagnostics and logging.
const (
	PreemptionPreconditionsFailed = "preemption preconditions failed"
	PreemptionDoesNotGuarantee    = "preemption headroom guarantee check failed"
	PreemptionShortfall           = "preemption helped but fell short of the requirement"
	PreemptionDoesNotHelp         = "preemption does not help satisfy the requirement"
)
