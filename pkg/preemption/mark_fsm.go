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
	"context"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/clustersched/preemption-core/pkg/log"
)

// markState is the lifecycle of a single ToPreemptContainer mark.
type markState int

const (
	markStateMarked markState = iota
	markStateKillable
)

func (s markState) String() string {
	if s == markStateKillable {
		return "Killable"
	}
	return "Marked"
}

// markEvent is raised when TryPreempt confirms an existing mark after its
// grace period has elapsed; promote skips it once the mark is Killable.
type markEvent int

const (
	confirmMark markEvent = iota
)

func (e markEvent) String() string {
	return "Confirm"
}

// markFSM wraps a looplab/fsm.FSM modeling the two-state grace-period
// promotion: a mark starts Marked and moves to Killable the first time it
// is confirmed by TryPreempt more than WaitBeforeKill after its
// startTimestamp.
type markFSM struct {
	containerID string
	inner       *fsm.FSM
}

func newMarkFSM(containerID string) *markFSM {
	m := &markFSM{containerID: containerID}
	m.inner = fsm.NewFSM(
		markStateMarked.String(),
		fsm.Events{
			{
				Name: confirmMark.String(),
				Src:  []string{markStateMarked.String(), markStateKillable.String()},
				Dst:  markStateKillable.String(),
			},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, event *fsm.Event) {
				log.Logger().Debug("preemption mark state transition",
					zap.String("containerID", m.containerID),
					zap.String("source", event.Src),
					zap.String("destination", event.Dst))
			},
		},
	)
	return m
}

func (m *markFSM) isKillable() bool {
	return m.inner.Current() == markStateKillable.String()
}

// promote fires the Confirm event, moving the mark to Killable. It is a
// no-op if already Killable.
func (m *markFSM) promote() {
	if m.isKillable() {
		return
	}
	_ = m.inner.Event(context.Background(), confirmMark.String())
}
