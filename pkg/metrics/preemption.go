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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/clustersched/preemption-core/pkg/log"
)

// CorePreemptionMetrics declares the metrics tracked by one preemption cycle coordinator.
type CorePreemptionMetrics interface {
	// ObserveCycleLatency records how long one tryPreempt call took, in seconds.
	ObserveCycleLatency(start time.Time)
	// IncContainersMarked adds to the count of containers newly marked for preemption.
	IncContainersMarked(count int)
	// IncContainersKilled adds to the count of containers promoted to the kill set.
	IncContainersKilled(count int)
	// IncCycleOutcome records whether a tryPreempt call succeeded or failed to satisfy the requirement.
	IncCycleOutcome(satisfied bool)
	// SetMarkedEntities sets the current number of tracked container marks and demanding apps.
	SetMarkedEntities(containers int, demandingApps int)
}

type preemptionMetrics struct {
	cycleLatency   prometheus.Histogram
	containersMark prometheus.Counter
	containersKill prometheus.Counter
	cycleOutcome   *prometheus.CounterVec
	markedMarks    prometheus.Gauge
	markedApps     prometheus.Gauge
}

// InitPreemptionMetrics creates and registers the preemption cycle metrics.
func InitPreemptionMetrics() CorePreemptionMetrics {
	p := &preemptionMetrics{}

	p.cycleLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: PreemptionSubsystem,
			Name:      "cycle_latency_seconds",
			Help:      "Latency of one tryPreempt dry-run and reconciliation cycle, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 10, 6),
		},
	)
	p.containersMark = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: PreemptionSubsystem,
			Name:      "containers_marked_total",
			Help:      "Total number of containers newly marked for preemption.",
		},
	)
	p.containersKill = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: PreemptionSubsystem,
			Name:      "containers_killed_total",
			Help:      "Total number of containers promoted from mark to the kill set.",
		},
	)
	p.cycleOutcome = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: PreemptionSubsystem,
			Name:      "cycle_outcome_total",
			Help:      "Count of tryPreempt outcomes, by whether the requirement was satisfied.",
		}, []string{"outcome"})
	p.markedMarks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: PreemptionSubsystem,
			Name:      "marked_containers",
			Help:      "Current number of containers with an active preemption mark.",
		},
	)
	p.markedApps = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: PreemptionSubsystem,
			Name:      "demanding_applications",
			Help:      "Current number of applications with at least one active mark.",
		},
	)

	for _, metric := range []prometheus.Collector{
		p.cycleLatency,
		p.containersMark,
		p.containersKill,
		p.cycleOutcome,
		p.markedMarks,
		p.markedApps,
	} {
		if err := prometheus.Register(metric); err != nil {
			log.Logger().Warn("failed to register preemption metrics collector", zap.Error(err))
		}
	}

	return p
}

func (p *preemptionMetrics) ObserveCycleLatency(start time.Time) {
	p.cycleLatency.Observe(SinceInSeconds(start))
}

func (p *preemptionMetrics) IncContainersMarked(count int) {
	if count > 0 {
		p.containersMark.Add(float64(count))
	}
}

func (p *preemptionMetrics) IncContainersKilled(count int) {
	if count > 0 {
		p.containersKill.Add(float64(count))
	}
}

func (p *preemptionMetrics) IncCycleOutcome(satisfied bool) {
	if satisfied {
		p.cycleOutcome.With(prometheus.Labels{"outcome": "satisfied"}).Inc()
		return
	}
	p.cycleOutcome.With(prometheus.Labels{"outcome": "unsatisfied"}).Inc()
}

func (p *preemptionMetrics) SetMarkedEntities(containers int, demandingApps int) {
	p.markedMarks.Set(float64(containers))
	p.markedApps.Set(float64(demandingApps))
}
