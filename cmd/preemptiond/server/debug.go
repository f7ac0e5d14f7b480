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

// Package server exposes preemptiond's debug and metrics HTTP surface,
// following the host scheduler's pkg/webservice route-table convention but
// registered directly on a julienschmidt/httprouter.Router (the router the
// host scheduler itself pulls in and exercises from its webservice tests).
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clustersched/preemption-core/pkg/log"
	"github.com/clustersched/preemption-core/pkg/preemption"
)

type markView struct {
	ContainerID   string `json:"containerId"`
	Queue         string `json:"queue"`
	DemandingApp  string `json:"demandingApp"`
	DemandQueue   string `json:"demandQueue"`
	StartedAt     string `json:"startedAt"`
	LastConfirmed string `json:"lastConfirmed"`
	Killable      bool   `json:"killable"`
}

func loggingHandler(name string, inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inner.ServeHTTP(w, r)
		log.Logger().Debug("debug server request",
			zap.String("route", name),
			zap.String("method", r.Method),
			zap.Duration("latency", time.Since(start)))
	})
}

func debugMarksHandler(coordinator *preemption.Coordinator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		marks := coordinator.DebugMarks()
		views := make([]markView, 0, len(marks))
		for _, m := range marks {
			views = append(views, markView{
				ContainerID:   m.Container.ContainerID,
				Queue:         m.Container.Queue,
				DemandingApp:  m.Requirement.Application.ApplicationAttemptID,
				DemandQueue:   m.Requirement.Application.Queue,
				StartedAt:     m.StartTimestamp.UTC().Format(time.RFC3339),
				LastConfirmed: m.LastListedTimestamp.UTC().Format(time.RFC3339),
				Killable:      m.Killable(),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(views); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// NewRouter builds the debug/metrics HTTP handler for coordinator.
func NewRouter(coordinator *preemption.Coordinator) http.Handler {
	router := httprouter.New()
	router.Handler(http.MethodGet, "/ws/v1/debug/marks", loggingHandler("debugMarks", debugMarksHandler(coordinator)))
	router.Handler(http.MethodGet, "/metrics", loggingHandler("metrics", promhttp.Handler()))
	return router
}
