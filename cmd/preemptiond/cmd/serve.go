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

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/clustersched/preemption-core/cmd/preemptiond/server"
	"github.com/clustersched/preemption-core/pkg/common/resources"
	"github.com/clustersched/preemption-core/pkg/log"
	"github.com/clustersched/preemption-core/pkg/preemption"
	preemptionconfig "github.com/clustersched/preemption-core/pkg/preemption/config"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the configured queue-partition budgets and run the preemption decision core",
		RunE:  runServe,
	}
}

func toPartitionUpdates(entries []preemptionconfig.PartitionEntityConfig) ([]preemption.PartitionUpdate, error) {
	updates := make([]preemption.PartitionUpdate, 0, len(entries))
	for _, e := range entries {
		ideal, err := resources.NewResourceFromConf(e.Ideal)
		if err != nil {
			return nil, fmt.Errorf("queue %s partition %s: ideal: %w", e.Queue, e.Partition, err)
		}
		maxPreempt, err := resources.NewResourceFromConf(e.MaxPreempt)
		if err != nil {
			return nil, fmt.Errorf("queue %s partition %s: maxPreempt: %w", e.Queue, e.Partition, err)
		}
		updates = append(updates, preemption.PartitionUpdate{
			Queue:      e.Queue,
			Partition:  e.Partition,
			Ideal:      ideal,
			MaxPreempt: maxPreempt,
		})
	}
	return updates, nil
}

// reloader bridges the config watcher's reload callback into the running
// Coordinator, also updating the sweep interval an in-flight sweep loop
// reads on its next tick.
type reloader struct {
	coordinator   *preemption.Coordinator
	sweepInterval *atomic.Int64
}

func (r *reloader) DoReloadConfiguration(cfg *preemptionconfig.PreemptionConfig) error {
	updates, err := toPartitionUpdates(cfg.Partitions)
	if err != nil {
		return err
	}
	r.coordinator.UpdatePartitions(updates)
	interval := cfg.StaleSweepInterval
	if override := viper.GetDuration("stale-sweep-interval"); override > 0 {
		interval = override
	}
	r.sweepInterval.Store(int64(interval))
	return nil
}

func runServe(cobraCmd *cobra.Command, _ []string) error {
	configPath := viper.GetString("config")
	listenAddr := viper.GetString("listen")
	waitBeforeKillOverride := viper.GetDuration("wait-before-kill")
	sweepIntervalOverride := viper.GetDuration("stale-sweep-interval")

	cfg, err := preemptionconfig.Load(configPath)
	if err != nil {
		return err
	}

	waitBeforeKill := time.Duration(cfg.WaitBeforeKillSeconds) * time.Second
	if waitBeforeKillOverride > 0 {
		waitBeforeKill = waitBeforeKillOverride
	}
	sweepInterval := cfg.StaleSweepInterval
	if sweepIntervalOverride > 0 {
		sweepInterval = sweepIntervalOverride
	}

	initialUpdates, err := toPartitionUpdates(cfg.Partitions)
	if err != nil {
		return err
	}
	coordinator := preemption.NewCoordinator(waitBeforeKill, nil)
	coordinator.UpdatePartitions(initialUpdates)

	sweepIntervalRef := &atomic.Int64{}
	sweepIntervalRef.Store(int64(sweepInterval))

	watcher := preemptionconfig.CreateConfigWatcher(configPath, time.Second)
	watcher.RegisterCallback(&reloader{coordinator: coordinator, sweepInterval: sweepIntervalRef})
	watcher.Run()
	defer watcher.Stop()

	ctx, cancel := context.WithCancel(cobraCmd.Context())
	defer cancel()
	go runSweepLoop(ctx, coordinator, sweepIntervalRef)

	httpServer := &http.Server{Addr: listenAddr, Handler: server.NewRouter(coordinator), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Logger().Error("debug server stopped unexpectedly", zap.Error(serveErr))
		}
	}()
	log.Logger().Info("preemptiond serving", zap.String("listen", listenAddr), zap.String("config", configPath))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Logger().Info("preemptiond shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runSweepLoop(ctx context.Context, coordinator *preemption.Coordinator, intervalRef *atomic.Int64) {
	for {
		interval := time.Duration(intervalRef.Load())
		if interval <= 0 {
			interval = preemptionconfig.DefaultStaleSweepInterval
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			coordinator.SweepStale(interval)
		}
	}
}
