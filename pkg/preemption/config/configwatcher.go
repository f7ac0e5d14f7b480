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

package config

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clustersched/preemption-core/pkg/log"
)

// ConfigReloader receives the freshly loaded document whenever the watcher
// detects the backing file's checksum has changed.
type ConfigReloader interface {
	DoReloadConfiguration(cfg *PreemptionConfig) error
}

var (
	instance *ConfigWatcher
	once     sync.Once
)

// ConfigWatcher polls a config file path on a fixed interval and invokes its
// registered ConfigReloader whenever the file's sha256 checksum changes.
// Adapted from the host scheduler's pkg/common/configs checksum-polling
// watcher; unlike that watcher this one never expires on its own, since a
// long-lived preemption coordinator should keep tracking config for its
// entire process lifetime.
type ConfigWatcher struct {
	path         string
	pollInterval time.Duration

	lock     sync.Mutex
	reloader ConfigReloader
	last     [32]byte
	hasLast  bool

	soloChan chan struct{}
	quit     chan struct{}
}

// CreateConfigWatcher builds a watcher for path, polling every pollInterval.
func CreateConfigWatcher(path string, pollInterval time.Duration) *ConfigWatcher {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &ConfigWatcher{
		path:         path,
		pollInterval: pollInterval,
		soloChan:     make(chan struct{}, 1),
		quit:         make(chan struct{}),
	}
}

// GetInstance returns the process-wide singleton watcher, creating one with
// a one second poll interval and no configured path on first use. Callers
// that need a specific path/interval should use CreateConfigWatcher instead.
func GetInstance() *ConfigWatcher {
	once.Do(func() {
		instance = CreateConfigWatcher("", time.Second)
	})
	return instance
}

// RegisterCallback installs reloader as the target of future reload events.
func (cw *ConfigWatcher) RegisterCallback(reloader ConfigReloader) {
	cw.lock.Lock()
	defer cw.lock.Unlock()
	cw.reloader = reloader
}

// runOnce loads the config file once, comparing its checksum against the
// last observed one. It returns true if the file changed and the registered
// reloader applied it without error.
func (cw *ConfigWatcher) runOnce() bool {
	cfg, err := Load(cw.path)
	if err != nil {
		log.Logger().Warn("failed to load preemption configuration, skipping reload",
			zap.String("path", cw.path), zap.Error(err))
		return false
	}

	cw.lock.Lock()
	defer cw.lock.Unlock()

	sum := cfg.Checksum()
	if cw.hasLast && sum == cw.last {
		return false
	}
	cw.last = sum
	cw.hasLast = true

	if cw.reloader == nil {
		return false
	}
	if err := cw.reloader.DoReloadConfiguration(cfg); err != nil {
		log.Logger().Warn("preemption configuration reload failed", zap.Error(err))
		return false
	}
	log.Logger().Info("preemption configuration reloaded", zap.String("path", cw.path))
	return true
}

// Run starts the polling loop if it is not already running; a second call
// while running is a no-op.
func (cw *ConfigWatcher) Run() {
	select {
	case cw.soloChan <- struct{}{}:
		ticker := time.NewTicker(cw.pollInterval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-cw.quit:
					<-cw.soloChan
					return
				case <-ticker.C:
					cw.runOnce()
				}
			}
		}()
	default:
		log.Logger().Info("preemption config watcher is already running")
	}
}

// Stop halts the polling loop started by Run. It is safe to call even if
// Run was never called.
func (cw *ConfigWatcher) Stop() {
	select {
	case cw.quit <- struct{}{}:
	default:
	}
}
