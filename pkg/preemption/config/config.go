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

// Package config loads the YAML-defined queue-partition budgets this core
// needs (PreemptionConfig) and watches the backing file for changes,
// adapted from the host scheduler's pkg/common/configs checksum-polling
// pattern.
package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultWaitBeforeKillSeconds mirrors preemption.DefaultWaitBeforeKillSeconds;
	// kept independent so this package has no import-time dependency on the core.
	DefaultWaitBeforeKillSeconds = 30
	// DefaultStaleSweepInterval is the polling period of the staleness sweep
	// when a config document omits it.
	DefaultStaleSweepInterval = time.Minute
)

// PartitionEntityConfig is the YAML-loadable shape of one
// PreemptableQueuePartitionEntity: a queue-partition's ideal share and
// preemption budget. Resource values carry an SI or binary-SI suffix (e.g.
// "1Gi", "500m" for vcore) parsed by pkg/common/resources.NewResourceFromConf,
// the same convention the host scheduler's queue-tree config uses.
type PartitionEntityConfig struct {
	Queue      string            `yaml:"queue"`
	Partition  string            `yaml:"partition"`
	Ideal      map[string]string `yaml:"ideal"`
	MaxPreempt map[string]string `yaml:"maxPreempt"`
}

// PreemptionConfig is the top level document this package loads.
type PreemptionConfig struct {
	Partitions            []PartitionEntityConfig `yaml:"partitions"`
	WaitBeforeKillSeconds int                     `yaml:"waitBeforeKillSeconds"`
	StaleSweepInterval    time.Duration           `yaml:"staleSweepInterval"`

	// checksum is stripped before comparison; it is computed by Load, never
	// read from the document itself.
	checksum [sha256.Size]byte
}

// Checksum returns the sha256 digest of the raw document bytes Load parsed.
func (c *PreemptionConfig) Checksum() [sha256.Size]byte {
	return c.checksum
}

// Load reads and parses path into a PreemptionConfig, applying defaults for
// omitted WaitBeforeKillSeconds/StaleSweepInterval.
func Load(path string) (*PreemptionConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preemption config: reading %s: %w", path, err)
	}

	cfg := &PreemptionConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("preemption config: parsing %s: %w", path, err)
	}
	if cfg.WaitBeforeKillSeconds <= 0 {
		cfg.WaitBeforeKillSeconds = DefaultWaitBeforeKillSeconds
	}
	if cfg.StaleSweepInterval <= 0 {
		cfg.StaleSweepInterval = DefaultStaleSweepInterval
	}
	cfg.checksum = sha256.Sum256(raw)
	return cfg, nil
}
