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
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

const sampleDoc = `
partitions:
  - queue: B
    partition: default
    ideal:
      memory: "4Gi"
      vcore: "4"
    maxPreempt:
      memory: "2Gi"
      vcore: "2"
waitBeforeKillSeconds: 45
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "preemption.yaml")
	assert.NilError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaultsAndValues(t *testing.T) {
	path := writeConfig(t, sampleDoc)
	cfg, err := Load(path)
	assert.NilError(t, err)

	assert.Equal(t, 1, len(cfg.Partitions))
	assert.Equal(t, "B", cfg.Partitions[0].Queue)
	assert.Equal(t, "2Gi", cfg.Partitions[0].MaxPreempt["memory"])
	assert.Equal(t, 45, cfg.WaitBeforeKillSeconds)
	assert.Equal(t, DefaultStaleSweepInterval, cfg.StaleSweepInterval)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Assert(t, err != nil)
}

func TestLoadMalformedYamlErrors(t *testing.T) {
	path := writeConfig(t, "partitions: [this is not valid")
	_, err := Load(path)
	assert.Assert(t, err != nil)
}

func TestChecksumChangesWithContent(t *testing.T) {
	pathA := writeConfig(t, sampleDoc)
	pathB := writeConfig(t, sampleDoc+"\nstaleSweepInterval: 2m\n")

	cfgA, err := Load(pathA)
	assert.NilError(t, err)
	cfgB, err := Load(pathB)
	assert.NilError(t, err)

	assert.Assert(t, cfgA.Checksum() != cfgB.Checksum())
	assert.Equal(t, 2*time.Minute, cfgB.StaleSweepInterval)
}
