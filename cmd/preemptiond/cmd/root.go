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

// Package cmd wires the preemptiond command-line entrypoint: a small cobra
// tree with serve/version subcommands, config resolved through viper
// (flags, then PREEMPTIOND_* env vars, then defaults).
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "PREEMPTIOND"

// RootCmd builds the top level command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "preemptiond",
		Short:        "Runs the capacity-scheduler preemption decision core as a standalone daemon",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "./preemption.yaml", "path to the preemption configuration YAML file")
	root.PersistentFlags().String("listen", ":9089", "address the debug/metrics HTTP server listens on")
	root.PersistentFlags().Duration("wait-before-kill", 0, "grace period between marking and kill promotion; 0 uses the config value or the default")
	root.PersistentFlags().Duration("stale-sweep-interval", 0, "override the config's stale sweep interval; 0 uses the config value")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlags(root.PersistentFlags())

	root.AddCommand(serveCmd(), versionCmd())
	return root
}
