/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/llm-d/llm-d-allocation-engine/internal/logging"
	"github.com/llm-d/llm-d-allocation-engine/pkg/config"
)

const (
	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagProblem   = "problem"
	flagOutput    = "output"
	flagMetrics   = "metrics-file"
	flagStrategy  = "strategies"
	flagParallel  = "parallel"
	flagTimeout   = "timeout"
	flagTimeLimit = "exact-time-limit"
	flagNodeLimit = "exact-node-limit"
	flagMaxIter   = "max-iterations"
	flagWorkers   = "workers"
	flagSeed      = "seed"
)

func newRootCommand() *cobra.Command {
	v := config.NewViper()
	root := &cobra.Command{
		Use:          "allocator",
		Short:        "Allocate agents to capacity-limited resources",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// the config file may set the log level
			if err := readConfigFile(v); err != nil {
				return err
			}
			logger, err := logging.NewLogger(v.GetString("logLevel"))
			if err != nil {
				return err
			}
			logging.SetLogger(logger)
			cmd.SetContext(logging.IntoContext(cmd.Context(), logger))
			return nil
		},
	}
	root.PersistentFlags().String(flagConfig, "", "optimizer configuration file (yaml or json)")
	root.PersistentFlags().String(flagLogLevel, "info", "log level: info, debug or trace")
	bindFlags(v, root.PersistentFlags(), map[string]string{
		"configFile": flagConfig,
		"logLevel":   flagLogLevel,
	})

	root.AddCommand(newSolveCommand(v))
	return root
}

// readConfigFile merges the optimizer configuration file, if any, into v.
func readConfigFile(v *viper.Viper) error {
	path := v.GetString("configFile")
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	return v.ReadInConfig()
}
