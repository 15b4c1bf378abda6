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
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	fileconfig "github.com/llm-d/llm-d-allocation-engine/internal/config"
	"github.com/llm-d/llm-d-allocation-engine/internal/logging"
	"github.com/llm-d/llm-d-allocation-engine/internal/metrics"
	"github.com/llm-d/llm-d-allocation-engine/pkg/config"
	"github.com/llm-d/llm-d-allocation-engine/pkg/core"
	"github.com/llm-d/llm-d-allocation-engine/pkg/solver"
)

// solveOutput is the document printed by the solve command.
type solveOutput struct {
	// Allocation is empty when no strategy found a complete allocation.
	Allocation map[string]string `json:"allocation" yaml:"allocation"`
	// PreferenceViolations lists agents placed outside their preference list.
	PreferenceViolations []string       `json:"preferenceViolations,omitempty" yaml:"preferenceViolations,omitempty"`
	Report               *solver.Report `json:"report" yaml:"report"`
}

func newSolveCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Benchmark the strategies on a problem file and print the best allocation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSolve(cmd, v)
		},
	}
	defaults := config.DefaultOptimizerSpec()
	flags := cmd.Flags()
	flags.StringP(flagProblem, "p", "", "problem file (yaml or json)")
	flags.StringP(flagOutput, "o", string(fileconfig.FormatYAML), "output format: yaml or json")
	flags.String(flagMetrics, "", "write strategy metrics in the Prometheus text format to this file")
	flags.StringSlice(flagStrategy, defaults.Strategies, "strategies to run, in order")
	flags.Bool(flagParallel, defaults.Parallel, "run the strategies concurrently")
	flags.Duration(flagTimeout, defaults.Timeout, "bound on the whole solve (0 for none)")
	flags.Duration(flagTimeLimit, defaults.Exact.TimeLimit, "search time limit of the exact strategy")
	flags.Int64(flagNodeLimit, defaults.Exact.NodeLimit, "search node limit of the exact strategy (0 for none)")
	flags.Int(flagMaxIter, defaults.Randomized.MaxIterations, "attempts of the randomized strategy")
	flags.Int(flagWorkers, defaults.Randomized.Workers, "goroutines sharing the randomized attempts")
	flags.Uint64(flagSeed, defaults.Randomized.Seed, "seed of the randomized strategy (0 seeds from the clock)")
	_ = cmd.MarkFlagRequired(flagProblem)

	bindFlags(v, flags, map[string]string{
		"strategies":               flagStrategy,
		"parallel":                 flagParallel,
		"timeout":                  flagTimeout,
		"exact.timeLimit":          flagTimeLimit,
		"exact.nodeLimit":          flagNodeLimit,
		"randomized.maxIterations": flagMaxIter,
		"randomized.workers":       flagWorkers,
		"randomized.seed":          flagSeed,
	})
	return cmd
}

// bindFlags binds configuration keys to flags, so that a flag set on the
// command line overrides the environment and the configuration file.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func runSolve(cmd *cobra.Command, v *viper.Viper) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)
	flags := cmd.Flags()

	problemPath, _ := flags.GetString(flagProblem)
	outputName, _ := flags.GetString(flagOutput)
	metricsPath, _ := flags.GetString(flagMetrics)

	format, err := fileconfig.ParseFormat(outputName)
	if err != nil {
		return err
	}
	spec, err := config.LoadOptimizerSpec(v)
	if err != nil {
		return err
	}
	data, err := fileconfig.LoadProblemFile(problemPath)
	if err != nil {
		return err
	}
	problem, err := core.NewProblemFromSpec(data)
	if err != nil {
		return fmt.Errorf("invalid problem: %w", err)
	}
	rules, err := solver.RulesFromSpec(data.Rules)
	if err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}

	registry := prometheus.NewRegistry()
	optimizer, err := solver.NewOptimizer(spec, solver.WithRecorder(metrics.NewRecorder(registry)))
	if err != nil {
		return err
	}
	allocation, report, err := optimizer.Optimize(ctx, problem, rules...)
	if err != nil {
		return err
	}
	logger.V(logging.DEBUG).Info("solve finished", "status", report.Status, "winner", report.WinningStrategy)

	if metricsPath != "" {
		if err := writeMetrics(metricsPath, registry); err != nil {
			return err
		}
	}
	return fileconfig.Encode(cmd.OutOrStdout(), newSolveOutput(problem, allocation, report), format)
}

func newSolveOutput(problem *core.Problem, allocation core.Allocation, report *solver.Report) *solveOutput {
	out := &solveOutput{Allocation: make(map[string]string, len(allocation)), Report: report}
	for agent, resource := range allocation {
		out.Allocation[string(agent)] = string(resource)
	}
	if allocation != nil {
		for _, agent := range allocation.PreferenceViolations(problem) {
			out.PreferenceViolations = append(out.PreferenceViolations, string(agent))
		}
	}
	return out
}

func writeMetrics(path string, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	defer f.Close()
	return writeFamilies(f, families)
}

func writeFamilies(w io.Writer, families []*dto.MetricFamily) error {
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
