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

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding configuration keys,
// e.g. ALLOCATOR_EXACT_TIMELIMIT=10s.
const EnvPrefix = "ALLOCATOR"

// SetDefaults registers the default configuration values on v.
func SetDefaults(v *viper.Viper) {
	d := DefaultOptimizerSpec()
	v.SetDefault("strategies", d.Strategies)
	v.SetDefault("parallel", d.Parallel)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("exact.timeLimit", d.Exact.TimeLimit)
	v.SetDefault("exact.nodeLimit", d.Exact.NodeLimit)
	v.SetDefault("exact.weightScale", d.Exact.WeightScale)
	v.SetDefault("randomized.maxIterations", d.Randomized.MaxIterations)
	v.SetDefault("randomized.workers", d.Randomized.Workers)
	v.SetDefault("randomized.seed", d.Randomized.Seed)
}

// NewViper returns a viper instance with defaults and environment overrides configured.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadOptimizerSpec decodes and validates the optimizer configuration held by v.
// Keys missing from v take their default value. Durations accept Go duration strings ("30s", "2m").
func LoadOptimizerSpec(v *viper.Viper) (*OptimizerSpec, error) {
	SetDefaults(v)
	spec := &OptimizerSpec{}
	if err := v.Unmarshal(spec); err != nil {
		return nil, fmt.Errorf("decoding optimizer configuration: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid optimizer configuration: %w", err)
	}
	return spec, nil
}
