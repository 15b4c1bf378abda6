// Package config provides configuration and input specifications for the allocation engine.
//
// Configuration Types:
//
//   - OptimizerSpec: which strategies run, in which order, sequentially or in parallel
//   - ExactSpec: search budget and objective weight scale of the exact strategy
//   - RandomizedSpec: iterations, workers and seed of the randomized strategy
//   - ProblemData: agents, resources with capacities, preferences and rule specs
//
// Configuration Sources:
//
//  1. Command-line flags (highest priority)
//  2. Environment variables (ALLOCATOR_ prefix)
//  3. Configuration file
//  4. Default values (lowest priority)
//
// Example usage:
//
//	v := viper.New()
//	v.SetConfigFile("solver.yaml")
//	_ = v.ReadInConfig()
//
//	spec, err := config.LoadOptimizerSpec(v)
//	if err != nil {
//	    return err
//	}
//	log.Info("optimizer configuration",
//	    "strategies", spec.Strategies,
//	    "parallel", spec.Parallel,
//	    "exactTimeLimit", spec.Exact.TimeLimit)
//
// Values are validated on load:
//   - Numeric ranges (e.g., maxIterations > 0, weightScale > 0)
//   - Known strategy names without duplicates
//   - Rule spec shapes; agent and resource references are resolved when rules are built
package config
