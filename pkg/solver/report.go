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

package solver

import (
	"time"

	"k8s.io/utils/ptr"
)

// BenchmarkRecord is the outcome of one strategy in a solve.
type BenchmarkRecord struct {
	Strategy string        `json:"strategy" yaml:"strategy"`
	Elapsed  time.Duration `json:"elapsed" yaml:"elapsed"`
	Feasible bool          `json:"feasible" yaml:"feasible"`
	// Score is the canonical score of the allocation, nil when infeasible.
	Score  *float64 `json:"score,omitempty" yaml:"score,omitempty"`
	Status Status   `json:"status" yaml:"status"`
	Reason string   `json:"reason,omitempty" yaml:"reason,omitempty"`

	Search   *SearchStats  `json:"search,omitempty" yaml:"search,omitempty"`
	Attempts *AttemptStats `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

// Report is the aggregate of a solve: one record per strategy, in invocation order, and the winner.
type Report struct {
	RunID   string            `json:"runID" yaml:"runID"`
	Status  Status            `json:"status" yaml:"status"`
	Reason  string            `json:"reason,omitempty" yaml:"reason,omitempty"`
	Elapsed time.Duration     `json:"elapsed" yaml:"elapsed"`
	Records []BenchmarkRecord `json:"records" yaml:"records"`

	// WinningStrategy is empty when no strategy produced an allocation.
	WinningStrategy string   `json:"winningStrategy,omitempty" yaml:"winningStrategy,omitempty"`
	WinningScore    *float64 `json:"winningScore,omitempty" yaml:"winningScore,omitempty"`
}

// Record returns the record of the named strategy.
func (r *Report) Record(strategy string) (*BenchmarkRecord, bool) {
	for i := range r.Records {
		if r.Records[i].Strategy == strategy {
			return &r.Records[i], true
		}
	}
	return nil, false
}

// HasWinner reports whether some strategy produced an allocation.
func (r *Report) HasWinner() bool {
	return r.WinningStrategy != ""
}

func newRecord(name string, outcome *Outcome) BenchmarkRecord {
	return BenchmarkRecord{
		Strategy: name,
		Elapsed:  outcome.Elapsed,
		Status:   outcome.Status,
		Reason:   outcome.Reason,
		Search:   outcome.Search,
		Attempts: outcome.Attempts,
	}
}

// selectWinner returns the index of the feasible record with the strictly
// highest score; ties keep the earliest record. It returns -1 without feasible records.
func selectWinner(records []BenchmarkRecord) int {
	winner := -1
	for i := range records {
		if !records[i].Feasible || records[i].Score == nil {
			continue
		}
		if winner == -1 || *records[i].Score > *records[winner].Score {
			winner = i
		}
	}
	return winner
}

func (r *Report) setWinner(i int) {
	r.WinningStrategy = r.Records[i].Strategy
	r.WinningScore = ptr.To(*r.Records[i].Score)
	r.Status = r.Records[i].Status
}
