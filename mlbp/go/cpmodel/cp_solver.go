// Copyright 2026 The mlbp Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cpmodel

import (
	"fmt"
	"time"
)

// SolverStatus is the outcome of a solve. The numeric values match CpSolverStatus on the
// CP-SAT wire, where TimedOut is UNKNOWN.
type SolverStatus int32

const (
	// TimedOut means the search stopped before finding any solution or proving infeasibility.
	TimedOut SolverStatus = 0
	// ModelInvalid means the model could not be handed to the solver.
	ModelInvalid SolverStatus = 1
	// Feasible means a solution was found but not proven optimal.
	Feasible SolverStatus = 2
	// Infeasible means the model was proven to have no solution.
	Infeasible SolverStatus = 3
	// Optimal means the solution was proven optimal.
	Optimal SolverStatus = 4
)

func (s SolverStatus) String() string {
	switch s {
	case TimedOut:
		return "TIMED_OUT"
	case ModelInvalid:
		return "MODEL_INVALID"
	case Feasible:
		return "FEASIBLE"
	case Infeasible:
		return "INFEASIBLE"
	case Optimal:
		return "OPTIMAL"
	}
	return fmt.Sprintf("SolverStatus(%d)", int32(s))
}

// MarshalText encodes the status by name.
func (s SolverStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *SolverStatus) UnmarshalText(b []byte) error {
	for c := TimedOut; c <= Optimal; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown solver status %q", b)
}

// HasSolution reports whether a response with this status carries an assignment.
func (s SolverStatus) HasSolution() bool {
	return s == Feasible || s == Optimal
}

// Response is what an oracle returns for a Model.
type Response struct {
	Status SolverStatus
	// Solution holds one value per model variable when Status.HasSolution().
	Solution []int64
	// ObjectiveValue is the objective of Solution, offset included.
	ObjectiveValue int64
	// BestObjectiveBound is a proven lower bound on the optimum. It equals ObjectiveValue
	// when Status is Optimal.
	BestObjectiveBound int64
	WallTime           time.Duration
}

// SolutionBooleanValue returns the value of BoolVar `bv` in the response.
func SolutionBooleanValue(r *Response, bv BoolVar) bool {
	return bv.evaluate(r.Solution) != 0
}

// SolutionIntegerValue returns the value of LinearArgument `la` in the response.
func SolutionIntegerValue(r *Response, la LinearArgument) int64 {
	return la.evaluate(r.Solution)
}
