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

// Package oracle defines the optimization engine that the packing models are handed to, and
// the bound-tightening search shared by the SAT based backends.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/pbenc"
)

// Oracle minimizes a model. Solver outcomes are reported through Response.Status; the error
// is reserved for encoding and transport failures. A deadline or cancellation of ctx ends the
// search with TimedOut, or Feasible if an assignment was already found.
type Oracle interface {
	Solve(ctx context.Context, m *cpmodel.Model) (*cpmodel.Response, error)
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, m *cpmodel.Model) (*cpmodel.Response, error)

// Solve calls f.
func (f Func) Solve(ctx context.Context, m *cpmodel.Model) (*cpmodel.Response, error) {
	return f(ctx, m)
}

// ErrBadAssignment is returned when a backend produces an assignment that violates the model.
var ErrBadAssignment = errors.New("backend returned an assignment that violates the model")

// Decider answers satisfiability queries over one encoded formula.
type Decider interface {
	// Decide looks for an assignment of the formula that also satisfies bound, if not nil.
	// It returns the assignment indexed by variable-1, or ok == false if none exists. A
	// canceled ctx returns ctx.Err().
	Decide(ctx context.Context, bound *pbenc.Constraint) (assign []bool, ok bool, err error)
}

// NewDecider prepares a Decider for a formula.
type NewDecider func(f *pbenc.Formula) (Decider, error)

// Minimize encodes the model and repeatedly asks for an assignment strictly better than the
// best one so far, until the decider proves no better assignment exists or ctx is done.
func Minimize(ctx context.Context, name string, m *cpmodel.Model, newDecider NewDecider) (*cpmodel.Response, error) {
	start := time.Now()
	resp := &cpmodel.Response{Status: cpmodel.TimedOut}
	defer func() { resp.WallTime = time.Since(start) }()

	f, err := pbenc.Encode(m)
	if err != nil {
		if errors.Is(err, pbenc.ErrEmptyDomain) || errors.Is(err, pbenc.ErrUnsupported) {
			log.Errorf("%s: %v", name, err)
			resp.Status = cpmodel.ModelInvalid
			return resp, nil
		}
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}
	log.V(1).Infof("%s: %d variables, %d rows", name, f.NumVars, len(f.Constraints))
	if f.Infeasible {
		resp.Status = cpmodel.Infeasible
		return resp, nil
	}

	d, err := newDecider(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load formula into %s: %w", name, err)
	}
	resp.BestObjectiveBound = f.ObjectiveOffset
	var bound *pbenc.Constraint
	for iter := 0; ; iter++ {
		var assign []bool
		var ok bool
		err := ctx.Err()
		if err == nil {
			assign, ok, err = d.Decide(ctx, bound)
		}
		if err != nil {
			if ctx.Err() == nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if resp.Solution != nil {
				resp.Status = cpmodel.Feasible
			}
			log.V(1).Infof("%s: stopped after %d iterations: %v", name, iter, err)
			return resp, nil
		}
		if !ok {
			if resp.Solution == nil {
				resp.Status = cpmodel.Infeasible
				return resp, nil
			}
			break
		}
		values := f.Decode(assign)
		if err := m.Validate(values); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", name, ErrBadAssignment, err)
		}
		resp.Solution = values
		resp.ObjectiveValue = f.ObjectiveValue(assign)
		log.V(2).Infof("%s: iteration %d found objective %d", name, iter, resp.ObjectiveValue)
		if resp.ObjectiveValue == f.ObjectiveOffset {
			break
		}
		row, ok := f.ObjectiveAtMost(resp.ObjectiveValue - 1)
		if !ok {
			break
		}
		bound = &row
	}
	resp.Status = cpmodel.Optimal
	resp.BestObjectiveBound = resp.ObjectiveValue
	log.V(1).Infof("%s: optimal objective %d", name, resp.ObjectiveValue)
	return resp, nil
}
