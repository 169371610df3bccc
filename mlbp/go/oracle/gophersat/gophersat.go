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

// Package gophersat solves models with the gophersat pseudo-Boolean solver.
package gophersat

import (
	"context"

	"github.com/crillab/gophersat/solver"
	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/oracle"
	"github.com/hierpack/mlbp/mlbp/go/pbenc"
)

// Oracle is an oracle.Oracle backed by gophersat.
type Oracle struct{}

// New returns a gophersat oracle.
func New() *Oracle {
	return &Oracle{}
}

// Solve minimizes the model.
func (o *Oracle) Solve(ctx context.Context, m *cpmodel.Model) (*cpmodel.Response, error) {
	return oracle.Minimize(ctx, "gophersat", m, newDecider)
}

func toPB(c pbenc.Constraint) solver.PBConstr {
	lits := make([]int, len(c.Terms))
	weights := make([]int, len(c.Terms))
	for i, t := range c.Terms {
		lits[i] = int(t.Lit)
		weights[i] = int(t.Coeff)
	}
	return solver.PBConstr{Lits: lits, Weights: weights, AtLeast: int(c.AtLeast)}
}

type decider struct {
	f *pbenc.Formula
}

func newDecider(f *pbenc.Formula) (oracle.Decider, error) {
	return &decider{f: f}, nil
}

// rows converts the formula, plus bound if not nil, into fresh gophersat rows.
// ParsePBConstrs rewrites the literals and weights of its input in place, so rows are never
// shared between two problems.
func (d *decider) rows(bound *pbenc.Constraint) []solver.PBConstr {
	rows := make([]solver.PBConstr, 0, len(d.f.Constraints)+1)
	for _, c := range d.f.Constraints {
		rows = append(rows, toPB(c))
	}
	if bound != nil {
		rows = append(rows, toPB(*bound))
	}
	return rows
}

// Decide rebuilds the solver for every query since the bound row only ever tightens.
func (d *decider) Decide(ctx context.Context, bound *pbenc.Constraint) ([]bool, bool, error) {
	rows := d.rows(bound)
	s := solver.New(solver.ParsePBConstrs(rows))
	// The search cannot be interrupted; an abandoned call finishes in the background.
	done := make(chan solver.Status, 1)
	go func() { done <- s.Solve() }()
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case status := <-done:
		if status != solver.Sat {
			return nil, false, nil
		}
		return s.Model(), true, nil
	}
}
