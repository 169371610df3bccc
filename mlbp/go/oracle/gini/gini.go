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

// Package gini solves models with the gini SAT solver. Every pseudo-Boolean row becomes a
// decision diagram in a logic.C circuit, which is Tseitin-encoded into the solver. Objective
// bounds are added incrementally and activated through assumptions.
package gini

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/oracle"
	"github.com/hierpack/mlbp/mlbp/go/pbenc"
)

// Options configures the oracle.
type Options struct {
	// PollInterval is how often a running search checks for cancellation. Zero means 5ms.
	PollInterval time.Duration
}

// Oracle is an oracle.Oracle backed by gini.
type Oracle struct {
	opts Options
}

// New returns a gini oracle.
func New(opts Options) *Oracle {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Millisecond
	}
	return &Oracle{opts: opts}
}

// Solve minimizes the model.
func (o *Oracle) Solve(ctx context.Context, m *cpmodel.Model) (*cpmodel.Response, error) {
	return oracle.Minimize(ctx, "gini", m, func(f *pbenc.Formula) (oracle.Decider, error) {
		return newDecider(f, o.opts.PollInterval), nil
	})
}

type decider struct {
	g      *gini.Gini
	c      *logic.C
	inputs []z.Lit
	poll   time.Duration
}

func newDecider(f *pbenc.Formula, poll time.Duration) *decider {
	d := &decider{g: gini.New(), c: logic.NewC(), inputs: make([]z.Lit, f.NumVars+1), poll: poll}
	for v := 1; v <= f.NumVars; v++ {
		d.inputs[v] = d.c.Lit()
	}
	roots := make([]z.Lit, len(f.Constraints))
	for i, row := range f.Constraints {
		roots[i] = d.encode(row)
	}
	d.c.ToCnf(d.g)
	// Variable 1 is the circuit constant and is not constrained by ToCnf.
	d.g.Add(d.c.T)
	d.g.Add(z.LitNull)
	for _, r := range roots {
		d.g.Add(r)
		d.g.Add(z.LitNull)
	}
	return d
}

func (d *decider) lit(l pbenc.Lit) z.Lit {
	m := d.inputs[l.Var()]
	if l < 0 {
		return m.Not()
	}
	return m
}

type bddKey struct {
	i    int
	need int64
}

// encode returns a circuit literal that holds exactly when the row is satisfied. Terms are
// taken by decreasing coefficient; each node is keyed by the term index and the weight still
// missing.
func (d *decider) encode(row pbenc.Constraint) z.Lit {
	terms := append([]pbenc.Term(nil), row.Terms...)
	sort.SliceStable(terms, func(i, j int) bool { return terms[i].Coeff > terms[j].Coeff })
	suffix := make([]int64, len(terms)+1)
	for i := len(terms) - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1] + terms[i].Coeff
	}
	memo := map[bddKey]z.Lit{}
	var build func(i int, need int64) z.Lit
	build = func(i int, need int64) z.Lit {
		if need <= 0 {
			return d.c.T
		}
		if suffix[i] < need {
			return d.c.F
		}
		if suffix[i] == need {
			lits := make([]z.Lit, 0, len(terms)-i)
			for _, t := range terms[i:] {
				lits = append(lits, d.lit(t.Lit))
			}
			return d.c.Ands(lits...)
		}
		k := bddKey{i, need}
		if m, ok := memo[k]; ok {
			return m
		}
		m := d.c.Choice(d.lit(terms[i].Lit), build(i+1, need-terms[i].Coeff), build(i+1, need))
		memo[k] = m
		return m
	}
	return build(0, row.AtLeast)
}

func (d *decider) Decide(ctx context.Context, bound *pbenc.Constraint) ([]bool, bool, error) {
	if bound != nil {
		r := d.encode(*bound)
		d.c.ToCnfFrom(d.g, r)
		d.g.Assume(r)
	}
	s := d.g.GoSolve()
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return nil, false, ctx.Err()
		case <-ticker.C:
		}
		res, done := s.Test()
		if !done {
			continue
		}
		switch res {
		case 1:
			return d.model(), true, nil
		case -1:
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("gini stopped without an answer (%d)", res)
	}
}

func (d *decider) model() []bool {
	assign := make([]bool, len(d.inputs)-1)
	top := d.g.MaxVar()
	for v := 1; v < len(d.inputs); v++ {
		m := d.inputs[v]
		assign[v-1] = m.Var() <= top && d.g.Value(m)
	}
	return assign
}
