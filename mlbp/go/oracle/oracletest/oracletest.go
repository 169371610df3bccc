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

// Package oracletest holds a conformance suite shared by the oracle backends.
package oracletest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/oracle"
	"github.com/hierpack/mlbp/mlbp/go/pbenc"
)

// Case is a model with its expected outcome.
type Case struct {
	Name       string
	Model      func(t *testing.T) *cpmodel.Model
	WantStatus cpmodel.SolverStatus
	// WantObjective is checked when WantStatus is Optimal.
	WantObjective int64
}

func build(t *testing.T, cp *cpmodel.Builder) *cpmodel.Model {
	t.Helper()
	m, err := cp.Model()
	if err != nil {
		t.Fatalf("Model() returned with unexpected error %v", err)
	}
	return m
}

// Cases returns the standard models every backend must agree on.
func Cases() []Case {
	return []Case{
		{
			Name: "Covering",
			Model: func(t *testing.T) *cpmodel.Model {
				cp := cpmodel.NewCpModelBuilder()
				x := cp.NewIntVar(0, 5).WithName("x")
				y := cp.NewIntVar(0, 5).WithName("y")
				cp.AddGreaterOrEqual(cpmodel.NewLinearExpr().Add(x).Add(y), cpmodel.NewConstant(7))
				cp.Minimize(cpmodel.NewLinearExpr().AddTerm(x, 2).AddTerm(y, 3))
				return build(t, cp)
			},
			WantStatus:    cpmodel.Optimal,
			WantObjective: 16,
		},
		{
			Name: "BooleanChoice",
			Model: func(t *testing.T) *cpmodel.Model {
				cp := cpmodel.NewCpModelBuilder()
				a := cp.NewBoolVar().WithName("a")
				b := cp.NewBoolVar().WithName("b")
				c := cp.NewBoolVar().WithName("c")
				cp.AddExactlyOne(a, b, c)
				cp.AddImplication(a, b.Not())
				cp.AddBoolOr(b, c).OnlyEnforceIf(a.Not())
				cp.Minimize(cpmodel.NewLinearExpr().AddTerm(a, 4).AddTerm(b, 2).AddTerm(c, 3).AddConstant(10))
				return build(t, cp)
			},
			WantStatus:    cpmodel.Optimal,
			WantObjective: 12,
		},
		{
			// Six feasible objective values, so a descent can take several steps.
			Name: "Staircase",
			Model: func(t *testing.T) *cpmodel.Model {
				cp := cpmodel.NewCpModelBuilder()
				steps := make([]cpmodel.BoolVar, 6)
				obj := cpmodel.NewLinearExpr()
				for i := range steps {
					steps[i] = cp.NewBoolVar().WithName(fmt.Sprintf("step[%d]", i))
					obj.AddTerm(steps[i], int64(6-i))
				}
				cp.AddExactlyOne(steps...)
				cp.AddImplication(steps[5], steps[4].Not())
				cp.Minimize(obj)
				return build(t, cp)
			},
			WantStatus:    cpmodel.Optimal,
			WantObjective: 1,
		},
		{
			Name: "NoObjective",
			Model: func(t *testing.T) *cpmodel.Model {
				cp := cpmodel.NewCpModelBuilder()
				x := cp.NewIntVarFromDomain(cpmodel.FromIntervals([]cpmodel.ClosedInterval{{Start: 1, End: 2}, {Start: 6, End: 7}}))
				cp.AddGreaterOrEqual(x, cpmodel.NewConstant(3))
				return build(t, cp)
			},
			WantStatus: cpmodel.Optimal,
		},
		{
			Name: "Infeasible",
			Model: func(t *testing.T) *cpmodel.Model {
				cp := cpmodel.NewCpModelBuilder()
				x := cp.NewIntVar(0, 5)
				y := cp.NewIntVar(0, 5)
				cp.AddGreaterOrEqual(cpmodel.NewLinearExpr().Add(x).Add(y), cpmodel.NewConstant(11))
				cp.Minimize(x)
				return build(t, cp)
			},
			WantStatus: cpmodel.Infeasible,
		},
		{
			Name: "EmptyDomain",
			Model: func(t *testing.T) *cpmodel.Model {
				return &cpmodel.Model{Variables: []cpmodel.VariableData{{Name: "x", Domain: cpmodel.NewEmptyDomain()}}}
			},
			WantStatus: cpmodel.ModelInvalid,
		},
	}
}

// Run solves every case with o and checks status, objective and the returned assignment.
func Run(t *testing.T, o oracle.Oracle) {
	t.Helper()
	for _, tc := range Cases() {
		t.Run(tc.Name, func(t *testing.T) {
			m := tc.Model(t)
			resp, err := o.Solve(context.Background(), m)
			if err != nil {
				t.Fatalf("Solve() returned with unexpected error %v", err)
			}
			if resp.Status != tc.WantStatus {
				t.Fatalf("Solve() status = %v, want %v", resp.Status, tc.WantStatus)
			}
			if !resp.Status.HasSolution() {
				if resp.Solution != nil {
					t.Errorf("Solve() returned solution %v with status %v", resp.Solution, resp.Status)
				}
				return
			}
			if err := m.Validate(resp.Solution); err != nil {
				t.Errorf("Solve() returned an invalid assignment: %v", err)
			}
			if got := m.EvaluateObjective(resp.Solution); got != resp.ObjectiveValue {
				t.Errorf("ObjectiveValue = %d, but the solution evaluates to %d", resp.ObjectiveValue, got)
			}
			if diff := cmp.Diff(tc.WantObjective, resp.ObjectiveValue); diff != "" {
				t.Errorf("ObjectiveValue mismatch (-want +got):\n%s", diff)
			}
			if resp.BestObjectiveBound != resp.ObjectiveValue {
				t.Errorf("BestObjectiveBound = %d, want %d for an optimal response", resp.BestObjectiveBound, resp.ObjectiveValue)
			}
		})
	}
}

// RunCanceled checks that a canceled context ends the search without an error.
func RunCanceled(t *testing.T, o oracle.Oracle) {
	t.Helper()
	m := Cases()[0].Model(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp, err := o.Solve(ctx, m)
	if err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	if resp.Status != cpmodel.TimedOut {
		t.Errorf("Solve() status = %v, want %v", resp.Status, cpmodel.TimedOut)
	}
}

// RunDescent drives a single Decider of every optimal case through a descent. The first
// query forces an assignment worse than the optimum; each following query on the same Decider
// asks for a strictly better objective until none exists. The descent must end on the
// optimum, and every answer must satisfy the model.
func RunDescent(t *testing.T, newDecider oracle.NewDecider) {
	t.Helper()
	for _, tc := range Cases() {
		if tc.WantStatus != cpmodel.Optimal {
			continue
		}
		t.Run(tc.Name, func(t *testing.T) {
			m := tc.Model(t)
			f, err := pbenc.Encode(m)
			if err != nil {
				t.Fatalf("Encode() returned with unexpected error %v", err)
			}
			worse := tc.WantObjective + 1 - f.ObjectiveOffset
			if len(f.Objective) == 0 || worse <= 0 {
				t.Skip("no assignment worse than the optimum")
			}
			d, err := newDecider(f)
			if err != nil {
				t.Fatalf("newDecider() returned with unexpected error %v", err)
			}
			bound := &pbenc.Constraint{Terms: append([]pbenc.Term(nil), f.Objective...), AtLeast: worse}
			var path []int64
			for {
				assign, ok, err := d.Decide(context.Background(), bound)
				if err != nil {
					t.Fatalf("Decide() after %v returned with unexpected error %v", path, err)
				}
				if !ok {
					break
				}
				if err := m.Validate(f.Decode(assign)); err != nil {
					t.Fatalf("Decide() after %v returned an invalid assignment: %v", path, err)
				}
				v := f.ObjectiveValue(assign)
				if len(path) > 0 && v >= path[len(path)-1] {
					t.Fatalf("Decide() after %v returned objective %d, want less than %d", path, v, path[len(path)-1])
				}
				path = append(path, v)
				row, ok := f.ObjectiveAtMost(v - 1)
				if !ok {
					break
				}
				bound = &row
			}
			if len(path) < 2 {
				t.Fatalf("descent %v took fewer than two steps", path)
			}
			if path[0] <= tc.WantObjective {
				t.Errorf("first assignment has objective %d, want more than %d", path[0], tc.WantObjective)
			}
			if got := path[len(path)-1]; got != tc.WantObjective {
				t.Errorf("descent %v ended on %d, want %d", path, got, tc.WantObjective)
			}
		})
	}
}
