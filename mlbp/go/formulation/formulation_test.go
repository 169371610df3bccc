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

package formulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/instance"
	"github.com/hierpack/mlbp/mlbp/go/network"
	"github.com/hierpack/mlbp/mlbp/go/oracle"
	"github.com/hierpack/mlbp/mlbp/go/oracle/gini"
	"github.com/hierpack/mlbp/mlbp/go/oracle/gophersat"
	"github.com/hierpack/mlbp/mlbp/go/solution"
	"github.com/hierpack/mlbp/mlbp/go/verifier"
)

func scenarioA(capacity int64) *instance.Instance {
	return &instance.Instance{Levels: [][]instance.Node{
		{{Size: 4}, {Size: 5}},
		{{Size: 3, Capacity: capacity, Cost: 2}},
		{{Capacity: 100, Cost: 5}},
	}}
}

func scenarioB() *instance.Instance {
	return &instance.Instance{Levels: [][]instance.Node{
		{{Size: 4}, {Size: 5}},
		{{Size: 3, Capacity: 8, Cost: 2}, {Size: 3, Capacity: 8, Cost: 2}},
		{{Capacity: 100, Cost: 5}},
	}}
}

func scenarioC() *instance.Instance {
	return &instance.Instance{
		Levels: [][]instance.Node{
			{{Size: 1}, {Size: 1}},
			{{Capacity: 2, Cost: 1}, {Capacity: 2, Cost: 1}},
		},
		Precedences: []instance.Pair{{Before: 0, After: 1}},
	}
}

// threeLevels has enough structure for the formulations to disagree if one of them is wrong.
func threeLevels(pairs ...instance.Pair) *instance.Instance {
	return &instance.Instance{
		Levels: [][]instance.Node{
			{{Size: 3}, {Size: 2}, {Size: 2}, {Size: 1}},
			{{Size: 2, Capacity: 4, Cost: 3}, {Size: 3, Capacity: 5, Cost: 4}, {Size: 1, Capacity: 3, Cost: 2}},
			{{Size: 2, Capacity: 4, Cost: 5}, {Size: 1, Capacity: 3, Cost: 2}},
			{{Capacity: 2, Cost: 1}, {Capacity: 2, Cost: 4}},
		},
		Precedences: pairs,
	}
}

// fourLevels has a single item and a zero-cost bin; its optimum is 3.
func fourLevels() *instance.Instance {
	return &instance.Instance{Levels: [][]instance.Node{
		{{Size: 3}},
		{{Size: 2, Capacity: 4}, {Size: 2, Capacity: 4, Cost: 5}},
		{{Size: 1, Capacity: 2, Cost: 2}},
		{{Capacity: 1, Cost: 1}},
	}}
}

// randomInstance draws a small instance with positive sizes and costs. Top bins are roomy so
// most draws are feasible.
func randomInstance(seed int64) *instance.Instance {
	rng := rand.New(rand.NewSource(seed))
	between := func(lo, hi int) int64 { return int64(lo + rng.Intn(hi-lo+1)) }
	m := 1 + rng.Intn(3)
	levels := make([][]instance.Node, m+1)
	for i := range levels {
		n := 1 + rng.Intn(3)
		if i == 0 {
			n = 2 + rng.Intn(3)
		}
		levels[i] = make([]instance.Node, n)
		for j := range levels[i] {
			var node instance.Node
			if i < m {
				node.Size = between(1, 3)
			}
			if i > 0 {
				node.Capacity = between(2, 6)
				node.Cost = between(1, 5)
			}
			if i == m {
				node.Capacity = between(4, 9)
			}
			levels[i][j] = node
		}
	}
	return &instance.Instance{Levels: levels}
}

var precedenceKinds = []Kind{OneHotAncestry, CompactAncestry, MultiCommodityFlow}

var oracles = []struct {
	name string
	o    oracle.Oracle
}{
	{"gophersat", gophersat.New()},
	{"gini", gini.New(gini.Options{})},
}

type result struct {
	resp *cpmodel.Response
	sol  *solution.Solution
}

// solve builds, solves and, when the response has a solution, decodes. constrain may add
// extra rows after Build.
func solve(t *testing.T, o oracle.Oracle, kind Kind, opts Options, inst *instance.Instance, constrain func(*cpmodel.Builder, Formulation)) result {
	t.Helper()
	f, err := New(kind, opts)
	if err != nil {
		t.Fatalf("New(%v) returned with unexpected error %v", kind, err)
	}
	b := cpmodel.NewCpModelBuilder()
	if err := f.Build(b, inst); err != nil {
		t.Fatalf("Build() returned with unexpected error %v", err)
	}
	if constrain != nil {
		constrain(b, f)
	}
	m, err := b.Model()
	if err != nil {
		t.Fatalf("Model() returned with unexpected error %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	resp, err := o.Solve(ctx, m)
	if err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	if !resp.Status.HasSolution() {
		return result{resp: resp}
	}
	sol, err := f.Decode(resp)
	if err != nil {
		t.Fatalf("Decode() returned with unexpected error %v", err)
	}
	return result{resp: resp, sol: sol}
}

// checkPlan runs the verifier and the trace consistency checks on an optimal result.
func checkPlan(t *testing.T, inst *instance.Instance, r result) {
	t.Helper()
	if r.resp.Status != cpmodel.Optimal {
		t.Fatalf("Solve() status = %v, want %v", r.resp.Status, cpmodel.Optimal)
	}
	if res := verifier.Verify(inst, r.sol, verifier.CollectAll()); !res.OK {
		t.Errorf("Verify() of the decoded plan returned findings %v", res.Findings)
	}
	if r.sol.Cost != r.resp.ObjectiveValue {
		t.Errorf("decoded Cost = %d, want the objective %d", r.sol.Cost, r.resp.ObjectiveValue)
	}
	if got := r.sol.OpenedCost(inst); got != r.sol.Cost {
		t.Errorf("OpenedCost() = %d, want %d", got, r.sol.Cost)
	}
	m := inst.M()
	for h := 0; h < inst.N(0); h++ {
		top, err := r.sol.TopBin(h)
		if err != nil {
			t.Fatalf("TopBin(%d) returned with unexpected error %v", h, err)
		}
		switch r.sol.Kind {
		case solution.Ancestry:
			if got := r.sol.Ancestry[h][m-1]; got != top {
				t.Errorf("Ancestry[%d][%d] = %d, want the top bin %d", h, m-1, got, top)
			}
		case solution.FlowTrace:
			if !contains(r.sol.Flow[m-1][top], h) {
				t.Errorf("Flow[%d][%d] = %v, want it to contain item %d", m-1, top, r.sol.Flow[m-1][top], h)
			}
		}
	}
}

func contains(s []int, v int) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

func TestKind_Names(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Errorf("ParseKind(%q) returned with unexpected error %v", k.String(), err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if _, err := ParseKind("simplex"); err == nil {
		t.Errorf("ParseKind(%q) returned no error", "simplex")
	}
	var supports []string
	for _, k := range Kinds {
		if k.SupportsPrecedence() {
			supports = append(supports, k.String())
		}
	}
	want := []string{"onehot-ancestry", "compact-ancestry", "multi-flow"}
	if diff := cmp.Diff(want, supports); diff != "" {
		t.Errorf("SupportsPrecedence() returned with unexpected diff (-want+got):\n%s", diff)
	}
}

func TestOptions_Names(t *testing.T) {
	for _, r := range []BalanceRelation{AtLeast, Exact} {
		if got, err := ParseBalanceRelation(r.String()); err != nil || got != r {
			t.Errorf("ParseBalanceRelation(%q) = %v, %v, want %v", r.String(), got, err, r)
		}
	}
	for _, l := range []HybridLinking{Decorative, Linked} {
		if got, err := ParseHybridLinking(l.String()); err != nil || got != l {
			t.Errorf("ParseHybridLinking(%q) = %v, %v, want %v", l.String(), got, err, l)
		}
	}
	if _, err := ParseBalanceRelation("strict"); err == nil {
		t.Errorf("ParseBalanceRelation(%q) returned no error", "strict")
	}
}

func TestNew_UnknownKind(t *testing.T) {
	if _, err := New(Kind(42), Options{}); err == nil {
		t.Errorf("New(Kind(42)) returned no error")
	}
}

func TestBuild_PrecedenceUnsupported(t *testing.T) {
	for _, k := range Kinds {
		t.Run(k.String(), func(t *testing.T) {
			f, err := New(k, Options{})
			if err != nil {
				t.Fatalf("New() returned with unexpected error %v", err)
			}
			err = f.Build(cpmodel.NewCpModelBuilder(), scenarioC())
			if got, want := errors.Is(err, ErrPrecedenceUnsupported), !k.SupportsPrecedence(); got != want {
				t.Errorf("Build() error = %v, want ErrPrecedenceUnsupported: %v", err, want)
			}
		})
	}
}

func TestDecode_Structural(t *testing.T) {
	for _, k := range Kinds {
		t.Run(k.String(), func(t *testing.T) {
			f, err := New(k, Options{})
			if err != nil {
				t.Fatalf("New() returned with unexpected error %v", err)
			}
			resp := &cpmodel.Response{Status: cpmodel.Optimal, Solution: []int64{1, 0}}
			if _, err := f.Decode(resp); !errors.Is(err, network.ErrStructural) {
				t.Errorf("Decode() before Build error = %v, want ErrStructural", err)
			}
			if err := f.Build(cpmodel.NewCpModelBuilder(), scenarioA(10)); err != nil {
				t.Fatalf("Build() returned with unexpected error %v", err)
			}
			if _, err := f.Decode(resp); !errors.Is(err, network.ErrStructural) {
				t.Errorf("Decode() of a short solution error = %v, want ErrStructural", err)
			}
			if _, err := f.Decode(&cpmodel.Response{Status: cpmodel.Infeasible}); err == nil {
				t.Errorf("Decode() of an infeasible response returned no error")
			}
		})
	}
}

func TestAssignment_Stats(t *testing.T) {
	b := cpmodel.NewCpModelBuilder()
	f, _ := New(Assignment, Options{})
	if err := f.Build(b, scenarioA(10)); err != nil {
		t.Fatalf("Build() returned with unexpected error %v", err)
	}
	want := cpmodel.Stats{
		Variables:   map[string]int{"x": 3, "y": 2},
		Constraints: map[string]int{"placement": 2, "usage": 1, "capacity": 2},
	}
	if diff := cmp.Diff(want, b.Stats()); diff != "" {
		t.Errorf("Stats() returned with unexpected diff (-want+got):\n%s", diff)
	}
}

func TestScenarioA(t *testing.T) {
	inst := scenarioA(10)
	want := [][]int{{0, 0}, {0}}
	for _, o := range oracles {
		for _, k := range Kinds {
			t.Run(fmt.Sprintf("%s/%v", o.name, k), func(t *testing.T) {
				r := solve(t, o.o, k, Options{}, inst, nil)
				checkPlan(t, inst, r)
				if r.resp.ObjectiveValue != 7 {
					t.Errorf("ObjectiveValue = %d, want 7", r.resp.ObjectiveValue)
				}
				if diff := cmp.Diff(want, r.sol.Placement); diff != "" {
					t.Errorf("Placement returned with unexpected diff (-want+got):\n%s", diff)
				}
			})
		}
	}
}

func TestScenarioB(t *testing.T) {
	for _, k := range Kinds {
		t.Run(k.String(), func(t *testing.T) {
			o := gophersat.New()
			if r := solve(t, o, k, Options{}, scenarioA(8), nil); r.resp.Status != cpmodel.Infeasible {
				t.Errorf("single bin: status = %v, want %v", r.resp.Status, cpmodel.Infeasible)
			}
			inst := scenarioB()
			r := solve(t, o, k, Options{}, inst, nil)
			checkPlan(t, inst, r)
			if r.resp.ObjectiveValue != 9 {
				t.Errorf("two bins: ObjectiveValue = %d, want 9", r.resp.ObjectiveValue)
			}
		})
	}
}

// itemVars returns x[0], the item placement variables of a formulation built on top of the
// assignment core.
func itemVars(t *testing.T, f Formulation) [][]cpmodel.BoolVar {
	t.Helper()
	switch f := f.(type) {
	case *assignment:
		return f.x[0]
	case *oneHotAncestry:
		return f.x[0]
	case *compactAncestry:
		return f.x[0]
	case *multiFlow:
		return f.x[0]
	case *hybridFlow:
		return f.x[0]
	}
	t.Fatalf("%v has no assignment variables", f.Kind())
	return nil
}

func TestScenarioC(t *testing.T) {
	inst := scenarioC()
	reversed := func(b *cpmodel.Builder, f Formulation) {
		x := itemVars(t, f)
		b.AddBoolAnd(x[1][0], x[0][1])
	}
	for _, k := range Kinds {
		if !k.SupportsPrecedence() {
			continue
		}
		for _, o := range oracles {
			t.Run(fmt.Sprintf("%s/%v", o.name, k), func(t *testing.T) {
				r := solve(t, o.o, k, Options{}, inst, nil)
				checkPlan(t, inst, r)
				if r.resp.ObjectiveValue != 1 {
					t.Errorf("ObjectiveValue = %d, want 1", r.resp.ObjectiveValue)
				}
				if r := solve(t, o.o, k, Options{}, inst, reversed); r.resp.Status != cpmodel.Infeasible {
					t.Errorf("reversed order: status = %v, want %v", r.resp.Status, cpmodel.Infeasible)
				}
			})
		}
	}

	// Without the pair the reversed order is a valid plan.
	free := &instance.Instance{Levels: inst.Levels}
	r := solve(t, gophersat.New(), Assignment, Options{}, free, reversed)
	checkPlan(t, free, r)
	if r.resp.ObjectiveValue != 2 {
		t.Errorf("reversed order without precedence: ObjectiveValue = %d, want 2", r.resp.ObjectiveValue)
	}
	if res := verifier.Verify(inst, r.sol); res.OK {
		t.Errorf("Verify() accepted plan %v that reverses the pair", r.sol.Placement)
	}
}

func TestEquivalence(t *testing.T) {
	testCases := []struct {
		name  string
		inst  *instance.Instance
		kinds []Kind
	}{
		{
			name:  "NoPrecedence",
			inst:  threeLevels(),
			kinds: Kinds,
		},
		{
			name:  "Precedence",
			inst:  threeLevels(instance.Pair{Before: 3, After: 0}, instance.Pair{Before: 1, After: 2}),
			kinds: precedenceKinds,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var want *int64
			for _, o := range oracles {
				for _, k := range tc.kinds {
					r := solve(t, o.o, k, Options{}, tc.inst, nil)
					checkPlan(t, tc.inst, r)
					if want == nil {
						want = &r.resp.ObjectiveValue
						continue
					}
					if r.resp.ObjectiveValue != *want {
						t.Errorf("%s/%v: ObjectiveValue = %d, want %d", o.name, k, r.resp.ObjectiveValue, *want)
					}
				}
			}
		})
	}
}

// Every kind on both oracles must agree on the status and the optimum of drawn instances,
// and every optimal plan must verify.
func TestEquivalence_Random(t *testing.T) {
	type run struct {
		name  string
		inst  *instance.Instance
		kinds []Kind
		// optimum is checked when not zero.
		optimum int64
	}
	runs := []run{{name: "FourLevels", inst: fourLevels(), kinds: Kinds, optimum: 3}}
	for seed := int64(1); seed <= 12; seed++ {
		inst := randomInstance(seed)
		runs = append(runs, run{name: fmt.Sprintf("Seed%d", seed), inst: inst, kinds: Kinds})
		withPair := *inst
		withPair.Precedences = []instance.Pair{{Before: inst.N(0) - 1, After: 0}}
		runs = append(runs, run{name: fmt.Sprintf("Seed%dPrecedence", seed), inst: &withPair, kinds: precedenceKinds})
	}
	for _, r := range runs {
		t.Run(r.name, func(t *testing.T) {
			if err := r.inst.Validate(); err != nil {
				t.Fatalf("Validate() returned with unexpected error %v", err)
			}
			var (
				first      = true
				wantStatus cpmodel.SolverStatus
				want       int64
			)
			for _, o := range oracles {
				for _, k := range r.kinds {
					res := solve(t, o.o, k, Options{}, r.inst, nil)
					if res.resp.Status == cpmodel.Optimal {
						checkPlan(t, r.inst, res)
					}
					if first {
						first, wantStatus, want = false, res.resp.Status, res.resp.ObjectiveValue
						continue
					}
					if res.resp.Status != wantStatus {
						t.Errorf("%s/%v: status = %v, want %v", o.name, k, res.resp.Status, wantStatus)
						continue
					}
					if wantStatus == cpmodel.Optimal && res.resp.ObjectiveValue != want {
						t.Errorf("%s/%v: ObjectiveValue = %d, want %d", o.name, k, res.resp.ObjectiveValue, want)
					}
				}
			}
			if r.optimum != 0 && (wantStatus != cpmodel.Optimal || want != r.optimum) {
				t.Errorf("optimum = %v/%d, want %v/%d", wantStatus, want, cpmodel.Optimal, r.optimum)
			}
		})
	}
}

func TestOptions_SameOptimum(t *testing.T) {
	inst := threeLevels()
	o := gophersat.New()
	testCases := []struct {
		kind Kind
		a, b Options
	}{
		{SingleCommodityFlow, Options{Balance: AtLeast}, Options{Balance: Exact}},
		{HybridFlow, Options{HybridLinking: Decorative}, Options{HybridLinking: Linked}},
	}
	for _, tc := range testCases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			ra := solve(t, o, tc.kind, tc.a, inst, nil)
			rb := solve(t, o, tc.kind, tc.b, inst, nil)
			checkPlan(t, inst, ra)
			checkPlan(t, inst, rb)
			if ra.resp.ObjectiveValue != rb.resp.ObjectiveValue {
				t.Errorf("%+v gives %d but %+v gives %d", tc.a, ra.resp.ObjectiveValue, tc.b, rb.resp.ObjectiveValue)
			}
		})
	}
}
