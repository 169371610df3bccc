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
	"fmt"

	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/instance"
	"github.com/hierpack/mlbp/mlbp/go/network"
	"github.com/hierpack/mlbp/mlbp/go/solution"
)

// singleFlow sends the item count from the source through the bins down to the items.
// x[e] marks edge e as used and f[e] is its flow.
type singleFlow struct {
	balance BalanceRelation

	b    *cpmodel.Builder
	inst *instance.Instance
	g    *network.Graph
	x    []cpmodel.BoolVar
	f    []cpmodel.IntVar
}

func (f *singleFlow) Kind() Kind { return SingleCommodityFlow }

func (f *singleFlow) Build(b *cpmodel.Builder, inst *instance.Instance) error {
	if err := checkPrecedence(f.Kind(), inst); err != nil {
		return err
	}
	g, err := network.Build(inst)
	if err != nil {
		return err
	}
	f.b, f.inst, f.g = b, inst, g
	items := int64(inst.N(0))

	f.x = make([]cpmodel.BoolVar, len(g.Edges))
	f.f = make([]cpmodel.IntVar, len(g.Edges))
	for _, e := range g.Edges {
		f.x[e.ID] = b.NewBoolVar().WithName(fmt.Sprintf("x[%d]", e.ID))
		f.f[e.ID] = b.NewIntVar(0, items).WithName(fmt.Sprintf("f[%d]", e.ID))
	}

	for _, n := range g.Nodes {
		net := cpmodel.NewLinearExpr()
		for _, e := range g.Out(n.ID) {
			net.Add(f.f[e])
		}
		for _, e := range g.In(n.ID) {
			net.AddTerm(f.f[e], -1)
		}
		demand := cpmodel.NewConstant(n.Demand)
		var ct cpmodel.Constraint
		if f.balance == Exact {
			ct = b.AddEquality(net, demand)
		} else {
			ct = b.AddGreaterOrEqual(net, demand)
		}
		ct.WithName(fmt.Sprintf("balance[%d]", n.ID))
	}
	for _, e := range g.Edges {
		b.AddEquality(f.f[e.ID], cpmodel.NewConstant(0)).OnlyEnforceIf(f.x[e.ID].Not()).
			WithName(fmt.Sprintf("link[%d]", e.ID))
	}
	for _, n := range g.Nodes {
		out := g.Out(n.ID)
		if len(out) == 0 {
			continue
		}
		load := cpmodel.NewLinearExpr()
		for _, e := range out {
			load.AddTerm(f.x[e], g.Edges[e].Size)
		}
		b.AddLessOrEqual(load, cpmodel.NewConstant(n.Capacity)).WithName(fmt.Sprintf("capacity[%d]", n.ID))
	}

	// Every item is reached through exactly one edge of cost 1; the offset removes those.
	obj := cpmodel.NewLinearExpr()
	for _, e := range g.Edges {
		obj.AddTerm(f.x[e.ID], e.Cost)
	}
	b.Minimize(obj.AddConstant(-items))
	logStats(f.Kind(), b)
	return nil
}

// Decode places each node under the lowest-index parent whose edge carries flow. The edge
// endpoints carry their coordinates, so no id arithmetic is needed here.
func (f *singleFlow) Decode(r *cpmodel.Response) (*solution.Solution, error) {
	if err := checkResponse(f.b, r); err != nil {
		return nil, err
	}
	m := f.inst.M()
	sol := &solution.Solution{Kind: solution.Packing}
	sol.Placement = make([][]int, m)
	for i := range sol.Placement {
		sol.Placement[i] = make([]int, f.inst.N(i))
		for j := range sol.Placement[i] {
			sol.Placement[i][j] = solution.Unassigned
		}
	}
	var cost int64
	for _, e := range f.g.Edges {
		if cpmodel.SolutionBooleanValue(r, f.x[e.ID]) {
			cost += e.Cost
		}
		if cpmodel.SolutionIntegerValue(r, f.f[e.ID]) <= 0 {
			continue
		}
		from, to := f.g.Nodes[e.From].Coord, f.g.Nodes[e.To].Coord
		if from.Level == m+1 {
			continue
		}
		if from.Level != to.Level+1 {
			return nil, &network.StructuralError{Op: "Decode", Detail: fmt.Sprintf("edge %d joins %v and %v", e.ID, from, to)}
		}
		cur := &sol.Placement[to.Level][to.Index]
		if *cur == solution.Unassigned || from.Index < *cur {
			*cur = from.Index
		}
	}
	sol.Cost = cost - int64(f.inst.N(0))
	return sol, nil
}
