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
	"github.com/hierpack/mlbp/mlbp/go/solution"
)

// packing holds the assignment and usage variables shared by every formulation except the
// single-commodity flow.
//
//	x[i][j][k]  node j of level i is placed in bin k of level i+1, i in 0..m-1
//	y[i][j]     bin j of level i is used, i in 1..m (y[0] is empty)
type packing struct {
	b    *cpmodel.Builder
	inst *instance.Instance
	x    [][][]cpmodel.BoolVar
	y    [][]cpmodel.BoolVar
}

// build adds the variables, the placement, usage and capacity rows, and the cost objective.
func (p *packing) build(b *cpmodel.Builder, inst *instance.Instance) {
	p.b, p.inst = b, inst
	m := inst.M()

	p.x = make([][][]cpmodel.BoolVar, m)
	for i := 0; i < m; i++ {
		p.x[i] = make([][]cpmodel.BoolVar, inst.N(i))
		for j := range p.x[i] {
			p.x[i][j] = make([]cpmodel.BoolVar, inst.N(i+1))
			for k := range p.x[i][j] {
				p.x[i][j][k] = b.NewBoolVar().WithName(fmt.Sprintf("x[%d][%d][%d]", i, j, k))
			}
		}
	}
	p.y = make([][]cpmodel.BoolVar, m+1)
	for i := 1; i <= m; i++ {
		p.y[i] = make([]cpmodel.BoolVar, inst.N(i))
		for j := range p.y[i] {
			p.y[i][j] = b.NewBoolVar().WithName(fmt.Sprintf("y[%d][%d]", i, j))
		}
	}

	for j := 0; j < inst.N(0); j++ {
		b.AddExactlyOne(p.x[0][j]...).WithName(fmt.Sprintf("placement[%d]", j))
	}
	// A used interior bin has exactly one parent, an unused one none.
	for i := 1; i < m; i++ {
		for j := 0; j < inst.N(i); j++ {
			sum := cpmodel.NewLinearExpr()
			for _, v := range p.x[i][j] {
				sum.Add(v)
			}
			b.AddEquality(sum, p.y[i][j]).WithName(fmt.Sprintf("usage[%d][%d]", i, j))
		}
	}
	for i := 1; i <= m; i++ {
		for k := 0; k < inst.N(i); k++ {
			load := cpmodel.NewLinearExpr()
			for j := 0; j < inst.N(i-1); j++ {
				load.AddTerm(p.x[i-1][j][k], inst.Size(i-1, j))
			}
			b.AddLessOrEqual(load, cpmodel.NewLinearExpr().AddTerm(p.y[i][k], inst.Capacity(i, k))).
				WithName(fmt.Sprintf("capacity[%d][%d]", i, k))
		}
	}
	b.Minimize(p.cost())
}

func (p *packing) cost() *cpmodel.LinearExpr {
	obj := cpmodel.NewLinearExpr()
	for i := 1; i < len(p.y); i++ {
		for j, v := range p.y[i] {
			obj.AddTerm(v, p.inst.Cost(i, j))
		}
	}
	return obj
}

// decode reads the placement from x and the cost from y.
func (p *packing) decode(r *cpmodel.Response) (*solution.Solution, error) {
	if err := checkResponse(p.b, r); err != nil {
		return nil, err
	}
	sol := &solution.Solution{Kind: solution.Packing}
	sol.Placement = make([][]int, len(p.x))
	for i, level := range p.x {
		sol.Placement[i] = make([]int, len(level))
		for j, parents := range level {
			sol.Placement[i][j] = solution.Unassigned
			for k, v := range parents {
				if cpmodel.SolutionBooleanValue(r, v) {
					sol.Placement[i][j] = k
					break
				}
			}
		}
	}
	for i := 1; i < len(p.y); i++ {
		for j, v := range p.y[i] {
			if cpmodel.SolutionBooleanValue(r, v) {
				sol.Cost += p.inst.Cost(i, j)
			}
		}
	}
	return sol, nil
}

// addPrefixPrecedence requires, for every top bin t, that the number of a's indicators among
// bins 0..t is at least the number of b's. With one indicator set per item this places a in a
// bin whose index is not larger than b's.
func addPrefixPrecedence(b *cpmodel.Builder, pair instance.Pair, first, second []cpmodel.BoolVar) {
	sumFirst := cpmodel.NewLinearExpr()
	sumSecond := cpmodel.NewLinearExpr()
	for t := range first {
		sumFirst.Add(first[t])
		sumSecond.Add(second[t])
		b.AddGreaterOrEqual(sumFirst, sumSecond).WithName(fmt.Sprintf("precedence[%d][%d][%d]", pair.Before, pair.After, t))
	}
}
