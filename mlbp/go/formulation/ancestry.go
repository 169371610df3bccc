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

// oneHotAncestry traces item h with p[h][l][k], true when the item sits in bin k of level
// l+1.
type oneHotAncestry struct {
	packing
	p [][][]cpmodel.BoolVar
}

func (f *oneHotAncestry) Kind() Kind { return OneHotAncestry }

func (f *oneHotAncestry) Build(b *cpmodel.Builder, inst *instance.Instance) error {
	f.build(b, inst)
	m := inst.M()
	f.p = make([][][]cpmodel.BoolVar, inst.N(0))
	for h := range f.p {
		f.p[h] = make([][]cpmodel.BoolVar, m)
		for l := 0; l < m; l++ {
			f.p[h][l] = make([]cpmodel.BoolVar, inst.N(l+1))
			for k := range f.p[h][l] {
				f.p[h][l][k] = b.NewBoolVar().WithName(fmt.Sprintf("p[%d][%d][%d]", h, l, k))
			}
		}
	}

	for h := range f.p {
		for k, v := range f.p[h][0] {
			b.AddEquality(v, f.x[0][h][k]).WithName(fmt.Sprintf("seed[%d][%d]", h, k))
		}
		for l := 1; l < m; l++ {
			for j := 0; j < inst.N(l); j++ {
				for k := 0; k < inst.N(l+1); k++ {
					b.AddBoolAnd(f.p[h][l][k]).OnlyEnforceIf(f.p[h][l-1][j], f.x[l][j][k]).
						WithName(fmt.Sprintf("trace[%d][%d][%d][%d]", h, l, j, k))
				}
			}
		}
		for l := 0; l < m; l++ {
			b.AddExactlyOne(f.p[h][l]...).WithName(fmt.Sprintf("level[%d][%d]", h, l))
		}
	}
	for _, pair := range inst.Precedences {
		addPrefixPrecedence(b, pair, f.p[pair.Before][m-1], f.p[pair.After][m-1])
	}
	logStats(f.Kind(), b)
	return nil
}

func (f *oneHotAncestry) Decode(r *cpmodel.Response) (*solution.Solution, error) {
	sol, err := f.decode(r)
	if err != nil {
		return nil, err
	}
	sol.Kind = solution.Ancestry
	sol.Ancestry = make([][]int, len(f.p))
	for h, levels := range f.p {
		sol.Ancestry[h] = make([]int, len(levels))
		for l, bins := range levels {
			sol.Ancestry[h][l] = solution.Unassigned
			for k, v := range bins {
				if cpmodel.SolutionBooleanValue(r, v) {
					sol.Ancestry[h][l] = k
					break
				}
			}
		}
	}
	return sol, nil
}

// compactAncestry traces item h with the integer p[h][l], the index of its bin at level l+1.
// Propagation needs p[h][l-1] == j as a literal, so at[h][l-1][j] is channeled to it.
type compactAncestry struct {
	packing
	p [][]cpmodel.IntVar
}

func (f *compactAncestry) Kind() Kind { return CompactAncestry }

func (f *compactAncestry) Build(b *cpmodel.Builder, inst *instance.Instance) error {
	f.build(b, inst)
	m := inst.M()
	ub := int64(inst.MaxLevelSize())
	f.p = make([][]cpmodel.IntVar, inst.N(0))
	for h := range f.p {
		f.p[h] = make([]cpmodel.IntVar, m)
		for l := range f.p[h] {
			f.p[h][l] = b.NewIntVar(0, ub).WithName(fmt.Sprintf("p[%d][%d]", h, l))
		}
	}

	for h := range f.p {
		for k := 0; k < inst.N(1); k++ {
			b.AddEquality(f.p[h][0], cpmodel.NewConstant(int64(k))).OnlyEnforceIf(f.x[0][h][k]).
				WithName(fmt.Sprintf("seed[%d][%d]", h, k))
		}
		for l := 1; l < m; l++ {
			for j := 0; j < inst.N(l); j++ {
				at := b.NewBoolVar().WithName(fmt.Sprintf("at[%d][%d][%d]", h, l-1, j))
				b.AddEquality(f.p[h][l-1], cpmodel.NewConstant(int64(j))).OnlyEnforceIf(at).
					WithName(fmt.Sprintf("channel[%d][%d][%d]", h, l-1, j))
				b.AddNotEqual(f.p[h][l-1], cpmodel.NewConstant(int64(j))).OnlyEnforceIf(at.Not()).
					WithName(fmt.Sprintf("channel[%d][%d][%d]", h, l-1, j))
				for k := 0; k < inst.N(l+1); k++ {
					b.AddEquality(f.p[h][l], cpmodel.NewConstant(int64(k))).OnlyEnforceIf(at, f.x[l][j][k]).
						WithName(fmt.Sprintf("trace[%d][%d][%d][%d]", h, l, j, k))
				}
			}
		}
	}
	for _, pair := range inst.Precedences {
		b.AddLessOrEqual(f.p[pair.Before][m-1], f.p[pair.After][m-1]).
			WithName(fmt.Sprintf("precedence[%d][%d]", pair.Before, pair.After))
	}
	logStats(f.Kind(), b)
	return nil
}

func (f *compactAncestry) Decode(r *cpmodel.Response) (*solution.Solution, error) {
	sol, err := f.decode(r)
	if err != nil {
		return nil, err
	}
	sol.Kind = solution.Ancestry
	sol.Ancestry = make([][]int, len(f.p))
	for h, levels := range f.p {
		sol.Ancestry[h] = make([]int, len(levels))
		for l, v := range levels {
			sol.Ancestry[h][l] = int(cpmodel.SolutionIntegerValue(r, v))
		}
	}
	return sol, nil
}
