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

// multiFlow routes one commodity per item upwards along the assignment edges into a sink.
//
//	inject[j][k]   item j sends its own commodity to bin k of level 1
//	f[i][j][k][h]  bin j of level i forwards commodity h to bin k of level i+1, i in 1..m-1
//	sink[j][h]     top bin j delivers commodity h to the sink
//
// An item can only emit its own commodity, so the foreign commodities of level 0 are not
// created.
type multiFlow struct {
	packing
	inject [][]cpmodel.BoolVar
	f      [][][][]cpmodel.BoolVar
	sink   [][]cpmodel.BoolVar
}

func (f *multiFlow) Kind() Kind { return MultiCommodityFlow }

// out returns the variables carrying commodity h out of bin j of level i >= 1.
func (f *multiFlow) out(i, j, h int) []cpmodel.BoolVar {
	if i == f.inst.M() {
		return []cpmodel.BoolVar{f.sink[j][h]}
	}
	vs := make([]cpmodel.BoolVar, len(f.f[i][j]))
	for k := range f.f[i][j] {
		vs[k] = f.f[i][j][k][h]
	}
	return vs
}

// in returns the variables carrying commodity h into bin k of level i >= 1.
func (f *multiFlow) in(i, k, h int) []cpmodel.BoolVar {
	if i == 1 {
		return []cpmodel.BoolVar{f.inject[h][k]}
	}
	vs := make([]cpmodel.BoolVar, len(f.f[i-1]))
	for j := range f.f[i-1] {
		vs[j] = f.f[i-1][j][k][h]
	}
	return vs
}

func (f *multiFlow) Build(b *cpmodel.Builder, inst *instance.Instance) error {
	f.build(b, inst)
	m, items := inst.M(), inst.N(0)

	f.inject = make([][]cpmodel.BoolVar, items)
	for j := range f.inject {
		f.inject[j] = make([]cpmodel.BoolVar, inst.N(1))
		for k := range f.inject[j] {
			f.inject[j][k] = b.NewBoolVar().WithName(fmt.Sprintf("inject[%d][%d]", j, k))
		}
	}
	f.f = make([][][][]cpmodel.BoolVar, m)
	for i := 1; i < m; i++ {
		f.f[i] = make([][][]cpmodel.BoolVar, inst.N(i))
		for j := range f.f[i] {
			f.f[i][j] = make([][]cpmodel.BoolVar, inst.N(i+1))
			for k := range f.f[i][j] {
				f.f[i][j][k] = make([]cpmodel.BoolVar, items)
				for h := range f.f[i][j][k] {
					f.f[i][j][k][h] = b.NewBoolVar().WithName(fmt.Sprintf("f[%d][%d][%d][%d]", i, j, k, h))
				}
			}
		}
	}
	f.sink = make([][]cpmodel.BoolVar, inst.N(m))
	for j := range f.sink {
		f.sink[j] = make([]cpmodel.BoolVar, items)
		for h := range f.sink[j] {
			f.sink[j][h] = b.NewBoolVar().WithName(fmt.Sprintf("sink[%d][%d]", j, h))
		}
	}

	for j := range f.inject {
		b.AddExactlyOne(f.inject[j]...).WithName(fmt.Sprintf("inject[%d]", j))
	}
	for i := 1; i <= m; i++ {
		for j := 0; j < inst.N(i); j++ {
			for h := 0; h < items; h++ {
				net := cpmodel.NewLinearExpr()
				for _, v := range f.out(i, j, h) {
					net.Add(v)
				}
				for _, v := range f.in(i, j, h) {
					net.AddTerm(v, -1)
				}
				b.AddEquality(net, cpmodel.NewConstant(0)).WithName(fmt.Sprintf("conservation[%d][%d][%d]", i, j, h))
			}
		}
	}
	for h := 0; h < items; h++ {
		delivered := make([]cpmodel.BoolVar, inst.N(m))
		for j := range delivered {
			delivered[j] = f.sink[j][h]
		}
		b.AddExactlyOne(delivered...).WithName(fmt.Sprintf("deliver[%d]", h))
	}

	for j := range f.inject {
		for k, v := range f.inject[j] {
			b.AddImplication(v, f.x[0][j][k]).WithName(fmt.Sprintf("link[0][%d][%d]", j, k))
		}
	}
	for i := 1; i < m; i++ {
		for j := range f.f[i] {
			for k := range f.f[i][j] {
				for h, v := range f.f[i][j][k] {
					b.AddImplication(v, f.x[i][j][k]).WithName(fmt.Sprintf("link[%d][%d][%d][%d]", i, j, k, h))
				}
			}
		}
	}

	for _, pair := range inst.Precedences {
		first := make([]cpmodel.BoolVar, inst.N(m))
		second := make([]cpmodel.BoolVar, inst.N(m))
		for t := range first {
			first[t] = f.sink[t][pair.Before]
			second[t] = f.sink[t][pair.After]
		}
		addPrefixPrecedence(b, pair, first, second)
	}
	logStats(f.Kind(), b)
	return nil
}

func (f *multiFlow) Decode(r *cpmodel.Response) (*solution.Solution, error) {
	sol, err := f.decode(r)
	if err != nil {
		return nil, err
	}
	sol.Kind = solution.FlowTrace
	m := f.inst.M()
	sol.Flow = make([][][]int, m)
	for l := range sol.Flow {
		sol.Flow[l] = make([][]int, f.inst.N(l+1))
		for j := range sol.Flow[l] {
			for h := 0; h < f.inst.N(0); h++ {
				for _, v := range f.out(l+1, j, h) {
					if cpmodel.SolutionBooleanValue(r, v) {
						sol.Flow[l][j] = append(sol.Flow[l][j], h)
						break
					}
				}
			}
		}
	}
	return sol, nil
}
