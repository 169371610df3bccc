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

// hybridFlow keeps the assignment model and adds an integer flow f[i][j][k] on the
// assignment edges whose total arriving at the top level is the item count. With Decorative
// linking the flow is not tied to x.
type hybridFlow struct {
	packing
	linking HybridLinking
	f       [][][]cpmodel.IntVar
}

func (f *hybridFlow) Kind() Kind { return HybridFlow }

func (f *hybridFlow) Build(b *cpmodel.Builder, inst *instance.Instance) error {
	if err := checkPrecedence(f.Kind(), inst); err != nil {
		return err
	}
	f.build(b, inst)
	m, items := inst.M(), int64(inst.N(0))

	f.f = make([][][]cpmodel.IntVar, m)
	for i := range f.f {
		f.f[i] = make([][]cpmodel.IntVar, inst.N(i))
		for j := range f.f[i] {
			f.f[i][j] = make([]cpmodel.IntVar, inst.N(i+1))
			for k := range f.f[i][j] {
				f.f[i][j][k] = b.NewIntVar(0, items).WithName(fmt.Sprintf("f[%d][%d][%d]", i, j, k))
			}
		}
	}

	for j := 0; j < inst.N(0); j++ {
		sum := cpmodel.NewLinearExpr()
		for _, v := range f.f[0][j] {
			sum.Add(v)
		}
		b.AddEquality(sum, cpmodel.NewConstant(1)).WithName(fmt.Sprintf("source[%d]", j))
	}
	for i := 1; i < m; i++ {
		for j := 0; j < inst.N(i); j++ {
			net := cpmodel.NewLinearExpr()
			for _, v := range f.f[i][j] {
				net.Add(v)
			}
			for k := 0; k < inst.N(i-1); k++ {
				net.AddTerm(f.f[i-1][k][j], -1)
			}
			b.AddEquality(net, cpmodel.NewConstant(0)).WithName(fmt.Sprintf("conservation[%d][%d]", i, j))
		}
	}
	top := cpmodel.NewLinearExpr()
	for _, row := range f.f[m-1] {
		for _, v := range row {
			top.Add(v)
		}
	}
	b.AddEquality(top, cpmodel.NewConstant(items)).WithName("top")

	if f.linking == Linked {
		for i := range f.f {
			for j := range f.f[i] {
				for k, v := range f.f[i][j] {
					b.AddLessOrEqual(v, cpmodel.NewLinearExpr().AddTerm(f.x[i][j][k], items)).
						WithName(fmt.Sprintf("link[%d][%d][%d]", i, j, k))
				}
			}
		}
	}
	logStats(f.Kind(), b)
	return nil
}

func (f *hybridFlow) Decode(r *cpmodel.Response) (*solution.Solution, error) {
	return f.decode(r)
}
