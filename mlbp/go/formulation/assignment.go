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
	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/instance"
	"github.com/hierpack/mlbp/mlbp/go/solution"
)

type assignment struct {
	packing
}

func (f *assignment) Kind() Kind { return Assignment }

func (f *assignment) Build(b *cpmodel.Builder, inst *instance.Instance) error {
	if err := checkPrecedence(f.Kind(), inst); err != nil {
		return err
	}
	f.build(b, inst)
	logStats(f.Kind(), b)
	return nil
}

func (f *assignment) Decode(r *cpmodel.Response) (*solution.Solution, error) {
	return f.decode(r)
}
