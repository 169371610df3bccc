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

// Package solution holds decoded packing plans.
package solution

import (
	"encoding/json"
	"fmt"

	"github.com/hierpack/mlbp/mlbp/go/instance"
)

// Unassigned marks a node without a parent. It is only valid for unused bins.
const Unassigned = -1

// Kind selects which optional trace of a Solution is populated.
type Kind int

const (
	// Packing carries the placement only.
	Packing Kind = iota
	// Ancestry also carries, per item, the bin it reaches at every level.
	Ancestry
	// FlowTrace also carries, per bin, the items whose commodity passes through it.
	FlowTrace
)

func (k Kind) String() string {
	switch k {
	case Packing:
		return "packing"
	case Ancestry:
		return "ancestry"
	case FlowTrace:
		return "flow-trace"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for _, c := range []Kind{Packing, Ancestry, FlowTrace} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown solution kind %q", b)
}

// Solution is a packing plan. It is created by a decoder and not modified afterwards.
type Solution struct {
	Kind Kind `json:"kind"`
	// Placement[i][j] is the index at level i+1 of the parent of node (i, j), or Unassigned.
	Placement [][]int `json:"placement"`
	// Cost is the objective value reported for the plan.
	Cost int64 `json:"cost"`
	// Ancestry[item][l] is the bin at level l+1 that contains the item. Set for Ancestry.
	Ancestry [][]int `json:"ancestry,omitempty"`
	// Flow[l][bin] lists the items routed through bin (l+1, bin) in increasing order. Set for
	// FlowTrace.
	Flow [][][]int `json:"flow,omitempty"`
}

// TopBin follows Placement from item up to the top level and returns the top-level bin.
func (s *Solution) TopBin(item int) (int, error) {
	cur := item
	for i, level := range s.Placement {
		if cur < 0 || cur >= len(level) {
			return Unassigned, fmt.Errorf("node %d at level %d is outside the placement", cur, i)
		}
		next := level[cur]
		if next == Unassigned {
			return Unassigned, fmt.Errorf("node %d at level %d is unassigned", cur, i)
		}
		cur = next
	}
	return cur, nil
}

// OpenedCost sums the cost of every bin that holds at least one item, directly or through
// its sub-bins.
func (s *Solution) OpenedCost(inst *instance.Instance) int64 {
	if len(s.Placement) == 0 {
		return 0
	}
	full := make([]bool, len(s.Placement[0]))
	for j := range full {
		full[j] = true
	}
	var cost int64
	for i, level := range s.Placement {
		next := make([]bool, inst.N(i+1))
		for j, k := range level {
			if j < len(full) && full[j] && k >= 0 && k < len(next) {
				next[k] = true
			}
		}
		for k, used := range next {
			if used {
				cost += inst.Cost(i+1, k)
			}
		}
		full = next
	}
	return cost
}

// Decode reads a JSON solution.
func Decode(data []byte) (*Solution, error) {
	s := &Solution{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to decode solution: %w", err)
	}
	return s, nil
}
