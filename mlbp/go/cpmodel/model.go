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

package cpmodel

import (
	"fmt"
	"sort"
	"strings"
)

// ConstraintKind identifies which fields of a ConstraintData are meaningful.
type ConstraintKind int

const (
	// KindLinear is `sum(Terms) in Domain`.
	KindLinear ConstraintKind = iota
	// KindBoolOr requires at least one of Literals.
	KindBoolOr
	// KindBoolAnd requires all of Literals.
	KindBoolAnd
	// KindAtMostOne allows at most one true literal.
	KindAtMostOne
	// KindExactlyOne requires exactly one true literal.
	KindExactlyOne
)

func (k ConstraintKind) String() string {
	switch k {
	case KindLinear:
		return "linear"
	case KindBoolOr:
		return "bool_or"
	case KindBoolAnd:
		return "bool_and"
	case KindAtMostOne:
		return "at_most_one"
	case KindExactlyOne:
		return "exactly_one"
	}
	return fmt.Sprintf("ConstraintKind(%d)", int(k))
}

// Term is a coefficient on a (non-negated) variable.
type Term struct {
	Var   VarIndex
	Coeff int64
}

// VariableData is the declaration of one variable.
type VariableData struct {
	Name   string
	Domain Domain
}

// ConstraintData is one row of the model. Enforcement holds literals that must all be true for
// the row to apply; an empty list means the row always applies.
type ConstraintData struct {
	Name        string
	Kind        ConstraintKind
	Enforcement []VarIndex
	// Literals of the Boolean kinds.
	Literals []VarIndex
	// Terms and Domain of KindLinear. The expression offset has already been folded into
	// Domain.
	Terms  []Term
	Domain Domain
}

// Objective is `minimize sum(Terms) + Offset`.
type Objective struct {
	Terms  []Term
	Offset int64
}

// Model is a complete minimization model.
type Model struct {
	Name        string
	Variables   []VariableData
	Constraints []ConstraintData
	Objective   *Objective
}

// EvaluateObjective returns the objective value of the assignment, or 0 if the model has no
// objective.
func (m *Model) EvaluateObjective(values []int64) int64 {
	if m.Objective == nil {
		return 0
	}
	v := m.Objective.Offset
	for _, t := range m.Objective.Terms {
		v += t.Coeff * values[t.Var]
	}
	return v
}

// Validate checks that `values` assigns every variable inside its domain and satisfies every
// enforced constraint. The first violation is returned.
func (m *Model) Validate(values []int64) error {
	if len(values) != len(m.Variables) {
		return fmt.Errorf("assignment has %d values, model has %d variables", len(values), len(m.Variables))
	}
	for i, v := range m.Variables {
		if !v.Domain.Contains(values[i]) {
			return fmt.Errorf("variable %d (%q) = %d is outside its domain %v", i, v.Name, values[i], v.Domain)
		}
	}
	for i, ct := range m.Constraints {
		if !ct.holds(values) {
			return fmt.Errorf("constraint %d (%q, %v) is violated", i, ct.Name, ct.Kind)
		}
	}
	return nil
}

func (ct *ConstraintData) holds(values []int64) bool {
	for _, e := range ct.Enforcement {
		if literalValue(values, e) == 0 {
			return true
		}
	}
	var trueLits int64
	for _, l := range ct.Literals {
		trueLits += literalValue(values, l)
	}
	switch ct.Kind {
	case KindBoolOr:
		return trueLits >= 1
	case KindBoolAnd:
		return trueLits == int64(len(ct.Literals))
	case KindAtMostOne:
		return trueLits <= 1
	case KindExactlyOne:
		return trueLits == 1
	}
	var sum int64
	for _, t := range ct.Terms {
		sum += t.Coeff * values[t.Var]
	}
	return ct.Domain.Contains(sum)
}

// Stats counts variables and constraints per category. The category of a name is the part
// before the first '['; unnamed elements are counted under "unnamed".
type Stats struct {
	Variables   map[string]int `json:"variables"`
	Constraints map[string]int `json:"constraints"`
}

func category(name string) string {
	if name == "" {
		return "unnamed"
	}
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}

// Stats returns the per-category counts of the model built so far.
func (cp *Builder) Stats() Stats {
	s := Stats{Variables: map[string]int{}, Constraints: map[string]int{}}
	for _, v := range cp.model.Variables {
		s.Variables[category(v.Name)]++
	}
	for _, c := range cp.model.Constraints {
		s.Constraints[category(c.Name)]++
	}
	return s
}

func (s Stats) String() string {
	var sb strings.Builder
	write := func(label string, counts map[string]int) {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(label)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%d", k, counts[k])
		}
	}
	write("variables:", s.Variables)
	sb.WriteString("; ")
	write("constraints:", s.Constraints)
	return sb.String()
}
