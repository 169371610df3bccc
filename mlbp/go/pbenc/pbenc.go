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

// Package pbenc linearizes a cpmodel.Model into a pseudo-Boolean formula: a conjunction of
// rows `sum(coeff * literal) >= bound` with positive coefficients, plus a linear objective
// over literals.
//
// Integer variables are encoded in binary with an offset. Enforcement literals are folded
// into the rows with big-M terms, and domains with several intervals get one selector
// literal per interval.
package pbenc

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sort"

	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
)

var (
	// ErrEmptyDomain is returned for a variable without any value.
	ErrEmptyDomain = errors.New("variable has an empty domain")
	// ErrUnsupported is returned for models outside what the encoder handles.
	ErrUnsupported = errors.New("unsupported model")
)

// maxRange bounds the width of an integer domain so that row activities fit in an int64.
const maxRange = 1 << 32

// Lit is a literal over variables numbered from 1. A negative value is the negation of the
// variable -Lit.
type Lit int

// Var returns the variable of the literal.
func (l Lit) Var() int {
	if l < 0 {
		return int(-l)
	}
	return int(l)
}

// Neg returns the negation of the literal.
func (l Lit) Neg() Lit {
	return -l
}

// Term is a positive coefficient on a literal.
type Term struct {
	Lit   Lit
	Coeff int64
}

// Constraint is the row `sum(Terms) >= AtLeast`.
type Constraint struct {
	Terms   []Term
	AtLeast int64
}

// varEncoding gives the value of a model variable as lb + sum(2^t * bits[t]).
type varEncoding struct {
	lb   int64
	bits []Lit
}

// Formula is the encoded model. The objective to minimize is
// ObjectiveOffset + sum(Objective).
type Formula struct {
	NumVars         int
	Constraints     []Constraint
	Objective       []Term
	ObjectiveOffset int64
	// Infeasible is set when a row without any satisfying assignment was produced.
	Infeasible bool

	vars    []varEncoding
	trueLit Lit
}

// linExpr is `sum(terms) + constant` where coefficients may be negative.
type linExpr struct {
	terms    []Term
	constant int64
}

func (f *Formula) newVar() Lit {
	f.NumVars++
	return Lit(f.NumVars)
}

// constTrue returns a literal fixed to true.
func (f *Formula) constTrue() Lit {
	if f.trueLit == 0 {
		f.trueLit = f.newVar()
		f.Constraints = append(f.Constraints, Constraint{Terms: []Term{{f.trueLit, 1}}, AtLeast: 1})
	}
	return f.trueLit
}

// Encode linearizes the model.
func Encode(m *cpmodel.Model) (*Formula, error) {
	f := &Formula{vars: make([]varEncoding, len(m.Variables))}
	for i, v := range m.Variables {
		if err := f.encodeVariable(i, v); err != nil {
			return nil, err
		}
	}
	for i, ct := range m.Constraints {
		if err := f.encodeConstraint(&ct); err != nil {
			return nil, fmt.Errorf("constraint %d (%q): %w", i, ct.Name, err)
		}
	}
	if o := m.Objective; o != nil {
		e := linExpr{constant: o.Offset}
		for _, t := range o.Terms {
			f.appendVar(&e, t.Var, t.Coeff)
		}
		terms, constant := normalize(e.terms)
		f.Objective = terms
		f.ObjectiveOffset = e.constant + constant
	}
	return f, nil
}

func (f *Formula) encodeVariable(i int, v cpmodel.VariableData) error {
	lb, ok := v.Domain.Min()
	if !ok {
		return fmt.Errorf("variable %d (%q): %w", i, v.Name, ErrEmptyDomain)
	}
	ub, _ := v.Domain.Max()
	if ub-lb > maxRange || ub-lb < 0 {
		return fmt.Errorf("variable %d (%q) has domain %v: %w", i, v.Name, v.Domain, ErrUnsupported)
	}
	enc := varEncoding{lb: lb}
	width := uint64(ub - lb)
	for t := 0; t < bits.Len64(width); t++ {
		enc.bits = append(enc.bits, f.newVar())
	}
	f.vars[i] = enc
	if width != 0 && width != 1<<len(enc.bits)-1 {
		var e linExpr
		f.appendVar(&e, cpmodel.VarIndex(i), 1)
		f.addLinear(e, cpmodel.NewDomain(lb, ub), nil)
	}
	if len(v.Domain.Intervals()) > 1 {
		var e linExpr
		f.appendVar(&e, cpmodel.VarIndex(i), 1)
		f.addLinear(e, v.Domain, nil)
	}
	return nil
}

// appendVar adds coeff times the value of model variable v to e.
func (f *Formula) appendVar(e *linExpr, v cpmodel.VarIndex, coeff int64) {
	enc := f.vars[v]
	e.constant += coeff * enc.lb
	for t, b := range enc.bits {
		e.terms = append(e.terms, Term{Lit: b, Coeff: coeff << t})
	}
}

// literal returns the formula literal of a Boolean model literal.
func (f *Formula) literal(idx cpmodel.VarIndex) (Lit, error) {
	enc := f.vars[idx.PositiveIndex()]
	var lit Lit
	switch {
	case len(enc.bits) == 0 && enc.lb == 1:
		lit = f.constTrue()
	case len(enc.bits) == 0 && enc.lb == 0:
		lit = f.constTrue().Neg()
	case len(enc.bits) == 1 && enc.lb == 0:
		lit = enc.bits[0]
	default:
		return 0, fmt.Errorf("variable %d is used as a literal but is not Boolean: %w", idx.PositiveIndex(), ErrUnsupported)
	}
	if idx < 0 {
		return lit.Neg(), nil
	}
	return lit, nil
}

func (f *Formula) literals(idxs []cpmodel.VarIndex) ([]Lit, error) {
	lits := make([]Lit, len(idxs))
	for i, idx := range idxs {
		l, err := f.literal(idx)
		if err != nil {
			return nil, err
		}
		lits[i] = l
	}
	return lits, nil
}

func sumOf(lits []Lit) linExpr {
	var e linExpr
	for _, l := range lits {
		e.terms = append(e.terms, Term{Lit: l, Coeff: 1})
	}
	return e
}

func (f *Formula) encodeConstraint(ct *cpmodel.ConstraintData) error {
	enforcement, err := f.literals(ct.Enforcement)
	if err != nil {
		return err
	}
	if ct.Kind == cpmodel.KindLinear {
		var e linExpr
		for _, t := range ct.Terms {
			f.appendVar(&e, t.Var, t.Coeff)
		}
		f.addLinear(e, ct.Domain, enforcement)
		return nil
	}
	lits, err := f.literals(ct.Literals)
	if err != nil {
		return err
	}
	switch ct.Kind {
	case cpmodel.KindBoolOr:
		f.addLinear(sumOf(lits), cpmodel.NewDomain(1, math.MaxInt64), enforcement)
	case cpmodel.KindBoolAnd:
		for _, l := range lits {
			f.addLinear(sumOf([]Lit{l}), cpmodel.NewSingleDomain(1), enforcement)
		}
	case cpmodel.KindAtMostOne:
		f.addLinear(sumOf(lits), cpmodel.NewDomain(math.MinInt64, 1), enforcement)
	case cpmodel.KindExactlyOne:
		f.addLinear(sumOf(lits), cpmodel.NewSingleDomain(1), enforcement)
	default:
		return fmt.Errorf("constraint kind %v: %w", ct.Kind, ErrUnsupported)
	}
	return nil
}

// bounds returns the smallest and largest value of sum(terms).
func bounds(terms []Term) (lo, hi int64) {
	for _, t := range terms {
		if t.Coeff < 0 {
			lo += t.Coeff
		} else {
			hi += t.Coeff
		}
	}
	return lo, hi
}

// addLinear adds `e in d`, enforced when every literal of enforcement is true.
func (f *Formula) addLinear(e linExpr, d cpmodel.Domain, enforcement []Lit) {
	lo, hi := bounds(e.terms)
	var reachable []cpmodel.ClosedInterval
	for _, itv := range d.Intervals() {
		start, end := itv.Start, itv.End
		if start != math.MinInt64 {
			start -= e.constant
		}
		if end != math.MaxInt64 {
			end -= e.constant
		}
		if end < lo || start > hi {
			continue
		}
		reachable = append(reachable, cpmodel.ClosedInterval{Start: max(start, lo), End: min(end, hi)})
	}
	switch len(reachable) {
	case 0:
		// Enforced rows without any reachable value forbid the enforcement.
		var row []Term
		for _, l := range enforcement {
			row = append(row, Term{Lit: l.Neg(), Coeff: 1})
		}
		f.addRow(row, 1)
	case 1:
		f.addRange(e.terms, lo, hi, reachable[0], enforcement)
	default:
		var selectors []Term
		for _, itv := range reachable {
			z := f.newVar()
			selectors = append(selectors, Term{Lit: z, Coeff: 1})
			f.addRange(e.terms, lo, hi, itv, append(append([]Lit(nil), enforcement...), z))
		}
		for _, l := range enforcement {
			selectors = append(selectors, Term{Lit: l.Neg(), Coeff: 1})
		}
		f.addRow(selectors, 1)
	}
}

// addRange adds `itv.Start <= sum(terms) <= itv.End` relaxed by big-M terms on the negated
// enforcement literals. [lo, hi] are the bounds of the sum.
func (f *Formula) addRange(terms []Term, lo, hi int64, itv cpmodel.ClosedInterval, enforcement []Lit) {
	if itv.Start > lo {
		row := append([]Term(nil), terms...)
		for _, l := range enforcement {
			row = append(row, Term{Lit: l.Neg(), Coeff: itv.Start - lo})
		}
		f.addRow(row, itv.Start)
	}
	if itv.End < hi {
		row := make([]Term, 0, len(terms)+len(enforcement))
		for _, t := range terms {
			row = append(row, Term{Lit: t.Lit, Coeff: -t.Coeff})
		}
		for _, l := range enforcement {
			row = append(row, Term{Lit: l.Neg(), Coeff: hi - itv.End})
		}
		f.addRow(row, -itv.End)
	}
}

// normalize merges the terms per variable and moves negative coefficients onto negated
// literals. It returns the positive terms, sorted by variable, and the constant they leave
// behind.
func normalize(terms []Term) ([]Term, int64) {
	coeffs := map[int]int64{}
	var constant int64
	for _, t := range terms {
		if t.Lit > 0 {
			coeffs[t.Lit.Var()] += t.Coeff
		} else {
			// c*(1-x)
			coeffs[t.Lit.Var()] -= t.Coeff
			constant += t.Coeff
		}
	}
	vars := make([]int, 0, len(coeffs))
	for v := range coeffs {
		vars = append(vars, v)
	}
	sort.Ints(vars)
	var out []Term
	for _, v := range vars {
		switch c := coeffs[v]; {
		case c > 0:
			out = append(out, Term{Lit: Lit(v), Coeff: c})
		case c < 0:
			// c*x = c - c*(1-x)
			out = append(out, Term{Lit: Lit(-v), Coeff: -c})
			constant += c
		}
	}
	return out, constant
}

// addRow adds `sum(terms) >= atLeast` after normalization.
func (f *Formula) addRow(terms []Term, atLeast int64) {
	norm, constant := normalize(terms)
	atLeast -= constant
	if atLeast <= 0 {
		return
	}
	var total int64
	for i := range norm {
		if norm[i].Coeff > atLeast {
			norm[i].Coeff = atLeast
		}
		total += norm[i].Coeff
	}
	if total < atLeast {
		f.Infeasible = true
	}
	if len(norm) == 0 {
		return
	}
	f.Constraints = append(f.Constraints, Constraint{Terms: norm, AtLeast: atLeast})
}

// ObjectiveAtMost returns the row `objective <= bound`. The boolean is false when the row
// is always satisfied.
func (f *Formula) ObjectiveAtMost(bound int64) (Constraint, bool) {
	var total int64
	neg := make([]Term, len(f.Objective))
	for i, t := range f.Objective {
		total += t.Coeff
		neg[i] = Term{Lit: t.Lit.Neg(), Coeff: t.Coeff}
	}
	// sum(c*l) <= bound - offset  <=>  sum(c*(1-l)) >= total - bound + offset
	atLeast := total - bound + f.ObjectiveOffset
	if atLeast <= 0 {
		return Constraint{}, false
	}
	return Constraint{Terms: neg, AtLeast: atLeast}, true
}

func value(assign []bool, l Lit) bool {
	v := l.Var() - 1
	b := v < len(assign) && assign[v]
	if l < 0 {
		return !b
	}
	return b
}

// Decode returns the value of every model variable. assign[v-1] is the value of variable v;
// missing entries are false.
func (f *Formula) Decode(assign []bool) []int64 {
	values := make([]int64, len(f.vars))
	for i, enc := range f.vars {
		values[i] = enc.lb
		for t, b := range enc.bits {
			if value(assign, b) {
				values[i] += 1 << t
			}
		}
	}
	return values
}

// ObjectiveValue returns the objective of the assignment.
func (f *Formula) ObjectiveValue(assign []bool) int64 {
	v := f.ObjectiveOffset
	for _, t := range f.Objective {
		if value(assign, t.Lit) {
			v += t.Coeff
		}
	}
	return v
}

// Satisfied reports whether the assignment satisfies every row.
func (f *Formula) Satisfied(assign []bool) bool {
	for _, c := range f.Constraints {
		var sum int64
		for _, t := range c.Terms {
			if value(assign, t.Lit) {
				sum += t.Coeff
			}
		}
		if sum < c.AtLeast {
			return false
		}
	}
	return !f.Infeasible
}
