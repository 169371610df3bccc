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

// Package cpmodel builds the integer models that the packing formulations hand to an
// optimization oracle.
//
// The `Builder` struct owns a `Model` and provides helper methods for adding variables,
// linear and Boolean constraints, enforcement literals and a minimization objective.
// `IntVar` and `BoolVar` are references to variables of one Builder. `LinearExpr` is used
// to assemble constraint rows and the objective from many weighted terms.
//
// The Model is a plain Go value with the same shape as a CP-SAT `CpModelProto`, so it can
// be linearized for an in-process solver or written to the CP-SAT wire format.
package cpmodel

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
)

// ErrMixedModels holds the error when elements added to a model are different.
var ErrMixedModels = errors.New("elements are not part of the same model")

type (
	// VarIndex is the index of a variable in the Model, if positive. If this value is
	// negative, it represents the negation of a Boolean variable in the position (-1*VarIndex-1).
	VarIndex int32
	// ConstrIndex is the index of a constraint in the Model.
	ConstrIndex int32
)

// PositiveIndex returns the index of the variable behind a possibly negated literal.
func (v VarIndex) PositiveIndex() VarIndex {
	if v >= 0 {
		return v
	}
	return -1*v - 1
}

// LinearArgument provides an interface for BoolVar, IntVar, and LinearExpr.
type LinearArgument interface {
	addToLinearExpr(e *LinearExpr, c int64)
	evaluate(values []int64) int64
}

// LinearExpr is a container for a linear expression.
type LinearExpr struct {
	terms  []Term
	offset int64
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant creates and returns a LinearExpr containing the constant `c`.
func NewConstant(c int64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// Add adds the linear argument term to the LinearExpr and returns itself.
func (l *LinearExpr) Add(la LinearArgument) *LinearExpr {
	l.AddTerm(la, 1)
	return l
}

// AddConstant adds the constant to the LinearExpr and returns itself.
func (l *LinearExpr) AddConstant(c int64) *LinearExpr {
	l.offset += c
	return l
}

// AddTerm adds the linear argument term with the given coefficient to the LinearExpr and returns itself.
func (l *LinearExpr) AddTerm(la LinearArgument, coeff int64) *LinearExpr {
	la.addToLinearExpr(l, coeff)
	return l
}

// Terms returns a copy of the variable terms of the expression.
func (l *LinearExpr) Terms() []Term {
	return append([]Term(nil), l.terms...)
}

// Offset returns the constant part of the expression.
func (l *LinearExpr) Offset() int64 {
	return l.offset
}

func (l *LinearExpr) addToLinearExpr(e *LinearExpr, c int64) {
	for _, t := range l.terms {
		e.terms = append(e.terms, Term{Var: t.Var, Coeff: t.Coeff * c})
	}
	e.offset += l.offset * c
}

func (l *LinearExpr) evaluate(values []int64) int64 {
	result := l.offset
	for _, t := range l.terms {
		result += values[t.Var] * t.Coeff
	}
	return result
}

// IntVar is a reference to an integer variable in the model.
type IntVar struct {
	ind VarIndex
	cpb *Builder
}

// Name returns the name of the variable.
func (i IntVar) Name() string {
	return i.cpb.model.Variables[i.ind].Name
}

// Domain returns the domain of the variable.
func (i IntVar) Domain() Domain {
	return i.cpb.model.Variables[i.ind].Domain
}

// Index returns the index of the variable.
func (i IntVar) Index() VarIndex {
	return i.ind
}

// WithName sets the name of the variable.
func (i IntVar) WithName(s string) IntVar {
	i.cpb.model.Variables[i.ind].Name = s
	return i
}

func (i IntVar) addToLinearExpr(e *LinearExpr, c int64) {
	e.terms = append(e.terms, Term{Var: i.ind, Coeff: c})
}

func (i IntVar) evaluate(values []int64) int64 {
	return values[i.ind]
}

// BoolVar is a reference to a Boolean variable or the negation of a Boolean variable in the
// model.
type BoolVar struct {
	ind VarIndex
	cpb *Builder
}

// Not returns the logical Not of the Boolean variable
func (b BoolVar) Not() BoolVar {
	return BoolVar{ind: -1*b.ind - 1, cpb: b.cpb}
}

// Name returns the name of the variable.
func (b BoolVar) Name() string {
	return b.cpb.model.Variables[b.ind.PositiveIndex()].Name
}

// Domain returns the domain of the variable.
func (b BoolVar) Domain() Domain {
	return b.cpb.model.Variables[b.ind.PositiveIndex()].Domain
}

// Index returns the index of the variable. If the variable is a negation of another variable v,
// its index is `-1*v.index-1`.
func (b BoolVar) Index() VarIndex {
	return b.ind
}

// WithName sets the name of the variable.
func (b BoolVar) WithName(s string) BoolVar {
	b.cpb.model.Variables[b.ind.PositiveIndex()].Name = s
	return b
}

// A negated literal contributes c*(1-v).
func (b BoolVar) addToLinearExpr(e *LinearExpr, c int64) {
	if b.ind < 0 {
		e.terms = append(e.terms, Term{Var: b.ind.PositiveIndex(), Coeff: -c})
		e.offset += c
		return
	}
	e.terms = append(e.terms, Term{Var: b.ind, Coeff: c})
}

func (b BoolVar) evaluate(values []int64) int64 {
	return literalValue(values, b.ind)
}

func literalValue(values []int64, lit VarIndex) int64 {
	if lit < 0 {
		return 1 - values[lit.PositiveIndex()]
	}
	return values[lit]
}

// Constraint is a reference to a constraint in the model.
type Constraint struct {
	ind ConstrIndex
	cpb *Builder
}

// WithName sets the name of the constraint.
func (c Constraint) WithName(s string) Constraint {
	c.cpb.model.Constraints[c.ind].Name = s
	return c
}

// Name returns the name of the constraint.
func (c Constraint) Name() string {
	return c.cpb.model.Constraints[c.ind].Name
}

// Index returns the index of the constraint.
func (c Constraint) Index() ConstrIndex {
	return c.ind
}

// OnlyEnforceIf adds a condition on the constraint. This constraint is only enforced iff all
// literals given are true.
func (c Constraint) OnlyEnforceIf(bvs ...BoolVar) Constraint {
	ct := &c.cpb.model.Constraints[c.ind]
	for _, bv := range bvs {
		if !c.cpb.checkSameModelAndSetErrorf(bv.cpb, "BoolVar %v used as enforcement literal of constraint %v", bv.Index(), c.Index()) {
			return c
		}
		ct.Enforcement = append(ct.Enforcement, bv.ind)
	}
	return c
}

// checkSameModelAndSetErrorf returns true if `cp` and `cp2` point to the same Builder.
// If false, an error with the error message `errString` is set on `cp` if `cp.err`
// is nil.
func (cp *Builder) checkSameModelAndSetErrorf(cp2 *Builder, format string, a ...any) bool {
	if cp == cp2 {
		return true
	}
	var args = make([]any, len(a)+1)
	copy(args, a)
	args[len(a)] = ErrMixedModels
	cp.setErr(fmt.Errorf(format+": %w", args...))
	return false
}

func (cp *Builder) setErr(err error) {
	log.Errorf("%v; use `-log_backtrace_at` flag to get the error stack", err)
	if cp.err == nil {
		cp.err = err
	}
}

// Builder provides a wrapper for building a Model.
type Builder struct {
	model     *Model
	constants map[int64]VarIndex
	// The first and only the first error is reported in Model.
	err error
}

// NewCpModelBuilder creates and returns a new model Builder.
func NewCpModelBuilder() *Builder {
	return &Builder{model: &Model{}, constants: make(map[int64]VarIndex)}
}

// SetName sets the name of the model.
func (cp *Builder) SetName(name string) {
	cp.model.Name = name
}

func (cp *Builder) appendVariable(d Domain) VarIndex {
	ind := VarIndex(len(cp.model.Variables))
	cp.model.Variables = append(cp.model.Variables, VariableData{Domain: d})
	return ind
}

// NewIntVar creates a new integer variable with domain `[lb,ub]`.
func (cp *Builder) NewIntVar(lb, ub int64) IntVar {
	return IntVar{cpb: cp, ind: cp.appendVariable(NewDomain(lb, ub))}
}

// NewIntVarFromDomain creates a new IntVar with the given domain.
func (cp *Builder) NewIntVarFromDomain(d Domain) IntVar {
	return IntVar{cpb: cp, ind: cp.appendVariable(d)}
}

// NewBoolVar creates a new BoolVar.
func (cp *Builder) NewBoolVar() BoolVar {
	return BoolVar{cpb: cp, ind: cp.appendVariable(NewDomain(0, 1))}
}

// NewConstant creates a constant variable. If this is called multiple times, the same variable will
// always be returned.
func (cp *Builder) NewConstant(v int64) IntVar {
	if i, ok := cp.constants[v]; ok {
		return IntVar{cpb: cp, ind: i}
	}
	constVar := cp.NewIntVar(v, v)
	cp.constants[v] = constVar.ind
	return constVar
}

func (cp *Builder) appendConstraint(ct ConstraintData) Constraint {
	i := ConstrIndex(len(cp.model.Constraints))
	cp.model.Constraints = append(cp.model.Constraints, ct)
	return Constraint{cpb: cp, ind: i}
}

func (cp *Builder) literals(bvs []BoolVar) []VarIndex {
	var literals []VarIndex
	for _, b := range bvs {
		cp.checkSameModelAndSetErrorf(b.cpb, "BoolVar %v added to Constraint %v", b.Index(), len(cp.model.Constraints))
		literals = append(literals, b.ind)
	}
	return literals
}

// AddBoolOr adds the constraint that at least one of the literals must be true.
func (cp *Builder) AddBoolOr(bvs ...BoolVar) Constraint {
	return cp.appendConstraint(ConstraintData{Kind: KindBoolOr, Literals: cp.literals(bvs)})
}

// AddBoolAnd adds the constraint that all of the literals must be true.
func (cp *Builder) AddBoolAnd(bvs ...BoolVar) Constraint {
	return cp.appendConstraint(ConstraintData{Kind: KindBoolAnd, Literals: cp.literals(bvs)})
}

// AddExactlyOne adds the constraint that exactly one of the literals must be true.
func (cp *Builder) AddExactlyOne(bvs ...BoolVar) Constraint {
	return cp.appendConstraint(ConstraintData{Kind: KindExactlyOne, Literals: cp.literals(bvs)})
}

// AddImplication adds the constraint a => b.
func (cp *Builder) AddImplication(a, b BoolVar) Constraint {
	return cp.AddBoolOr(a.Not(), b)
}

// addLinearConstraint adds a linear constraint that enforces the value of `le` to be in the
// set of `intervals`. The constant offset of `le` is moved into the intervals. All `intervals`
// are assumed to be disjoint, non-empty, and properly sorted.
func (cp *Builder) addLinearConstraint(le *LinearExpr, intervals ...ClosedInterval) Constraint {
	for _, t := range le.terms {
		if int(t.Var) >= len(cp.model.Variables) || t.Var < 0 {
			cp.setErr(fmt.Errorf("variable %v added to Constraint %v: %w", t.Var, len(cp.model.Constraints), ErrMixedModels))
			break
		}
	}
	shifted := make([]ClosedInterval, len(intervals))
	for i, itv := range intervals {
		shifted[i] = itv.Offset(-le.offset)
	}
	return cp.appendConstraint(ConstraintData{
		Kind:   KindLinear,
		Terms:  le.Terms(),
		Domain: FromIntervals(shifted),
	})
}

// AddEquality adds the linear constraint `lhs == rhs`.
func (cp *Builder) AddEquality(lhs LinearArgument, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return cp.addLinearConstraint(diff, ClosedInterval{0, 0})
}

// AddLessOrEqual adds the linear constraint `lhs <= rhs`.
func (cp *Builder) AddLessOrEqual(lhs LinearArgument, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return cp.addLinearConstraint(diff, ClosedInterval{math.MinInt64, 0})
}

// AddGreaterOrEqual adds the linear constraint `lhs >= rhs`.
func (cp *Builder) AddGreaterOrEqual(lhs LinearArgument, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return cp.addLinearConstraint(diff, ClosedInterval{0, math.MaxInt64})
}

// AddNotEqual adds the linear constraint `lhs != rhs`.
func (cp *Builder) AddNotEqual(lhs LinearArgument, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return cp.addLinearConstraint(diff, ClosedInterval{math.MinInt64, -1}, ClosedInterval{1, math.MaxInt64})
}

// Minimize sets a linear minimization objective. The constant part of `obj` is kept as the
// objective offset.
func (cp *Builder) Minimize(obj LinearArgument) {
	o := NewLinearExpr().Add(obj)
	cp.model.Objective = &Objective{Terms: o.Terms(), Offset: o.offset}
}

// NumVariables returns the number of variables created so far.
func (cp *Builder) NumVariables() int {
	return len(cp.model.Variables)
}

// Model returns the built model. The model returned is a pointer to the model in Builder,
// and if modified, future calls to the Builder API can fail or result in an invalid model.
//
// Model returns an error when invalid parameters have been used during model building (e.g.
// passing variables from other builders).
func (cp *Builder) Model() (*Model, error) {
	if cp.err != nil {
		return nil, cp.err
	}
	return cp.model, nil
}
