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

// Package formulation encodes multi-level bin packing instances as cpmodel models and decodes
// oracle responses into packing plans.
//
// Six formulations are provided. They differ in variables and constraints but agree on the
// optimal objective of every instance they accept:
//
//	assignment        x/y assignment and usage
//	onehot-ancestry   assignment plus a Boolean trace of every item's bin per level
//	compact-ancestry  assignment plus an integer trace of every item's bin per level
//	single-flow       single-commodity flow from a source down to the items
//	multi-flow        assignment plus one flow commodity per item
//	hybrid-flow       assignment plus an aggregate integer flow
//
// Only the ancestry and multi-flow formulations encode precedence pairs.
package formulation

import (
	"errors"
	"fmt"

	log "github.com/golang/glog"
	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/instance"
	"github.com/hierpack/mlbp/mlbp/go/network"
	"github.com/hierpack/mlbp/mlbp/go/solution"
)

// ErrPrecedenceUnsupported is returned by Build when the instance has precedence pairs and the
// formulation cannot encode them.
var ErrPrecedenceUnsupported = errors.New("formulation does not support precedence constraints")

// Formulation builds a model for one instance and decodes responses to that model.
//
// A Formulation holds the variables of the last Build and must not be shared between
// concurrent builds.
type Formulation interface {
	Kind() Kind
	// Build adds the variables, constraints and objective of inst to b.
	Build(b *cpmodel.Builder, inst *instance.Instance) error
	// Decode turns a response carrying a solution into a packing plan.
	Decode(r *cpmodel.Response) (*solution.Solution, error)
}

// Kind enumerates the formulations.
type Kind int

const (
	// Assignment is the baseline x/y formulation.
	Assignment Kind = iota
	// OneHotAncestry traces every item with one Boolean per level and bin.
	OneHotAncestry
	// CompactAncestry traces every item with one integer per level.
	CompactAncestry
	// SingleCommodityFlow routes the item count from a source through the bins.
	SingleCommodityFlow
	// MultiCommodityFlow routes one commodity per item.
	MultiCommodityFlow
	// HybridFlow adds an aggregate flow on top of the assignment variables.
	HybridFlow
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{Assignment, OneHotAncestry, CompactAncestry, SingleCommodityFlow, MultiCommodityFlow, HybridFlow}

var kindNames = map[Kind]string{
	Assignment:          "assignment",
	OneHotAncestry:      "onehot-ancestry",
	CompactAncestry:     "compact-ancestry",
	SingleCommodityFlow: "single-flow",
	MultiCommodityFlow:  "multi-flow",
	HybridFlow:          "hybrid-flow",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind returns the kind with the given name.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown formulation %q", s)
}

// SupportsPrecedence reports whether the kind encodes precedence pairs.
func (k Kind) SupportsPrecedence() bool {
	switch k {
	case OneHotAncestry, CompactAncestry, MultiCommodityFlow:
		return true
	}
	return false
}

// BalanceRelation relates the net outflow of a node to its demand in the single-commodity
// flow.
type BalanceRelation int

const (
	// AtLeast requires outflow - inflow >= demand.
	AtLeast BalanceRelation = iota
	// Exact requires outflow - inflow == demand.
	Exact
)

func (r BalanceRelation) String() string {
	switch r {
	case AtLeast:
		return "at-least"
	case Exact:
		return "exact"
	}
	return fmt.Sprintf("BalanceRelation(%d)", int(r))
}

// ParseBalanceRelation returns the relation with the given name.
func ParseBalanceRelation(s string) (BalanceRelation, error) {
	for _, r := range []BalanceRelation{AtLeast, Exact} {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown balance relation %q", s)
}

// HybridLinking selects whether the hybrid flow is tied to the assignment variables.
type HybridLinking int

const (
	// Decorative leaves the flow independent of the assignment.
	Decorative HybridLinking = iota
	// Linked adds f <= n0 * x on every edge.
	Linked
)

func (l HybridLinking) String() string {
	switch l {
	case Decorative:
		return "decorative"
	case Linked:
		return "linked"
	}
	return fmt.Sprintf("HybridLinking(%d)", int(l))
}

// ParseHybridLinking returns the linking with the given name.
func ParseHybridLinking(s string) (HybridLinking, error) {
	for _, l := range []HybridLinking{Decorative, Linked} {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown hybrid linking %q", s)
}

// Options configures the formulations. The zero value is the default.
type Options struct {
	// Balance is used by SingleCommodityFlow.
	Balance BalanceRelation
	// HybridLinking is used by HybridFlow.
	HybridLinking HybridLinking
}

var constructors = map[Kind]func(Options) Formulation{
	Assignment:          func(Options) Formulation { return &assignment{} },
	OneHotAncestry:      func(Options) Formulation { return &oneHotAncestry{} },
	CompactAncestry:     func(Options) Formulation { return &compactAncestry{} },
	SingleCommodityFlow: func(o Options) Formulation { return &singleFlow{balance: o.Balance} },
	MultiCommodityFlow:  func(Options) Formulation { return &multiFlow{} },
	HybridFlow:          func(o Options) Formulation { return &hybridFlow{linking: o.HybridLinking} },
}

// New returns a fresh formulation of the given kind.
func New(kind Kind, opts Options) (Formulation, error) {
	ctor, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("unknown formulation kind %v", kind)
	}
	return ctor(opts), nil
}

func checkPrecedence(k Kind, inst *instance.Instance) error {
	if inst.HasPrecedences() && !k.SupportsPrecedence() {
		return fmt.Errorf("%v: %w", k, ErrPrecedenceUnsupported)
	}
	return nil
}

func logStats(k Kind, b *cpmodel.Builder) {
	if log.V(1) {
		log.Infof("%v: %v", k, b.Stats())
	}
}

// checkResponse verifies that r carries a solution of the model built by b.
func checkResponse(b *cpmodel.Builder, r *cpmodel.Response) error {
	if b == nil {
		return &network.StructuralError{Op: "Decode", Detail: "called before Build"}
	}
	if !r.Status.HasSolution() {
		return fmt.Errorf("response with status %v has no solution to decode", r.Status)
	}
	if len(r.Solution) != b.NumVariables() {
		return &network.StructuralError{
			Op:     "Decode",
			Detail: fmt.Sprintf("solution has %d values, model has %d variables", len(r.Solution), b.NumVariables()),
		}
	}
	return nil
}
