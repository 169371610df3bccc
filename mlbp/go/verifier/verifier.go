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

// Package verifier re-derives the feasibility of a packing plan from the instance alone.
package verifier

import (
	"fmt"

	"github.com/hierpack/mlbp/mlbp/go/instance"
	"github.com/hierpack/mlbp/mlbp/go/solution"
)

// Result is the outcome of Verify. Findings are in check order.
type Result struct {
	OK       bool     `json:"ok"`
	Findings []string `json:"findings,omitempty"`
}

type options struct {
	collectAll bool
}

// Option configures Verify.
type Option func(*options)

// CollectAll keeps checking after the first finding.
func CollectAll() Option {
	return func(o *options) { o.collectAll = true }
}

type checker struct {
	inst     *instance.Instance
	sol      *solution.Solution
	opts     options
	findings []string
}

func (c *checker) report(format string, a ...any) {
	c.findings = append(c.findings, fmt.Sprintf(format, a...))
}

// done reports whether verification should stop after the current check.
func (c *checker) done() bool {
	return len(c.findings) > 0 && !c.opts.collectAll
}

func (c *checker) inRange(i, k int) bool {
	return k >= 0 && k < c.inst.N(i+1)
}

func (c *checker) checkShape() bool {
	m := c.inst.M()
	if len(c.sol.Placement) != m {
		c.report("Solution places %d levels but the instance has %d.", len(c.sol.Placement), m)
		return false
	}
	ok := true
	for i, level := range c.sol.Placement {
		if len(level) != c.inst.N(i) {
			c.report("Level %d of the solution has %d nodes but the instance has %d.", i, len(level), c.inst.N(i))
			ok = false
		}
	}
	return ok
}

func (c *checker) checkItems() {
	for j, k := range c.sol.Placement[0] {
		if k == solution.Unassigned {
			c.report("Item %d is not assigned to any bin.", j)
			if c.done() {
				return
			}
		}
	}
}

func (c *checker) checkRange() {
	for i, level := range c.sol.Placement {
		for _, k := range level {
			if k != solution.Unassigned && !c.inRange(i, k) {
				c.report("Detected bin with id %d but solution claims that there are only %d.", k, c.inst.N(i+1))
				if c.done() {
					return
				}
			}
		}
	}
}

// loads returns the recomputed content of every bin, indexed [level][bin]. Level 0 is empty.
func (c *checker) loads() [][]int64 {
	m := c.inst.M()
	load := make([][]int64, m+1)
	for i := 1; i <= m; i++ {
		load[i] = make([]int64, c.inst.N(i))
	}
	for i, level := range c.sol.Placement {
		for j, k := range level {
			if c.inRange(i, k) {
				load[i+1][k] += c.inst.Size(i, j)
			}
		}
	}
	return load
}

func (c *checker) checkCapacity(load [][]int64) {
	for i := 1; i < len(load); i++ {
		for j, l := range load[i] {
			if w := c.inst.Capacity(i, j); l > w {
				c.report("Bin %d at level %d is over its capacity limit. Capacity limit: %d, Loaded weight: %d", j, i, w, l)
				if c.done() {
					return
				}
			}
		}
	}
}

func (c *checker) checkUsedBins(load [][]int64) {
	for i := 1; i < c.inst.M(); i++ {
		for j, k := range c.sol.Placement[i] {
			if load[i][j] > 0 && k == solution.Unassigned {
				c.report("Bin %d at level %d is not assigned to any bin despite being used.", j, i)
				if c.done() {
					return
				}
			}
		}
	}
}

func (c *checker) checkPrecedences() {
	for _, p := range c.inst.Precedences {
		a, errA := c.sol.TopBin(p.Before)
		b, errB := c.sol.TopBin(p.After)
		if errA != nil || errB != nil {
			// The broken path has been reported by an earlier check.
			continue
		}
		if a > b {
			c.report("Item %d cannot be before %d. Item %d bin: %d, Item %d bin: %d", p.After, p.Before, p.Before, a, p.After, b)
			if c.done() {
				return
			}
		}
	}
}

// Verify checks, in order: the shape of the placement, that every item is placed, that every
// placement is in range, bin capacities, that every used bin is placed, and precedences. It
// stops at the first failing check unless CollectAll is given. Verify does not modify its
// arguments and keeps no state between calls.
func Verify(inst *instance.Instance, sol *solution.Solution, opts ...Option) Result {
	c := &checker{inst: inst, sol: sol}
	for _, o := range opts {
		o(&c.opts)
	}
	if !c.checkShape() {
		return c.result()
	}
	checks := []func(){
		c.checkItems,
		c.checkRange,
		func() { c.checkCapacity(c.loads()) },
		func() { c.checkUsedBins(c.loads()) },
		c.checkPrecedences,
	}
	for _, check := range checks {
		check()
		if c.done() {
			break
		}
	}
	return c.result()
}

func (c *checker) result() Result {
	return Result{OK: len(c.findings) == 0, Findings: c.findings}
}
