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

package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/formulation"
	"github.com/hierpack/mlbp/mlbp/go/instance"
	"github.com/hierpack/mlbp/mlbp/go/oracle"
	"github.com/hierpack/mlbp/mlbp/go/oracle/gophersat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioA(capacity int64) *instance.Instance {
	return &instance.Instance{Levels: [][]instance.Node{
		{{Size: 4}, {Size: 5}},
		{{Size: 3, Capacity: capacity, Cost: 2}},
		{{Capacity: 100, Cost: 5}},
	}}
}

type memCache struct {
	mu   sync.Mutex
	reps map[string]*Report
}

func (c *memCache) Get(_ context.Context, key string) (*Report, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reps[key]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

func (c *memCache) Put(_ context.Context, key string, r *Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reps == nil {
		c.reps = map[string]*Report{}
	}
	cp := *r
	c.reps[key] = &cp
	return nil
}

func TestRun_ScenarioA(t *testing.T) {
	for _, k := range formulation.Kinds {
		t.Run(k.String(), func(t *testing.T) {
			rep, err := Run(context.Background(), scenarioA(10), gophersat.New(), Config{Kind: k})
			require.NoError(t, err)
			assert.Equal(t, cpmodel.Optimal, rep.Status)
			assert.Equal(t, int64(7), rep.Objective)
			assert.Equal(t, int64(7), rep.Bound)
			assert.True(t, rep.Verified)
			assert.Empty(t, rep.Findings)
			assert.NotEmpty(t, rep.RunID)
			assert.Equal(t, k.String(), rep.Formulation)
			require.NotNil(t, rep.Solution)
			assert.Equal(t, [][]int{{0, 0}, {0}}, rep.Solution.Placement)
			assert.NotEmpty(t, rep.Stats.Variables)
		})
	}
}

func TestRun_Infeasible(t *testing.T) {
	rep, err := Run(context.Background(), scenarioA(8), gophersat.New(), Config{})
	require.NoError(t, err)
	assert.Equal(t, cpmodel.Infeasible, rep.Status)
	assert.Nil(t, rep.Solution)
	assert.False(t, rep.Verified)
}

func TestRun_InvalidInput(t *testing.T) {
	_, err := Run(context.Background(), &instance.Instance{}, gophersat.New(), Config{})
	assert.ErrorIs(t, err, instance.ErrInvalidInstance)

	inst := scenarioA(10)
	inst.Precedences = []instance.Pair{{Before: 0, After: 1}}
	_, err = Run(context.Background(), inst, gophersat.New(), Config{Kind: formulation.HybridFlow})
	assert.ErrorIs(t, err, formulation.ErrPrecedenceUnsupported)
}

func TestRun_VerifierDisagrees(t *testing.T) {
	// Claims an optimum without placing anything.
	liar := oracle.Func(func(_ context.Context, m *cpmodel.Model) (*cpmodel.Response, error) {
		return &cpmodel.Response{Status: cpmodel.Optimal, Solution: make([]int64, len(m.Variables))}, nil
	})
	rep, err := Run(context.Background(), scenarioA(10), liar, Config{CollectAll: true})
	require.ErrorIs(t, err, ErrVerifierDisagrees)
	require.NotNil(t, rep)
	assert.False(t, rep.Verified)
	assert.Equal(t, []string{
		"Item 0 is not assigned to any bin.",
		"Item 1 is not assigned to any bin.",
	}, rep.Findings)
}

func TestRun_TimeLimit(t *testing.T) {
	stuck := oracle.Func(func(ctx context.Context, _ *cpmodel.Model) (*cpmodel.Response, error) {
		<-ctx.Done()
		return &cpmodel.Response{Status: cpmodel.TimedOut}, nil
	})
	rep, err := Run(context.Background(), scenarioA(10), stuck, Config{TimeLimit: 10 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, cpmodel.TimedOut, rep.Status)
	assert.Nil(t, rep.Solution)
}

func TestRun_Cache(t *testing.T) {
	calls := 0
	counting := oracle.Func(func(ctx context.Context, m *cpmodel.Model) (*cpmodel.Response, error) {
		calls++
		return gophersat.New().Solve(ctx, m)
	})
	cache := &memCache{}
	cfg := Config{Kind: formulation.OneHotAncestry, Cache: cache}

	first, err := Run(context.Background(), scenarioA(10), counting, cfg)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := Run(context.Background(), scenarioA(10), counting, cfg)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, first.Solution, second.Solution)
	assert.Equal(t, 1, calls)

	cfg.Kind = formulation.CompactAncestry
	third, err := Run(context.Background(), scenarioA(10), counting, cfg)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, calls)
}

func TestCacheKey(t *testing.T) {
	inst := scenarioA(10)
	a := CacheKey(inst, Config{Kind: formulation.SingleCommodityFlow})
	b := CacheKey(inst, Config{Kind: formulation.SingleCommodityFlow, Options: formulation.Options{Balance: formulation.Exact}})
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, CacheKey(scenarioA(10), Config{Kind: formulation.SingleCommodityFlow}))
	assert.NotEqual(t, a, CacheKey(scenarioA(11), Config{Kind: formulation.SingleCommodityFlow}))
}
