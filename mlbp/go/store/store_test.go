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

package store

import (
	"context"
	"testing"

	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/pipeline"
	"github.com/hierpack/mlbp/mlbp/go/solution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report(id string) *pipeline.Report {
	return &pipeline.Report{
		RunID:       id,
		Instance:    "abc",
		Formulation: "assignment",
		Status:      cpmodel.Optimal,
		Objective:   7,
		Bound:       7,
		Solution: &solution.Solution{
			Kind:      solution.Packing,
			Placement: [][]int{{0, 0}, {0}},
			Cost:      7,
		},
		Verified: true,
		Stats: cpmodel.Stats{
			Variables:   map[string]int{"x": 3, "y": 2},
			Constraints: map[string]int{"capacity": 2},
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(ctx, "abc/assignment")
	require.NoError(t, err)
	assert.False(t, ok)

	want := report("run-1")
	require.NoError(t, s.Put(ctx, "abc/assignment", want))
	got, ok, err := s.Get(ctx, "abc/assignment")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, s.Put(ctx, "abc/assignment", report("run-2")))
	got, _, err = s.Get(ctx, "abc/assignment")
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)

	require.NoError(t, s.Delete(ctx, "abc/assignment"))
	_, ok, err = s.Get(ctx, "abc/assignment")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Keys(t *testing.T) {
	ctx := context.Background()
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	for _, k := range []string{"abc/single-flow", "abc/assignment", "abd/assignment"} {
		require.NoError(t, s.Put(ctx, k, report(k)))
	}
	keys, err := s.Keys(ctx, "abc/")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc/assignment", "abc/single-flow"}, keys)
}

func TestStore_OnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", report("run-1")))
	require.NoError(t, s.Close())

	s, err = Open(Options{Dir: dir})
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-1", got.RunID)
}

func TestOpen_NoDir(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

func TestStore_CanceledContext(t *testing.T) {
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Put(ctx, "k", report("r")), context.Canceled)
	_, _, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
