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

// Package pipeline runs one instance through build, solve, decode and verify, and reports the
// outcome of every stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/formulation"
	"github.com/hierpack/mlbp/mlbp/go/instance"
	"github.com/hierpack/mlbp/mlbp/go/oracle"
	"github.com/hierpack/mlbp/mlbp/go/solution"
	"github.com/hierpack/mlbp/mlbp/go/verifier"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrVerifierDisagrees is returned when the oracle reports a solution that the verifier
// rejects. It means a formulation or decoder is wrong.
var ErrVerifierDisagrees = errors.New("verifier rejects the solution reported by the oracle")

const tracerName = "github.com/hierpack/mlbp/pipeline"

// Config selects the formulation and limits of a run. The zero value runs the assignment
// formulation without a time limit.
type Config struct {
	Kind    formulation.Kind
	Options formulation.Options
	// TimeLimit bounds the oracle call; zero means no limit beyond ctx.
	TimeLimit time.Duration
	// CollectAll makes the verifier report every finding instead of the first.
	CollectAll bool
	// Cache, when set, is consulted before building and filled with optimal verified runs.
	Cache Cache
}

// Cache stores reports of previous runs.
type Cache interface {
	// Get returns the cached report for key, or ok == false on a miss.
	Get(ctx context.Context, key string) (r *Report, ok bool, err error)
	Put(ctx context.Context, key string, r *Report) error
}

// Report is the outcome of one Run.
type Report struct {
	RunID       string               `json:"run_id"`
	Instance    string               `json:"instance"`
	Formulation string               `json:"formulation"`
	Status      cpmodel.SolverStatus `json:"status"`
	Objective   int64                `json:"objective"`
	Bound       int64                `json:"bound"`
	WallTime    time.Duration        `json:"wall_time_ns"`
	Solution    *solution.Solution   `json:"solution,omitempty"`
	Verified    bool                 `json:"verified"`
	Findings    []string             `json:"findings,omitempty"`
	Stats       cpmodel.Stats        `json:"stats"`
	Cached      bool                 `json:"cached,omitempty"`
}

// CacheKey identifies the runs whose reports are interchangeable.
func CacheKey(inst *instance.Instance, cfg Config) string {
	return fmt.Sprintf("%s/%v/%v/%v", inst.Fingerprint(), cfg.Kind, cfg.Options.Balance, cfg.Options.HybridLinking)
}

// Run builds the model of inst, solves it with o, decodes and verifies the result.
//
// Solver outcomes without a solution (Infeasible, TimedOut, ModelInvalid) are reported with a
// nil error. If the oracle returns a solution the verifier rejects, Run returns the report
// together with an error wrapping ErrVerifierDisagrees.
func Run(ctx context.Context, inst *instance.Instance, o oracle.Oracle, cfg Config) (rep *Report, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.Run",
		trace.WithAttributes(
			attribute.String("formulation", cfg.Kind.String()),
			attribute.Int("levels", len(inst.Levels)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := inst.Validate(); err != nil {
		return nil, err
	}
	key := CacheKey(inst, cfg)
	if cfg.Cache != nil {
		cached, ok, err := cfg.Cache.Get(ctx, key)
		if err != nil {
			log.Errorf("cache lookup of %s failed: %v", key, err)
		} else if ok {
			span.SetAttributes(attribute.Bool("cached", true))
			cached.Cached = true
			return cached, nil
		}
	}

	rep = &Report{RunID: uuid.NewString(), Instance: inst.Fingerprint(), Formulation: cfg.Kind.String()}
	f, err := formulation.New(cfg.Kind, cfg.Options)
	if err != nil {
		return nil, err
	}
	b := cpmodel.NewCpModelBuilder()
	b.SetName(fmt.Sprintf("%v-%s", cfg.Kind, rep.RunID))
	if err := build(ctx, f, b, inst); err != nil {
		return nil, err
	}
	rep.Stats = b.Stats()
	m, err := b.Model()
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}

	resp, err := solve(ctx, o, m, cfg.TimeLimit)
	if err != nil {
		return nil, err
	}
	rep.Status = resp.Status
	rep.Objective = resp.ObjectiveValue
	rep.Bound = resp.BestObjectiveBound
	rep.WallTime = resp.WallTime
	span.SetAttributes(attribute.String("status", resp.Status.String()))
	if !resp.Status.HasSolution() {
		return rep, nil
	}

	sol, err := f.Decode(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	rep.Solution = sol
	var opts []verifier.Option
	if cfg.CollectAll {
		opts = append(opts, verifier.CollectAll())
	}
	res := verifier.Verify(inst, sol, opts...)
	rep.Verified, rep.Findings = res.OK, res.Findings
	if !res.OK {
		log.Errorf("%v: oracle reported %v but the verifier found %v", cfg.Kind, resp.Status, res.Findings)
		return rep, fmt.Errorf("%v: %w: %v", cfg.Kind, ErrVerifierDisagrees, res.Findings)
	}

	if cfg.Cache != nil && resp.Status == cpmodel.Optimal {
		if err := cfg.Cache.Put(ctx, key, rep); err != nil {
			log.Errorf("cache store of %s failed: %v", key, err)
		}
	}
	return rep, nil
}

func build(ctx context.Context, f formulation.Formulation, b *cpmodel.Builder, inst *instance.Instance) error {
	_, span := otel.Tracer(tracerName).Start(ctx, "formulation.Build")
	defer span.End()
	if err := f.Build(b, inst); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return err
	}
	span.SetAttributes(attribute.Int("variables", b.NumVariables()))
	return nil
}

func solve(ctx context.Context, o oracle.Oracle, m *cpmodel.Model, limit time.Duration) (*cpmodel.Response, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "oracle.Solve")
	defer span.End()
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}
	resp, err := o.Solve(ctx, m)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "solve failed")
		return nil, fmt.Errorf("oracle failed: %w", err)
	}
	span.SetAttributes(
		attribute.String("status", resp.Status.String()),
		attribute.Int64("objective", resp.ObjectiveValue),
	)
	return resp, nil
}
