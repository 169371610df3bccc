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

package main

import (
	"context"
	"time"

	log "github.com/golang/glog"
	"github.com/hierpack/mlbp/mlbp/go/pipeline"
	"github.com/hierpack/mlbp/mlbp/go/store"
	"github.com/spf13/cobra"
)

func newSolveCmd() *cobra.Command {
	var (
		ff         formulationFlags
		instPath   string
		oracleName string
		timeLimit  time.Duration
		collectAll bool
		cacheDir   string
	)
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Build, solve, decode and verify an instance",
		Long: `Builds the chosen formulation of the instance, solves it, decodes the plan and
runs the verifier on it. The report is printed as JSON. The command fails when the
verifier rejects a plan the oracle reported as feasible.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inst, err := readInstance(instPath)
			if err != nil {
				return err
			}
			kind, opts, err := ff.parse()
			if err != nil {
				return err
			}
			o, err := newOracle(oracleName)
			if err != nil {
				return err
			}
			cfg := pipeline.Config{Kind: kind, Options: opts, TimeLimit: timeLimit, CollectAll: collectAll}
			if cacheDir != "" {
				s, err := store.Open(store.Options{Dir: cacheDir})
				if err != nil {
					return err
				}
				defer s.Close()
				cfg.Cache = s
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rep, runErr := pipeline.Run(ctx, inst, o, cfg)
			if rep != nil {
				if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
					return err
				}
				log.V(1).Infof("run %s: %v in %v", rep.RunID, rep.Status, rep.WallTime)
			}
			return runErr
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&instPath, "instance", "", "path of the instance JSON file")
	cmd.Flags().StringVar(&oracleName, "oracle", "gophersat", "oracle: gophersat, gini or cpsat-loopback")
	cmd.Flags().DurationVar(&timeLimit, "time-limit", 0, "time limit of the oracle, 0 for none")
	cmd.Flags().BoolVar(&collectAll, "collect-all", false, "report every verifier finding instead of the first")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "directory of the report cache, empty to disable")
	return cmd
}
