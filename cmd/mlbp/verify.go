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
	"errors"
	"fmt"
	"os"

	"github.com/hierpack/mlbp/mlbp/go/solution"
	"github.com/hierpack/mlbp/mlbp/go/verifier"
	"github.com/spf13/cobra"
)

var errRejected = errors.New("solution rejected")

func newVerifyCmd() *cobra.Command {
	var (
		instPath   string
		solPath    string
		collectAll bool
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a packing plan against an instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inst, err := readInstance(instPath)
			if err != nil {
				return err
			}
			if solPath == "" {
				return fmt.Errorf("--solution is required")
			}
			data, err := os.ReadFile(solPath)
			if err != nil {
				return err
			}
			sol, err := solution.Decode(data)
			if err != nil {
				return err
			}
			var opts []verifier.Option
			if collectAll {
				opts = append(opts, verifier.CollectAll())
			}
			res := verifier.Verify(inst, sol, opts...)
			out := cmd.OutOrStdout()
			if res.OK {
				fmt.Fprintln(out, "OK")
				return nil
			}
			for _, f := range res.Findings {
				fmt.Fprintln(out, f)
			}
			return fmt.Errorf("%w: %d finding(s)", errRejected, len(res.Findings))
		},
	}
	cmd.Flags().StringVar(&instPath, "instance", "", "path of the instance JSON file")
	cmd.Flags().StringVar(&solPath, "solution", "", "path of the solution JSON file")
	cmd.Flags().BoolVar(&collectAll, "collect-all", false, "report every finding instead of the first")
	return cmd
}
