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
	"fmt"
	"text/tabwriter"

	"github.com/hierpack/mlbp/mlbp/go/formulation"
	"github.com/spf13/cobra"
)

func newFormulationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formulations",
		Short: "List the formulations and whether they support precedence pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPRECEDENCE")
			for _, k := range formulation.Kinds {
				fmt.Fprintf(w, "%v\t%v\n", k, k.SupportsPrecedence())
			}
			return w.Flush()
		},
	}
}
