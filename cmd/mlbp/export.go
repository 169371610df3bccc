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
	"io"
	"os"

	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/formulation"
	"github.com/hierpack/mlbp/mlbp/go/pbenc"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		ff       formulationFlags
		instPath string
		format   string
		outPath  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the model of an instance for an external solver",
		Long: `Writes the chosen formulation of the instance either as an OPB pseudo-Boolean
problem (--format=opb) or as a serialized CP-SAT CpModelProto (--format=cpsat).`,
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
			f, err := formulation.New(kind, opts)
			if err != nil {
				return err
			}
			b := cpmodel.NewCpModelBuilder()
			b.SetName(kind.String())
			if err := f.Build(b, inst); err != nil {
				return err
			}
			m, err := b.Model()
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				file, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer file.Close()
				out = file
			}
			switch format {
			case "opb":
				pb, err := pbenc.Encode(m)
				if err != nil {
					return err
				}
				return pb.WriteOPB(out)
			case "cpsat":
				data, err := cpmodel.MarshalModel(m)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			return fmt.Errorf("unknown format %q, want opb or cpsat", format)
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&instPath, "instance", "", "path of the instance JSON file")
	cmd.Flags().StringVar(&format, "format", "opb", "output format: opb or cpsat")
	cmd.Flags().StringVar(&outPath, "out", "-", "output file, - for stdout")
	return cmd
}
