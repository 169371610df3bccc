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
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hierpack/mlbp/mlbp/go/formulation"
	"github.com/hierpack/mlbp/mlbp/go/instance"
	"github.com/hierpack/mlbp/mlbp/go/oracle"
	"github.com/hierpack/mlbp/mlbp/go/oracle/cpsat"
	"github.com/hierpack/mlbp/mlbp/go/oracle/gini"
	"github.com/hierpack/mlbp/mlbp/go/oracle/gophersat"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mlbp",
		Short:         "Multi-level bin packing formulations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// glog registers -v, -logtostderr and friends on the standard flag set.
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	root.AddCommand(newSolveCmd(), newVerifyCmd(), newExportCmd(), newFormulationsCmd())
	return root
}

var oracleNames = []string{"gophersat", "gini", "cpsat-loopback"}

func newOracle(name string) (oracle.Oracle, error) {
	switch name {
	case "gophersat":
		return gophersat.New(), nil
	case "gini":
		return gini.New(gini.Options{}), nil
	case "cpsat-loopback":
		// Sends the model through the CP-SAT wire format before solving it in process.
		return cpsat.New(cpsat.Loopback(gophersat.New())), nil
	}
	return nil, fmt.Errorf("unknown oracle %q, want one of %v", name, oracleNames)
}

// formulationFlags are shared by the commands that build a model.
type formulationFlags struct {
	kind          string
	balance       string
	hybridLinking string
}

func (f *formulationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "formulation", formulation.Assignment.String(), "formulation to build, see 'mlbp formulations'")
	cmd.Flags().StringVar(&f.balance, "balance", formulation.AtLeast.String(), "single-flow balance relation: at-least or exact")
	cmd.Flags().StringVar(&f.hybridLinking, "hybrid-linking", formulation.Decorative.String(), "hybrid-flow linking: decorative or linked")
}

func (f *formulationFlags) parse() (formulation.Kind, formulation.Options, error) {
	kind, err := formulation.ParseKind(f.kind)
	if err != nil {
		return 0, formulation.Options{}, err
	}
	balance, err := formulation.ParseBalanceRelation(f.balance)
	if err != nil {
		return 0, formulation.Options{}, err
	}
	linking, err := formulation.ParseHybridLinking(f.hybridLinking)
	if err != nil {
		return 0, formulation.Options{}, err
	}
	return kind, formulation.Options{Balance: balance, HybridLinking: linking}, nil
}

func readInstance(path string) (*instance.Instance, error) {
	if path == "" {
		return nil, fmt.Errorf("--instance is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return instance.Decode(f)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
