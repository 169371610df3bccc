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

// The scenario_a command packs two items into one bin inside one top-level bin with every
// formulation and prints the cost each of them finds.
package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/formulation"
	"github.com/hierpack/mlbp/mlbp/go/instance"
	"github.com/hierpack/mlbp/mlbp/go/oracle/gophersat"
	"github.com/hierpack/mlbp/mlbp/go/verifier"
)

func scenarioA() error {
	inst := &instance.Instance{Levels: [][]instance.Node{
		{{Size: 4}, {Size: 5}},
		{{Size: 3, Capacity: 10, Cost: 2}},
		{{Capacity: 100, Cost: 5}},
	}}
	if err := inst.Validate(); err != nil {
		return err
	}

	for _, kind := range formulation.Kinds {
		f, err := formulation.New(kind, formulation.Options{})
		if err != nil {
			return err
		}
		model := cpmodel.NewCpModelBuilder()
		if err := f.Build(model, inst); err != nil {
			return fmt.Errorf("failed to build %v: %w", kind, err)
		}
		m, err := model.Model()
		if err != nil {
			return fmt.Errorf("failed to instantiate the model: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		response, err := gophersat.New().Solve(ctx, m)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to solve the model: %w", err)
		}
		if !response.Status.HasSolution() {
			fmt.Printf("%-17v %v\n", kind, response.Status)
			continue
		}
		sol, err := f.Decode(response)
		if err != nil {
			return err
		}
		res := verifier.Verify(inst, sol)
		fmt.Printf("%-17v %v cost=%d placement=%v verified=%v\n", kind, response.Status, sol.Cost, sol.Placement, res.OK)
	}
	return nil
}

func main() {
	if err := scenarioA(); err != nil {
		log.Exitf("scenarioA returned with error: %v", err)
	}
}
