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

// The precedence command solves a small instance with precedence pairs through the
// pipeline, using every formulation that can encode them, and prints the reports.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	log "github.com/golang/glog"
	"github.com/hierpack/mlbp/mlbp/go/formulation"
	"github.com/hierpack/mlbp/mlbp/go/instance"
	"github.com/hierpack/mlbp/mlbp/go/oracle/gini"
	"github.com/hierpack/mlbp/mlbp/go/pipeline"
)

func precedence() error {
	// Item 2 must end up in a top bin no later than item 0, item 1 no later than item 3.
	inst := &instance.Instance{
		Levels: [][]instance.Node{
			{{Size: 3}, {Size: 2}, {Size: 2}, {Size: 1}},
			{{Size: 2, Capacity: 4, Cost: 3}, {Size: 3, Capacity: 5, Cost: 4}, {Size: 1, Capacity: 3, Cost: 2}},
			{{Capacity: 4, Cost: 6}, {Capacity: 4, Cost: 2}},
		},
		Precedences: []instance.Pair{{Before: 2, After: 0}, {Before: 1, After: 3}},
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, kind := range formulation.Kinds {
		if !kind.SupportsPrecedence() {
			continue
		}
		cfg := pipeline.Config{Kind: kind, TimeLimit: 30 * time.Second, CollectAll: true}
		report, err := pipeline.Run(context.Background(), inst, gini.New(gini.Options{}), cfg)
		if err != nil {
			return fmt.Errorf("%v: %w", kind, err)
		}
		if err := enc.Encode(report); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := precedence(); err != nil {
		log.Exitf("precedence returned with error: %v", err)
	}
}
