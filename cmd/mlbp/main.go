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

// The mlbp command solves and verifies multi-level bin packing instances.
//
// Usage:
//
//	mlbp solve --instance=inst.json --formulation=multi-flow --time-limit=30s
//	mlbp verify --instance=inst.json --solution=plan.json
//	mlbp export --instance=inst.json --formulation=assignment --format=opb --out=model.opb
//	mlbp formulations
package main

import (
	log "github.com/golang/glog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Exitf("mlbp: %v", err)
	}
	log.Flush()
}
