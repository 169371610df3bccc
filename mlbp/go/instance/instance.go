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

// Package instance holds the read-only description of a multi-level bin packing problem.
//
// Level 0 holds the items, levels 1..M() hold bins and level M() is the top level. Every
// node of level i < M() is packed into exactly one node of level i+1.
package instance

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidInstance is wrapped by every error returned from Validate.
var ErrInvalidInstance = errors.New("invalid instance")

// Node is an item (level 0) or a bin. Every node below the top level has a positive size.
// The size of a top-level bin, the capacity of an item and the cost of an item are ignored.
type Node struct {
	Size     int64 `json:"size"`
	Capacity int64 `json:"capacity"`
	Cost     int64 `json:"cost"`
}

// Pair requires the top-level bin of item Before to have an index no greater than the
// top-level bin of item After.
type Pair struct {
	Before int `json:"before"`
	After  int `json:"after"`
}

// Instance is a problem instance. It is not modified after construction.
type Instance struct {
	Levels      [][]Node `json:"levels"`
	Precedences []Pair   `json:"precedences,omitempty"`
}

// M returns the index of the top level.
func (in *Instance) M() int {
	return len(in.Levels) - 1
}

// N returns the number of nodes at level i.
func (in *Instance) N(i int) int {
	return len(in.Levels[i])
}

// Size returns s[i][j].
func (in *Instance) Size(i, j int) int64 {
	return in.Levels[i][j].Size
}

// Capacity returns w[i][j].
func (in *Instance) Capacity(i, j int) int64 {
	return in.Levels[i][j].Capacity
}

// Cost returns c[i][j].
func (in *Instance) Cost(i, j int) int64 {
	return in.Levels[i][j].Cost
}

// MaxLevelSize returns the largest level size, items included.
func (in *Instance) MaxLevelSize() int {
	n := 0
	for _, l := range in.Levels {
		if len(l) > n {
			n = len(l)
		}
	}
	return n
}

// HasPrecedences reports whether any precedence pair is declared.
func (in *Instance) HasPrecedences() bool {
	return len(in.Precedences) > 0
}

// Validate checks the structural requirements of the instance.
func (in *Instance) Validate() error {
	if len(in.Levels) < 2 {
		return fmt.Errorf("%w: need items and at least one bin level, got %d levels", ErrInvalidInstance, len(in.Levels))
	}
	for i, l := range in.Levels {
		if len(l) == 0 {
			return fmt.Errorf("%w: level %d is empty", ErrInvalidInstance, i)
		}
		for j, n := range l {
			if n.Size < 0 || n.Capacity < 0 || n.Cost < 0 {
				return fmt.Errorf("%w: node %d at level %d has a negative attribute %+v", ErrInvalidInstance, j, i, n)
			}
			if i < in.M() && n.Size == 0 {
				return fmt.Errorf("%w: node %d at level %d has size 0", ErrInvalidInstance, j, i)
			}
		}
	}
	items := in.N(0)
	for p, pr := range in.Precedences {
		if pr.Before < 0 || pr.Before >= items || pr.After < 0 || pr.After >= items {
			return fmt.Errorf("%w: precedence %d (%d, %d) refers to an item outside [0, %d)", ErrInvalidInstance, p, pr.Before, pr.After, items)
		}
	}
	return nil
}

// Fingerprint returns a hex SHA-256 digest of the JSON form of the instance.
func (in *Instance) Fingerprint() string {
	b, err := json.Marshal(in)
	if err != nil {
		// Only plain integers are marshaled.
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Decode reads a JSON instance from r and validates it.
func Decode(r io.Reader) (*Instance, error) {
	in := &Instance{}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("failed to decode instance: %w", err)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}
