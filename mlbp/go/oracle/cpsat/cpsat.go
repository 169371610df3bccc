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

// Package cpsat hands models to an external CP-SAT service. Requests are serialized
// CpModelProto messages and replies are serialized CpSolverResponse messages.
package cpsat

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/hierpack/mlbp/mlbp/go/cpmodel"
	"github.com/hierpack/mlbp/mlbp/go/oracle"
)

// Transport delivers a serialized model and returns the serialized response.
type Transport func(ctx context.Context, model []byte) ([]byte, error)

// ErrTransport wraps failures of the Transport.
var ErrTransport = errors.New("CP-SAT transport failed")

// Oracle is an oracle.Oracle that delegates to a CP-SAT service.
type Oracle struct {
	transport Transport
}

// New returns an oracle using t.
func New(t Transport) *Oracle {
	return &Oracle{transport: t}
}

// Solve serializes the model, sends it and decodes the reply. A reply whose assignment does
// not satisfy the model is rejected with oracle.ErrBadAssignment.
func (o *Oracle) Solve(ctx context.Context, m *cpmodel.Model) (*cpmodel.Response, error) {
	start := time.Now()
	req, err := cpmodel.MarshalModel(m)
	if err != nil {
		log.Errorf("cpsat: %v", err)
		return &cpmodel.Response{Status: cpmodel.ModelInvalid, WallTime: time.Since(start)}, nil
	}
	log.V(1).Infof("cpsat: sending model %q (%d bytes)", m.Name, len(req))
	reply, err := o.transport(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return &cpmodel.Response{Status: cpmodel.TimedOut, WallTime: time.Since(start)}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	resp, err := cpmodel.UnmarshalResponse(reply)
	if err != nil {
		return nil, err
	}
	if resp.Status.HasSolution() {
		if err := m.Validate(resp.Solution); err != nil {
			return nil, fmt.Errorf("cpsat: %w: %v", oracle.ErrBadAssignment, err)
		}
	}
	if resp.WallTime == 0 {
		resp.WallTime = time.Since(start)
	}
	log.V(1).Infof("cpsat: status %v objective %d", resp.Status, resp.ObjectiveValue)
	return resp, nil
}

// Loopback returns a Transport that decodes the request and answers it with o. It serves
// tests and in-process use of the wire format.
func Loopback(o oracle.Oracle) Transport {
	return func(ctx context.Context, req []byte) ([]byte, error) {
		m, err := cpmodel.UnmarshalModel(req)
		if err != nil {
			return nil, err
		}
		resp, err := o.Solve(ctx, m)
		if err != nil {
			return nil, err
		}
		return cpmodel.MarshalResponse(resp), nil
	}
}
