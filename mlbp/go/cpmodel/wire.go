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

package cpmodel

import (
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the CP-SAT protos (ortools/sat/cp_model.proto) used by the codec.
const (
	modelName        protowire.Number = 1
	modelVariables   protowire.Number = 2
	modelConstraints protowire.Number = 3
	modelObjective   protowire.Number = 4

	variableName   protowire.Number = 1
	variableDomain protowire.Number = 2

	constraintName        protowire.Number = 1
	constraintEnforcement protowire.Number = 2
	constraintBoolOr      protowire.Number = 3
	constraintBoolAnd     protowire.Number = 4
	constraintLinear      protowire.Number = 12
	constraintAtMostOne   protowire.Number = 26
	constraintExactlyOne  protowire.Number = 29

	boolArgLiterals protowire.Number = 1

	linearVars   protowire.Number = 1
	linearCoeffs protowire.Number = 2
	linearDomain protowire.Number = 3

	objectiveVars          protowire.Number = 1
	objectiveOffset        protowire.Number = 2
	objectiveScalingFactor protowire.Number = 3
	objectiveCoeffs        protowire.Number = 4

	responseStatus             protowire.Number = 1
	responseSolution           protowire.Number = 2
	responseObjectiveValue     protowire.Number = 3
	responseBestObjectiveBound protowire.Number = 4
	responseWallTime           protowire.Number = 15
)

// ErrWireFormat is returned for bytes that do not decode as the expected CP-SAT message.
var ErrWireFormat = errors.New("malformed CP-SAT message")

func appendPackedInt64(b []byte, num protowire.Number, vs []int64) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func appendPackedIndices(b []byte, num protowire.Number, vs []VarIndex) []byte {
	ints := make([]int64, len(vs))
	for i, v := range vs {
		ints[i] = int64(v)
	}
	return appendPackedInt64(b, num, ints)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func splitTerms(terms []Term) ([]int64, []int64) {
	vars := make([]int64, len(terms))
	coeffs := make([]int64, len(terms))
	for i, t := range terms {
		vars[i] = int64(t.Var)
		coeffs[i] = t.Coeff
	}
	return vars, coeffs
}

// MarshalModel encodes the model as a serialized CpModelProto.
func MarshalModel(m *Model) ([]byte, error) {
	var b []byte
	b = appendString(b, modelName, m.Name)
	for _, v := range m.Variables {
		if v.Domain.IsEmpty() {
			return nil, fmt.Errorf("variable %q has an empty domain", v.Name)
		}
		var vb []byte
		vb = appendString(vb, variableName, v.Name)
		vb = appendPackedInt64(vb, variableDomain, v.Domain.FlattenedIntervals())
		b = appendMessage(b, modelVariables, vb)
	}
	for _, ct := range m.Constraints {
		var cb []byte
		cb = appendString(cb, constraintName, ct.Name)
		cb = appendPackedIndices(cb, constraintEnforcement, ct.Enforcement)
		switch ct.Kind {
		case KindLinear:
			vars, coeffs := splitTerms(ct.Terms)
			var lb []byte
			lb = appendPackedInt64(lb, linearVars, vars)
			lb = appendPackedInt64(lb, linearCoeffs, coeffs)
			lb = appendPackedInt64(lb, linearDomain, ct.Domain.FlattenedIntervals())
			cb = appendMessage(cb, constraintLinear, lb)
		case KindBoolOr, KindBoolAnd, KindAtMostOne, KindExactlyOne:
			num := map[ConstraintKind]protowire.Number{
				KindBoolOr:     constraintBoolOr,
				KindBoolAnd:    constraintBoolAnd,
				KindAtMostOne:  constraintAtMostOne,
				KindExactlyOne: constraintExactlyOne,
			}[ct.Kind]
			cb = appendMessage(cb, num, appendPackedIndices(nil, boolArgLiterals, ct.Literals))
		default:
			return nil, fmt.Errorf("constraint %q has unsupported kind %v", ct.Name, ct.Kind)
		}
		b = appendMessage(b, modelConstraints, cb)
	}
	if o := m.Objective; o != nil {
		vars, coeffs := splitTerms(o.Terms)
		var ob []byte
		ob = appendPackedInt64(ob, objectiveVars, vars)
		ob = appendDouble(ob, objectiveOffset, float64(o.Offset))
		ob = appendPackedInt64(ob, objectiveCoeffs, coeffs)
		b = appendMessage(b, modelObjective, ob)
	}
	return b, nil
}

// fieldFunc consumes the value of one field and returns the number of bytes read.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walkMessage(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrWireFormat, protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrWireFormat, num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	return protowire.ConsumeFieldValue(num, typ, b), nil
}

// consumeInt64s reads a repeated int64 field in either packed or unpacked encoding.
func consumeInt64s(dst *[]int64, typ protowire.Type, b []byte) (int, error) {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n >= 0 {
			*dst = append(*dst, int64(v))
		}
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return m, nil
			}
			*dst = append(*dst, int64(v))
			packed = packed[m:]
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: unexpected wire type %v for a repeated integer", ErrWireFormat, typ)
}

func consumeIndices(dst *[]VarIndex, typ protowire.Type, b []byte) (int, error) {
	var ints []int64
	n, err := consumeInt64s(&ints, typ, b)
	for _, v := range ints {
		*dst = append(*dst, VarIndex(int32(v)))
	}
	return n, err
}

func consumeString(dst *string, typ protowire.Type, b []byte) (int, error) {
	if typ != protowire.BytesType {
		return 0, fmt.Errorf("%w: unexpected wire type %v for a string", ErrWireFormat, typ)
	}
	s, n := protowire.ConsumeString(b)
	*dst = s
	return n, nil
}

func consumeDouble(dst *float64, typ protowire.Type, b []byte) (int, error) {
	if typ != protowire.Fixed64Type {
		return 0, fmt.Errorf("%w: unexpected wire type %v for a double", ErrWireFormat, typ)
	}
	v, n := protowire.ConsumeFixed64(b)
	*dst = math.Float64frombits(v)
	return n, nil
}

// consumeMessage reads a length-delimited submessage and walks it with fn.
func consumeMessage(typ protowire.Type, b []byte, fn fieldFunc) (int, error) {
	if typ != protowire.BytesType {
		return 0, fmt.Errorf("%w: unexpected wire type %v for a message", ErrWireFormat, typ)
	}
	msg, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	return n, walkMessage(msg, fn)
}

func joinTerms(vars, coeffs []int64) ([]Term, error) {
	if len(vars) != len(coeffs) {
		return nil, fmt.Errorf("%w: %d vars but %d coeffs", ErrWireFormat, len(vars), len(coeffs))
	}
	terms := make([]Term, len(vars))
	for i := range vars {
		terms[i] = Term{Var: VarIndex(vars[i]), Coeff: coeffs[i]}
	}
	return terms, nil
}

func unmarshalConstraint(b []byte) (ConstraintData, error) {
	var ct ConstraintData
	seen := false
	boolKinds := map[protowire.Number]ConstraintKind{
		constraintBoolOr:     KindBoolOr,
		constraintBoolAnd:    KindBoolAnd,
		constraintAtMostOne:  KindAtMostOne,
		constraintExactlyOne: KindExactlyOne,
	}
	err := walkMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if kind, ok := boolKinds[num]; ok {
			ct.Kind, seen = kind, true
			return consumeMessage(typ, b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if num == boolArgLiterals {
					return consumeIndices(&ct.Literals, typ, b)
				}
				return skipField(num, typ, b)
			})
		}
		switch num {
		case constraintName:
			return consumeString(&ct.Name, typ, b)
		case constraintEnforcement:
			return consumeIndices(&ct.Enforcement, typ, b)
		case constraintLinear:
			ct.Kind, seen = KindLinear, true
			var vars, coeffs, domain []int64
			n, err := consumeMessage(typ, b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case linearVars:
					return consumeInt64s(&vars, typ, b)
				case linearCoeffs:
					return consumeInt64s(&coeffs, typ, b)
				case linearDomain:
					return consumeInt64s(&domain, typ, b)
				}
				return skipField(num, typ, b)
			})
			if err != nil {
				return n, err
			}
			if ct.Terms, err = joinTerms(vars, coeffs); err != nil {
				return n, err
			}
			ct.Domain, err = FromFlatIntervals(domain)
			return n, err
		}
		return 0, fmt.Errorf("%w: unsupported constraint field %d", ErrWireFormat, num)
	})
	if err == nil && !seen {
		err = fmt.Errorf("%w: constraint %q has no body", ErrWireFormat, ct.Name)
	}
	return ct, err
}

// UnmarshalModel decodes a serialized CpModelProto restricted to the constraint types that
// MarshalModel writes. Any other constraint type is an error.
func UnmarshalModel(b []byte) (*Model, error) {
	m := &Model{}
	err := walkMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case modelName:
			return consumeString(&m.Name, typ, b)
		case modelVariables:
			var v VariableData
			var dom []int64
			n, err := consumeMessage(typ, b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case variableName:
					return consumeString(&v.Name, typ, b)
				case variableDomain:
					return consumeInt64s(&dom, typ, b)
				}
				return skipField(num, typ, b)
			})
			if err != nil {
				return n, err
			}
			if v.Domain, err = FromFlatIntervals(dom); err != nil {
				return n, err
			}
			m.Variables = append(m.Variables, v)
			return n, nil
		case modelConstraints:
			if typ != protowire.BytesType {
				return 0, fmt.Errorf("%w: unexpected wire type %v for a constraint", ErrWireFormat, typ)
			}
			msg, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			ct, err := unmarshalConstraint(msg)
			if err != nil {
				return n, err
			}
			m.Constraints = append(m.Constraints, ct)
			return n, nil
		case modelObjective:
			var vars, coeffs []int64
			var offset, scaling float64
			n, err := consumeMessage(typ, b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case objectiveVars:
					return consumeInt64s(&vars, typ, b)
				case objectiveCoeffs:
					return consumeInt64s(&coeffs, typ, b)
				case objectiveOffset:
					return consumeDouble(&offset, typ, b)
				case objectiveScalingFactor:
					return consumeDouble(&scaling, typ, b)
				}
				return skipField(num, typ, b)
			})
			if err != nil {
				return n, err
			}
			if scaling != 0 && scaling != 1 {
				return n, fmt.Errorf("%w: objective scaling factor %v is not supported", ErrWireFormat, scaling)
			}
			terms, err := joinTerms(vars, coeffs)
			if err != nil {
				return n, err
			}
			m.Objective = &Objective{Terms: terms, Offset: int64(math.Round(offset))}
			return n, nil
		}
		return skipField(num, typ, b)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalResponse encodes the response as a serialized CpSolverResponse.
func MarshalResponse(r *Response) []byte {
	var b []byte
	if r.Status != TimedOut {
		b = protowire.AppendTag(b, responseStatus, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.Status))
	}
	b = appendPackedInt64(b, responseSolution, r.Solution)
	b = appendDouble(b, responseObjectiveValue, float64(r.ObjectiveValue))
	b = appendDouble(b, responseBestObjectiveBound, float64(r.BestObjectiveBound))
	b = appendDouble(b, responseWallTime, r.WallTime.Seconds())
	return b
}

// UnmarshalResponse decodes a serialized CpSolverResponse. Fields other than the status,
// solution, objective, bound and wall time are skipped.
func UnmarshalResponse(b []byte) (*Response, error) {
	r := &Response{}
	var objective, bound, wall float64
	err := walkMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case responseStatus:
			if typ != protowire.VarintType {
				return 0, fmt.Errorf("%w: unexpected wire type %v for the status", ErrWireFormat, typ)
			}
			v, n := protowire.ConsumeVarint(b)
			r.Status = SolverStatus(int32(v))
			return n, nil
		case responseSolution:
			return consumeInt64s(&r.Solution, typ, b)
		case responseObjectiveValue:
			return consumeDouble(&objective, typ, b)
		case responseBestObjectiveBound:
			return consumeDouble(&bound, typ, b)
		case responseWallTime:
			return consumeDouble(&wall, typ, b)
		}
		return skipField(num, typ, b)
	})
	if err != nil {
		return nil, err
	}
	if r.Status < TimedOut || r.Status > Optimal {
		return nil, fmt.Errorf("%w: unknown status %d", ErrWireFormat, r.Status)
	}
	r.ObjectiveValue = int64(math.Round(objective))
	r.BestObjectiveBound = int64(math.Round(bound))
	r.WallTime = time.Duration(wall * float64(time.Second))
	return r, nil
}
