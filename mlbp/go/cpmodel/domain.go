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
	"fmt"
	"math"
	"sort"
	"strings"
)

// ClosedInterval is the integer range `[Start,End]`. It is empty when Start > End.
type ClosedInterval struct {
	Start int64
	End   int64
}

// saturatingAdd returns i+delta clamped to the int64 range. The two infinities
// MinInt64 and MaxInt64 absorb any delta.
func saturatingAdd(i, delta int64) int64 {
	if i == math.MinInt64 || i == math.MaxInt64 {
		return i
	}
	s := i + delta
	switch {
	case delta < 0 && s > i:
		return math.MinInt64
	case delta > 0 && s < i:
		return math.MaxInt64
	}
	return s
}

// Offset shifts both bounds of the interval by delta. Unbounded ends stay unbounded.
func (c ClosedInterval) Offset(delta int64) ClosedInterval {
	return ClosedInterval{saturatingAdd(c.Start, delta), saturatingAdd(c.End, delta)}
}

// Domain is a set of int64 values kept as a sorted list of disjoint, non-adjacent
// closed intervals.
type Domain struct {
	intervals []ClosedInterval
}

// normalize drops empty intervals, sorts the rest and merges the ones that overlap
// or touch.
func (d *Domain) normalize() {
	kept := d.intervals[:0]
	for _, v := range d.intervals {
		if v.Start <= v.End {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		d.intervals = nil
		return
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Start != kept[j].Start {
			return kept[i].Start < kept[j].Start
		}
		return kept[i].End < kept[j].End
	})
	merged := []ClosedInterval{kept[0]}
	for _, v := range kept[1:] {
		last := &merged[len(merged)-1]
		if last.End == math.MaxInt64 || last.End+1 >= v.Start {
			if last.End < v.End {
				last.End = v.End
			}
			continue
		}
		merged = append(merged, v)
	}
	d.intervals = merged
}

// NewEmptyDomain returns the empty set.
func NewEmptyDomain() Domain {
	return Domain{}
}

// NewSingleDomain returns the singleton `{val}`.
func NewSingleDomain(val int64) Domain {
	return Domain{[]ClosedInterval{{val, val}}}
}

// NewDomain returns `[left,right]`, or the empty set if left > right.
func NewDomain(left, right int64) Domain {
	if left > right {
		return NewEmptyDomain()
	}
	return Domain{[]ClosedInterval{{left, right}}}
}

// FromIntervals returns the union of the given intervals, in any order.
func FromIntervals(intervals []ClosedInterval) Domain {
	d := Domain{append([]ClosedInterval(nil), intervals...)}
	d.normalize()
	return d
}

// FromFlatIntervals builds a domain from `[s0,e0,s1,e1,...]`, the layout used on
// the wire. An odd number of values is an error.
func FromFlatIntervals(values []int64) (Domain, error) {
	if len(values)%2 != 0 {
		return NewEmptyDomain(), fmt.Errorf("len(values)=%v must be a multiple of 2", len(values))
	}
	var itvs []ClosedInterval
	for i := 0; i+1 < len(values); i += 2 {
		itvs = append(itvs, ClosedInterval{values[i], values[i+1]})
	}
	d := Domain{itvs}
	d.normalize()
	return d, nil
}

// FlattenedIntervals is the inverse of FromFlatIntervals.
func (d Domain) FlattenedIntervals() []int64 {
	var result []int64
	for _, i := range d.intervals {
		result = append(result, i.Start, i.End)
	}
	return result
}

// Intervals returns a copy of the intervals of the domain, in increasing order.
func (d Domain) Intervals() []ClosedInterval {
	return append([]ClosedInterval(nil), d.intervals...)
}

// IsEmpty reports whether the domain has no value.
func (d Domain) IsEmpty() bool {
	return len(d.intervals) == 0
}

// Contains reports whether v is in the domain.
func (d Domain) Contains(v int64) bool {
	i := sort.Search(len(d.intervals), func(i int) bool { return d.intervals[i].End >= v })
	return i < len(d.intervals) && d.intervals[i].Start <= v
}

// Min returns the smallest value of the domain; false if the domain is empty.
func (d Domain) Min() (int64, bool) {
	if len(d.intervals) == 0 {
		return 0, false
	}
	return d.intervals[0].Start, true
}

// Max returns the largest value of the domain; false if the domain is empty.
func (d Domain) Max() (int64, bool) {
	if len(d.intervals) == 0 {
		return 0, false
	}
	return d.intervals[len(d.intervals)-1].End, true
}

func (d Domain) String() string {
	var sb strings.Builder
	for _, i := range d.intervals {
		if i.Start == i.End {
			fmt.Fprintf(&sb, "[%d]", i.Start)
		} else {
			fmt.Fprintf(&sb, "[%d,%d]", i.Start, i.End)
		}
	}
	if sb.Len() == 0 {
		return "[]"
	}
	return sb.String()
}
