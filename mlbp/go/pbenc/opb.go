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

package pbenc

import (
	"bufio"
	"fmt"
	"io"
)

func writeTerms(w *bufio.Writer, terms []Term) {
	for _, t := range terms {
		if t.Lit < 0 {
			fmt.Fprintf(w, "+%d ~x%d ", t.Coeff, t.Lit.Var())
		} else {
			fmt.Fprintf(w, "+%d x%d ", t.Coeff, t.Lit.Var())
		}
	}
}

// WriteOPB writes the formula in the OPB format of the pseudo-Boolean competitions, followed
// by the extra rows. The objective offset is recorded in a comment.
func (f *Formula) WriteOPB(out io.Writer, extra ...Constraint) error {
	w := bufio.NewWriter(out)
	rows := len(f.Constraints) + len(extra)
	fmt.Fprintf(w, "* #variable= %d #constraint= %d\n", f.NumVars, rows)
	fmt.Fprintf(w, "* objective offset= %d\n", f.ObjectiveOffset)
	if len(f.Objective) > 0 {
		w.WriteString("min: ")
		writeTerms(w, f.Objective)
		w.WriteString(";\n")
	}
	for _, rs := range [][]Constraint{f.Constraints, extra} {
		for _, c := range rs {
			if len(c.Terms) == 0 {
				continue
			}
			writeTerms(w, c.Terms)
			fmt.Fprintf(w, ">= %d ;\n", c.AtLeast)
		}
	}
	return w.Flush()
}
