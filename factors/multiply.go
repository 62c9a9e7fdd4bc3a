/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package factors

import (
	"k8s.io/klog/v2"

	"github.com/horizon-blue/neuralpp/types/tables"
	"github.com/horizon-blue/neuralpp/types/variables"
)

// Multiply returns the factor product of f and other.
//
// The result's variables are f's variables followed by the variables only
// in other, keeping other's relative order. For every joint assignment the
// result potential is the product of the operands' potentials at the
// matching sub-assignments: shared variables combine index-wise (this is a
// junction, not a marginalization — nothing is summed out), non-shared ones
// by outer product.
//
// The batch axis is never part of the outer product: batch rows align
// index-for-index, both batched operands must share the batch size (else
// tables.ErrBatchSizeMismatch), and an unbatched operand applies to every
// row of a batched one. With mixed numeric spaces the product is computed
// in log space and stored in f's space.
func (f *TableFactor) Multiply(other Factor) Factor {
	ovars := other.Variables()

	pos1 := make(map[*variables.Variable]int, len(f.vars))
	for axis, v := range f.vars {
		pos1[v] = axis
	}
	pos2 := make(map[*variables.Variable]int, len(ovars))
	for axis, v := range ovars {
		pos2[v] = axis
	}

	resultVars := make([]*variables.Variable, 0, len(f.vars)+len(ovars))
	resultVars = append(resultVars, f.vars...)
	for _, v := range ovars {
		if _, shared := pos1[v]; !shared {
			resultVars = append(resultVars, v)
		}
	}

	axes1 := make([]int, len(resultVars))
	axes2 := make([]int, len(resultVars))
	for k, v := range resultVars {
		axes1[k], axes2[k] = -1, -1
		if axis, ok := pos1[v]; ok {
			axes1[k] = axis
		}
		if axis, ok := pos2[v]; ok {
			axes2[k] = axis
		}
	}

	if klog.V(2).Enabled() {
		klog.Infof("factors.Multiply: %s x %s over %d variables", f, other, len(resultVars))
	}
	table := tables.Join(f.table, other.Table(), variables.Cardinalities(resultVars), axes1, axes2)
	return New(resultVars, table)
}
