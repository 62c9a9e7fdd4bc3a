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
	"slices"

	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"

	"github.com/horizon-blue/neuralpp/types/tables"
	"github.com/horizon-blue/neuralpp/types/variables"
)

type bindingKind int

const (
	bindFixed bindingKind = iota
	bindFree
	bindBatch
)

// Binding says how Condition treats one variable: fixed to a single value
// for all batch rows, kept free, or fixed to a per-row value. Build one
// with Fixed, Free or BatchCoordinates.
type Binding struct {
	kind   bindingKind
	value  int
	coords []int
}

// Fixed binds a variable to a single value, for every batch row. The
// variable is removed from the conditioned factor.
func Fixed(value int) Binding {
	return Binding{kind: bindFixed, value: value}
}

// Free marks a variable as not conditioned: it stays in the result
// unchanged. Equivalent to leaving the variable out of the Conditioning.
func Free() Binding {
	return Binding{kind: bindFree}
}

// BatchCoordinates binds a variable to one value per batch row: row i of
// the (possibly newly introduced) batch dimension is fixed to coords[i].
// The variable is removed from the conditioned factor.
//
// At least two coordinates are required: a single coordinate is ambiguous
// with a scalar conditioning, use Fixed instead.
func BatchCoordinates(coords ...int) Binding {
	if len(coords) < 2 {
		exceptions.Panicf("factors.BatchCoordinates: got %d coordinates, at least 2 are required", len(coords))
	}
	return Binding{kind: bindBatch, coords: slices.Clone(coords)}
}

// Conditioning maps each conditioned variable to its Binding. Variables of
// the factor not present in the map stay free.
type Conditioning map[*variables.Variable]Binding

// Condition fixes variables of the factor per the given Conditioning and
// returns the factor over the remaining free variables, which keep their
// original relative order. The result table is a slice/gather of the source
// in the source's numeric space.
//
// Batch semantics: if any variable is bound with BatchCoordinates, all
// coordinate sequences must have the same length B, and:
//
//   - an already-batched factor requires B to equal its batch size;
//   - an unbatched factor becomes batched with size B.
//
// Disagreements throw ErrBatchCoordinatesDoNotAgree before any result is
// built. A variable absent from the factor throws ErrUnknownVariable.
func (f *TableFactor) Condition(cond Conditioning) Factor {
	axisOf := make(map[*variables.Variable]int, len(f.vars))
	for axis, v := range f.vars {
		axisOf[v] = axis
	}
	for v := range cond {
		if _, ok := axisOf[v]; !ok {
			throwf(ErrUnknownVariable, "conditioning %s on %s", f, v)
		}
	}

	src := f.table
	strides := src.Strides()

	// All batch coordinate sequences must agree with each other, and with
	// the factor's batch size when it has one.
	coordLen := -1
	for _, b := range cond {
		if b.kind != bindBatch {
			continue
		}
		if coordLen >= 0 && len(b.coords) != coordLen {
			throwf(ErrBatchCoordinatesDoNotAgree, "coordinate sequences of lengths %d and %d", coordLen, len(b.coords))
		}
		coordLen = len(b.coords)
	}
	if coordLen >= 0 && src.IsBatched() && coordLen != src.BatchSize() {
		throwf(ErrBatchCoordinatesDoNotAgree, "coordinate sequences of length %d for %s", coordLen, f)
	}

	// Range-check every bound value.
	for v, b := range cond {
		switch b.kind {
		case bindFixed:
			if b.value < 0 || b.value >= v.Cardinality() {
				exceptions.Panicf("factors.Condition: value %d out of range for variable %s", b.value, v)
			}
		case bindBatch:
			for _, c := range b.coords {
				if c < 0 || c >= v.Cardinality() {
					exceptions.Panicf("factors.Condition: coordinate %d out of range for variable %s", c, v)
				}
			}
		}
	}

	// Split the axes: free ones survive in their relative order, fixed
	// ones contribute a constant offset, batch-bound ones a per-row offset.
	var keepVars []*variables.Variable
	var keepStrides []int
	var coordStrides []int
	var coordSeqs [][]int
	fixedBase := 0
	for axis, v := range f.vars {
		b, ok := cond[v]
		if !ok || b.kind == bindFree {
			keepVars = append(keepVars, v)
			keepStrides = append(keepStrides, strides[axis])
			continue
		}
		if b.kind == bindFixed {
			fixedBase += b.value * strides[axis]
			continue
		}
		coordStrides = append(coordStrides, strides[axis])
		coordSeqs = append(coordSeqs, b.coords)
	}

	batched := src.IsBatched() || coordLen >= 0
	rows := 1
	if src.IsBatched() {
		rows = src.BatchSize()
	} else if coordLen >= 0 {
		rows = coordLen
	}
	if klog.V(2).Enabled() {
		klog.Infof("factors.Condition: %s -> %d free variables, %d rows", f, len(keepVars), rows)
	}

	// Gather the surviving entries.
	resultDims := variables.Cardinalities(keepVars)
	flat := make([]float64, rows*variables.NumAssignments(keepVars))
	pos := 0
	for row := 0; row < rows; row++ {
		base := fixedBase
		for k, stride := range coordStrides {
			base += coordSeqs[k][row] * stride
		}
		srcRow := 0
		if src.IsBatched() {
			srcRow = row
		}
		for indices := range variables.IterIndices(resultDims) {
			offset := base
			for k, idx := range indices {
				offset += idx * keepStrides[k]
			}
			flat[pos] = src.AtFlat(srcRow, offset)
			pos++
		}
	}

	var table *tables.Table
	if batched {
		table = tables.NewBatched(resultDims, flat, src.IsLogSpace(), rows)
	} else {
		table = tables.New(resultDims, flat, src.IsLogSpace())
	}
	return New(keepVars, table)
}
