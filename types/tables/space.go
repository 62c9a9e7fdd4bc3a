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

package tables

import (
	"math"
	"slices"

	"github.com/gomlx/exceptions"
	"gonum.org/v1/gonum/floats"

	"github.com/horizon-blue/neuralpp/types/variables"
)

// This file holds the space-aware numeric primitives. Higher level
// operations (multiplication, normalization, sampling, factor algebra) call
// these instead of branching on the log-space flag themselves, so the
// mixed-space combination policy lives in one place:
//
//   - A combination of two values happens in log space whenever either
//     operand is log-space.
//   - The result of a binary Table operation is stored in the space of the
//     left-hand (receiver) operand.

// linearValue converts one stored entry to linear space.
func linearValue(v float64, logSpace bool) float64 {
	if logSpace {
		return math.Exp(v)
	}
	return v
}

// valueInSpace converts one stored entry from its stored space to the
// requested one. Conversion is lossy only at the 0 <-> -Inf boundary, which
// both represent a zero potential.
func valueInSpace(v float64, stored, requested bool) float64 {
	if stored == requested {
		return v
	}
	if requested {
		return math.Log(v) // log(0) == -Inf.
	}
	return math.Exp(v)
}

// combine multiplies two potentials given in the space selected by logSpace:
// addition of logs, or a plain product of linear values.
func combine(a, b float64, logSpace bool) float64 {
	if logSpace {
		return a + b
	}
	return a * b
}

// valueIn returns the entry at (row, flat) converted to the requested
// space. For unbatched tables the row argument is ignored, which is what
// lets a batched operand combine row-for-row with an unbatched one without
// materializing the replication.
func (t *Table) valueIn(row, flat int, logSpace bool) float64 {
	if !t.batched {
		row = 0
	}
	return valueInSpace(t.flat[row*t.Size()+flat], t.logSpace, logSpace)
}

// ToLog returns the table converted to log space, or the table itself if it
// already is. Zero potentials become -Inf.
func (t *Table) ToLog() *Table {
	if t.logSpace {
		return t
	}
	out := t.emptyLike(true)
	for ii, v := range t.flat {
		out.flat[ii] = math.Log(v)
	}
	return out
}

// ToLinear returns the table converted to linear space, or the table itself
// if it already is. -Inf entries become 0.
func (t *Table) ToLinear() *Table {
	if !t.logSpace {
		return t
	}
	out := t.emptyLike(false)
	for ii, v := range t.flat {
		out.flat[ii] = math.Exp(v)
	}
	return out
}

// emptyLike allocates a table with the same shape and batch structure as t
// and the given numeric space, with an uninitialized buffer of the same
// length.
func (t *Table) emptyLike(logSpace bool) *Table {
	out := newTable(t.dims, logSpace, t.batched, t.batchSize)
	out.flat = make([]float64, len(t.flat))
	return out
}

// resolveBatch returns the batch structure of the result of combining the
// two tables row-for-row: batched if either operand is, with both batched
// operands required to share the batch size (else ErrBatchSizeMismatch).
func resolveBatch(t1, t2 *Table) (batched bool, batchSize int) {
	switch {
	case t1.batched && t2.batched:
		if t1.batchSize != t2.batchSize {
			throwf(ErrBatchSizeMismatch, "combining %s with %s", t1, t2)
		}
		return true, t1.batchSize
	case t1.batched:
		return true, t1.batchSize
	case t2.batched:
		return true, t2.batchSize
	}
	return false, 0
}

// Mul returns the element-wise product of two tables over identical domain
// dimensions, combining batch rows index-for-index. If exactly one operand
// is batched the other applies identically to every row. The result is
// stored in the receiver's numeric space.
func (t *Table) Mul(other *Table) *Table {
	if !slices.Equal(t.dims, other.dims) {
		exceptions.Panicf("Table.Mul: dimensions don't match: %s vs %s", t, other)
	}
	batched, batchSize := resolveBatch(t, other)
	combineLog := t.logSpace || other.logSpace

	out := newTable(t.dims, t.logSpace, batched, batchSize)
	size := out.Size()
	rows := out.Rows()
	out.flat = make([]float64, rows*size)
	for row := 0; row < rows; row++ {
		for ii := 0; ii < size; ii++ {
			c := combine(t.valueIn(row, ii, combineLog), other.valueIn(row, ii, combineLog), combineLog)
			out.flat[row*size+ii] = valueInSpace(c, combineLog, t.logSpace)
		}
	}
	return out
}

// Join returns the generalized product of two tables over a common result
// domain, the table-level core of factor multiplication. Result axis k maps
// to axis axes1[k] of t1 and axis axes2[k] of t2, with -1 marking an axis
// the table does not have: axes present in both combine index-wise, axes
// present in only one broadcast as an outer product. Batch rows align
// index-for-index and are never part of the broadcast; both batched
// operands must share the batch size (else ErrBatchSizeMismatch), and an
// unbatched operand applies identically to every row.
//
// The combination happens in log space if either operand is log-space; the
// result is stored in t1's numeric space.
func Join(t1, t2 *Table, resultDims, axes1, axes2 []int) *Table {
	if len(axes1) != len(resultDims) || len(axes2) != len(resultDims) {
		exceptions.Panicf("tables.Join: %d result dimensions but %d/%d axis mappings",
			len(resultDims), len(axes1), len(axes2))
	}
	batched, batchSize := resolveBatch(t1, t2)
	combineLog := t1.logSpace || t2.logSpace

	out := newTable(resultDims, t1.logSpace, batched, batchSize)
	out.flat = make([]float64, out.Rows()*out.Size())
	pos := 0
	for row := 0; row < out.Rows(); row++ {
		for indices := range variables.IterIndices(resultDims) {
			flat1, flat2 := 0, 0
			for k, idx := range indices {
				if a := axes1[k]; a >= 0 {
					flat1 += idx * t1.strides[a]
				}
				if a := axes2[k]; a >= 0 {
					flat2 += idx * t2.strides[a]
				}
			}
			c := combine(t1.valueIn(row, flat1, combineLog), t2.valueIn(row, flat2, combineLog), combineLog)
			out.flat[pos] = valueInSpace(c, combineLog, t1.logSpace)
			pos++
		}
	}
	return out
}

// Normalize rescales each row so its potentials sum to 1, in the table's
// native space: division by the row total in linear space, subtraction of
// the log-sum-exp in log space. A row with zero total potential (all zeros,
// or all -Inf) throws ErrDegenerateDistribution.
func (t *Table) Normalize() *Table {
	out := t.emptyLike(t.logSpace)
	size := t.Size()
	for row := 0; row < t.Rows(); row++ {
		src := t.flat[row*size : (row+1)*size]
		dst := out.flat[row*size : (row+1)*size]
		if t.logSpace {
			total := floats.LogSumExp(src)
			if math.IsInf(total, -1) || math.IsNaN(total) {
				throwf(ErrDegenerateDistribution, "row %d of %s has log-total %g", row, t, total)
			}
			for ii, v := range src {
				dst[ii] = v - total
			}
		} else {
			total := floats.Sum(src)
			if total == 0 || math.IsNaN(total) {
				throwf(ErrDegenerateDistribution, "row %d of %s has total %g", row, t, total)
			}
			for ii, v := range src {
				dst[ii] = v / total
			}
		}
	}
	return out
}
