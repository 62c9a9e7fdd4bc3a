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

// Package tables implements the dense table of potentials that backs a
// discrete factor.
//
// A Table is a flat float64 buffer indexed in row-major order (last axis
// varying fastest) by the tuple of variable values, together with two flags:
//
//   - Numeric space: a table either stores potentials directly ("linear
//     space", all entries >= 0) or their natural logarithms ("log space",
//     entries may be negative or -Inf, the logarithm of a zero potential).
//     Operations combining two tables of different spaces are computed in
//     log space for numerical stability, and the result takes the space of
//     the left-hand (receiver) operand.
//
//   - Batching: a batched table carries an extra leading batch axis of
//     independent rows, one per parallel problem instance. The batch axis is
//     never part of the domain algebra: rows only ever align
//     index-for-index, they never broadcast against each other.
//
// Tables are immutable values after construction: every operation returns a
// new Table and never mutates its operands, so read-only sharing across
// goroutines is safe.
//
// Tables carry no variable semantics; the factors package pairs a Table with
// an ordered sequence of variables.
package tables

import (
	"fmt"
	"math"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"k8s.io/klog/v2"

	"github.com/horizon-blue/neuralpp/types/variables"
)

// Sentinel errors of the table layer. They are thrown as panics wrapped with
// context (see exceptions.TryCatch to convert them back to an error) and can
// be matched with errors.Is.
var (
	// ErrNegativePotential is thrown when a linear-space table is
	// constructed with a negative entry.
	ErrNegativePotential = errors.New("negative potential in non-log-space table")

	// ErrBatchSizeMismatch is thrown when two batched tables of differing
	// batch sizes are combined.
	ErrBatchSizeMismatch = errors.New("batch sizes do not match")

	// ErrDegenerateDistribution is thrown by Normalize when a row has zero
	// total potential.
	ErrDegenerateDistribution = errors.New("cannot normalize distribution with zero total potential")
)

// throwf panics with sentinel wrapped with a formatted message, preserving
// errors.Is matching for callers that recover with exceptions.TryCatch.
func throwf(sentinel error, format string, args ...any) {
	panic(errors.Wrapf(sentinel, format, args...))
}

// Table is a dense multi-dimensional array of potentials. See the package
// documentation for the numeric-space and batching semantics.
//
// A Table is immutable after construction.
type Table struct {
	flat    []float64
	dims    []int
	strides []int

	logSpace  bool
	batched   bool
	batchSize int
}

// New creates an unbatched Table with the given domain dimensions from the
// flat buffer, which must have exactly prod(dims) entries in row-major order
// (last axis fastest). The buffer is copied.
//
// If logSpace is false the entries are potentials and must be >= 0,
// otherwise ErrNegativePotential is thrown.
func New(dims []int, flat []float64, logSpace bool) *Table {
	t := newTable(dims, logSpace, false, 0)
	if len(flat) != t.Size() {
		exceptions.Panicf("tables.New: buffer has %d entries, dimensions %v require %d", len(flat), dims, t.Size())
	}
	t.flat = slices.Clone(flat)
	t.checkPotentials()
	return t
}

// NewBatched creates a batched Table with batchSize rows, each a dense array
// with the given domain dimensions. The flat buffer holds the rows
// back-to-back and must have batchSize*prod(dims) entries; it is copied.
// A batchSize of 0 is valid and yields a table with no rows.
func NewBatched(dims []int, flat []float64, logSpace bool, batchSize int) *Table {
	if batchSize < 0 {
		exceptions.Panicf("tables.NewBatched: batchSize must be >= 0, got %d", batchSize)
	}
	t := newTable(dims, logSpace, true, batchSize)
	if len(flat) != batchSize*t.Size() {
		exceptions.Panicf("tables.NewBatched: buffer has %d entries, batch size %d with dimensions %v requires %d",
			len(flat), batchSize, dims, batchSize*t.Size())
	}
	t.flat = slices.Clone(flat)
	t.checkPotentials()
	return t
}

// FromFunction creates an unbatched Table by evaluating fn on every index
// tuple of dims, in row-major order. fn always returns a linear-space
// potential (>= 0, else ErrNegativePotential); logSpace only selects the
// storage representation, with the log taken on construction.
func FromFunction(dims []int, fn func(indices []int) float64, logSpace bool) *Table {
	t := newTable(dims, logSpace, false, 0)
	t.flat = make([]float64, t.Size())
	pos := 0
	for indices := range variables.IterIndices(dims) {
		t.flat[pos] = fn(indices)
		pos++
	}
	t.fillFromPotentials()
	return t
}

// FromBatchFunction creates a batched Table by evaluating fn on every
// (row, index tuple) pair. The batch row is an explicit first argument so
// that each parallel instance can fill a different table. As with
// FromFunction, fn returns linear-space potentials regardless of logSpace.
func FromBatchFunction(dims []int, fn func(row int, indices []int) float64, logSpace bool, batchSize int) *Table {
	if batchSize < 0 {
		exceptions.Panicf("tables.FromBatchFunction: batchSize must be >= 0, got %d", batchSize)
	}
	t := newTable(dims, logSpace, true, batchSize)
	t.flat = make([]float64, batchSize*t.Size())
	if klog.V(2).Enabled() {
		klog.Infof("tables.FromBatchFunction: filling %s", t)
	}
	pos := 0
	for row := 0; row < batchSize; row++ {
		for indices := range variables.IterIndices(dims) {
			t.flat[pos] = fn(row, indices)
			pos++
		}
	}
	t.fillFromPotentials()
	return t
}

// TryNew is a version of New that returns contract violations as an error
// instead of panicking.
func TryNew(dims []int, flat []float64, logSpace bool) (t *Table, err error) {
	err = exceptions.TryCatch[error](func() {
		t = New(dims, flat, logSpace)
	})
	return
}

// newTable allocates the Table structure without a buffer.
func newTable(dims []int, logSpace, batched bool, batchSize int) *Table {
	for axis, dim := range dims {
		if dim < 1 {
			exceptions.Panicf("tables: axis %d has dimension %d, must be at least 1", axis, dim)
		}
	}
	return &Table{
		dims:      slices.Clone(dims),
		strides:   StridesFor(dims),
		logSpace:  logSpace,
		batched:   batched,
		batchSize: batchSize,
	}
}

// checkPotentials throws ErrNegativePotential if a linear-space buffer has a
// negative entry.
func (t *Table) checkPotentials() {
	if t.logSpace {
		return
	}
	for ii, v := range t.flat {
		if v < 0 {
			throwf(ErrNegativePotential, "entry %d of %s is %g", ii, t, v)
		}
	}
}

// fillFromPotentials validates a buffer of linear potentials and, for
// log-space tables, replaces it with the element-wise log. Zero potentials
// become -Inf.
func (t *Table) fillFromPotentials() {
	for ii, v := range t.flat {
		if v < 0 {
			throwf(ErrNegativePotential, "entry %d of %s is %g", ii, t, v)
		}
		if t.logSpace {
			t.flat[ii] = math.Log(v)
		}
	}
}

// Dims returns a copy of the domain dimensions (the variable cardinalities,
// excluding any batch axis).
func (t *Table) Dims() []int { return slices.Clone(t.dims) }

// Rank returns the number of domain axes (0 for a scalar table).
func (t *Table) Rank() int { return len(t.dims) }

// Size returns the number of entries of one row: the product of the domain
// dimensions. A scalar table has size 1.
func (t *Table) Size() int {
	size := 1
	for _, dim := range t.dims {
		size *= dim
	}
	return size
}

// IsLogSpace reports whether entries are stored as log potentials.
func (t *Table) IsLogSpace() bool { return t.logSpace }

// IsBatched reports whether the table carries a leading batch axis.
func (t *Table) IsBatched() bool { return t.batched }

// BatchSize returns the number of batch rows. It panics for unbatched
// tables; use Rows for a uniform row count.
func (t *Table) BatchSize() int {
	if !t.batched {
		exceptions.Panicf("Table.BatchSize: table %s is not batched", t)
	}
	return t.batchSize
}

// Rows returns the number of independent rows: the batch size if batched,
// else 1.
func (t *Table) Rows() int {
	if t.batched {
		return t.batchSize
	}
	return 1
}

// Strides returns a copy of the row-major strides of the domain axes.
func (t *Table) Strides() []int { return slices.Clone(t.strides) }

// At returns the stored entry (in the table's native numeric space) at the
// given index tuple of the given batch row. For unbatched tables row must
// be 0.
func (t *Table) At(row int, indices ...int) float64 {
	checkIndices(t.dims, indices)
	return t.AtFlat(row, FlatIndex(t.strides, indices))
}

// AtFlat returns the stored entry at the given flat offset of the given
// batch row. For unbatched tables row must be 0.
func (t *Table) AtFlat(row, flat int) float64 {
	if row < 0 || row >= t.Rows() {
		exceptions.Panicf("Table.AtFlat: row %d out-of-bounds for %s", row, t)
	}
	if flat < 0 || flat >= t.Size() {
		exceptions.Panicf("Table.AtFlat: flat index %d out-of-bounds for %s", flat, t)
	}
	return t.flat[row*t.Size()+flat]
}

// Flat returns the raw backing buffer in the table's native numeric space.
// It is a view, not a copy: treat it as read-only.
func (t *Table) Flat() []float64 { return t.flat }

// Row returns the raw entries of one batch row, a read-only view.
func (t *Table) Row(row int) []float64 {
	if row < 0 || row >= t.Rows() {
		exceptions.Panicf("Table.Row: row %d out-of-bounds for %s", row, t)
	}
	size := t.Size()
	return t.flat[row*size : (row+1)*size]
}

// Potentials returns a copy of all entries converted to linear space
// (exponentiated if the table stores logs). The stored representation is
// never mutated.
func (t *Table) Potentials() []float64 {
	out := slices.Clone(t.flat)
	if t.logSpace {
		for ii, v := range out {
			out[ii] = math.Exp(v)
		}
	}
	return out
}

// ArgmaxFlat returns, for each row, the flat index of the maximum entry.
// Ties resolve to the smallest flat index. The comparison is
// space-independent since log is monotonic.
func (t *Table) ArgmaxFlat() []int {
	size := t.Size()
	out := make([]int, t.Rows())
	for row := range out {
		out[row] = maxIndex(t.flat[row*size : (row+1)*size])
	}
	return out
}

// maxIndex returns the index of the largest element, the first one on ties.
func maxIndex[T constraints.Ordered](xs []T) int {
	best := 0
	for ii := 1; ii < len(xs); ii++ {
		if xs[ii] > xs[best] {
			best = ii
		}
	}
	return best
}

// equalTolerance is the absolute linear-space tolerance used by Equal and
// EqualValues.
const equalTolerance = 1e-6

// Equal reports whether the two tables have the same dimensions, the same
// numeric space and batch structure, and numerically close entries.
func (t *Table) Equal(other *Table) bool {
	if t.logSpace != other.logSpace {
		return false
	}
	return t.EqualValues(other)
}

// EqualValues reports whether the two tables represent numerically close
// potentials over the same dimensions and batch structure, regardless of
// the numeric space they are stored in. Comparison happens in linear space
// within an absolute tolerance.
func (t *Table) EqualValues(other *Table) bool {
	if other == nil {
		return false
	}
	if t.batched != other.batched || t.Rows() != other.Rows() {
		return false
	}
	if !slices.Equal(t.dims, other.dims) {
		return false
	}
	for ii := range t.flat {
		a := linearValue(t.flat[ii], t.logSpace)
		b := linearValue(other.flat[ii], other.logSpace)
		if math.Abs(a-b) > equalTolerance {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (t *Table) String() string {
	space := "linear"
	if t.logSpace {
		space = "log"
	}
	if t.batched {
		return fmt.Sprintf("Table[batch=%d]%v{%s entries, %s-space}",
			t.batchSize, t.dims, humanize.Comma(int64(len(t.flat))), space)
	}
	return fmt.Sprintf("Table%v{%s entries, %s-space}",
		t.dims, humanize.Comma(int64(len(t.flat))), space)
}
