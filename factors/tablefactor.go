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
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"

	"github.com/horizon-blue/neuralpp/types/tables"
	"github.com/horizon-blue/neuralpp/types/variables"
)

// TableFactor is a factor backed by a dense table with one potential per
// joint assignment of its variables. The variable order is significant: it
// defines the table's axis order and flat indexing.
//
// TableFactor is immutable and implements Factor.
type TableFactor struct {
	vars  []*variables.Variable
	table *tables.Table
}

// Compile-time check.
var _ Factor = (*TableFactor)(nil)

// New creates a TableFactor from an ordered variable sequence and a table
// whose domain dimensions must match the variables' cardinalities, in
// order. Variables must be distinct. The table is referenced, not copied —
// tables are immutable so sharing is safe.
func New(vars []*variables.Variable, table *tables.Table) *TableFactor {
	variables.CheckDistinct(vars)
	if !slices.Equal(table.Dims(), variables.Cardinalities(vars)) {
		exceptions.Panicf("factors.New: table dimensions %v don't match variable cardinalities %v",
			table.Dims(), variables.Cardinalities(vars))
	}
	return &TableFactor{vars: slices.Clone(vars), table: table}
}

// FromFunction creates an unbatched TableFactor by evaluating fn on every
// joint assignment of vars, in assignment order. fn returns the linear
// potential (>= 0); logSpace only selects the storage representation.
func FromFunction(vars []*variables.Variable, fn func(assignment []int) float64, logSpace bool) *TableFactor {
	variables.CheckDistinct(vars)
	table := tables.FromFunction(variables.Cardinalities(vars), fn, logSpace)
	return &TableFactor{vars: slices.Clone(vars), table: table}
}

// FromBatchFunction creates a batched TableFactor with batchSize rows by
// evaluating fn on every (row, assignment) pair. The batch row is an
// explicit first argument.
func FromBatchFunction(vars []*variables.Variable, fn func(row int, assignment []int) float64, logSpace bool, batchSize int) *TableFactor {
	variables.CheckDistinct(vars)
	table := tables.FromBatchFunction(variables.Cardinalities(vars), fn, logSpace, batchSize)
	return &TableFactor{vars: slices.Clone(vars), table: table}
}

// FromPredicate creates an unbatched TableFactor with potential 1 where the
// predicate holds and 0 elsewhere (stored as 0 and -Inf in log space).
func FromPredicate(vars []*variables.Variable, pred func(assignment []int) bool, logSpace bool) *TableFactor {
	return FromFunction(vars, func(assignment []int) float64 {
		if pred(assignment) {
			return 1
		}
		return 0
	}, logSpace)
}

// NewInstance creates a fresh independent factor over the given variables
// and table, of the same concrete kind as the receiver.
func (f *TableFactor) NewInstance(vars []*variables.Variable, table *tables.Table) Factor {
	return New(vars, table)
}

// Variables returns a copy of the factor's variables in table-index order.
func (f *TableFactor) Variables() []*variables.Variable {
	return slices.Clone(f.vars)
}

// Table returns the table backing the factor. Treat it as read-only.
func (f *TableFactor) Table() *tables.Table { return f.table }

// Assignments enumerates all joint assignments of the factor's variables in
// flat-index order, the last variable varying fastest. The yielded slice is
// owned by the iterator.
func (f *TableFactor) Assignments() iter.Seq[[]int] {
	return variables.Assignments(f.vars)
}

// Normalize returns the factor rescaled so potentials sum to 1 per batch
// row. It throws tables.ErrDegenerateDistribution if a row has zero total
// potential.
func (f *TableFactor) Normalize() Factor {
	return &TableFactor{vars: f.vars, table: f.table.Normalize()}
}

// Argmax returns for each variable the value it takes in the
// highest-potential assignment, one value per batch row. Ties resolve to
// the assignment with the smallest flat index: the smallest value of the
// earliest variable, then the next.
func (f *TableFactor) Argmax() map[*variables.Variable][]int {
	return f.valuesPerVariable(f.table.ArgmaxFlat())
}

// Sample draws one assignment per batch row from the factor's distribution
// and returns the per-variable values. The factor must already be
// normalized; Sample never normalizes silently. Pass a seeded rng for
// reproducible draws, or nil for the process-wide generator.
func (f *TableFactor) Sample(rng *rand.Rand) map[*variables.Variable][]int {
	return f.valuesPerVariable(f.table.Sample(rng))
}

// valuesPerVariable unravels one flat assignment index per row into
// per-variable value sequences.
func (f *TableFactor) valuesPerVariable(flats []int) map[*variables.Variable][]int {
	dims := f.table.Dims()
	values := make([][]int, len(f.vars))
	for ii := range values {
		values[ii] = make([]int, len(flats))
	}
	for row, flat := range flats {
		assignment := tables.Unravel(dims, flat)
		for ii := range f.vars {
			values[ii][row] = assignment[ii]
		}
	}
	out := make(map[*variables.Variable][]int, len(f.vars))
	for ii, v := range f.vars {
		out[v] = values[ii]
	}
	return out
}

// Potential returns the linear-space potential of one full assignment, one
// value per batch row. The assignment must give a value to every variable
// of the factor.
func (f *TableFactor) Potential(assignment map[*variables.Variable]int) []float64 {
	if len(assignment) != len(f.vars) {
		exceptions.Panicf("TableFactor.Potential: got %d values for %d variables, a full assignment is required",
			len(assignment), len(f.vars))
	}
	cond := make(Conditioning, len(assignment))
	for v, value := range assignment {
		cond[v] = Fixed(value)
	}
	conditioned := f.Condition(cond).(*TableFactor)
	return conditioned.table.Potentials()
}

// Equal reports whether other has the same variables (by identity, in the
// same order), the same numeric space and batch structure, and a
// numerically close table.
func (f *TableFactor) Equal(other Factor) bool {
	if other == nil || !f.sameVariables(other) {
		return false
	}
	return f.table.Equal(other.Table())
}

// EqualValues is like Equal but ignores the numeric space the tables are
// stored in, comparing potentials in linear space.
func (f *TableFactor) EqualValues(other Factor) bool {
	if other == nil || !f.sameVariables(other) {
		return false
	}
	return f.table.EqualValues(other.Table())
}

func (f *TableFactor) sameVariables(other Factor) bool {
	ovars := other.Variables()
	if len(ovars) != len(f.vars) {
		return false
	}
	for ii, v := range f.vars {
		if ovars[ii] != v {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (f *TableFactor) String() string {
	names := make([]string, len(f.vars))
	for ii, v := range f.vars {
		names[ii] = v.String()
	}
	return fmt.Sprintf("TableFactor(%s; %s)", strings.Join(names, ", "), f.table)
}
