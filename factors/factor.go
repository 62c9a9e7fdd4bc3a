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

// Package factors implements discrete factors: functions from joint
// assignments of an ordered tuple of variables to non-negative potentials,
// together with the algebra needed for exact inference — conditioning,
// multiplication, normalization, argmax and sampling.
//
// The concrete implementation is TableFactor, which pairs an ordered
// sequence of *variables.Variable with a dense tables.Table holding one
// potential per joint assignment. Factors are immutable: every operation
// returns a new, fully independent factor.
//
// ## Batching
//
// A factor may be batched, carrying one independent table per batch row:
// many parallel problem instances evaluated in lockstep. The batch axis is
// never part of the factor algebra — multiplying two batched factors
// combines row i with row i only, and conditioning with BatchCoordinates
// fixes a variable to a possibly different value per row. See the tables
// package for the underlying numeric rules.
//
// ## Errors
//
// Contract violations are thrown as panics in the style of the rest of the
// module (see github.com/gomlx/exceptions): either generic ones built with
// exceptions.Panicf, or one of the named sentinels below (and those of the
// tables package) wrapped with context, catchable with
// exceptions.TryCatch[error] and matchable with errors.Is.
package factors

import (
	"iter"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/horizon-blue/neuralpp/types/tables"
	"github.com/horizon-blue/neuralpp/types/variables"
)

// Sentinel errors of the factor layer. See also the tables package
// sentinels, notably tables.ErrBatchSizeMismatch.
var (
	// ErrUnknownVariable is thrown when an operation references a variable
	// that is not part of the factor.
	ErrUnknownVariable = errors.New("variable is not part of the factor")

	// ErrBatchCoordinatesDoNotAgree is thrown by Condition when two batch
	// coordinate sequences have different lengths, or their length
	// disagrees with the factor's existing batch size.
	ErrBatchCoordinatesDoNotAgree = errors.New("batch coordinates do not agree")
)

// throwf panics with sentinel wrapped with a formatted message.
func throwf(sentinel error, format string, args ...any) {
	panic(errors.Wrapf(sentinel, format, args...))
}

// Factor is the contract of a discrete factor: a function from joint
// assignments of Variables() to non-negative potentials. All operations
// return new factors and never mutate their receiver.
//
// Argmax and Sample return one value per batch row for each variable (a
// single-element slice for unbatched factors).
type Factor interface {
	// Variables returns the factor's variables in table-index order.
	Variables() []*variables.Variable

	// Table returns the dense table of potentials backing the factor.
	Table() *tables.Table

	// Condition fixes some of the factor's variables, returning a factor
	// over the remaining free ones. See Conditioning.
	Condition(cond Conditioning) Factor

	// Multiply returns the factor product. Shared variables combine
	// index-wise, the rest by outer product.
	Multiply(other Factor) Factor

	// Normalize rescales so potentials sum to 1 per batch row.
	Normalize() Factor

	// Argmax returns the assignment maximizing the potential, per row.
	Argmax() map[*variables.Variable][]int

	// Sample draws one assignment per row from a normalized factor.
	Sample(rng *rand.Rand) map[*variables.Variable][]int

	// Assignments enumerates all joint assignments in flat-index order.
	Assignments() iter.Seq[[]int]

	// Equal reports structural equality: same variables in the same order,
	// same numeric space and batch structure, numerically close tables.
	Equal(other Factor) bool
}

// Provider produces a factor dynamically for given inputs — typically the
// output distribution of a learned model (e.g. a neural network) evaluated
// on the input assignment. The engine depends only on this capability, not
// on any particular model representation.
type Provider interface {
	FactorAt(inputs map[*variables.Variable]int) Factor
}
