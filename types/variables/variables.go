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

// Package variables defines discrete random variables and the enumeration of
// their joint assignments.
//
// A Variable has a name (diagnostic only) and a cardinality: its domain is
// the finite set {0, ..., cardinality-1}. Variables compare by identity, not
// by name: two variables created with the same name and cardinality are
// distinct, and a factor mentioning one does not mention the other. Factors
// hold *Variable pointers and a single variable is typically shared across
// many factors.
//
// ## Glossary
//
//   - Cardinality: the size of a variable's domain.
//   - Assignment: a tuple assigning one domain value to each variable of an
//     ordered sequence.
//   - Assignment order: assignments are enumerated in row-major order with
//     the LAST variable varying fastest, so the flat index of an assignment
//     is the usual strided dot-product. Every enumeration-dependent
//     operation in this module (argmax tie-breaking, sample unraveling,
//     equality of tables) assumes this order.
package variables

import (
	"fmt"
	"iter"

	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
)

// Variable is a discrete random variable with domain {0, ..., cardinality-1}.
//
// Variables are immutable and compare by identity: always share the
// *Variable pointer, never re-create one from its name.
type Variable struct {
	name        string
	cardinality int
	id          string
}

// New creates a Variable with the given name and cardinality.
// The name is used for diagnostics only; identity is the returned pointer.
// It panics if cardinality < 1.
func New(name string, cardinality int) *Variable {
	if cardinality < 1 {
		exceptions.Panicf("variables.New(%q, %d): cardinality must be at least 1", name, cardinality)
	}
	return &Variable{
		name:        name,
		cardinality: cardinality,
		id:          uuid.NewString(),
	}
}

// Name returns the diagnostic name of the variable.
func (v *Variable) Name() string { return v.name }

// Cardinality returns the size of the variable's domain.
func (v *Variable) Cardinality() int { return v.cardinality }

// ID returns a unique id assigned to this variable at creation.
// Two variables never share an id, even if they share a name.
func (v *Variable) ID() string { return v.id }

// String implements fmt.Stringer.
func (v *Variable) String() string {
	return fmt.Sprintf("%s/%d", v.name, v.cardinality)
}

// Cardinalities returns the cardinality of each variable, in order.
func Cardinalities(vars []*Variable) []int {
	cards := make([]int, len(vars))
	for ii, v := range vars {
		cards[ii] = v.Cardinality()
	}
	return cards
}

// CheckDistinct panics if vars contains the same variable (by identity)
// more than once. A nil entry is also a contract violation.
func CheckDistinct(vars []*Variable) {
	seen := make(map[*Variable]bool, len(vars))
	for ii, v := range vars {
		if v == nil {
			exceptions.Panicf("variables.CheckDistinct: variable #%d is nil", ii)
		}
		if seen[v] {
			exceptions.Panicf("variables.CheckDistinct: variable %s (id=%s) appears more than once", v, v.ID())
		}
		seen[v] = true
	}
}

// NumAssignments returns the number of joint assignments of vars, the
// product of their cardinalities. An empty sequence has exactly one (empty)
// assignment.
func NumAssignments(vars []*Variable) int {
	total := 1
	for _, v := range vars {
		total *= v.Cardinality()
	}
	return total
}

// Assignments iterates over all joint assignments of vars in row-major
// order, the last variable varying fastest. The sequence is lazy, finite and
// restartable.
//
// To avoid allocating a slice per assignment, the yielded slice is owned by
// the iterator: don't change or retain it inside the loop.
func Assignments(vars []*Variable) iter.Seq[[]int] {
	return IterIndices(Cardinalities(vars))
}

// IterIndices iterates over all index tuples of a dense array with the given
// dimensions, in row-major order with the last axis varying fastest. A
// zero-length dims yields a single empty tuple (the scalar case).
//
// The yielded slice is owned by the iterator: don't change it inside the loop.
func IterIndices(dims []int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		rank := len(dims)
		if rank == 0 {
			_ = yield(make([]int, 0))
			return
		}
		for _, dim := range dims {
			if dim <= 0 {
				return
			}
		}

		current := make([]int, rank)
		// An n-dimensional counter: increment the last axis and carry over.
		for {
			if !yield(current) {
				return
			}
			axis := rank - 1
			for ; axis >= 0; axis-- {
				if dims[axis] == 1 {
					continue
				}
				current[axis]++
				if current[axis] < dims[axis] {
					break
				}
				current[axis] = 0
			}
			if axis < 0 {
				return
			}
		}
	}
}
