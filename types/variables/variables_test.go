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

package variables

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	x := New("x", 3)
	require.Equal(t, "x", x.Name())
	require.Equal(t, 3, x.Cardinality())
	require.NotEmpty(t, x.ID())

	require.Panics(t, func() { New("bad", 0) })
	require.Panics(t, func() { New("bad", -1) })
}

func TestIdentity(t *testing.T) {
	x1 := New("x", 3)
	x2 := New("x", 3)
	require.NotSame(t, x1, x2)
	require.NotEqual(t, x1.ID(), x2.ID())

	// Same pointer is the same variable.
	vars := []*Variable{x1, x2}
	require.NotPanics(t, func() { CheckDistinct(vars) })
	require.Panics(t, func() { CheckDistinct([]*Variable{x1, x2, x1}) })
	require.Panics(t, func() { CheckDistinct([]*Variable{x1, nil}) })
}

func TestCardinalities(t *testing.T) {
	x, y := New("x", 3), New("y", 2)
	require.Equal(t, []int{3, 2}, Cardinalities([]*Variable{x, y}))
	require.Equal(t, 6, NumAssignments([]*Variable{x, y}))
	require.Equal(t, 1, NumAssignments(nil))
}

func TestAssignmentsOrder(t *testing.T) {
	x, y := New("x", 3), New("y", 2)
	var got [][]int
	for assignment := range Assignments([]*Variable{x, y}) {
		got = append(got, append([]int{}, assignment...))
	}
	want := [][]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {2, 0}, {2, 1}}
	require.Equal(t, want, got)
}

func TestAssignmentsRestartable(t *testing.T) {
	vars := []*Variable{New("a", 2), New("b", 2)}
	seq := Assignments(vars)
	count := func() (n int) {
		for range seq {
			n++
		}
		return
	}
	require.Equal(t, 4, count())
	require.Equal(t, 4, count())
}

func TestAssignmentsScalar(t *testing.T) {
	var got [][]int
	for assignment := range Assignments(nil) {
		got = append(got, append([]int{}, assignment...))
	}
	require.Len(t, got, 1)
	require.Empty(t, got[0])
}

func TestAssignmentsEarlyStop(t *testing.T) {
	vars := []*Variable{New("a", 3), New("b", 3)}
	n := 0
	for range Assignments(vars) {
		n++
		if n == 4 {
			break
		}
	}
	require.Equal(t, 4, n)
}

func TestIterIndices(t *testing.T) {
	var got [][]int
	for indices := range IterIndices([]int{2, 1, 2}) {
		got = append(got, append([]int{}, indices...))
	}
	want := [][]int{{0, 0, 0}, {0, 0, 1}, {1, 0, 0}, {1, 0, 1}}
	require.Equal(t, want, got)
}
