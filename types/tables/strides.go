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
	"github.com/gomlx/exceptions"
)

// StridesFor returns the row-major strides of a dense array with the given
// dimensions: the last axis has stride 1 and earlier axes vary slower.
// Scalar (empty) dims return an empty strides slice.
func StridesFor(dims []int) []int {
	strides := make([]int, len(dims))
	stride := 1
	for axis := len(dims) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= dims[axis]
	}
	return strides
}

// FlatIndex returns the flat offset of the given index tuple under the given
// strides: the dot-product of indices and strides. It panics if the number
// of indices differs from the rank.
func FlatIndex(strides, indices []int) int {
	if len(indices) != len(strides) {
		exceptions.Panicf("tables.FlatIndex: got %d indices for rank %d", len(indices), len(strides))
	}
	flat := 0
	for axis, idx := range indices {
		flat += idx * strides[axis]
	}
	return flat
}

// Unravel converts a flat offset back to an index tuple for the given
// dimensions, inverting FlatIndex. It panics if flat is out-of-bounds.
func Unravel(dims []int, flat int) []int {
	indices := make([]int, len(dims))
	for axis := len(dims) - 1; axis >= 0; axis-- {
		indices[axis] = flat % dims[axis]
		flat /= dims[axis]
	}
	if flat != 0 {
		exceptions.Panicf("tables.Unravel: flat index out-of-bounds for dimensions %v", dims)
	}
	return indices
}

// checkIndices panics if any index is out of the bounds set by dims.
func checkIndices(dims, indices []int) {
	if len(indices) != len(dims) {
		exceptions.Panicf("tables: got %d indices for rank %d", len(indices), len(dims))
	}
	for axis, idx := range indices {
		if idx < 0 || idx >= dims[axis] {
			exceptions.Panicf("tables: index %d out-of-bounds for axis %d with dimension %d", idx, axis, dims[axis])
		}
	}
}
