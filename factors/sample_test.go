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
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/horizon-blue/neuralpp/types/tables"
	"github.com/horizon-blue/neuralpp/types/variables"
)

func TestSampleDistribution(t *testing.T) {
	const draws = 10000
	x, y, _ := newXYZ()
	rng := rand.New(rand.NewPCG(7, 11))

	for _, logSpace := range []bool{false, true} {
		for _, batchSize := range []int{noBatch, 4} {
			t.Run(matrixName(logSpace, batchSize), func(t *testing.T) {
				// Potential of each assignment is its own flat index, so
				// the normalized probabilities are index/sum(indices).
				vars := []*variables.Variable{x, y}
				strides := tables.StridesFor(variables.Cardinalities(vars))
				factor := fromRowFn(vars, func(row int, a []int) float64 {
					return float64(tables.FlatIndex(strides, a))
				}, logSpace, batchSize).Normalize()

				rows := 1
				if batchSize != noBatch {
					rows = batchSize
				}
				size := variables.NumAssignments(vars)
				counts := make([][]float64, rows)
				for row := range counts {
					counts[row] = make([]float64, size)
				}
				for n := 0; n < draws; n++ {
					sample := factor.Sample(rng)
					for row := 0; row < rows; row++ {
						flat := 0
						for ii, v := range vars {
							flat += sample[v][row] * strides[ii]
						}
						counts[row][flat]++
					}
				}

				total := float64(size*(size-1)) / 2
				for row := 0; row < rows; row++ {
					for flat := 0; flat < size; flat++ {
						p := float64(flat) / total
						stdErr := stat.StdErr(math.Sqrt(p*(1-p)), draws)
						require.InDelta(t, p, counts[row][flat]/draws, 10*stdErr+1e-9,
							"row %d assignment %d deviates from its probability", row, flat)
					}
				}
			})
		}
	}
}

func TestSampleRequiresVariablesInRange(t *testing.T) {
	x, y, _ := newXYZ()
	factor := FromFunction([]*variables.Variable{x, y}, func(a []int) float64 {
		return float64(3*a[0] + a[1])
	}, false).Normalize()

	for n := 0; n < 100; n++ {
		sample := factor.Sample(nil)
		require.Len(t, sample, 2)
		require.GreaterOrEqual(t, sample[x][0], 0)
		require.Less(t, sample[x][0], x.Cardinality())
		require.GreaterOrEqual(t, sample[y][0], 0)
		require.Less(t, sample[y][0], y.Cardinality())
		// The zero-potential assignment (0, 0) never comes up.
		require.False(t, sample[x][0] == 0 && sample[y][0] == 0)
	}
}
