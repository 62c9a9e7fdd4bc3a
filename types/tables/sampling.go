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
	"math/rand/v2"
)

// Sample draws, for each row, one flat assignment index from the categorical
// distribution defined by the row's entries, and returns one index per row
// (a single-element slice for unbatched tables).
//
// The table must already be normalized (see Normalize); Sample never
// normalizes silently. Linear-space rows are sampled by inverting the
// cumulative distribution against one uniform draw; log-space rows use the
// Gumbel-max trick directly on the stored log potentials, so the
// exponentiated table is never materialized.
//
// If rng is nil the process-wide generator is used. Pass a seeded
// rand.Rand for reproducible draws.
func (t *Table) Sample(rng *rand.Rand) []int {
	size := t.Size()
	out := make([]int, t.Rows())
	for row := range out {
		entries := t.flat[row*size : (row+1)*size]
		if t.logSpace {
			out[row] = sampleLog(entries, rng)
		} else {
			out[row] = sampleLinear(entries, rng)
		}
	}
	return out
}

func uniform(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.Float64()
	}
	return rng.Float64()
}

// sampleLinear inverts the cumulative distribution of a normalized row
// against one uniform draw.
func sampleLinear(probs []float64, rng *rand.Rand) int {
	u := uniform(rng)
	acc := 0.0
	last := -1 // Last index with positive mass.
	for ii, p := range probs {
		if p <= 0 {
			continue
		}
		last = ii
		acc += p
		if u < acc {
			return ii
		}
	}
	if last < 0 {
		throwf(ErrDegenerateDistribution, "sampling a row with no positive mass")
	}
	// Rounding left acc slightly below 1: charge the residual to the last
	// positive entry.
	return last
}

// sampleLog perturbs each log potential with independent Gumbel noise and
// takes the argmax, which is distributed as the categorical defined by the
// (implicit) exponentiated row.
func sampleLog(logProbs []float64, rng *rand.Rand) int {
	best := -1
	bestScore := math.Inf(-1)
	for ii, lp := range logProbs {
		if math.IsInf(lp, -1) {
			continue
		}
		score := lp - math.Log(-math.Log(uniform(rng)))
		if best < 0 || score > bestScore {
			best = ii
			bestScore = score
		}
	}
	if best < 0 {
		throwf(ErrDegenerateDistribution, "sampling a row with no positive mass")
	}
	return best
}
