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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/horizon-blue/neuralpp/types/variables"
)

// conditioningProvider stands in for a learned model: it produces the base
// factor conditioned on the given inputs. Real providers would evaluate a
// network instead.
type conditioningProvider struct {
	base Factor
}

func (p conditioningProvider) FactorAt(inputs map[*variables.Variable]int) Factor {
	cond := make(Conditioning, len(inputs))
	for v, value := range inputs {
		cond[v] = Fixed(value)
	}
	return p.base.Condition(cond)
}

func TestProvider(t *testing.T) {
	x, y, _ := newXYZ()
	base := FromFunction([]*variables.Variable{x, y}, func(a []int) float64 {
		return float64(3*a[0] + a[1])
	}, false)

	var provider Provider = conditioningProvider{base: base}
	got := provider.FactorAt(map[*variables.Variable]int{x: 1})

	want := FromFunction([]*variables.Variable{y}, func(a []int) float64 {
		return float64(3 + a[0])
	}, false)
	require.True(t, want.Equal(got))

	// Provided factors participate in the algebra like any other factor.
	product := base.Multiply(got)
	require.Equal(t, []*variables.Variable{x, y}, product.Variables())
}
