// Package sample implements the two generation strategies over a parameter
// space: exhaustive cross-product enumeration and seeded independent random
// draws. Both are pure functions of their inputs plus the supplied random
// stream; neither touches process-wide random state.
package sample

import (
	"math/rand"

	"promptlab/domain/core"
	"promptlab/domain/space"
)

// Enumerate produces every combination of one value per parameter, in
// odometer order: the last declared parameter varies fastest. The result
// has exactly space.Cardinality() bindings and is deterministic.
func Enumerate(sp space.ParameterSpace) []space.Binding {
	n := sp.Len()
	total := sp.Cardinality()
	out := make([]space.Binding, 0, total)

	indices := make([]int, n)
	for {
		binding := make(space.Binding, n)
		for i := 0; i < n; i++ {
			p := sp.At(i)
			binding[i] = space.Bound{Name: p.Name, Value: p.Candidates[indices[i]]}
		}
		out = append(out, binding)

		// Advance the odometer, last parameter fastest.
		pos := n - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(sp.At(pos).Candidates) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}
	return out
}

// Draw produces exactly count bindings, each choosing one candidate
// uniformly at random per parameter, with replacement across draws and
// across parameters. The stream is consumed in a fixed order (outer loop
// over draws, inner loop over parameters in declared order) so that the
// same seed reproduces bit-identical bindings.
func Draw(sp space.ParameterSpace, count int, rng *rand.Rand) ([]space.Binding, error) {
	if count < 0 {
		return nil, core.NewSampleSizeError(count)
	}
	out := make([]space.Binding, 0, count)
	for draw := 0; draw < count; draw++ {
		out = append(out, DrawOne(sp, rng))
	}
	return out, nil
}

// DrawOne produces a single random binding, consuming one uniform choice per
// parameter in declared order.
func DrawOne(sp space.ParameterSpace, rng *rand.Rand) space.Binding {
	n := sp.Len()
	binding := make(space.Binding, n)
	for i := 0; i < n; i++ {
		p := sp.At(i)
		binding[i] = space.Bound{Name: p.Name, Value: p.Candidates[rng.Intn(len(p.Candidates))]}
	}
	return binding
}
