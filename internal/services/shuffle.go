package services

import "math/rand/v2"

// Shuffler produces uniformly random permutations (Fisher-Yates)
type Shuffler struct {
	intN func(n int) int
}

// NewShuffler returns a shuffler backed by the runtime's random source
func NewShuffler() *Shuffler {
	return &Shuffler{intN: rand.IntN}
}

// NewShufflerWithSource is used by tests to make permutations deterministic
func NewShufflerWithSource(intN func(n int) int) *Shuffler {
	return &Shuffler{intN: intN}
}

// Permutation returns a random ordering of the indices 0..n-1
func (s *Shuffler) Permutation(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := s.intN(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// Shuffle returns a shuffled copy; the input is left untouched
func Shuffle[T any](s *Shuffler, items []T) []T {
	out := make([]T, len(items))
	for i, idx := range s.Permutation(len(items)) {
		out[i] = items[idx]
	}
	return out
}

// applyOrder lays out options in presented order; an order that does not fit is ignored
func applyOrder(options []string, order []int) []string {
	if len(order) != len(options) {
		return options
	}
	out := make([]string, len(options))
	seen := make([]bool, len(options))
	for i, idx := range order {
		if idx < 0 || idx >= len(options) || seen[idx] {
			return options
		}
		seen[idx] = true
		out[i] = options[idx]
	}
	return out
}
