// Package perm provides variable orderings and permutation utilities for the
// order-based search.
//
// [Order] is the ordering a search state is built on. [Seq] builds the
// identity sequence it starts from.
package perm

// Seq returns a slice containing the sequence [0, 1, 2, ..., n-1].
// This is useful for initializing permutation arrays or creating index sequences.
//
// For n <= 0, Seq returns an empty slice.
func Seq(n int) []int {
	result := make([]int, n)
	for i := range result {
		result[i] = i
	}
	return result
}
