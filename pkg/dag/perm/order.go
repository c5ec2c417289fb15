package perm

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
)

// ErrNotPermutation is returned when a sequence is not a permutation of
// [0, n), or when a rearrangement would stop an [Order] from being one.
var ErrNotPermutation = errors.New("not a permutation")

// Order is a total order over the variables 0..n-1 with O(1) lookup in both
// directions: At maps a position to its variable and Index maps a variable
// to its position.
//
// Every mutating method keeps the permutation invariant. Methods that could
// break it (Rearrange) verify their input and return ErrNotPermutation
// instead of applying a corrupt change.
//
// Order is not safe for concurrent mutation. Use Clone to branch.
type Order struct {
	vars []int
	pos  []int
}

// NewOrder creates an order from vars, which must be a permutation of [0, n).
// The slice is copied.
func NewOrder(vars []int) (*Order, error) {
	o := &Order{vars: slices.Clone(vars), pos: make([]int, len(vars))}
	for i := range o.pos {
		o.pos[i] = -1
	}
	for i, v := range o.vars {
		if v < 0 || v >= len(vars) || o.pos[v] != -1 {
			return nil, fmt.Errorf("%w: %v", ErrNotPermutation, vars)
		}
		o.pos[v] = i
	}
	return o, nil
}

// Identity returns the order 0, 1, ..., n-1.
func Identity(n int) *Order {
	seq := Seq(n)
	return &Order{vars: seq, pos: Seq(n)}
}

// Shuffled returns a uniformly random order of n variables drawn from rng.
func Shuffled(n int, rng *rand.Rand) *Order {
	o := Identity(n)
	o.Shuffle(rng)
	return o
}

// Len returns the number of variables.
func (o *Order) Len() int { return len(o.vars) }

// At returns the variable at position i.
func (o *Order) At(i int) int { return o.vars[i] }

// Index returns the position of variable v.
func (o *Order) Index(v int) int { return o.pos[v] }

// Before reports whether u precedes v.
func (o *Order) Before(u, v int) bool { return o.pos[u] < o.pos[v] }

// Vars returns a copy of the order as a variable sequence.
func (o *Order) Vars() []int { return slices.Clone(o.vars) }

// Prefix returns the variables at positions [0, i), in order.
func (o *Order) Prefix(i int) []int { return slices.Clone(o.vars[:i]) }

// Clone returns an independent copy.
func (o *Order) Clone() *Order {
	return &Order{vars: slices.Clone(o.vars), pos: slices.Clone(o.pos)}
}

// Swap exchanges the variables at positions i and j.
func (o *Order) Swap(i, j int) {
	o.vars[i], o.vars[j] = o.vars[j], o.vars[i]
	o.pos[o.vars[i]] = i
	o.pos[o.vars[j]] = j
}

// Move relocates the variable at position from to position to, shifting the
// variables in between by one.
func (o *Order) Move(from, to int) {
	v := o.vars[from]
	switch {
	case from < to:
		copy(o.vars[from:to], o.vars[from+1:to+1])
	case from > to:
		copy(o.vars[to+1:from+1], o.vars[to:from])
	default:
		return
	}
	o.vars[to] = v
	o.reindex(min(from, to), max(from, to))
}

// Rearrange overwrites positions [start, start+len(seg)) with seg. seg must
// hold exactly the variables currently in that window.
func (o *Order) Rearrange(start int, seg []int) error {
	end := start + len(seg)
	if start < 0 || end > len(o.vars) {
		return fmt.Errorf("%w: window [%d, %d) out of range", ErrNotPermutation, start, end)
	}
	for _, v := range seg {
		if v < 0 || v >= len(o.vars) || o.pos[v] < start || o.pos[v] >= end {
			return fmt.Errorf("%w: %d is not in window [%d, %d)", ErrNotPermutation, v, start, end)
		}
	}
	seen := make(map[int]bool, len(seg))
	for _, v := range seg {
		if seen[v] {
			return fmt.Errorf("%w: %d repeated", ErrNotPermutation, v)
		}
		seen[v] = true
	}
	copy(o.vars[start:end], seg)
	o.reindex(start, end-1)
	return nil
}

// Shuffle permutes the order uniformly at random using rng.
func (o *Order) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(o.vars), func(i, j int) { o.vars[i], o.vars[j] = o.vars[j], o.vars[i] })
	o.reindex(0, len(o.vars)-1)
}

func (o *Order) reindex(lo, hi int) {
	for i := lo; i <= hi; i++ {
		o.pos[o.vars[i]] = i
	}
}

// Validate checks that the order is a permutation of [0, n) and that the
// position index agrees with it.
func (o *Order) Validate() error {
	if len(o.vars) != len(o.pos) {
		return fmt.Errorf("%w: %d variables, %d positions", ErrNotPermutation, len(o.vars), len(o.pos))
	}
	seen := make([]bool, len(o.vars))
	for i, v := range o.vars {
		if v < 0 || v >= len(o.vars) || seen[v] {
			return fmt.Errorf("%w: %v", ErrNotPermutation, o.vars)
		}
		seen[v] = true
		if o.pos[v] != i {
			return fmt.Errorf("%w: position of %d is %d, want %d", ErrNotPermutation, v, o.pos[v], i)
		}
	}
	return nil
}

// Key returns a string uniquely identifying the order, suitable as a map key.
func (o *Order) Key() string {
	var b strings.Builder
	b.Grow(len(o.vars) * 3)
	for i, v := range o.vars {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// String implements fmt.Stringer.
func (o *Order) String() string { return "[" + o.Key() + "]" }
