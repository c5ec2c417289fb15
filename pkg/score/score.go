// Package score defines the collaborators a search consumes: a local score
// for a variable given a parent set, and a conditional independence oracle.
//
// Both must be deterministic for fixed inputs and safe for concurrent use,
// because restarts evaluate them in parallel. Implementations are free to be
// expensive; the search memoizes every call through the cache package.
//
// [Func] and [OracleFunc] adapt plain functions. [DSeparation] is an oracle
// that answers from a known graph, which is how ground-truth graphs are
// turned back into their equivalence class.
package score

// LocalScorer scores a variable given a candidate parent set. Higher is
// better. parents is sorted ascending and must not be retained or modified.
type LocalScorer interface {
	LocalScore(v int, parents []int) (float64, error)
}

// IndependenceOracle decides whether x and y are independent given z.
// It reports the verdict together with a p-value (or any strength measure
// where larger means "more independent"). z is sorted ascending and must
// not be retained or modified.
type IndependenceOracle interface {
	Independent(x, y int, z []int) (bool, float64, error)
}

// Func adapts a function to [LocalScorer].
type Func func(v int, parents []int) (float64, error)

// LocalScore calls f.
func (f Func) LocalScore(v int, parents []int) (float64, error) { return f(v, parents) }

// OracleFunc adapts a function to [IndependenceOracle].
type OracleFunc func(x, y int, z []int) (bool, float64, error)

// Independent calls f.
func (f OracleFunc) Independent(x, y int, z []int) (bool, float64, error) { return f(x, y, z) }
