package perm_test

import (
	"fmt"
	"math/rand/v2"

	"github.com/matzehuels/causalorder/pkg/dag/perm"
)

func ExampleSeq() {
	// Create a sequence [0, 1, 2, ..., n-1]
	seq := perm.Seq(5)
	fmt.Println(seq)
	// Output:
	// [0 1 2 3 4]
}

func ExampleOrder() {
	o, _ := perm.NewOrder([]int{3, 1, 0, 2})

	fmt.Println("At(0):", o.At(0))
	fmt.Println("Index(0):", o.Index(0))
	fmt.Println("Prefix(2):", o.Prefix(2))
	// Output:
	// At(0): 3
	// Index(0): 2
	// Prefix(2): [3 1]
}

func ExampleOrder_Move() {
	// Move the last variable to the front
	o := perm.Identity(4)
	o.Move(3, 0)
	fmt.Println(o)
	// Output:
	// [3,0,1,2]
}

func ExampleShuffled() {
	// Same seed, same stream, same order
	a := perm.Shuffled(6, rand.New(rand.NewPCG(42, 0)))
	b := perm.Shuffled(6, rand.New(rand.NewPCG(42, 0)))
	fmt.Println(a.Key() == b.Key())
	// Output:
	// true
}
