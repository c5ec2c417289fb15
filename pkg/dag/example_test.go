package dag_test

import (
	"fmt"

	"github.com/matzehuels/causalorder/pkg/dag"
)

func ExampleGraph_basic() {
	// A collider: A → C ← B
	vars := dag.NewVariables("A", "B", "C")
	g := dag.NewGraph(vars)
	_ = g.AddDirected(0, 2)
	_ = g.AddDirected(1, 2)

	fmt.Println("Variables:", g.Len())
	fmt.Println("Edges:", g.EdgeCount())
	fmt.Print(g)
	// Output:
	// Variables: 3
	// Edges: 2
	// A --> C
	// B --> C
}

func ExampleFromParents() {
	// Parent sets for the chain A → B → C
	vars := dag.NewVariables("A", "B", "C")
	g, _ := dag.FromParents(vars, [][]int{nil, {0}, {1}})

	fmt.Println("Parents of C:", g.Parents(2))
	fmt.Println("Children of A:", g.Children(0))
	// Output:
	// Parents of C: [1]
	// Children of A: [1]
}

func ExampleGraph_DSeparated() {
	// Chain A → B → C: conditioning on B blocks the only path.
	vars := dag.NewVariables("A", "B", "C")
	g, _ := dag.FromParents(vars, [][]int{nil, {0}, {1}})

	fmt.Println("A ⊥ C:", g.DSeparated(0, 2, nil))
	fmt.Println("A ⊥ C | B:", g.DSeparated(0, 2, []int{1}))
	// Output:
	// A ⊥ C: false
	// A ⊥ C | B: true
}

func ExampleGraph_Orient() {
	vars := dag.NewVariables("A", "B")
	g := dag.NewGraph(vars)
	_ = g.AddUndirected(0, 1)
	fmt.Print(g)

	_ = g.Orient(1, 0)
	fmt.Print(g)
	// Output:
	// A --- B
	// B --> A
}
