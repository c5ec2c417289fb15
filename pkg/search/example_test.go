package search_test

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalorder/pkg/dag"
	"github.com/matzehuels/causalorder/pkg/score"
	"github.com/matzehuels/causalorder/pkg/search"
)

func Example() {
	// A -> B -> D <- C <- A
	vars := dag.NewVariables("A", "B", "C", "D")
	truth, _ := dag.FromParents(vars, [][]int{nil, {0}, {0}, {1, 2}})
	oracle, _ := score.NewDSeparation(truth)

	s, err := search.New(vars,
		search.WithOracle(oracle),
		search.WithLogger(log.New(io.Discard)),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	if _, err := s.BestOrder(context.Background(), nil); err != nil {
		fmt.Println(err)
		return
	}

	g, _ := s.Graph(true)
	fmt.Println("score:", s.Result().Score)
	fmt.Print(g)
	// Output:
	// score: -4
	// A --- B
	// A --- C
	// B --> D
	// C --> D
}

func ExampleParseMode() {
	m, _ := search.ParseMode("first")
	fmt.Println(m)

	_, err := search.ParseMode("greedy")
	fmt.Println(err)
	// Output:
	// first
	// INVALID_CONFIG: invalid mode: "greedy" (must be one of: best, first)
}
