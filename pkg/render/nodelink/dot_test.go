package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/causalorder/pkg/dag"
	"github.com/matzehuels/causalorder/pkg/knowledge"
)

func testGraph(t *testing.T) *dag.Graph {
	t.Helper()
	vars := append(dag.NewVariables("A", "B", "C"), dag.Variable{Name: "U", Kind: dag.Latent})
	g := dag.NewGraph(vars)
	if err := g.AddUndirected(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := g.AddDirected(1, 2); err != nil {
		t.Fatal(err)
	}
	if err := g.AddDirected(3, 2); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testGraph(t), Options{
		Title:   "test",
		Omitted: []knowledge.Edge{{From: 0, To: 2}},
	})

	for _, want := range []string{
		"digraph G {",
		`label="test";`,
		`"A" [label="A"];`,
		`"U" [label="U", style="rounded,filled,dashed"`,
		`"A" -> "B" [dir=none];`,
		`"B" -> "C";`,
		`"U" -> "C";`,
		`"A" -> "C" [style=dashed, color=red, constraint=false];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTEmpty(t *testing.T) {
	dot := ToDOT(dag.NewGraph(dag.NewVariables("X")), Options{})
	if strings.Contains(dot, "->") || strings.Contains(dot, "labelloc") {
		t.Errorf("unexpected edges or title:\n%s", dot)
	}
	if !strings.HasSuffix(dot, "}\n") {
		t.Errorf("DOT not closed:\n%s", dot)
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(testGraph(t), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	s := string(svg)
	if !strings.Contains(s, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `) {
		t.Errorf("root element not normalized: %.200s", s)
	}
	if !strings.Contains(s, ">A<") || !strings.Contains(s, ">U<") {
		t.Error("node labels missing from SVG")
	}
}

func TestRenderSVGInvalidDOT(t *testing.T) {
	if _, err := RenderSVG(context.Background(), "digraph {"); err == nil {
		t.Error("invalid DOT accepted")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="62pt" height="44pt" viewBox="0.00 0.00 62.00 44.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 62.00 44.00" width="62" height="44"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox =\n%s\nwant\n%s", got, want)
	}
	if plain := []byte("<svg><g/></svg>"); string(normalizeViewBox(plain)) != string(plain) {
		t.Error("SVG without viewBox changed")
	}
}
