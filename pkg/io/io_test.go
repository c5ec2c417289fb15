package io

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/causalorder/pkg/dag"
	"github.com/matzehuels/causalorder/pkg/errors"
	"github.com/matzehuels/causalorder/pkg/search"
)

const diamondProblem = `
name = "diamond"

[[variables]]
name = "A"
[[variables]]
name = "B"
[[variables]]
name = "U"
latent = true
[[variables]]
name = "C"
[[variables]]
name = "D"

[[edges]]
from = "A"
to = "B"
[[edges]]
from = "A"
to = "C"
[[edges]]
from = "B"
to = "D"
[[edges]]
from = "C"
to = "D"
[[edges]]
from = "U"
to = "D"

[knowledge]
forbidden = [{ from = "D", to = "A" }]
required = [{ from = "A", to = "B" }]
tiers = [["A"], ["B", "C"], ["D"]]
forbid_within_tier = [1]

[search]
depth = 2
num_starts = 4
mode = "first"
timeout_ms = 250
initial_order = ["D", "C", "B", "A"]
`

func TestReadProblem(t *testing.T) {
	p, err := ReadProblem(strings.NewReader(diamondProblem))
	if err != nil {
		t.Fatalf("ReadProblem: %v", err)
	}

	if p.Name != "diamond" {
		t.Errorf("Name = %q", p.Name)
	}
	if got := dag.Names(p.Observed()); !slices.Equal(got, []string{"A", "B", "C", "D"}) {
		t.Errorf("Observed = %v", got)
	}
	if p.Truth.Len() != 5 || p.Truth.EdgeCount() != 5 {
		t.Errorf("truth has %d variables and %d edges, want 5 and 5", p.Truth.Len(), p.Truth.EdgeCount())
	}
	if !p.Truth.Variable(2).IsLatent() {
		t.Error("U is not latent")
	}

	k := p.Knowledge
	if !k.IsExplicitlyForbidden(3, 0) || !k.IsRequired(0, 1) {
		t.Error("edge knowledge not indexed over observed variables")
	}
	if !k.IsForbidden(1, 2) || !k.IsForbidden(3, 1) || k.IsForbidden(0, 3) {
		t.Error("tier knowledge wrong")
	}

	o := p.Options
	if o.Depth != 2 || o.NumStarts != 4 || o.Mode != search.FirstImprovement {
		t.Errorf("options = %+v", o)
	}
	if o.Timeout != 250*time.Millisecond {
		t.Errorf("Timeout = %s", o.Timeout)
	}
	if o.UncoveredDepth != search.DefaultUncoveredDepth || o.Seed != search.DefaultSeed || !o.CacheScores {
		t.Errorf("defaults lost: %+v", o)
	}
	if !slices.Equal(p.InitialOrder, []int{3, 2, 1, 0}) {
		t.Errorf("InitialOrder = %v", p.InitialOrder)
	}
}

func TestReadProblemMinimal(t *testing.T) {
	p, err := ReadProblem(strings.NewReader("[[variables]]\nname = \"X\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Knowledge != nil || p.InitialOrder != nil || p.Truth.EdgeCount() != 0 {
		t.Errorf("minimal problem = %+v", p)
	}
	if p.Options.Depth != search.DefaultDepth {
		t.Errorf("Depth = %d, want the default", p.Options.Depth)
	}
}

func TestReadProblemErrors(t *testing.T) {
	vars := "[[variables]]\nname = \"A\"\n[[variables]]\nname = \"B\"\n[[variables]]\nname = \"L\"\nlatent = true\n"

	tests := []struct {
		name string
		body string
		code errors.Code
	}{
		{"malformed", "variables = [", errors.ErrCodeInvalidFormat},
		{"unknown key", vars + "colour = \"red\"\n", errors.ErrCodeInvalidFormat},
		{"unknown search key", vars + "[search]\ndepht = 2\n", errors.ErrCodeInvalidFormat},
		{"bad mode", vars + "[search]\nmode = \"sideways\"\n", errors.ErrCodeInvalidFormat},
		{"no variables", "name = \"x\"\n", errors.ErrCodeInvalidInput},
		{"only latent", "[[variables]]\nname = \"L\"\nlatent = true\n", errors.ErrCodeInvalidInput},
		{"duplicate", vars + "[[variables]]\nname = \"A\"\n", errors.ErrCodeInvalidInput},
		{"bad name", "[[variables]]\nname = \"A->B\"\n", errors.ErrCodeInvalidName},
		{"unknown edge variable", vars + "[[edges]]\nfrom = \"A\"\nto = \"Z\"\n", errors.ErrCodeInvalidInput},
		{"self loop", vars + "[[edges]]\nfrom = \"A\"\nto = \"A\"\n", errors.ErrCodeInvalidInput},
		{"latent in knowledge", vars + "[knowledge]\nforbidden = [{ from = \"L\", to = \"A\" }]\n", errors.ErrCodeInvalidInput},
		{"latent in tier", vars + "[knowledge]\ntiers = [[\"L\"]]\n", errors.ErrCodeInvalidInput},
		{"variable in two tiers", vars + "[knowledge]\ntiers = [[\"A\"], [\"A\"]]\n", errors.ErrCodeInvalidInput},
		{"missing tier", vars + "[knowledge]\ntiers = [[\"A\"]]\nforbid_within_tier = [3]\n", errors.ErrCodeInvalidInput},
		{"required and forbidden", vars + "[knowledge]\nforbidden = [{ from = \"A\", to = \"B\" }]\nrequired = [{ from = \"A\", to = \"B\" }]\n", errors.ErrCodeKnowledgeConflict},
		{"negative timeout", vars + "[search]\ntimeout_ms = -1\n", errors.ErrCodeInvalidConfig},
		{"unknown initial variable", vars + "[search]\ninitial_order = [\"B\", \"L\"]\n", errors.ErrCodeInvalidInput},
		{
			"cyclic truth",
			vars + "[[edges]]\nfrom = \"A\"\nto = \"L\"\n[[edges]]\nfrom = \"L\"\nto = \"B\"\n[[edges]]\nfrom = \"B\"\nto = \"A\"\n",
			errors.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadProblem(strings.NewReader(tt.body))
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoadProblem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diamond.toml")
	if err := os.WriteFile(path, []byte(diamondProblem), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProblem(path); err != nil {
		t.Errorf("LoadProblem: %v", err)
	}

	if _, err := LoadProblem(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file: err = %v", err)
	}
	if _, err := LoadProblem(filepath.Join(dir, "diamond.json")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("wrong extension: err = %v", err)
	}
}

func cpdag(t *testing.T) *dag.Graph {
	t.Helper()
	vars := append(dag.NewVariables("A", "B", "C", "D"), dag.Variable{Name: "U", Kind: dag.Latent})
	g := dag.NewGraph(vars)
	for _, add := range []func() error{
		func() error { return g.AddUndirected(0, 1) },
		func() error { return g.AddUndirected(0, 2) },
		func() error { return g.AddDirected(1, 3) },
		func() error { return g.AddDirected(2, 3) },
		func() error { return g.AddDirected(4, 3) },
	} {
		if err := add(); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestJSONRoundTrip(t *testing.T) {
	g := cpdag(t)

	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	first := buf.String()
	if !strings.Contains(first, `"undirected": true`) || !strings.Contains(first, `"latent": true`) {
		t.Errorf("encoding lost edge or node kinds:\n%s", first)
	}

	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if !back.Equal(g) {
		t.Errorf("round trip changed the graph:\n%s\nwant\n%s", back, g)
	}
	if !back.Variable(4).IsLatent() {
		t.Error("latent flag lost")
	}

	var again bytes.Buffer
	if err := WriteJSON(back, &again); err != nil {
		t.Fatal(err)
	}
	if again.String() != first {
		t.Errorf("re-encoding differs:\n%s\nwant\n%s", again.String(), first)
	}
}

func TestExportImportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	g := cpdag(t)
	if err := ExportJSON(g, path); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	back, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if !back.Equal(g) {
		t.Errorf("ImportJSON =\n%s\nwant\n%s", back, g)
	}
}

func TestReadJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		code errors.Code
	}{
		{"malformed", `{"nodes": [`, errors.ErrCodeInvalidFormat},
		{"empty id", `{"nodes": [{"id": ""}], "edges": []}`, errors.ErrCodeInvalidName},
		{"duplicate node", `{"nodes": [{"id": "A"}, {"id": "A"}], "edges": []}`, errors.ErrCodeInvalidInput},
		{"unknown node", `{"nodes": [{"id": "A"}], "edges": [{"from": "A", "to": "B"}]}`, errors.ErrCodeInvalidInput},
		{"self loop", `{"nodes": [{"id": "A"}], "edges": [{"from": "A", "to": "A"}]}`, errors.ErrCodeInvalidInput},
		{"parallel edges", `{"nodes": [{"id": "A"}, {"id": "B"}], "edges": [{"from": "A", "to": "B"}, {"from": "B", "to": "A"}]}`, errors.ErrCodeInvalidInput},
		{
			"cycle",
			`{"nodes": [{"id": "A"}, {"id": "B"}, {"id": "C"}], "edges": [{"from": "A", "to": "B"}, {"from": "B", "to": "C"}, {"from": "C", "to": "A"}]}`,
			errors.ErrCodeInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.json))
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoadProblemInitialGraph(t *testing.T) {
	dir := t.TempDir()
	if err := ExportJSON(cpdag(t), filepath.Join(dir, "start.json")); err != nil {
		t.Fatal(err)
	}
	problem := func(vars string) string {
		return "variables = [" + vars + "]\n\n[search]\ninitial_graph = \"start.json\"\n"
	}

	path := filepath.Join(dir, "start.toml")
	if err := os.WriteFile(path, []byte(problem(`{ name = "A" }, { name = "B" }, { name = "C" }, { name = "D" }`)), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadProblem(path)
	if err != nil {
		t.Fatalf("LoadProblem: %v", err)
	}
	g := p.Options.InitialGraph
	if g == nil || g.Len() != 4 {
		t.Fatalf("InitialGraph = %v, want 4 observed variables", g)
	}
	if got, want := g.String(), "A --- B\nA --- C\nB --> D\nC --> D\n"; got != want {
		t.Errorf("InitialGraph =\n%s\nwant\n%s", got, want)
	}

	missing := filepath.Join(dir, "missing.toml")
	if err := os.WriteFile(missing, []byte(problem(`{ name = "A" }, { name = "E" }`)), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProblem(missing); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown variable: err = %v", err)
	}
}
