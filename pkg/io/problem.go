package io

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/causalorder/pkg/dag"
	"github.com/matzehuels/causalorder/pkg/errors"
	"github.com/matzehuels/causalorder/pkg/knowledge"
	"github.com/matzehuels/causalorder/pkg/search"
)

// Problem is a decoded problem file.
type Problem struct {
	Name string
	// Truth is the ground-truth graph over every variable, latent ones
	// included. It has no edges if the file lists none.
	Truth *dag.Graph
	// Knowledge constrains the search. Its indices refer to Observed.
	Knowledge *knowledge.Knowledge
	// Options starts from search.DefaultOptions with the file's [search]
	// table applied.
	Options search.Options
	// InitialOrder is the start order of the first restart, or nil.
	InitialOrder []int

	observed     []dag.Variable
	initialGraph string
}

// Observed returns the variables the search runs over, in file order.
func (p *Problem) Observed() []dag.Variable {
	out := make([]dag.Variable, len(p.observed))
	copy(out, p.observed)
	return out
}

type problemFile struct {
	Name      string         `toml:"name"`
	Variables []variableFile `toml:"variables"`
	Edges     []edgeFile     `toml:"edges"`
	Knowledge knowledgeFile  `toml:"knowledge"`
	Search    searchFile     `toml:"search"`
}

type variableFile struct {
	Name   string `toml:"name"`
	Latent bool   `toml:"latent"`
}

type edgeFile struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

type knowledgeFile struct {
	Forbidden        []edgeFile `toml:"forbidden"`
	Required         []edgeFile `toml:"required"`
	Tiers            [][]string `toml:"tiers"`
	ForbidWithinTier []int      `toml:"forbid_within_tier"`
}

type searchFile struct {
	search.Options
	TimeoutMS    int64    `toml:"timeout_ms"`
	InitialOrder []string `toml:"initial_order"`
	InitialGraph string   `toml:"initial_graph"`
}

// ReadProblem decodes a TOML problem from r.
//
// Variable names must be unique and valid (see
// [errors.ValidateVariableName]); edges and knowledge must name declared
// variables. The truth graph must be acyclic. Knowledge is validated
// against the observed variables, so an unsatisfiable combination is
// reported here rather than when the search starts.
func ReadProblem(r io.Reader) (*Problem, error) {
	file := problemFile{Search: searchFile{Options: search.DefaultOptions()}}
	md, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode problem")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if len(file.Variables) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "problem declares no variables")
	}

	p := &Problem{Name: file.Name, Options: file.Search.Options, initialGraph: file.Search.InitialGraph}
	if file.Search.TimeoutMS < 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "timeout_ms must be >= 0, got %d", file.Search.TimeoutMS)
	}
	p.Options.Timeout = time.Duration(file.Search.TimeoutMS) * time.Millisecond

	vars := make([]dag.Variable, len(file.Variables))
	all := make(map[string]int, len(vars))
	observed := make(map[string]int, len(vars))
	for i, v := range file.Variables {
		if err := errors.ValidateVariableName(v.Name); err != nil {
			return nil, fmt.Errorf("variable %d: %w", i, err)
		}
		if _, dup := all[v.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate variable %q", v.Name)
		}
		all[v.Name] = i
		vars[i] = dag.Variable{Name: v.Name}
		if v.Latent {
			vars[i].Kind = dag.Latent
			continue
		}
		observed[v.Name] = len(p.observed)
		p.observed = append(p.observed, vars[i])
	}
	if len(p.observed) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "every variable is latent")
	}

	p.Truth = dag.NewGraph(vars)
	for _, e := range file.Edges {
		from, to, err := lookupEdge(all, e)
		if err != nil {
			return nil, err
		}
		if err := p.Truth.AddDirected(from, to); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "edge %s -> %s", e.From, e.To)
		}
	}
	if err := p.Truth.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "truth graph")
	}

	if p.Knowledge, err = buildKnowledge(file.Knowledge, observed); err != nil {
		return nil, err
	}
	if err := p.Knowledge.Validate(len(p.observed)); err != nil {
		return nil, err
	}

	if names := file.Search.InitialOrder; names != nil {
		p.InitialOrder = make([]int, len(names))
		for i, name := range names {
			idx, ok := observed[name]
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidInput, "initial order names unknown or latent variable %q", name)
			}
			p.InitialOrder[i] = idx
		}
	}
	return p, nil
}

func buildKnowledge(kf knowledgeFile, observed map[string]int) (*knowledge.Knowledge, error) {
	if len(kf.Forbidden)+len(kf.Required)+len(kf.Tiers)+len(kf.ForbidWithinTier) == 0 {
		return nil, nil
	}
	k := knowledge.New()
	for _, e := range kf.Forbidden {
		from, to, err := lookupEdge(observed, e)
		if err != nil {
			return nil, fmt.Errorf("forbidden: %w", err)
		}
		k.Forbid(from, to)
	}
	for _, e := range kf.Required {
		from, to, err := lookupEdge(observed, e)
		if err != nil {
			return nil, fmt.Errorf("required: %w", err)
		}
		k.Require(from, to)
	}
	tierOf := make(map[string]int)
	for tier, names := range kf.Tiers {
		for _, name := range names {
			idx, ok := observed[name]
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidInput, "tier %d names unknown or latent variable %q", tier, name)
			}
			if prev, dup := tierOf[name]; dup {
				return nil, errors.New(errors.ErrCodeInvalidInput, "variable %q is in tiers %d and %d", name, prev, tier)
			}
			tierOf[name] = tier
			k.SetTier(tier, idx)
		}
	}
	for _, tier := range kf.ForbidWithinTier {
		if tier < 0 || tier >= len(kf.Tiers) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "forbid_within_tier names missing tier %d", tier)
		}
		k.ForbidWithinTier(tier)
	}
	return k, nil
}

func lookupEdge(index map[string]int, e edgeFile) (int, int, error) {
	from, ok := index[e.From]
	if !ok {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "edge %s -> %s: unknown variable %q", e.From, e.To, e.From)
	}
	to, ok := index[e.To]
	if !ok {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "edge %s -> %s: unknown variable %q", e.From, e.To, e.To)
	}
	return from, to, nil
}

// LoadProblem reads a TOML problem file at path.
func LoadProblem(path string) (*Problem, error) {
	if err := errors.ValidateProblemPath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer f.Close()

	p, err := ReadProblem(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if p.initialGraph != "" {
		graphPath := p.initialGraph
		if !filepath.IsAbs(graphPath) {
			graphPath = filepath.Join(filepath.Dir(path), graphPath)
		}
		g, err := ImportJSON(graphPath)
		if err != nil {
			return nil, fmt.Errorf("%s: initial graph: %w", path, err)
		}
		if p.Options.InitialGraph, err = p.restrict(g); err != nil {
			return nil, fmt.Errorf("%s: initial graph: %w", path, err)
		}
	}
	return p, nil
}

// restrict maps g onto the observed variables by name. Every observed
// variable must appear in g; variables of g the problem does not observe
// are dropped together with their edges.
func (p *Problem) restrict(g *dag.Graph) (*dag.Graph, error) {
	index := make([]int, g.Len())
	for i := range index {
		index[i] = -1
	}
	for i, v := range p.observed {
		gi, ok := g.Index(v.Name)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "variable %q missing", v.Name)
		}
		index[gi] = i
	}

	out := dag.NewGraph(p.observed)
	for _, e := range g.Edges() {
		from, to := index[e.From], index[e.To]
		if from < 0 || to < 0 {
			continue
		}
		if e.Directed {
			_ = out.AddDirected(from, to)
		} else {
			_ = out.AddUndirected(from, to)
		}
	}
	return out, nil
}
