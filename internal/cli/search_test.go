package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/causalorder/pkg/errors"
	"github.com/matzehuels/causalorder/pkg/search"
)

const diamondProblem = `
name = "diamond"

variables = [{ name = "A" }, { name = "B" }, { name = "C" }, { name = "D" }]

edges = [
  { from = "A", to = "B" },
  { from = "A", to = "C" },
  { from = "B", to = "D" },
  { from = "C", to = "D" },
]

[search]
workers = 1
`

// testCLI returns a CLI whose command output and status lines are captured,
// with the score store in a temporary directory.
func testCLI(t *testing.T) (c *CLI, out, status *bytes.Buffer) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	out, status = new(bytes.Buffer), new(bytes.Buffer)
	old := stdout
	stdout = status
	t.Cleanup(func() { stdout = old })

	c = New(io.Discard, LogInfo)
	c.Out = out
	return c, out, status
}

func execute(c *CLI, args ...string) error {
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func writeProblem(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diamond.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSearchCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "equivalence class",
			want: "A --- B\nA --- C\nB --> D\nC --> D\n",
		},
		{
			name: "dag from data order",
			args: []string{"--no-orient", "--data-order", "--depth", "0"},
			want: "A --> B\nA --> C\nB --> D\nC --> D\n",
		},
		{
			name: "first improvement with restarts",
			args: []string{"--mode", "first", "--starts", "4", "--seed", "7", "--workers", "2"},
			want: "A --- B\nA --- C\nB --> D\nC --> D\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out, _ := testCLI(t)
			args := append([]string{"search", writeProblem(t, diamondProblem), "--summary=false"}, tt.args...)
			if err := execute(c, args...); err != nil {
				t.Fatalf("search: %v", err)
			}
			if got := out.String(); got != tt.want {
				t.Errorf("output =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestSearchCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"bad mode", []string{"--mode", "greedy"}, errors.ErrCodeInvalidConfig},
		{"bad format", []string{"-f", "gif"}, errors.ErrCodeInvalidFormat},
		{"negative depth", []string{"--depth", "-1"}, errors.ErrCodeInvalidConfig},
		{"bad redis address", []string{"--redis-addr", "not an address"}, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := testCLI(t)
			args := append([]string{"search", writeProblem(t, diamondProblem)}, tt.args...)
			if err := execute(c, args...); !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}

	c, _, _ := testCLI(t)
	if err := execute(c, "search", filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing problem: %v", err)
	}
}

func TestSearchCommandFiles(t *testing.T) {
	c, out, status := testCLI(t)
	base := filepath.Join(t.TempDir(), "result")
	if err := execute(c, "search", writeProblem(t, diamondProblem), "-f", "text,json,dot", "-o", base+".svg"); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("files requested but stdout got %q", out.String())
	}
	for _, ext := range []string{"txt", "json", "dot"} {
		path := base + "." + ext
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing %s: %v", path, err)
		}
		if !strings.Contains(status.String(), path) {
			t.Errorf("status does not list %s", path)
		}
	}
	if !strings.Contains(status.String(), "Found 4 edges over 4 variables") {
		t.Errorf("summary missing:\n%s", status.String())
	}
}

func TestSearchCommandSingleFile(t *testing.T) {
	c, _, _ := testCLI(t)
	path := filepath.Join(t.TempDir(), "graph.dot")
	if err := execute(c, "search", writeProblem(t, diamondProblem), "-f", "dot", "-o", path, "--summary=false"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "digraph G {") {
		t.Errorf("not a DOT file:\n%s", data)
	}
}

func TestCacheCommands(t *testing.T) {
	c, out, status := testCLI(t)
	if err := execute(c, "search", writeProblem(t, diamondProblem), "--summary=false"); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := execute(c, "cache", "path"); err != nil {
		t.Fatal(err)
	}
	dir := strings.TrimSpace(out.String())
	if want, _ := cacheDir(); dir != want {
		t.Errorf("cache path = %q, want %q", dir, want)
	}

	if err := execute(c, "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(status.String(), "Cleared") || strings.Contains(status.String(), "Cleared 0 ") {
		t.Errorf("clear status = %q", status.String())
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d entries left after clear", len(entries))
	}
}

func TestApplyFlags(t *testing.T) {
	c, _, _ := testCLI(t)
	cmd := c.searchCommand()
	if err := cmd.ParseFlags([]string{"--depth", "5", "--mode", "first", "--timeout", "2s"}); err != nil {
		t.Fatal(err)
	}

	o := search.DefaultOptions()
	o.NumStarts = 9
	o.Seed = 1
	var opts searchOpts
	opts.depth, opts.mode, opts.timeout = 5, "first", 2*time.Second
	opts.starts, opts.seed = 1, 42 // unset flags keep the problem's values
	if err := applyFlags(cmd, &opts, &o); err != nil {
		t.Fatal(err)
	}
	if o.Depth != 5 || o.Mode != search.FirstImprovement || o.Timeout != 2*time.Second {
		t.Errorf("flags not applied: %+v", o)
	}
	if o.NumStarts != 9 || o.Seed != 1 {
		t.Errorf("unset flags overrode the problem: %+v", o)
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{"text"}},
		{"svg", []string{"svg"}},
		{"text,svg,pdf", []string{"text", "svg", "pdf"}},
	}
	for _, tt := range tests {
		if got := parseFormats(tt.input); !slices.Equal(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "problems/diamond.toml", "problems/diamond"},
		{"out/graph.svg", "diamond.toml", "out/graph"},
		{"out/graph.txt", "diamond.toml", "out/graph"},
		{"out/graph", "diamond.toml", "out/graph"},
		{"out/graph.v2", "diamond.toml", "out/graph.v2"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestRestartTable(t *testing.T) {
	res := &search.Result{
		Restarts: []search.RestartResult{
			{Index: 0, Score: -5, Iterations: 3, Completed: true},
			{Index: 1, Score: -4, Iterations: 2, Completed: true},
			{Index: 2, Skipped: true},
		},
		BestRestart: 1,
	}
	rendered := restartTable(res).Render()
	for _, want := range []string{"Restart", "converged", "skipped", "-4"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("table missing %q:\n%s", want, rendered)
		}
	}
}
