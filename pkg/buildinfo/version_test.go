package buildinfo

import "testing"

func TestTemplate(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)

	tests := []struct {
		version, commit, date string
		want                  string
	}{
		{"dev", "none", "unknown", "{{.Name}} dev (none, built unknown)\n"},
		{"v0.3.0", "0123456789abcdef", "2026-01-02T03:04:05Z", "{{.Name}} v0.3.0 (0123456, built 2026-01-02T03:04:05Z)\n"},
	}
	for _, tt := range tests {
		Version, Commit, Date = tt.version, tt.commit, tt.date
		if got := Template(); got != tt.want {
			t.Errorf("Template() = %q, want %q", got, tt.want)
		}
	}
}
