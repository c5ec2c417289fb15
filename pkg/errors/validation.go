package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength bounds variable names so they stay printable in DOT labels.
const maxNameLength = 128

// ValidateVariableName validates a variable name read from a problem file or flag.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No leading or trailing whitespace
//   - No control characters or null bytes
//   - No quotes or arrows, which would break DOT and text output
//   - Maximum length of 128 characters
func ValidateVariableName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "variable name cannot be empty")
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "variable name too long (max %d characters)", maxNameLength)
	}

	if strings.TrimSpace(name) != name {
		return New(ErrCodeInvalidName, "variable name %q has surrounding whitespace", name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "variable name contains invalid control characters")
		}
	}

	for _, pattern := range []string{`"`, "->", "--"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidName, "variable name %q contains reserved sequence %q", name, pattern)
		}
	}

	return nil
}

// ValidateProblemPath validates a problem file path given on the command line.
// Only TOML files are accepted.
func ValidateProblemPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "problem path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "problem path contains invalid characters")
		}
	}

	if !strings.HasSuffix(strings.ToLower(path), ".toml") {
		return New(ErrCodeInvalidFormat, "problem file must have a .toml extension: %q", path)
	}

	return nil
}

// redisAddrRegex matches host:port pairs accepted for the shared score store.
var redisAddrRegex = regexp.MustCompile(`^[A-Za-z0-9.\-]+:[0-9]{1,5}$`)

// ValidateRedisAddr validates a Redis address of the form host:port.
func ValidateRedisAddr(addr string) error {
	if addr == "" {
		return New(ErrCodeInvalidInput, "redis address cannot be empty")
	}
	if !redisAddrRegex.MatchString(addr) {
		return New(ErrCodeInvalidInput, "invalid redis address %q (want host:port)", addr)
	}
	return nil
}
