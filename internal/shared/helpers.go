// Package shared provides common utility functions used across multiple
// packages in the debforge codebase.
package shared

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CommandError wraps a command execution error with its trimmed output
// for cleaner error messages.
func CommandError(output []byte, err error) error {
	return fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), err)
}

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
func HTTPStatusError(status int, url string) error {
	return fmt.Errorf("status=%d url=%s", status, url)
}

// ExpandPath expands environment variables in a path and resolves it
// against base when it is not absolute.
func ExpandPath(value string, base string) string {
	expanded := os.ExpandEnv(strings.TrimSpace(value))
	if expanded == "" || filepath.IsAbs(expanded) {
		return expanded
	}
	return filepath.Join(base, expanded)
}
