// Package prompts carries the embedded default drafting system prompt
// and the override hook for loading a custom one from disk.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed system.md
var systemMD string

// DefaultSystem returns the built-in drafting system prompt.
func DefaultSystem() string {
	return strings.TrimSpace(systemMD)
}

// LoadSystem reads the system prompt from path, falling back to the
// embedded default when path is empty.
func LoadSystem(path string) (string, error) {
	if path == "" {
		return DefaultSystem(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
