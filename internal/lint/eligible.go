package lint

import (
	"errors"
	"path/filepath"
	"slices"
)

// DefaultFilenames are the config files the lint service understands.
var DefaultFilenames = []string{".travis.yml"}

// ErrNotEligible is returned when a file is not on the allow-list.
var ErrNotEligible = errors.New("file is not a lintable CI config")

// Eligibility is an allow-list of exact base names.
type Eligibility struct {
	names []string
}

// NewEligibility returns an allow-list; an empty list falls back to DefaultFilenames.
func NewEligibility(names ...string) Eligibility {
	if len(names) == 0 {
		names = DefaultFilenames
	}
	return Eligibility{names: slices.Clone(names)}
}

// Eligible reports whether path's base name is on the allow-list.
func (e Eligibility) Eligible(path string) bool {
	if path == "" {
		return false
	}
	return slices.Contains(e.names, filepath.Base(path))
}
