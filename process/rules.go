package process

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/woozymasta/pathrules"
)

// Excluder skips files matched by gitignore-like patterns. A nil Excluder
// skips nothing.
type Excluder struct {
	matcher *pathrules.Matcher
}

// NewExcluder compiles patterns; an empty list yields nil.
func NewExcluder(patterns []string) (*Excluder, error) {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: p})
		}
	}
	if len(rules) == 0 {
		return nil, nil
	}
	matcher, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionInclude,
	})
	if err != nil {
		return nil, fmt.Errorf("compile exclusion rules: %w", err)
	}
	return &Excluder{matcher: matcher}, nil
}

// Skip reports whether the path, relative to the walked root, is excluded.
func (e *Excluder) Skip(rel string, isDir bool) bool {
	if e == nil {
		return false
	}
	return !e.matcher.Included(filepath.ToSlash(rel), isDir)
}
