package auth

import (
	"strings"
	"sync/atomic"
)

const wildcard = "*"

// IsExempt reports whether path matches one of the exemption patterns.
//
// Paths are compared with a trailing slash added, so "/a" and "/a/" are the
// same route. A pattern ending in "*" matches every path starting with the
// rest of the pattern. An empty path or an empty pattern list is never exempt.
func IsExempt(path string, exemptions []string) bool {
	if path == "" || len(exemptions) == 0 {
		return false
	}

	path = withTrailingSlash(path)
	for _, pattern := range exemptions {
		if pattern == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(pattern, wildcard); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == withTrailingSlash(pattern) {
			return true
		}
	}
	return false
}

func withTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// PathGuard holds the active exemption list. The list can be replaced at
// runtime without rebuilding the strategy that owns the guard.
type PathGuard struct {
	exemptions atomic.Pointer[[]string]
}

// NewPathGuard creates a guard with a copy of exemptions.
func NewPathGuard(exemptions []string) *PathGuard {
	g := &PathGuard{}
	g.Set(exemptions)
	return g
}

// Set replaces the exemption list.
func (g *PathGuard) Set(exemptions []string) {
	cp := append([]string(nil), exemptions...)
	g.exemptions.Store(&cp)
}

// Exemptions returns the current list.
func (g *PathGuard) Exemptions() []string {
	if p := g.exemptions.Load(); p != nil {
		return *p
	}
	return nil
}

// IsProtected reports whether path requires authentication.
// A nil guard protects everything.
func (g *PathGuard) IsProtected(path string) bool {
	if g == nil {
		return true
	}
	return !IsExempt(path, g.Exemptions())
}
