package gallery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher decides which file names belong in a gallery. All patterns are
// compiled into a single alternation and matched against the lower-cased
// base name.
type Matcher struct {
	patterns []string
	g        glob.Glob
}

// NewMatcher compiles patterns such as "*.png".
func NewMatcher(patterns []string) (*Matcher, error) {
	var cleaned []string
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "{},") {
			return nil, fmt.Errorf("pattern %q: braces and commas are not allowed", p)
		}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) == 0 {
		return nil, errors.New("no file patterns configured")
	}

	g, err := glob.Compile("{" + strings.Join(cleaned, ",") + "}")
	if err != nil {
		return nil, fmt.Errorf("compiling file patterns: %w", err)
	}
	return &Matcher{patterns: cleaned, g: g}, nil
}

// Match reports whether name matches any pattern, ignoring case
func (m *Matcher) Match(name string) bool {
	return m.g.Match(strings.ToLower(name))
}

// Patterns returns the normalized patterns
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}
