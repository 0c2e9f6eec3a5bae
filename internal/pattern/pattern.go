// Package pattern compiles glob-like file path patterns to matchers.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Matcher tests repository file paths against a compiled glob pattern.
// '*' matches any run of characters except '/', '**' also matches across
// '/', all other characters are literal.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

var cache = struct {
	mu sync.Mutex
	m  map[string]*Matcher
}{m: map[string]*Matcher{}}

// Compile returns a matcher for pattern.
// Results are memoized per pattern string, the same rule set is evaluated
// against every file of a template on every run.
func Compile(pattern string) (*Matcher, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if m, exist := cache.m[pattern]; exist {
		return m, nil
	}

	re, err := translate(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q failed: %w", pattern, err)
	}

	m := &Matcher{pattern: pattern, re: re}
	cache.m[pattern] = m

	return m, nil
}

func (m *Matcher) Match(path string) bool {
	return m.re.MatchString(path)
}

func (m *Matcher) String() string {
	return m.pattern
}

func translate(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern is empty")
	}

	var b strings.Builder
	b.WriteString("^")

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]

		if c != '*' {
			b.WriteString(regexp.QuoteMeta(string(c)))
			continue
		}

		if i+1 < len(pattern) && pattern[i+1] == '*' {
			// "**/" also matches zero directories, ".github/**"
			// matches everything below the directory
			if i+2 < len(pattern) && pattern[i+2] == '/' {
				b.WriteString("(?:.*/)?")
				i += 2
				continue
			}

			b.WriteString(".*")
			i++
			continue
		}

		b.WriteString("[^/]*")
	}

	b.WriteString("$")

	return regexp.Compile(b.String())
}

// MatchAny reports whether path matches at least one of patterns.
func MatchAny(patterns []string, path string) (bool, error) {
	for _, p := range patterns {
		m, err := Compile(p)
		if err != nil {
			return false, err
		}

		if m.Match(path) {
			return true, nil
		}
	}

	return false, nil
}
