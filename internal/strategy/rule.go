package strategy

import (
	"github.com/pradeepmouli/repoweaver/internal/pattern"
	"github.com/pradeepmouli/repoweaver/internal/weaveerr"
)

// FileRule selects files by glob patterns or a named category and assigns
// them a merge strategy.
// Exactly one of Patterns and Category is set, a rule with neither never
// matches.
type FileRule struct {
	Patterns []string
	Category string
	Strategy Config
	// Priority breaks ties between multiple matching rules, higher wins.
	// Rules with equal priority are broken by position in the rule list,
	// earlier wins.
	Priority int
	// PrimarySource names the template whose version of a matched file
	// takes precedence over the configured template order.
	PrimarySource string
}

func (r *FileRule) patterns() ([]string, error) {
	if r.Category != "" {
		return pattern.CategoryPatterns(r.Category)
	}

	return r.Patterns, nil
}

// Matches reports whether path is selected by the rule.
// An unknown category is a configuration error, not a silent no-match.
func (r *FileRule) Matches(path string) (bool, error) {
	patterns, err := r.patterns()
	if err != nil {
		return false, weaveerr.NewConfigError(err)
	}

	return pattern.MatchAny(patterns, path)
}

// ResolveForFile returns the strategy and the rule that apply to path.
// Rules are evaluated in order, among all matching rules the one with the
// highest priority wins, ties are broken by the earliest position in rules.
// When no rule matches, def is used and a nil rule is returned, this is the
// expected common case.
func ResolveForFile(path string, rules []*FileRule, def Config, reg *Registry) (Strategy, *FileRule, error) {
	var matched *FileRule

	for _, rule := range rules {
		ok, err := rule.Matches(path)
		if err != nil {
			return nil, nil, err
		}

		if !ok {
			continue
		}

		if matched == nil || rule.Priority > matched.Priority {
			matched = rule
		}
	}

	if matched == nil {
		s, err := reg.Get(def.Type)
		return s, nil, err
	}

	s, err := reg.Get(matched.Strategy.Type)
	if err != nil {
		return nil, nil, err
	}

	return s, matched, nil
}
