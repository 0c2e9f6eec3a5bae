package weaver

import (
	"fmt"

	"github.com/pradeepmouli/repoweaver/internal/cfg"
	"github.com/pradeepmouli/repoweaver/internal/pattern"
	"github.com/pradeepmouli/repoweaver/internal/strategy"
)

// ValidateConfig checks every strategy, plugin, category and pattern name the
// targets reference.
// It runs at startup so a typo fails the process instead of every job that
// hits it later.
func ValidateConfig(config *cfg.Config) error {
	for _, target := range config.Targets {
		if err := validateTarget(target); err != nil {
			return fmt.Errorf("target %s/%s: %w", target.Owner, target.Repository, err)
		}
	}

	return nil
}

func validateTarget(target *cfg.Target) error {
	reg := strategy.NewRegistry()
	defer reg.Cleanup()

	if err := reg.LoadPlugins(target.Plugins); err != nil {
		return err
	}

	defStrategy := target.MergeStrategy
	if defStrategy == "" {
		defStrategy = strategy.OverwriteName
	}

	if _, err := reg.Get(defStrategy); err != nil {
		return fmt.Errorf("merge_strategy: %w", err)
	}

	for i, rule := range target.Rules {
		if _, err := reg.Get(rule.Strategy); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}

		if rule.Category != "" {
			if _, err := pattern.CategoryPatterns(rule.Category); err != nil {
				return fmt.Errorf("rule %d: %w", i, err)
			}
		}

		for _, p := range rule.Patterns {
			if _, err := pattern.Compile(p); err != nil {
				return fmt.Errorf("rule %d: pattern %q: %w", i, p, err)
			}
		}
	}

	for _, p := range target.ExcludePatterns {
		if _, err := pattern.Compile(p); err != nil {
			return fmt.Errorf("exclude pattern %q: %w", p, err)
		}
	}

	return nil
}
