// Package planner computes per-file merge decisions for one job run.
package planner

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pradeepmouli/repoweaver/internal/fetcher"
	"github.com/pradeepmouli/repoweaver/internal/logfields"
	"github.com/pradeepmouli/repoweaver/internal/pattern"
	"github.com/pradeepmouli/repoweaver/internal/strategy"
)

const loggerName = "merge-planner"

// Action is the planned handling of one file.
type Action uint8

const (
	ActionUndefined Action = iota
	ActionAdd
	ActionModify
	ActionSkip
)

var actionString = [...]string{
	ActionUndefined: "undefined",
	ActionAdd:       "add",
	ActionModify:    "modify",
	ActionSkip:      "skip",
}

func (a Action) String() string {
	if int(a) > len(actionString)-1 {
		return fmt.Sprintf("unsupported Action value: %d", a)
	}

	return actionString[a]
}

// Decision is the planned outcome for one file.
// Decisions are ephemeral, they live only for the duration of one job run.
type Decision struct {
	Path           string
	Content        []byte
	SourceTemplate string
	Strategy       string
	Action         Action
	Conflicts      []string
	Warnings       []string
	// Err records a partial-file failure, the remaining files are still
	// processed.
	Err string
}

// ExistingFileLookup returns the current content of path in the target
// repository. found is false when the file does not exist.
type ExistingFileLookup func(ctx context.Context, path string) (content []byte, found bool, err error)

// Planner computes merge decisions.
// It owns Decision construction per invocation and shares nothing across
// jobs.
type Planner struct {
	logger *zap.Logger
}

func New() *Planner {
	return &Planner{logger: zap.L().Named(loggerName)}
}

// Plan decides per template file whether it is added, modified or skipped.
//
// Precedence for a path provided by multiple templates is "first template in
// configured order". A primarySource on the matching rule overrides this: the
// file is sourced exclusively from the named template, with a best-effort
// fallback to the first providing template plus a warning when the named
// template does not provide the path.
func (p *Planner) Plan(
	ctx context.Context,
	templates []*fetcher.TemplateFiles,
	lookup ExistingFileLookup,
	rules []*strategy.FileRule,
	def strategy.Config,
	reg *strategy.Registry,
	excludePatterns []string,
) ([]*Decision, error) {
	paths := unionPaths(templates)

	result := make([]*Decision, 0, len(paths))
	var failed int

	for _, path := range paths {
		excluded, err := pattern.MatchAny(excludePatterns, path)
		if err != nil {
			return nil, err
		}

		if excluded {
			p.logger.Debug(
				"file excluded by exclude pattern",
				logfields.Event("file_excluded"),
				logfields.Path(path),
			)
			continue
		}

		decision, err := p.planFile(ctx, path, templates, lookup, rules, def, reg)
		if err != nil {
			return nil, err
		}

		if decision.Err != "" {
			failed++
		}

		result = append(result, decision)
	}

	if len(result) > 0 && failed == len(result) {
		return nil, errors.New("planning failed for every file")
	}

	return result, nil
}

func (p *Planner) planFile(
	ctx context.Context,
	path string,
	templates []*fetcher.TemplateFiles,
	lookup ExistingFileLookup,
	rules []*strategy.FileRule,
	def strategy.Config,
	reg *strategy.Registry,
) (*Decision, error) {
	strat, rule, err := strategy.ResolveForFile(path, rules, def, reg)
	if err != nil {
		return nil, err
	}

	decision := Decision{
		Path:     path,
		Strategy: strat.Name(),
	}

	file, sourceName, warning := selectSource(path, templates, rule)
	if warning != "" {
		decision.Warnings = append(decision.Warnings, warning)
	}

	decision.SourceTemplate = sourceName

	existing, found, err := lookup(ctx, path)
	if err != nil {
		decision.Err = fmt.Sprintf("looking up existing content failed: %s", err)

		p.logger.Warn(
			"planning file failed, continuing with remaining files",
			logfields.Event("file_plan_failed"),
			logfields.Path(path),
			zap.Error(err),
		)

		return &decision, nil
	}

	if strat.Name() == strategy.SkipName && found {
		decision.Action = ActionSkip
		return &decision, nil
	}

	if !found {
		decision.Action = ActionAdd
		decision.Content = file.Content
		return &decision, nil
	}

	res, err := strat.Apply(path, existing, file.Content)
	if err != nil {
		decision.Err = fmt.Sprintf("applying strategy %s failed: %s", strat.Name(), err)
		return &decision, nil
	}

	decision.Action = ActionModify
	decision.Content = res.Content
	decision.Conflicts = append(decision.Conflicts, res.Conflicts...)
	decision.Warnings = append(decision.Warnings, res.Warnings...)

	return &decision, nil
}

// selectSource picks the template that provides path.
// Losing an entire merge run over one missing primary-source file is worse
// than a logged anomaly, the fallback is deliberate best-effort.
func selectSource(path string, templates []*fetcher.TemplateFiles, rule *strategy.FileRule) (file *fetcher.File, sourceName, warning string) {
	var first *fetcher.TemplateFiles
	var firstFile *fetcher.File

	for _, tmpl := range templates {
		f := tmpl.Lookup(path)
		if f == nil {
			continue
		}

		if first == nil {
			first = tmpl
			firstFile = f
		}

		if rule != nil && rule.PrimarySource == tmpl.Name {
			return f, tmpl.Name, ""
		}
	}

	if rule != nil && rule.PrimarySource != "" {
		return firstFile, first.Name, fmt.Sprintf(
			"primary source %q does not provide %s, falling back to template %q",
			rule.PrimarySource, path, first.Name,
		)
	}

	return firstFile, first.Name, ""
}

// unionPaths returns all paths provided by the templates, ordered by first
// occurrence across the configured template sequence.
func unionPaths(templates []*fetcher.TemplateFiles) []string {
	var result []string
	seen := map[string]struct{}{}

	for _, tmpl := range templates {
		for _, f := range tmpl.Files {
			if _, exist := seen[f.Path]; exist {
				continue
			}

			seen[f.Path] = struct{}{}
			result = append(result, f.Path)
		}
	}

	return result
}
