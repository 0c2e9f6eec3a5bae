package weaver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pradeepmouli/repoweaver/internal/cfg"
	"github.com/pradeepmouli/repoweaver/internal/fetcher"
	"github.com/pradeepmouli/repoweaver/internal/githubclt"
	"github.com/pradeepmouli/repoweaver/internal/jobs"
	"github.com/pradeepmouli/repoweaver/internal/logfields"
	"github.com/pradeepmouli/repoweaver/internal/planner"
	"github.com/pradeepmouli/repoweaver/internal/publisher"
	"github.com/pradeepmouli/repoweaver/internal/strategy"
	"github.com/pradeepmouli/repoweaver/internal/stringutils"
	"github.com/pradeepmouli/repoweaver/internal/weaveerr"
)

const executorLoggerName = "job-executor"

// TargetClient is the github API surface the executor needs to read the
// current state of a target repository.
type TargetClient interface {
	Repository(ctx context.Context, owner, repo string) (*githubclt.RepositoryInfo, error)
	FileContent(ctx context.Context, owner, repo, path, ref string) (content []byte, sha string, found bool, err error)
}

// PRPublisher publishes planned decisions as a pull request.
type PRPublisher interface {
	Publish(ctx context.Context, target publisher.Target, decisions []*planner.Decision, templateNames []string, primarySources map[string]string) (*publisher.Result, error)
}

// Executor runs one sync job end to end: fetch templates, plan the merge,
// publish a pull request.
// It is stateless across jobs, per-job state like the strategy registry is
// created and torn down per Execute call.
type Executor struct {
	config    *cfg.Config
	clt       TargetClient
	fetcher   fetcher.Fetcher
	planner   *planner.Planner
	publisher PRPublisher
	store     *jobs.Store
	logger    *zap.Logger
}

func NewExecutor(config *cfg.Config, clt TargetClient, f fetcher.Fetcher, pub PRPublisher, store *jobs.Store) *Executor {
	return &Executor{
		config:    config,
		clt:       clt,
		fetcher:   f,
		planner:   planner.New(),
		publisher: pub,
		store:     store,
		logger:    zap.L().Named(executorLoggerName),
	}
}

// Execute implements jobs.Runner.
// Configuration mistakes are reported as ConfigError, the worker pool
// terminates those jobs without retrying.
func (e *Executor) Execute(ctx context.Context, job *jobs.Job) error {
	payload, err := jobs.DecodePayload(job)
	if err != nil {
		return weaveerr.NewConfigError(err)
	}

	owner := payload.Repository.Owner
	repo := payload.Repository.Name

	logger := e.logger.With(
		logfields.JobID(job.ID),
		logfields.JobType(string(job.Type)),
		logfields.RepositoryOwner(owner),
		logfields.Repository(repo),
	)

	target := e.config.FindTarget(owner, repo)
	if target == nil {
		return weaveerr.ConfigErrorf("no target configured for repository %s/%s", owner, repo)
	}

	reg := strategy.NewRegistry()
	defer reg.Cleanup()

	if err := reg.LoadPlugins(target.Plugins); err != nil {
		return err
	}

	rules := fileRulesFromCfg(target.Rules)

	defStrategy := strategy.Config{Type: target.MergeStrategy}
	if defStrategy.Type == "" {
		defStrategy.Type = strategy.OverwriteName
	}

	templates, err := e.fetchTemplates(ctx, logger, target.Templates)
	if err != nil {
		return err
	}

	repoInfo, err := e.clt.Repository(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("resolving repository %s/%s failed: %w", owner, repo, err)
	}

	lookup := func(ctx context.Context, path string) ([]byte, bool, error) {
		content, _, found, err := e.clt.FileContent(ctx, owner, repo, path, repoInfo.DefaultBranch)
		return content, found, err
	}

	decisions, err := e.planner.Plan(
		ctx, templates, lookup,
		rules, defStrategy, reg,
		target.ExcludePatterns,
	)
	if err != nil {
		return err
	}

	logPlanSummary(logger, decisions)

	if job.Type == jobs.TypePreviewTemplates {
		logger.Info(
			"preview completed, no changes were published",
			logfields.Event("preview_completed"),
			zap.String("plan", planDetail(decisions)),
		)

		return nil
	}

	result, err := e.publisher.Publish(
		ctx,
		publisher.Target{Owner: owner, Repository: repo},
		decisions,
		templateNames(templates),
		primarySources(decisions, rules),
	)
	if err != nil {
		return err
	}

	if result == nil {
		// nothing to publish, the target is up to date
		return nil
	}

	err = e.store.RecordPullRequest(ctx, &jobs.PullRequestRecord{
		RepoOwner:        owner,
		RepoName:         repo,
		PRNumber:         result.PRNumber,
		PRURL:            result.PRURL,
		TemplatesApplied: templateNames(templates),
		JobID:            job.ID,
	})
	if err != nil {
		// the pull request exists, failing the job would open a
		// duplicate on retry
		logger.Error(
			"recording pull request in audit trail failed",
			logfields.Event("pull_request_record_failed"),
			logfields.PullRequest(result.PRNumber),
			zap.Error(err),
		)
	}

	return nil
}

// fetchTemplates fetches the configured templates in order.
// The configured order is the precedence order, it must be preserved.
func (e *Executor) fetchTemplates(ctx context.Context, logger *zap.Logger, templates []*cfg.Template) ([]*fetcher.TemplateFiles, error) {
	result := make([]*fetcher.TemplateFiles, 0, len(templates))

	for _, tmpl := range templates {
		source := fetcher.TemplateSource{
			URL:          tmpl.URL,
			Name:         tmpl.Name,
			Branch:       tmpl.Branch,
			SubDirectory: tmpl.SubDirectory,
		}

		files, err := e.fetcher.Fetch(ctx, &source)
		if err != nil {
			if errors.Is(err, fetcher.ErrInvalidSourceURL) || errors.Is(err, fetcher.ErrSubdirectoryNotFound) {
				return nil, weaveerr.NewConfigError(err)
			}

			return nil, fmt.Errorf("fetching template %s failed: %w", source.DisplayName(), err)
		}

		logger.Debug(
			"template fetched",
			logfields.Event("template_fetched"),
			logfields.Template(files.Name),
			zap.Int("file_count", len(files.Files)),
		)

		result = append(result, files)
	}

	return result, nil
}

func fileRulesFromCfg(rules []*cfg.Rule) []*strategy.FileRule {
	result := make([]*strategy.FileRule, 0, len(rules))

	for _, rule := range rules {
		result = append(result, &strategy.FileRule{
			Patterns:      rule.Patterns,
			Category:      rule.Category,
			Strategy:      strategy.Config{Type: rule.Strategy},
			Priority:      rule.Priority,
			PrimarySource: rule.PrimarySource,
		})
	}

	return result
}

func templateNames(templates []*fetcher.TemplateFiles) []string {
	result := make([]string, 0, len(templates))

	for _, tmpl := range templates {
		result = append(result, tmpl.Name)
	}

	return result
}

// primarySources maps file paths to the template a primary_source rule pinned
// them to.
// Paths where the pinned template did not provide the file are left out, the
// planner recorded a fallback warning for those.
func primarySources(decisions []*planner.Decision, rules []*strategy.FileRule) map[string]string {
	result := map[string]string{}

	for _, decision := range decisions {
		for _, rule := range rules {
			if rule.PrimarySource == "" || rule.PrimarySource != decision.SourceTemplate {
				continue
			}

			ok, err := rule.Matches(decision.Path)
			if err != nil || !ok {
				continue
			}

			result[decision.Path] = rule.PrimarySource
			break
		}
	}

	return result
}

// planDetail renders the plan as multi-line text for preview output.
func planDetail(decisions []*planner.Decision) string {
	var b strings.Builder

	for _, decision := range decisions {
		if decision.Err != "" {
			fmt.Fprintf(&b, "%s: failed: %s\n", decision.Path, decision.Err)
			continue
		}

		fmt.Fprintf(&b, "%s: %s (%s)\n", decision.Path, decision.Action, decision.Strategy)

		for _, conflict := range decision.Conflicts {
			b.WriteString(stringutils.IndentString("conflict: "+conflict+"\n", "\t"))
		}

		for _, warning := range decision.Warnings {
			b.WriteString(stringutils.IndentString("warning: "+warning+"\n", "\t"))
		}
	}

	return b.String()
}

func logPlanSummary(logger *zap.Logger, decisions []*planner.Decision) {
	var added, modified, skipped, failed, conflicts int

	for _, decision := range decisions {
		if decision.Err != "" {
			failed++
			continue
		}

		conflicts += len(decision.Conflicts)

		switch decision.Action {
		case planner.ActionAdd:
			added++
		case planner.ActionModify:
			modified++
		case planner.ActionSkip:
			skipped++
		}
	}

	logger.Info(
		"merge plan computed",
		logfields.Event("merge_plan_computed"),
		zap.Int("files_added", added),
		zap.Int("files_modified", modified),
		zap.Int("files_skipped", skipped),
		zap.Int("files_failed", failed),
		zap.Int("conflicts", conflicts),
	)
}
