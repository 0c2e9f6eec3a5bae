// Package publisher writes planned merge decisions to a branch and opens a
// pull request.
package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pradeepmouli/repoweaver/internal/githubclt"
	"github.com/pradeepmouli/repoweaver/internal/logfields"
	"github.com/pradeepmouli/repoweaver/internal/planner"
)

const loggerName = "pr-publisher"

const branchPrefix = "repoweaver/templates-"

// GithubClient is the github API surface the publisher uses.
type GithubClient interface {
	Repository(ctx context.Context, owner, repo string) (*githubclt.RepositoryInfo, error)
	CreateBranch(ctx context.Context, owner, repo, branch, fromSHA string) error
	CreateOrUpdateFile(ctx context.Context, owner, repo, branch, path string, content []byte, commitMessage string) error
	CreatePullRequest(ctx context.Context, owner, repo, head, base, title, body string) (*githubclt.PullRequest, error)
}

// Target identifies the repository a pull request is opened against.
type Target struct {
	Owner      string
	Repository string
}

// Result describes a published pull request.
type Result struct {
	PRNumber     int
	PRURL        string
	Branch       string
	FilesWritten int
	FilesFailed  []string
}

type Publisher struct {
	clt     GithubClient
	retryer *githubclt.Retryer
	logger  *zap.Logger
}

func New(clt GithubClient, retryer *githubclt.Retryer) *Publisher {
	return &Publisher{
		clt:     clt,
		retryer: retryer,
		logger:  zap.L().Named(loggerName),
	}
}

// Publish creates a uniquely named branch, writes every add and modify
// decision to it and opens a pull request against the default branch.
// When no decision requires a write, nil is returned without error, nothing
// changed is success.
// Per-file write failures are recorded and publishing continues, an error is
// only returned when every write failed.
func (p *Publisher) Publish(ctx context.Context, target Target, decisions []*planner.Decision, templateNames []string, primarySources map[string]string) (*Result, error) {
	writable := writableDecisions(decisions)
	if len(writable) == 0 {
		p.logger.Info(
			"nothing to publish, all files are up to date or skipped",
			logfields.Event("publish_skipped_no_changes"),
			logfields.RepositoryOwner(target.Owner),
			logfields.Repository(target.Repository),
		)

		return nil, nil
	}

	logF := []zap.Field{
		logfields.RepositoryOwner(target.Owner),
		logfields.Repository(target.Repository),
	}

	repoInfo, err := p.clt.Repository(ctx, target.Owner, target.Repository)
	if err != nil {
		return nil, fmt.Errorf("resolving default branch failed: %w", err)
	}

	branch := branchPrefix + uuid.NewString()[:8]

	err = p.retryer.Run(ctx, func(ctx context.Context) error {
		return p.clt.CreateBranch(ctx, target.Owner, target.Repository, branch, repoInfo.HeadCommitID)
	}, append(logF, logfields.Branch(branch)))
	if err != nil {
		return nil, fmt.Errorf("creating branch %s failed: %w", branch, err)
	}

	result := Result{Branch: branch}

	for _, decision := range writable {
		decision := decision

		commitMsg := fmt.Sprintf(
			"%s %s from template %s (strategy: %s)",
			commitVerb(decision.Action), decision.Path,
			decision.SourceTemplate, decision.Strategy,
		)

		err := p.retryer.Run(ctx, func(ctx context.Context) error {
			return p.clt.CreateOrUpdateFile(
				ctx,
				target.Owner, target.Repository, branch,
				decision.Path, decision.Content, commitMsg,
			)
		}, append(logF, logfields.Path(decision.Path)))
		if err != nil {
			decision.Err = fmt.Sprintf("writing file failed: %s", err)
			result.FilesFailed = append(result.FilesFailed, decision.Path)

			p.logger.Warn(
				"writing file to branch failed, continuing with remaining files",
				append(logF,
					logfields.Event("publish_file_write_failed"),
					logfields.Path(decision.Path),
					zap.Error(err),
				)...,
			)

			continue
		}

		result.FilesWritten++
	}

	if result.FilesWritten == 0 {
		return nil, errors.New("publishing failed, no file could be written")
	}

	title := fmt.Sprintf("Apply templates: %s", joinNames(templateNames))
	body := prBody(decisions, templateNames, primarySources)

	pr, err := p.clt.CreatePullRequest(
		ctx,
		target.Owner, target.Repository,
		branch, repoInfo.DefaultBranch,
		title, body,
	)
	if err != nil {
		return nil, fmt.Errorf("opening pull request failed: %w", err)
	}

	result.PRNumber = pr.Number
	result.PRURL = pr.URL

	p.logger.Info(
		"pull request opened",
		append(logF,
			logfields.Event("pull_request_opened"),
			logfields.PullRequest(pr.Number),
			logfields.Branch(branch),
			zap.Int("files_written", result.FilesWritten),
		)...,
	)

	return &result, nil
}

func writableDecisions(decisions []*planner.Decision) []*planner.Decision {
	var result []*planner.Decision

	for _, d := range decisions {
		if d.Err != "" {
			continue
		}

		if d.Action == planner.ActionAdd || d.Action == planner.ActionModify {
			result = append(result, d)
		}
	}

	return result
}

func commitVerb(action planner.Action) string {
	if action == planner.ActionAdd {
		return "Add"
	}

	return "Update"
}
