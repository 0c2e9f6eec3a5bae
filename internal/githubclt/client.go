// Package githubclt provides a github API client.
package githubclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v59/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/pradeepmouli/repoweaver/internal/logfields"
	"github.com/pradeepmouli/repoweaver/internal/weaveerr"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "github_client"

// New returns a new github api client.
func New(oauthAPItoken string) *Client {
	httpClient := newHTTPClient(oauthAPItoken)
	return &Client{
		restClt: github.NewClient(httpClient),
		logger:  zap.L().Named(loggerName),
	}
}

func newHTTPClient(apiToken string) *http.Client {
	if apiToken == "" {
		return &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiToken},
	)

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultHTTPClientTimeout

	return tc
}

// Client is a github API client.
// All methods return a weaveerr.RetryableError when an operation can be
// retried. This can be e.g. the case when the API ratelimit is exceeded.
type Client struct {
	restClt *github.Client
	logger  *zap.Logger
}

// RepositoryInfo describes a repository's default branch and its current
// head commit.
type RepositoryInfo struct {
	DefaultBranch string
	HeadCommitID  string
}

func (clt *Client) Repository(ctx context.Context, owner, repo string) (*RepositoryInfo, error) {
	repository, _, err := clt.restClt.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	defBranch := repository.GetDefaultBranch()
	if defBranch == "" {
		return nil, errors.New("github returned a repository object with empty default branch")
	}

	ref, _, err := clt.restClt.Git.GetRef(ctx, owner, repo, "heads/"+defBranch)
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	sha := ref.GetObject().GetSHA()
	if sha == "" {
		return nil, errors.New("github returned a ref object with empty sha")
	}

	return &RepositoryInfo{
		DefaultBranch: defBranch,
		HeadCommitID:  sha,
	}, nil
}

// TreeEntry is one blob of a repository tree.
type TreeEntry struct {
	Path string
	SHA  string
	Mode string
}

// Tree returns all blob entries of the recursive git tree at ref.
func (clt *Client) Tree(ctx context.Context, owner, repo, ref string) ([]*TreeEntry, error) {
	tree, _, err := clt.restClt.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	if tree.GetTruncated() {
		return nil, fmt.Errorf("github truncated the tree of %s/%s@%s, repository is too big", owner, repo, ref)
	}

	result := make([]*TreeEntry, 0, len(tree.Entries))

	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}

		result = append(result, &TreeEntry{
			Path: entry.GetPath(),
			SHA:  entry.GetSHA(),
			Mode: entry.GetMode(),
		})
	}

	return result, nil
}

func (clt *Client) Blob(ctx context.Context, owner, repo, sha string) ([]byte, error) {
	content, _, err := clt.restClt.Git.GetBlobRaw(ctx, owner, repo, sha)
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return content, nil
}

// FileContent returns the content and blob SHA of path at ref.
// When the file does not exist, found is false and no error is returned.
func (clt *Client) FileContent(ctx context.Context, owner, repo, path, ref string) (content []byte, sha string, found bool, err error) {
	fileContent, _, resp, err := clt.restClt.Repositories.GetContents(
		ctx, owner, repo, path,
		&github.RepositoryContentGetOptions{Ref: ref},
	)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, "", false, nil
		}

		return nil, "", false, clt.wrapRetryableErrors(err)
	}

	if fileContent == nil {
		return nil, "", false, fmt.Errorf("%s is a directory, not a file", path)
	}

	decoded, err := fileContent.GetContent()
	if err != nil {
		return nil, "", false, fmt.Errorf("decoding content of %s failed: %w", path, err)
	}

	return []byte(decoded), fileContent.GetSHA(), true, nil
}

// CreateBranch creates branch pointing at fromSHA.
func (clt *Client) CreateBranch(ctx context.Context, owner, repo, branch, fromSHA string) error {
	_, _, err := clt.restClt.Git.CreateRef(ctx, owner, repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(fromSHA)},
	})
	if err != nil {
		return clt.wrapRetryableErrors(err)
	}

	clt.logger.Debug(
		"branch created",
		logfields.Event("github_branch_created"),
		logfields.RepositoryOwner(owner),
		logfields.Repository(repo),
		logfields.Branch(branch),
		logfields.Commit(fromSHA),
	)

	return nil
}

// CreateOrUpdateFile writes content to path on branch with one commit.
// When the file already exists on the branch its blob SHA is resolved first,
// the github contents API requires it for updates.
func (clt *Client) CreateOrUpdateFile(ctx context.Context, owner, repo, branch, path string, content []byte, commitMessage string) error {
	_, existingSHA, exists, err := clt.FileContent(ctx, owner, repo, path, branch)
	if err != nil {
		return fmt.Errorf("resolving existing content of %s failed: %w", path, err)
	}

	opts := github.RepositoryContentFileOptions{
		Message: github.String(commitMessage),
		Content: content,
		Branch:  github.String(branch),
	}

	if exists {
		opts.SHA = github.String(existingSHA)
		_, _, err = clt.restClt.Repositories.UpdateFile(ctx, owner, repo, path, &opts)
	} else {
		_, _, err = clt.restClt.Repositories.CreateFile(ctx, owner, repo, path, &opts)
	}

	return clt.wrapRetryableErrors(err)
}

// PullRequest describes a created pull request.
type PullRequest struct {
	Number int
	URL    string
}

func (clt *Client) CreatePullRequest(ctx context.Context, owner, repo, head, base, title, body string) (*PullRequest, error) {
	pr, _, err := clt.restClt.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return &PullRequest{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
	}, nil
}

// RateLimitStatus returns the remaining core API quota and its reset time.
func (clt *Client) RateLimitStatus(ctx context.Context) (remaining int, reset time.Time, err error) {
	limits, _, err := clt.restClt.RateLimit.Get(ctx)
	if err != nil {
		return 0, time.Time{}, clt.wrapRetryableErrors(err)
	}

	core := limits.GetCore()
	if core == nil {
		return 0, time.Time{}, errors.New("github returned a rate limit object without core limits")
	}

	return core.Remaining, core.Reset.Time, nil
}

func (clt *Client) wrapRetryableErrors(err error) error {
	switch v := err.(type) {
	case *github.RateLimitError:
		clt.logger.Info(
			"rate limit exceeded",
			logfields.Event("github_api_rate_limit_exceeded"),
			zap.Int("github_api_rate_limit", v.Rate.Limit),
			zap.Time("github_api_rate_limit_reset_time", v.Rate.Reset.Time),
		)

		return weaveerr.NewRetryableError(err, v.Rate.Reset.Time)

	case *github.AbuseRateLimitError:
		retryAfter := time.Time{}
		if v.RetryAfter != nil {
			retryAfter = time.Now().Add(*v.RetryAfter)
		}

		clt.logger.Info(
			"secondary rate limit exceeded",
			logfields.Event("github_api_secondary_rate_limit_exceeded"),
			zap.Time("github_api_retry_after", retryAfter),
		)

		return weaveerr.NewRetryableError(err, retryAfter)

	case *github.ErrorResponse:
		if v.Response.StatusCode >= 500 && v.Response.StatusCode < 600 {
			return weaveerr.NewRetryableAnytimeError(err)
		}
	}

	return err
}
