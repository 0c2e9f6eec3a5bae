package publisher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/pradeepmouli/repoweaver/internal/githubclt"
	"github.com/pradeepmouli/repoweaver/internal/planner"
	"github.com/pradeepmouli/repoweaver/internal/publisher/mocks"
)

var testTarget = Target{Owner: "acme", Repository: "service-a"}

func newTestPublisher(t *testing.T) (*Publisher, *mocks.MockGithubClient) {
	t.Helper()
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	ghClient := mocks.NewMockGithubClient(mockctrl)

	retryer := githubclt.NewRetryer()
	t.Cleanup(retryer.Stop)

	return New(ghClient, retryer), ghClient
}

func TestPublishNothingToWriteIsSuccessWithoutPR(t *testing.T) {
	p, ghClient := newTestPublisher(t)

	decisions := []*planner.Decision{
		{Path: "README.md", Action: planner.ActionSkip, Strategy: "skip"},
	}

	ghClient.EXPECT().CreatePullRequest(
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
		gomock.Any(), gomock.Any(), gomock.Any(),
	).Times(0)

	result, err := p.Publish(context.Background(), testTarget, decisions, []string{"base"}, nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestPublishWritesDecisionsAndOpensPR(t *testing.T) {
	p, ghClient := newTestPublisher(t)

	decisions := []*planner.Decision{
		{Path: "a.txt", Action: planner.ActionAdd, Strategy: "overwrite", SourceTemplate: "base", Content: []byte("a")},
		{Path: "b.txt", Action: planner.ActionModify, Strategy: "merge", SourceTemplate: "base", Content: []byte("b")},
		{Path: "c.txt", Action: planner.ActionSkip, Strategy: "skip"},
	}

	ghClient.EXPECT().
		Repository(gomock.Any(), testTarget.Owner, testTarget.Repository).
		Return(&githubclt.RepositoryInfo{DefaultBranch: "main", HeadCommitID: "abc123"}, nil)

	var createdBranch string
	ghClient.EXPECT().
		CreateBranch(gomock.Any(), testTarget.Owner, testTarget.Repository, gomock.Any(), "abc123").
		DoAndReturn(func(_ context.Context, _, _, branch, _ string) error {
			createdBranch = branch
			return nil
		})

	ghClient.EXPECT().
		CreateOrUpdateFile(
			gomock.Any(), testTarget.Owner, testTarget.Repository,
			gomock.Any(), "a.txt", []byte("a"), gomock.Any(),
		).
		Return(nil)

	var commitMsg string
	ghClient.EXPECT().
		CreateOrUpdateFile(
			gomock.Any(), testTarget.Owner, testTarget.Repository,
			gomock.Any(), "b.txt", []byte("b"), gomock.Any(),
		).
		DoAndReturn(func(_ context.Context, _, _, _, _ string, _ []byte, msg string) error {
			commitMsg = msg
			return nil
		})

	ghClient.EXPECT().
		CreatePullRequest(
			gomock.Any(), testTarget.Owner, testTarget.Repository,
			gomock.Any(), "main", gomock.Any(), gomock.Any(),
		).
		Return(&githubclt.PullRequest{Number: 42, URL: "https://github.com/acme/service-a/pull/42"}, nil)

	result, err := p.Publish(context.Background(), testTarget, decisions, []string{"base"}, nil)
	require.NoError(t, err)

	require.NotNil(t, result)
	assert.Equal(t, 42, result.PRNumber)
	assert.Equal(t, 2, result.FilesWritten)
	assert.Equal(t, createdBranch, result.Branch)
	assert.True(t, strings.HasPrefix(result.Branch, branchPrefix))
	assert.Contains(t, commitMsg, "merge", "commit message names the strategy")
}

func TestPublishContinuesAfterFileWriteFailure(t *testing.T) {
	p, ghClient := newTestPublisher(t)

	decisions := []*planner.Decision{
		{Path: "broken.txt", Action: planner.ActionAdd, Strategy: "overwrite", SourceTemplate: "base", Content: []byte("x")},
		{Path: "ok.txt", Action: planner.ActionAdd, Strategy: "overwrite", SourceTemplate: "base", Content: []byte("y")},
	}

	ghClient.EXPECT().
		Repository(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&githubclt.RepositoryInfo{DefaultBranch: "main", HeadCommitID: "abc123"}, nil)

	ghClient.EXPECT().
		CreateBranch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	ghClient.EXPECT().
		CreateOrUpdateFile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), "broken.txt", gomock.Any(), gomock.Any()).
		Return(errors.New("write failed"))

	ghClient.EXPECT().
		CreateOrUpdateFile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), "ok.txt", gomock.Any(), gomock.Any()).
		Return(nil)

	ghClient.EXPECT().
		CreatePullRequest(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&githubclt.PullRequest{Number: 7, URL: "u"}, nil)

	result, err := p.Publish(context.Background(), testTarget, decisions, []string{"base"}, nil)
	require.NoError(t, err)

	require.NotNil(t, result)
	assert.Equal(t, 1, result.FilesWritten)
	assert.Equal(t, []string{"broken.txt"}, result.FilesFailed)
}

func TestPublishFailsWhenEveryWriteFails(t *testing.T) {
	p, ghClient := newTestPublisher(t)

	decisions := []*planner.Decision{
		{Path: "broken.txt", Action: planner.ActionAdd, Strategy: "overwrite", SourceTemplate: "base", Content: []byte("x")},
	}

	ghClient.EXPECT().
		Repository(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&githubclt.RepositoryInfo{DefaultBranch: "main", HeadCommitID: "abc123"}, nil)

	ghClient.EXPECT().
		CreateBranch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	ghClient.EXPECT().
		CreateOrUpdateFile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("write failed"))

	_, err := p.Publish(context.Background(), testTarget, decisions, []string{"base"}, nil)
	require.Error(t, err)
}

func TestPRBodyContainsConflictsAndWarnings(t *testing.T) {
	decisions := []*planner.Decision{
		{
			Path: "a.txt", Action: planner.ActionModify, Strategy: "merge", SourceTemplate: "base",
			Conflicts: []string{"existing content differs"},
		},
		{
			Path: "b.txt", Action: planner.ActionAdd, Strategy: "overwrite", SourceTemplate: "ci",
			Warnings: []string{"primary source \"x\" does not provide b.txt"},
		},
	}

	body := prBody(decisions, []string{"base", "ci"}, map[string]string{"ci-workflows": "ci"})

	assert.Contains(t, body, "## Conflicts")
	assert.Contains(t, body, "existing content differs")
	assert.Contains(t, body, "## Warnings")
	assert.Contains(t, body, "## Primary sources")
	assert.Contains(t, body, "base, ci")
}
