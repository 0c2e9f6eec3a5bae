package weaver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/pradeepmouli/repoweaver/internal/jobs"
)

func newTestHTTPService(t *testing.T) (*HTTPService, *jobs.Store) {
	t.Helper()
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	config := testExecutorConfig()
	store := newTestStore(t)

	debouncer, err := jobs.NewDebouncer(store, config.Targets, 2*time.Minute, 3)
	require.NoError(t, err)

	return NewHTTPService(store, debouncer), store
}

func newTriggerReq(params url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(params.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return req
}

func TestHandlerTriggerEnqueuesJob(t *testing.T) {
	service, store := newTestHTTPService(t)

	respRecorder := httptest.NewRecorder()
	service.HandlerTrigger(respRecorder, newTriggerReq(url.Values{
		"owner":      []string{"acme"},
		"repository": []string{"service-a"},
		"preview":    []string{"true"},
	}))

	require.Equal(t, http.StatusAccepted, respRecorder.Code)

	var resp jobResponse
	require.NoError(t, json.Unmarshal(respRecorder.Body.Bytes(), &resp))

	assert.Equal(t, string(jobs.TypePreviewTemplates), resp.Type)
	assert.Equal(t, string(jobs.StatusPending), resp.Status)

	stored, err := store.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", stored.RepoOwner)
	assert.Equal(t, "service-a", stored.RepoName)
}

func TestHandlerTriggerUnknownTarget(t *testing.T) {
	service, _ := newTestHTTPService(t)

	respRecorder := httptest.NewRecorder()
	service.HandlerTrigger(respRecorder, newTriggerReq(url.Values{
		"owner":      []string{"acme"},
		"repository": []string{"not-configured"},
	}))

	assert.Equal(t, http.StatusNotFound, respRecorder.Code)
}

func TestHandlerTriggerRequiresPost(t *testing.T) {
	service, _ := newTestHTTPService(t)

	respRecorder := httptest.NewRecorder()
	service.HandlerTrigger(respRecorder, httptest.NewRequest(http.MethodGet, "/api/sync", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, respRecorder.Code)
}

func TestHandlerGetJob(t *testing.T) {
	service, store := newTestHTTPService(t)

	job := newSyncJob(t, jobs.TypeApplyTemplates)
	require.NoError(t, store.Enqueue(context.Background(), job))

	respRecorder := httptest.NewRecorder()
	service.HandlerGetJob(respRecorder, httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil))

	require.Equal(t, http.StatusOK, respRecorder.Code)

	var resp jobResponse
	require.NoError(t, json.Unmarshal(respRecorder.Body.Bytes(), &resp))
	assert.Equal(t, job.ID, resp.ID)

	respRecorder = httptest.NewRecorder()
	service.HandlerGetJob(respRecorder, httptest.NewRequest(http.MethodGet, "/api/jobs/unknown-id", nil))
	assert.Equal(t, http.StatusNotFound, respRecorder.Code)
}

func TestHandlerListJobs(t *testing.T) {
	service, store := newTestHTTPService(t)

	ctx := context.Background()
	require.NoError(t, store.Enqueue(ctx, newSyncJob(t, jobs.TypeApplyTemplates)))
	require.NoError(t, store.Enqueue(ctx, newSyncJob(t, jobs.TypePreviewTemplates)))

	respRecorder := httptest.NewRecorder()
	service.HandlerListJobs(respRecorder, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))

	require.Equal(t, http.StatusOK, respRecorder.Code)

	var resp []*jobResponse
	require.NoError(t, json.Unmarshal(respRecorder.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestHandlerListPullRequests(t *testing.T) {
	service, store := newTestHTTPService(t)

	ctx := context.Background()
	require.NoError(t, store.RecordPullRequest(ctx, &jobs.PullRequestRecord{
		RepoOwner:        "acme",
		RepoName:         "service-a",
		PRNumber:         5,
		PRURL:            "https://github.com/acme/service-a/pull/5",
		TemplatesApplied: []string{"base-templates"},
		JobID:            "job-1",
	}))

	respRecorder := httptest.NewRecorder()
	service.HandlerListPullRequests(respRecorder, httptest.NewRequest(
		http.MethodGet, "/api/pullrequests?owner=acme&repository=service-a", nil,
	))

	require.Equal(t, http.StatusOK, respRecorder.Code)

	var resp []*pullRequestResponse
	require.NoError(t, json.Unmarshal(respRecorder.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, 5, resp[0].PRNumber)
	assert.Equal(t, []string{"base-templates"}, resp[0].TemplatesApplied)
}
