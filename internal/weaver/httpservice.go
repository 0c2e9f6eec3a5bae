package weaver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pradeepmouli/repoweaver/internal/jobs"
	"github.com/pradeepmouli/repoweaver/internal/logfields"
)

// HTTPService exposes manual sync triggers, job status and the pull request
// audit trail as a JSON API.
type HTTPService struct {
	store     *jobs.Store
	debouncer *jobs.Debouncer
	logger    *zap.Logger
}

func NewHTTPService(store *jobs.Store, debouncer *jobs.Debouncer) *HTTPService {
	return &HTTPService{
		store:     store,
		debouncer: debouncer,
		logger:    zap.L().Named("http_service"),
	}
}

func (h *HTTPService) RegisterHandlers(mux *http.ServeMux, endpoint string) {
	mux.HandleFunc(endpoint+"sync", h.HandlerTrigger)
	mux.HandleFunc(endpoint+"jobs", h.HandlerListJobs)
	mux.HandleFunc(endpoint+"jobs/", h.HandlerGetJob)
	mux.HandleFunc(endpoint+"pullrequests", h.HandlerListPullRequests)
}

type jobResponse struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	Attempts     int    `json:"attempts"`
	MaxAttempts  int    `json:"max_attempts"`
	ScheduledAt  string `json:"scheduled_at"`
	StartedAt    string `json:"started_at,omitempty"`
	CompletedAt  string `json:"completed_at,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	RepoOwner    string `json:"repo_owner"`
	RepoName     string `json:"repo_name"`
}

func toJobResponse(job *jobs.Job) *jobResponse {
	resp := jobResponse{
		ID:           job.ID,
		Type:         string(job.Type),
		Status:       string(job.Status),
		Attempts:     job.Attempts,
		MaxAttempts:  job.MaxAttempts,
		ScheduledAt:  job.ScheduledAt.Format(time.RFC3339),
		ErrorMessage: job.ErrorMessage,
		RepoOwner:    job.RepoOwner,
		RepoName:     job.RepoName,
	}

	if !job.StartedAt.IsZero() {
		resp.StartedAt = job.StartedAt.Format(time.RFC3339)
	}

	if !job.CompletedAt.IsZero() {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}

	return &resp
}

func (h *HTTPService) writeJSON(resp http.ResponseWriter, status int, data any) {
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(status)

	if err := json.NewEncoder(resp).Encode(data); err != nil {
		h.logger.Info("sending http response failed", zap.Error(err))
	}
}

// HandlerTrigger enqueues a sync job immediately, bypassing the debounce
// delay.
// With preview=true the job computes the merge plan without publishing it.
func (h *HTTPService) HandlerTrigger(resp http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(resp, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	owner := req.FormValue("owner")
	repository := req.FormValue("repository")

	if owner == "" || repository == "" {
		http.Error(resp, "missing parameter: owner or repository", http.StatusBadRequest)
		return
	}

	if !h.debouncer.HasTarget(owner, repository) {
		http.Error(resp, "repository is not a configured target", http.StatusNotFound)
		return
	}

	preview, _ := strconv.ParseBool(req.FormValue("preview"))

	job, err := h.debouncer.EnqueueManual(req.Context(), owner, repository, preview)
	if err != nil {
		h.logger.Error(
			"enqueueing manual sync job failed",
			logfields.Event("manual_trigger_failed"),
			logfields.RepositoryOwner(owner),
			logfields.Repository(repository),
			zap.Error(err),
		)

		http.Error(resp, "enqueueing job failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(resp, http.StatusAccepted, toJobResponse(job))
}

func (h *HTTPService) HandlerListJobs(resp http.ResponseWriter, req *http.Request) {
	limit, _ := strconv.Atoi(req.FormValue("limit"))

	list, err := h.store.ListRecent(req.Context(), limit)
	if err != nil {
		h.logger.Error("listing jobs failed", zap.Error(err))
		http.Error(resp, "listing jobs failed", http.StatusInternalServerError)
		return
	}

	result := make([]*jobResponse, 0, len(list))
	for _, job := range list {
		result = append(result, toJobResponse(job))
	}

	h.writeJSON(resp, http.StatusOK, result)
}

func (h *HTTPService) HandlerGetJob(resp http.ResponseWriter, req *http.Request) {
	id := req.URL.Path[strings.LastIndex(req.URL.Path, "/")+1:]
	if id == "" {
		http.Error(resp, "missing job id", http.StatusBadRequest)
		return
	}

	job, err := h.store.Get(req.Context(), id)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			http.Error(resp, "job not found", http.StatusNotFound)
			return
		}

		h.logger.Error("fetching job failed", logfields.JobID(id), zap.Error(err))
		http.Error(resp, "fetching job failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(resp, http.StatusOK, toJobResponse(job))
}

type pullRequestResponse struct {
	RepoOwner        string   `json:"repo_owner"`
	RepoName         string   `json:"repo_name"`
	PRNumber         int      `json:"pr_number"`
	PRURL            string   `json:"pr_url"`
	TemplatesApplied []string `json:"templates_applied"`
	JobID            string   `json:"job_id"`
	CreatedAt        string   `json:"created_at"`
}

func (h *HTTPService) HandlerListPullRequests(resp http.ResponseWriter, req *http.Request) {
	owner := req.FormValue("owner")
	repository := req.FormValue("repository")

	if owner == "" || repository == "" {
		http.Error(resp, "missing parameter: owner or repository", http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(req.FormValue("limit"))

	records, err := h.store.ListPullRequests(req.Context(), owner, repository, limit)
	if err != nil {
		h.logger.Error("listing pull requests failed", zap.Error(err))
		http.Error(resp, "listing pull requests failed", http.StatusInternalServerError)
		return
	}

	result := make([]*pullRequestResponse, 0, len(records))
	for _, rec := range records {
		result = append(result, &pullRequestResponse{
			RepoOwner:        rec.RepoOwner,
			RepoName:         rec.RepoName,
			PRNumber:         rec.PRNumber,
			PRURL:            rec.PRURL,
			TemplatesApplied: rec.TemplatesApplied,
			JobID:            rec.JobID,
			CreatedAt:        rec.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(resp, http.StatusOK, result)
}
