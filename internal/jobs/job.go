// Package jobs provides the durable job queue, its worker pool and the
// webhook debouncer.
package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	// TypeApplyTemplates merges templates and opens a pull request.
	TypeApplyTemplates Type = "apply_templates"
	// TypePreviewTemplates runs the same planning path but only reports
	// the would-be diff, it never publishes.
	TypePreviewTemplates Type = "preview_templates"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one persisted unit of work.
// The queue store exclusively owns its lifecycle transitions.
type Job struct {
	ID           string
	Type         Type
	Payload      []byte
	Status       Status
	Attempts     int
	MaxAttempts  int
	ScheduledAt  time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	ErrorMessage string
	RepoOwner    string
	RepoName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository identifies the target repository of a sync job.
type Repository struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
	ID    int64  `json:"id"`
}

// SyncPayload is the payload of apply_templates and preview_templates jobs.
type SyncPayload struct {
	Repository     Repository `json:"repository"`
	InstallationID int64      `json:"installation_id"`
}

// NewSyncJob builds a pending job with a serialized payload.
func NewSyncJob(typ Type, payload *SyncPayload, maxAttempts int, scheduledAt time.Time) (*Job, error) {
	if typ != TypeApplyTemplates && typ != TypePreviewTemplates {
		return nil, fmt.Errorf("unsupported job type: %q", typ)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling job payload failed: %w", err)
	}

	return &Job{
		ID:          uuid.NewString(),
		Type:        typ,
		Payload:     data,
		Status:      StatusPending,
		MaxAttempts: maxAttempts,
		ScheduledAt: scheduledAt,
		RepoOwner:   payload.Repository.Owner,
		RepoName:    payload.Repository.Name,
	}, nil
}

// DecodePayload decodes the payload of job according to its type.
// Payloads are a tagged union keyed by the job type, decoded once at dequeue
// time.
func DecodePayload(job *Job) (*SyncPayload, error) {
	switch job.Type {
	case TypeApplyTemplates, TypePreviewTemplates:
		var payload SyncPayload

		dec := json.NewDecoder(bytes.NewReader(job.Payload))
		dec.DisallowUnknownFields()

		if err := dec.Decode(&payload); err != nil {
			return nil, fmt.Errorf("decoding %s payload failed: %w", job.Type, err)
		}

		return &payload, nil

	default:
		return nil, fmt.Errorf("unsupported job type: %q", job.Type)
	}
}

// PullRequestRecord is one row of the append-only audit trail of opened pull
// requests.
type PullRequestRecord struct {
	RepoOwner        string
	RepoName         string
	PRNumber         int
	PRURL            string
	TemplatesApplied []string
	JobID            string
	CreatedAt        time.Time
}
