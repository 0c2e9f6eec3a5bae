package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// Store persists jobs and the pull request audit trail in sqlite.
// All lifecycle mutations are single-row updates, jobs are independent of
// each other and no cross-row transactions are needed.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  payload TEXT NOT NULL,
  status TEXT NOT NULL,
  attempts INTEGER NOT NULL DEFAULT 0,
  max_attempts INTEGER NOT NULL,
  scheduled_at INTEGER NOT NULL,
  started_at INTEGER,
  completed_at INTEGER,
  error_message TEXT,
  repo_owner TEXT NOT NULL,
  repo_name TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS jobs_status_scheduled_idx ON jobs (status, scheduled_at);

CREATE TABLE IF NOT EXISTS pull_requests (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  repo_owner TEXT NOT NULL,
  repo_name TEXT NOT NULL,
  pr_number INTEGER NOT NULL,
  pr_url TEXT NOT NULL,
  templates_applied TEXT NOT NULL,
  job_id TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema failed: %w", err)
	}

	return &Store{
		db:     db,
		logger: zap.L().Named("job-store"),
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Enqueue(ctx context.Context, job *Job) error {
	now := time.Now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, type, payload, status, attempts, max_attempts,
		                   scheduled_at, repo_owner, repo_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		string(job.Type),
		string(job.Payload),
		string(StatusPending),
		job.Attempts,
		job.MaxAttempts,
		job.ScheduledAt.UnixMilli(),
		job.RepoOwner,
		job.RepoName,
		now.UnixMilli(),
		now.UnixMilli(),
	)

	return err
}

const jobColumns = `id, type, payload, status, attempts, max_attempts,
scheduled_at, started_at, completed_at, error_message, repo_owner, repo_name,
created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job                    Job
		typ, payload, status   string
		scheduledMs            int64
		startedMs, completedMs sql.NullInt64
		errorMsg               sql.NullString
		createdMs, updatedMs   int64
	)

	err := row.Scan(
		&job.ID, &typ, &payload, &status, &job.Attempts, &job.MaxAttempts,
		&scheduledMs, &startedMs, &completedMs, &errorMsg,
		&job.RepoOwner, &job.RepoName, &createdMs, &updatedMs,
	)
	if err != nil {
		return nil, err
	}

	job.Type = Type(typ)
	job.Payload = []byte(payload)
	job.Status = Status(status)
	job.ScheduledAt = time.UnixMilli(scheduledMs)
	job.CreatedAt = time.UnixMilli(createdMs)
	job.UpdatedAt = time.UnixMilli(updatedMs)

	if startedMs.Valid {
		job.StartedAt = time.UnixMilli(startedMs.Int64)
	}

	if completedMs.Valid {
		job.CompletedAt = time.UnixMilli(completedMs.Int64)
	}

	if errorMsg.Valid {
		job.ErrorMessage = errorMsg.String
	}

	return &job, nil
}

// ClaimDue claims the oldest due pending job by transitioning it to running.
// The status transition happens before any processing, a second poll can not
// claim the same job again.
// It returns nil when no job is due.
func (s *Store) ClaimDue(ctx context.Context) (*Job, error) {
	now := time.Now()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE status = ? AND scheduled_at <= ?
		 ORDER BY scheduled_at ASC LIMIT 1`,
		string(StatusPending), now.UnixMilli(),
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, started_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(StatusRunning), now.UnixMilli(), now.UnixMilli(),
		job.ID, string(StatusPending),
	)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if affected != 1 {
		// claimed concurrently between SELECT and UPDATE
		return nil, nil
	}

	job.Status = StatusRunning
	job.StartedAt = now

	return job, nil
}

func (s *Store) Complete(ctx context.Context, id string) error {
	now := time.Now()

	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		string(StatusCompleted), now.UnixMilli(), now.UnixMilli(), id,
	)

	return err
}

// Fail records a failed attempt.
// While attempts are left the job is returned to pending with an exponential
// backoff delay of 2^attempts * baseDelay, otherwise it is marked failed
// terminally with errorMessage.
func (s *Store) Fail(ctx context.Context, job *Job, errorMessage string, baseDelay time.Duration) (rescheduled bool, err error) {
	now := time.Now()

	if job.Attempts >= job.MaxAttempts {
		return false, s.FailTerminal(ctx, job.ID, errorMessage)
	}

	attempts := job.Attempts + 1
	delay := (1 << uint(attempts)) * baseDelay
	scheduledAt := now.Add(delay)

	_, err = s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, attempts = ?, scheduled_at = ?,
		        started_at = NULL, error_message = ?, updated_at = ?
		 WHERE id = ?`,
		string(StatusPending), attempts, scheduledAt.UnixMilli(),
		errorMessage, now.UnixMilli(), job.ID,
	)
	if err != nil {
		return false, err
	}

	job.Attempts = attempts
	job.ScheduledAt = scheduledAt

	return true, nil
}

// FailTerminal marks the job failed without any further retry.
func (s *Store) FailTerminal(ctx context.Context, id, errorMessage string) error {
	now := time.Now()

	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, completed_at = ?, error_message = ?, updated_at = ?
		 WHERE id = ?`,
		string(StatusFailed), now.UnixMilli(), errorMessage, now.UnixMilli(), id,
	)

	return err
}

// RescheduleDebounced pushes the scheduled time of a pending job forward.
func (s *Store) RescheduleDebounced(ctx context.Context, id string, scheduledAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET scheduled_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		scheduledAt.UnixMilli(), time.Now().UnixMilli(), id, string(StatusPending),
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected != 1 {
		return fmt.Errorf("job %s: %w or not pending anymore", id, ErrNotFound)
	}

	return nil
}

// PendingForRepo returns the pending job of the given type for the target
// repository or nil.
// The debounce logic guarantees at most one pending job per target.
func (s *Store) PendingForRepo(ctx context.Context, owner, name string, typ Type) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE status = ? AND repo_owner = ? AND repo_name = ? AND type = ?
		 ORDER BY scheduled_at ASC LIMIT 1`,
		string(StatusPending), owner, name, string(typ),
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return job, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id,
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return job, nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 25
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY updated_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Job

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}

		result = append(result, job)
	}

	return result, rows.Err()
}

func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM jobs GROUP BY status`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[Status]int{}

	for rows.Next() {
		var status string
		var count int

		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}

		result[Status(status)] = count
	}

	return result, rows.Err()
}

// RequeueStuck returns running jobs whose worker died back to pending.
// Claiming only flips the status, no lease exists, a crashed process leaves
// jobs stuck in running. This is an operator tool, no automatic sweep calls
// it.
func (s *Store) RequeueStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	now := time.Now()
	cutoff := now.Add(-olderThan)

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, started_at = NULL, scheduled_at = ?, updated_at = ?
		 WHERE status = ? AND started_at < ?`,
		string(StatusPending), now.UnixMilli(), now.UnixMilli(),
		string(StatusRunning), cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}

// RecordPullRequest appends to the audit trail of opened pull requests.
// Records are never mutated.
func (s *Store) RecordPullRequest(ctx context.Context, rec *PullRequestRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pull_requests (repo_owner, repo_name, pr_number, pr_url,
		                            templates_applied, job_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RepoOwner, rec.RepoName, rec.PRNumber, rec.PRURL,
		strings.Join(rec.TemplatesApplied, ","), rec.JobID,
		time.Now().UnixMilli(),
	)

	return err
}

func (s *Store) ListPullRequests(ctx context.Context, owner, name string, limit int) ([]*PullRequestRecord, error) {
	if limit <= 0 {
		limit = 25
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT repo_owner, repo_name, pr_number, pr_url, templates_applied, job_id, created_at
		 FROM pull_requests
		 WHERE repo_owner = ? AND repo_name = ?
		 ORDER BY created_at DESC LIMIT ?`,
		owner, name, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*PullRequestRecord

	for rows.Next() {
		var rec PullRequestRecord
		var templates string
		var createdMs int64

		err := rows.Scan(
			&rec.RepoOwner, &rec.RepoName, &rec.PRNumber, &rec.PRURL,
			&templates, &rec.JobID, &createdMs,
		)
		if err != nil {
			return nil, err
		}

		if templates != "" {
			rec.TemplatesApplied = strings.Split(templates, ",")
		}

		rec.CreatedAt = time.UnixMilli(createdMs)

		result = append(result, &rec)
	}

	return result, rows.Err()
}
