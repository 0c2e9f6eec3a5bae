package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/itchyny/gojq"
	"go.uber.org/zap"

	"github.com/pradeepmouli/repoweaver/internal/cfg"
	"github.com/pradeepmouli/repoweaver/internal/fetcher"
	"github.com/pradeepmouli/repoweaver/internal/logfields"
	"github.com/pradeepmouli/repoweaver/internal/provider"
	"github.com/pradeepmouli/repoweaver/internal/set"
	"github.com/pradeepmouli/repoweaver/internal/weaveerr"
)

const debouncerLoggerName = "debouncer"

// debounceTarget is one configured target repository, with its filter query
// parsed.
type debounceTarget struct {
	owner      string
	repo       string
	autoUpdate bool
	// filterQuery is nil when the target does not define one.
	filterQuery *gojq.Query
}

func (t *debounceTarget) String() string {
	return t.owner + "/" + t.repo
}

// Debouncer schedules sync jobs for pushes to template repositories.
// Pushes to the same template arriving in quick succession are coalesced into
// a single pending job per target whose scheduled time is pushed forward on
// every matching push.
type Debouncer struct {
	store       *Store
	logger      *zap.Logger
	delay       time.Duration
	maxAttempts int

	// templateIndex maps "owner/repo" of a template repository to the
	// targets that reference it.
	templateIndex map[string][]*debounceTarget
}

func NewDebouncer(store *Store, targets []*cfg.Target, delay time.Duration, maxAttempts int) (*Debouncer, error) {
	d := Debouncer{
		store:         store,
		logger:        zap.L().Named(debouncerLoggerName),
		delay:         delay,
		maxAttempts:   maxAttempts,
		templateIndex: map[string][]*debounceTarget{},
	}

	for _, target := range targets {
		dt := debounceTarget{
			owner:      target.Owner,
			repo:       target.Repository,
			autoUpdate: target.AutoUpdate,
		}

		if target.FilterQuery != "" {
			query, err := gojq.Parse(target.FilterQuery)
			if err != nil {
				return nil, weaveerr.ConfigErrorf(
					"target %s/%s: parsing filter_query failed: %s",
					target.Owner, target.Repository, err,
				)
			}

			dt.filterQuery = query
		}

		// a target listing the same template repository twice, e.g.
		// with different subdirectories, is registered once
		keys := make([]string, 0, len(target.Templates))

		for _, tmpl := range target.Templates {
			owner, repo, _, err := fetcher.ParseSourceURL(tmpl.URL)
			if err != nil {
				return nil, weaveerr.ConfigErrorf(
					"target %s/%s: template url %q: %s",
					target.Owner, target.Repository, tmpl.URL, err,
				)
			}

			keys = append(keys, templateKey(owner, repo))
		}

		for key := range set.FromSlice(keys) {
			d.templateIndex[key] = append(d.templateIndex[key], &dt)
		}
	}

	return &d, nil
}

func templateKey(owner, repo string) string {
	return strings.ToLower(owner + "/" + repo)
}

// HandlePush schedules sync jobs for all targets that reference the pushed
// repository as a template.
// Pushes to branches other than the default branch are ignored.
func (d *Debouncer) HandlePush(ctx context.Context, ev *provider.Event) error {
	metrics.ProcessedEventsInc()

	logger := d.logger.With(ev.LogFields()...)

	if ev.EventType != "push" || ev.Branch == "" {
		logger.Debug("ignoring event, not a branch push",
			logfields.Event("event_ignored"),
		)

		return nil
	}

	if ev.DefaultBranch != "" && ev.Branch != ev.DefaultBranch {
		logger.Debug("ignoring push, not on default branch",
			logfields.Event("event_ignored"),
		)

		return nil
	}

	targets := d.templateIndex[templateKey(ev.Owner, ev.Repository)]
	if len(targets) == 0 {
		logger.Debug("ignoring push, repository is not a configured template",
			logfields.Event("event_ignored"),
		)

		return nil
	}

	var errs []error

	for _, target := range targets {
		targetLogger := logger.With(
			logfields.RepositoryOwner(target.owner),
			logfields.Repository(target.repo),
		)

		if !target.autoUpdate {
			targetLogger.Debug("skipping target, auto-update is disabled",
				logfields.Event("target_skipped"),
			)

			continue
		}

		if target.filterQuery != nil {
			match, err := evalFilterQuery(ctx, target.filterQuery, ev.JSON)
			if err != nil {
				targetLogger.Warn("skipping target, filter query evaluation failed",
					logfields.Event("filter_query_failed"),
					zap.Error(err),
				)

				continue
			}

			if !match {
				targetLogger.Debug("skipping target, filter query did not match",
					logfields.Event("target_skipped"),
				)

				continue
			}
		}

		job, err := d.schedule(ctx, target, ev.InstallationID)
		if err != nil {
			errs = append(errs, fmt.Errorf("target %s: %w", target, err))
			continue
		}

		targetLogger.Info("sync job scheduled",
			logfields.Event("job_scheduled"),
			logfields.JobID(job.ID),
			zap.Time("job.scheduled_at", job.ScheduledAt),
		)
	}

	return errors.Join(errs...)
}

// schedule coalesces the push into the target's pending job or enqueues a new
// one, scheduled after the debounce delay.
func (d *Debouncer) schedule(ctx context.Context, target *debounceTarget, installationID int64) (*Job, error) {
	scheduledAt := time.Now().Add(d.delay)

	pending, err := d.store.PendingForRepo(ctx, target.owner, target.repo, TypeApplyTemplates)
	if err != nil {
		return nil, err
	}

	if pending != nil {
		err = d.store.RescheduleDebounced(ctx, pending.ID, scheduledAt)
		if err == nil {
			pending.ScheduledAt = scheduledAt
			return pending, nil
		}

		// The job was claimed between the select and the update, a new
		// job is enqueued instead.
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	job, err := NewSyncJob(
		TypeApplyTemplates,
		&SyncPayload{
			Repository: Repository{
				Owner: target.owner,
				Name:  target.repo,
			},
			InstallationID: installationID,
		},
		d.maxAttempts,
		scheduledAt,
	)
	if err != nil {
		return nil, err
	}

	if err := d.store.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	return job, nil
}

// EnqueueManual enqueues a sync job for the target without applying the
// debounce delay.
// When preview is true the job plans the changes but does not publish them.
func (d *Debouncer) EnqueueManual(ctx context.Context, owner, repo string, preview bool) (*Job, error) {
	typ := TypeApplyTemplates
	if preview {
		typ = TypePreviewTemplates
	}

	job, err := NewSyncJob(
		typ,
		&SyncPayload{
			Repository: Repository{Owner: owner, Name: repo},
		},
		d.maxAttempts,
		time.Now(),
	)
	if err != nil {
		return nil, err
	}

	if err := d.store.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	d.logger.Info("manual sync job enqueued",
		logfields.Event("job_scheduled"),
		logfields.JobID(job.ID),
		logfields.RepositoryOwner(owner),
		logfields.Repository(repo),
		logfields.JobType(string(typ)),
	)

	return job, nil
}

// HasTarget reports if a target repository is configured.
func (d *Debouncer) HasTarget(owner, repo string) bool {
	for _, targets := range d.templateIndex {
		for _, target := range targets {
			if target.owner == owner && target.repo == repo {
				return true
			}
		}
	}

	return false
}

// evalFilterQuery runs a jq query against the raw event JSON.
// The query must return exactly one boolean result.
func evalFilterQuery(ctx context.Context, query *gojq.Query, eventJSON []byte) (bool, error) {
	if len(eventJSON) == 0 {
		return false, errors.New("json field of event is empty")
	}

	var evUn any
	if err := json.Unmarshal(eventJSON, &evUn); err != nil {
		return false, fmt.Errorf("unmarshaling json failed: %w", err)
	}

	result, errs := goJQIterToSlice(query.RunWithContext(ctx, evUn))
	if len(errs) != 0 {
		return false, fmt.Errorf("json query returned errors, query: %q, errors: %s", query.String(), errString(errs))
	}

	if len(result) != 1 {
		return false, fmt.Errorf("json query returned %d results, expected 1, query: %q", len(result), query.String())
	}

	boolResult, ok := result[0].(bool)
	if !ok {
		return false, fmt.Errorf(
			"json query returned non-bool result: %+v (%T), query: %q",
			result[0], result[0], query.String(),
		)
	}

	return boolResult, nil
}

func goJQIterToSlice(iter gojq.Iter) ([]any, []error) {
	var result []any
	var errors []error

	for {
		res, ok := iter.Next()
		if !ok {
			return result, errors
		}

		if err, isErr := res.(error); isErr {
			errors = append(errors, err)
			continue
		}

		result = append(result, res)
	}
}

func errString(errs []error) string {
	var result strings.Builder

	for i, err := range errs {
		if i > 0 {
			result.WriteString("; ")
		}

		result.WriteString(fmt.Sprintf("error %d: %s", i, err))
	}

	return result.String()
}
