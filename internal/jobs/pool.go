package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pradeepmouli/repoweaver/internal/logfields"
	"github.com/pradeepmouli/repoweaver/internal/weaveerr"
)

// Runner executes one claimed job.
type Runner interface {
	Execute(ctx context.Context, job *Job) error
}

// WorkerPool polls the store for due jobs on a fixed interval and runs them
// on a bounded number of workers.
// A claimed job runs to completion or failure, there is no mid-flight
// cancellation.
type WorkerPool struct {
	store        *Store
	runner       Runner
	logger       *zap.Logger
	pollInterval time.Duration
	baseDelay    time.Duration

	// slots limits the number of concurrently running jobs, no claim
	// happens while all slots are taken
	slots    chan struct{}
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewWorkerPool(store *Store, runner Runner, workers int, pollInterval, baseDelay time.Duration) *WorkerPool {
	return &WorkerPool{
		store:        store,
		runner:       runner,
		logger:       zap.L().Named("worker-pool"),
		pollInterval: pollInterval,
		baseDelay:    baseDelay,
		slots:        make(chan struct{}, workers),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop until Stop is called.
func (p *WorkerPool) Start() {
	defer close(p.doneChan)

	ctx := context.Background()

	p.logger.Info(
		"worker pool started",
		logfields.Event("worker_pool_started"),
		zap.Int("workers", cap(p.slots)),
		zap.Duration("poll_interval", p.pollInterval),
	)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			p.logger.Debug(
				"waiting for running jobs to terminate",
				logfields.Event("worker_pool_terminating"),
			)

			p.wg.Wait()

			p.logger.Info("worker pool terminated", logfields.Event("worker_pool_terminated"))

			return

		case <-ticker.C:
			p.dispatch(ctx)
			p.updatePendingGauge(ctx)
		}
	}
}

func (p *WorkerPool) dispatch(ctx context.Context) {
	for {
		select {
		case p.slots <- struct{}{}:
		default:
			return
		}

		job, err := p.store.ClaimDue(ctx)
		if err != nil {
			<-p.slots

			p.logger.Error(
				"claiming due job failed",
				logfields.Event("job_claim_failed"),
				zap.Error(err),
			)

			return
		}

		if job == nil {
			<-p.slots
			return
		}

		p.wg.Add(1)
		go p.process(ctx, job)
	}
}

func (p *WorkerPool) process(ctx context.Context, job *Job) {
	defer p.wg.Done()
	defer func() { <-p.slots }()

	logger := p.logger.With(
		logfields.JobID(job.ID),
		logfields.JobType(string(job.Type)),
		logfields.RepositoryOwner(job.RepoOwner),
		logfields.Repository(job.RepoName),
		zap.Int("attempts", job.Attempts),
	)

	logger.Info("job started", logfields.Event("job_started"))

	err := p.runner.Execute(ctx, job)
	if err == nil {
		if err := p.store.Complete(ctx, job.ID); err != nil {
			logger.Error(
				"marking job completed failed",
				logfields.Event("job_state_update_failed"),
				zap.Error(err),
			)

			return
		}

		metrics.ProcessedJobsInc(job.Type, resultLabelCompletedVal)
		logger.Info("job completed", logfields.Event("job_completed"))

		return
	}

	var cfgErr *weaveerr.ConfigError
	if errors.As(err, &cfgErr) {
		// retrying can not fix a static misconfiguration
		if err := p.store.FailTerminal(ctx, job.ID, err.Error()); err != nil {
			logger.Error(
				"marking job failed failed",
				logfields.Event("job_state_update_failed"),
				zap.Error(err),
			)

			return
		}

		metrics.ProcessedJobsInc(job.Type, resultLabelFailedVal)
		logger.Error(
			"job failed, configuration error, not retrying",
			logfields.Event("job_failed"),
			zap.Error(err),
		)

		return
	}

	rescheduled, updateErr := p.store.Fail(ctx, job, err.Error(), p.baseDelay)
	if updateErr != nil {
		logger.Error(
			"recording job failure failed",
			logfields.Event("job_state_update_failed"),
			zap.Error(updateErr),
		)

		return
	}

	if rescheduled {
		metrics.ProcessedJobsInc(job.Type, resultLabelRescheduledVal)
		logger.Warn(
			"job failed, retry scheduled",
			logfields.Event("job_retry_scheduled"),
			zap.Time("scheduled_at", job.ScheduledAt),
			zap.Int("attempts", job.Attempts),
			zap.Error(err),
		)

		return
	}

	metrics.ProcessedJobsInc(job.Type, resultLabelFailedVal)
	logger.Error(
		"job failed, max attempts exhausted",
		logfields.Event("job_failed"),
		zap.Error(err),
	)
}

func (p *WorkerPool) updatePendingGauge(ctx context.Context) {
	counts, err := p.store.CountByStatus(ctx)
	if err != nil {
		p.logger.Debug(
			"counting jobs by status failed",
			logfields.Event("job_count_failed"),
			zap.Error(err),
		)

		return
	}

	metrics.PendingJobsSet(counts[StatusPending])
}

// Stop terminates the polling loop and waits for running jobs.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	<-p.doneChan
}
