package githubclt

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/pradeepmouli/repoweaver/internal/logfields"
	"github.com/pradeepmouli/repoweaver/internal/weaveerr"
)

const (
	defRetryTimeout               = 10 * time.Minute
	defBackoffInitialInterval     = 5 * time.Second
	defBackoffRandomizationFactor = backoff.DefaultRandomizationFactor
)

// Retryer executes a function repeatedly until it was successful or a cancel
// condition happened.
// It implements the retry-on-5xx and backoff-on-429 policy for github API
// calls, errors that do not wrap weaveerr.RetryableError abort immediately.
type Retryer struct {
	logger                     *zap.Logger
	defTimeout                 time.Duration
	backoffInitialInterval     time.Duration
	backoffRandomizationFactor float64
	shutdownChan               chan struct{}
}

func NewRetryer() *Retryer {
	return &Retryer{
		logger:                     zap.L().Named("retryer"),
		defTimeout:                 defRetryTimeout,
		backoffInitialInterval:     defBackoffInitialInterval,
		backoffRandomizationFactor: defBackoffRandomizationFactor,
		shutdownChan:               make(chan struct{}),
	}
}

// Run executes fn until it was successful, it returned an error that does not
// wrap weaveerr.RetryableError, the retry timeout expired or the execution
// was aborted via the context.
func (r *Retryer) Run(ctx context.Context, fn func(context.Context) error, logF []zap.Field) error {
	var tryCnt uint

	ctx, cancelFn := context.WithTimeout(ctx, r.defTimeout)
	defer cancelFn()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.backoffInitialInterval
	bo.RandomizationFactor = r.backoffRandomizationFactor
	bo.MaxElapsedTime = r.defTimeout

	retryTimer := time.NewTimer(0)
	defer retryTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info(
				"operation cancelled",
				append(logF, zap.Uint("try_count", tryCnt), logfields.Event("operation_cancelled"))...,
			)

			return ctx.Err()

		case <-r.shutdownChan:
			r.logger.Info(
				"retryer terminated, operation not executed",
				append(logF, logfields.Event("operation_cancelled_retryer_terminated"))...,
			)

			return nil

		case <-retryTimer.C:
		}

		tryCnt++
		logger := r.logger.With(append(logF, zap.Uint("try_count", tryCnt))...)

		err := fn(ctx)
		if err == nil {
			logger.Debug(
				"operation executed successfully",
				logfields.Event("operation_executed_successfully"),
			)

			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var retryError *weaveerr.RetryableError
		if !errors.As(err, &retryError) {
			logger.Error(
				"operation failed, not retryable",
				logfields.Event("operation_failed"),
				zap.Error(err),
			)

			return err
		}

		var retryIn time.Duration
		if retryError.After.IsZero() || retryError.After.Before(time.Now()) {
			retryIn = bo.NextBackOff()
		} else {
			retryIn = time.Until(retryError.After)
		}

		if retryIn == backoff.Stop {
			logger.Warn(
				"giving up retrying operation, retry timeout expired",
				logfields.Event("operation_retry_timeout"),
				zap.Error(err),
			)

			return err
		}

		retryTimer.Reset(retryIn)
		logger.Info(
			"operation failed, retry scheduled",
			logfields.Event("operation_retry_scheduled"),
			zap.Duration("retry_in", retryIn),
			zap.Error(err),
		)
	}
}

// Stop notifies all Run() methods to terminate.
// It does not wait for their termination.
func (r *Retryer) Stop() {
	r.logger.Debug("retryer terminating", logfields.Event("retryer_terminating"))

	select {
	case <-r.shutdownChan:
		return // already closed
	default:
		close(r.shutdownChan)
	}
}
