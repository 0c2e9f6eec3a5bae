package githubclt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/pradeepmouli/repoweaver/internal/weaveerr"
)

func TestRetryerRetriesRetryableErrors(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	r := NewRetryer()
	r.backoffInitialInterval = 10 * time.Millisecond
	r.backoffRandomizationFactor = 0
	t.Cleanup(r.Stop)

	var calls int
	err := r.Run(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return weaveerr.NewRetryableAnytimeError(errors.New("err"))
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryerAbortsOnNonRetryableError(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	r := NewRetryer()
	t.Cleanup(r.Stop)

	wantErr := errors.New("permanent")

	var calls int
	err := r.Run(context.Background(), func(context.Context) error {
		calls++
		return wantErr
	}, nil)

	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

func TestRetryerHonorsContextCancellation(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	r := NewRetryer()
	r.backoffInitialInterval = 50 * time.Millisecond
	t.Cleanup(r.Stop)

	ctx, cancelFn := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancelFn()

	err := r.Run(ctx, func(context.Context) error {
		return weaveerr.NewRetryableAnytimeError(errors.New("err"))
	}, nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
