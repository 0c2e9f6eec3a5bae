// Package weaver connects webhook events, the job queue and the merge
// pipeline.
package weaver

import (
	"context"

	"go.uber.org/zap"

	"github.com/pradeepmouli/repoweaver/internal/jobs"
	"github.com/pradeepmouli/repoweaver/internal/logfields"
	"github.com/pradeepmouli/repoweaver/internal/provider"
)

const DefEventChannelBufferSize = 512

const evLoopLoggerName = "event-loop"

// EvLoop receives webhook events and forwards pushes to the debouncer, which
// schedules sync jobs.
// Event processing is cheap, scheduling only touches the job store, the heavy
// work happens later in the worker pool.
type EvLoop struct {
	ch        chan *provider.Event
	logger    *zap.Logger
	debouncer *jobs.Debouncer
}

func NewEventLoop(debouncer *jobs.Debouncer) *EvLoop {
	return &EvLoop{
		ch:        make(chan *provider.Event, DefEventChannelBufferSize),
		logger:    zap.L().Named(evLoopLoggerName),
		debouncer: debouncer,
	}
}

// C returns the event channel.
// Events sent to this channel will be processed.
// The channel is closed when Stop() is called.
func (e *EvLoop) C() chan<- *provider.Event {
	return e.ch
}

func (e *EvLoop) Start() {
	ctx := context.Background()
	e.logger.Info("ready to process events", logfields.Event("eventloop_started"))

	for ev := range e.ch {
		logger := e.logger.With(ev.LogFields()...)

		logger.Debug("event received", logfields.Event("event_received"))

		if err := e.debouncer.HandlePush(ctx, ev); err != nil {
			logger.Error(
				"scheduling sync jobs for event failed",
				logfields.Event("event_scheduling_failed"),
				zap.Error(err),
			)
		}
	}

	e.logger.Info(
		"event loop terminated, event channel was closed",
		logfields.Event("eventloop_terminated"),
	)
}

// Stop stops the event loop.
// The event channel (EvLoop.C()) will be closed.
func (e *EvLoop) Stop() {
	e.logger.Debug("event loop terminating", logfields.Event("eventloop_terminating"))
	close(e.ch)
}
