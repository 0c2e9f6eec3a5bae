package weaver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/pradeepmouli/repoweaver/internal/jobs"
	"github.com/pradeepmouli/repoweaver/internal/provider"
)

func TestEvLoopSchedulesJobForTemplatePush(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	config := testExecutorConfig()
	store := newTestStore(t)

	debouncer, err := jobs.NewDebouncer(store, config.Targets, 2*time.Minute, 3)
	require.NoError(t, err)

	evLoop := NewEventLoop(debouncer)

	loopTerminated := make(chan struct{})
	go func() {
		defer close(loopTerminated)
		evLoop.Start()
	}()

	evLoop.C() <- &provider.Event{
		JSON:          []byte(`{}`),
		Provider:      "github",
		EventType:     "push",
		Owner:         "acme",
		Repository:    "templates",
		Branch:        "main",
		DefaultBranch: "main",
	}

	require.Eventually(t, func() bool {
		pending, err := store.PendingForRepo(
			context.Background(), "acme", "service-a", jobs.TypeApplyTemplates,
		)

		return err == nil && pending != nil
	}, 5*time.Second, 10*time.Millisecond)

	evLoop.Stop()

	select {
	case <-loopTerminated:
	case <-time.After(5 * time.Second):
		t.Fatal("event loop did not terminate after Stop")
	}

	counts, err := store.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[jobs.Status]int{jobs.StatusPending: 1}, counts)
}
