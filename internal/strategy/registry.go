package strategy

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pradeepmouli/repoweaver/internal/logfields"
	"github.com/pradeepmouli/repoweaver/internal/weaveerr"
)

const loggerName = "strategy-registry"

// pluginConstructors is the closed set of strategies that can be enabled by
// name via the plugins configuration list.
// Additional plugins register themselves via RegisterPlugin from an init
// function.
var pluginConstructors = map[string]func() Strategy{}

// RegisterPlugin makes a named plugin strategy available for
// Registry.LoadPlugins.
// It panics when name is already taken, plugin names must be unique per
// process.
func RegisterPlugin(name string, constructor func() Strategy) {
	if _, exist := pluginConstructors[name]; exist {
		panic(fmt.Sprintf("plugin strategy %q is already registered", name))
	}

	pluginConstructors[name] = constructor
}

// Registry holds the strategies available to one job run.
// It is created per job, Cleanup must be called at job end regardless of the
// job result.
type Registry struct {
	logger     *zap.Logger
	strategies map[string]Strategy
}

func NewRegistry() *Registry {
	r := Registry{
		logger:     zap.L().Named(loggerName),
		strategies: map[string]Strategy{},
	}

	for _, s := range []Strategy{overwrite{}, skip{}, merge{}} {
		r.strategies[s.Name()] = s
	}

	return &r
}

func (r *Registry) Register(s Strategy) error {
	if _, exist := r.strategies[s.Name()]; exist {
		return fmt.Errorf("strategy %q is already registered", s.Name())
	}

	r.strategies[s.Name()] = s

	return nil
}

func (r *Registry) Get(name string) (Strategy, error) {
	s, exist := r.strategies[name]
	if !exist {
		return nil, weaveerr.ConfigErrorf("strategy %q is not registered", name)
	}

	return s, nil
}

// LoadPlugins registers the named plugin strategies.
// Loading is idempotent, a plugin whose strategy is already registered is
// skipped.
// Referencing an unknown plugin name is a job-level configuration error.
func (r *Registry) LoadPlugins(names []string) error {
	for _, name := range names {
		constructor, exist := pluginConstructors[name]
		if !exist {
			return weaveerr.ConfigErrorf("plugin strategy %q does not exist", name)
		}

		s := constructor()

		if _, registered := r.strategies[s.Name()]; registered {
			continue
		}

		r.strategies[s.Name()] = s

		r.logger.Debug(
			"plugin strategy loaded",
			logfields.Event("plugin_strategy_loaded"),
			logfields.Strategy(s.Name()),
		)
	}

	return nil
}

// Cleanup releases resources held by registered strategies.
// Strategies implementing io.Closer are closed, close errors are logged and
// do not fail the job.
func (r *Registry) Cleanup() {
	for name, s := range r.strategies {
		closer, ok := s.(io.Closer)
		if !ok {
			continue
		}

		if err := closer.Close(); err != nil {
			r.logger.Warn(
				"closing strategy failed",
				logfields.Event("strategy_cleanup_failed"),
				logfields.Strategy(name),
				zap.Error(err),
			)
		}
	}
}
