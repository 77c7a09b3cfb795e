package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"remitroute/internal/domain"
)

// Registry holds all live runtimes keyed by name and provides lookup and
// fleet-wide operations. The daemon runs one runtime per concern (routing,
// settlement); deployments sharding by corridor register one per corridor.
type Registry struct {
	mu          sync.RWMutex
	runtimes    map[string]*AgentRuntime
	defaultName string
	logger      *slog.Logger
}

// NewRegistry creates a Registry with the given default runtime name.
func NewRegistry(defaultName string, logger *slog.Logger) *Registry {
	return &Registry{
		runtimes:    make(map[string]*AgentRuntime),
		defaultName: defaultName,
		logger:      logger,
	}
}

// Register adds a runtime. Returns ErrDuplicate if the name is taken.
func (r *Registry) Register(rt *AgentRuntime) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runtimes[rt.Name()]; exists {
		return domain.ErrDuplicate
	}
	r.runtimes[rt.Name()] = rt
	r.logger.Info("runtime registered", "runtime", rt.Name(), "id", rt.ID())
	return nil
}

// Get returns the runtime for the given name, or ErrNotFound.
func (r *Registry) Get(name string) (*AgentRuntime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.runtimes[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rt, nil
}

// Default returns the default runtime.
func (r *Registry) Default() (*AgentRuntime, error) {
	return r.Get(r.defaultName)
}

// Snapshots returns a state snapshot for every runtime, sorted by name.
func (r *Registry) Snapshots() []domain.AgentState {
	r.mu.RLock()
	runtimes := make([]*AgentRuntime, 0, len(r.runtimes))
	for _, rt := range r.runtimes {
		runtimes = append(runtimes, rt)
	}
	r.mu.RUnlock()

	states := make([]domain.AgentState, 0, len(runtimes))
	for _, rt := range runtimes {
		states = append(states, rt.Snapshot())
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Name < states[j].Name
	})
	return states
}

// Remove unregisters a runtime. Returns ErrNotFound if not present.
// The runtime itself is not stopped; callers own its lifecycle.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runtimes[name]; !ok {
		return domain.ErrNotFound
	}
	delete(r.runtimes, name)
	r.logger.Info("runtime removed", "runtime", name)
	return nil
}

// StopAll stops every registered runtime, bounded by ctx. The first error
// is returned but all runtimes are attempted.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.RLock()
	runtimes := make([]*AgentRuntime, 0, len(r.runtimes))
	for _, rt := range r.runtimes {
		runtimes = append(runtimes, rt)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, rt := range runtimes {
		if err := rt.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
