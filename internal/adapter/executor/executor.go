// Package executor implements the settlement rails. Each rail wraps its
// provider backend behind a narrow gateway interface, applies the rail's own
// validation and rate limits, and returns the backend receipt. The
// Dispatcher routes a selected route to the executor for its kind.
package executor

import (
	"sort"
	"sync"

	"remitroute/internal/domain"
)

// Dispatcher holds one executor per settlement rail.
type Dispatcher struct {
	mu        sync.RWMutex
	executors map[domain.ProviderKind]domain.TransferExecutor
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		executors: make(map[domain.ProviderKind]domain.TransferExecutor),
	}
}

// Register adds an executor. Returns an error if its kind is already taken.
func (d *Dispatcher) Register(exec domain.TransferExecutor) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	kind := exec.Kind()
	if _, exists := d.executors[kind]; exists {
		return domain.NewDomainError("dispatcher.register", domain.ErrDuplicate, string(kind))
	}
	d.executors[kind] = exec
	return nil
}

// Resolve returns the executor for kind.
func (d *Dispatcher) Resolve(kind domain.ProviderKind) (domain.TransferExecutor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	exec, ok := d.executors[kind]
	if !ok {
		return nil, domain.NewDomainError("dispatcher.resolve", domain.ErrNotFound, string(kind))
	}
	return exec, nil
}

// Kinds returns the registered rails, sorted.
func (d *Dispatcher) Kinds() []domain.ProviderKind {
	d.mu.RLock()
	defer d.mu.RUnlock()

	kinds := make([]domain.ProviderKind, 0, len(d.executors))
	for kind := range d.executors {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
