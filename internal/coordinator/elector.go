package coordinator

//go:generate mockgen -destination=mocks/mock_coordinator.go -package=mocks -source=elector.go

import (
	"context"
	"sync"
)

// Handle invokes procedures on the elected coordinator
type Handle interface {
	Call(ctx context.Context, procedure string, payload []byte) ([]byte, error)
}

// Elector reports the currently elected coordinator, if any
type Elector interface {
	Active(ctx context.Context) (Handle, bool)
}

// LocalHandle dispatches calls to an in-process registry
type LocalHandle struct {
	registry *Registry
}

// NewLocalHandle creates a handle over registry
func NewLocalHandle(registry *Registry) *LocalHandle {
	return &LocalHandle{registry: registry}
}

// Call implements Handle
func (h *LocalHandle) Call(ctx context.Context, procedure string, payload []byte) ([]byte, error) {
	return h.registry.Dispatch(ctx, procedure, payload)
}

// StaticElector always reports the same coordinator. A nil handle means no
// coordinator is elected.
type StaticElector struct {
	mu     sync.RWMutex
	handle Handle
}

// NewStaticElector creates an elector fixed on handle
func NewStaticElector(handle Handle) *StaticElector {
	return &StaticElector{handle: handle}
}

// Set swaps the elected coordinator
func (e *StaticElector) Set(handle Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handle = handle
}

// Active implements Elector
func (e *StaticElector) Active(context.Context) (Handle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.handle, e.handle != nil
}

// Directory resolves an elected coordinator ID to a callable handle
type Directory interface {
	Handle(coordinatorID string) (Handle, bool)
}

// StaticDirectory is a fixed ID to handle map
type StaticDirectory map[string]Handle

// Handle implements Directory
func (d StaticDirectory) Handle(coordinatorID string) (Handle, bool) {
	h, ok := d[coordinatorID]
	return h, ok
}
