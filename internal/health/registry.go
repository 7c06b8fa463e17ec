// Package health tracks the backing services the tracker depends on and
// reports their readiness.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Checker checks one backing service
type Checker interface {
	// Name returns the service name
	Name() string

	// HealthCheck returns nil when the service is reachable
	HealthCheck(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker
type CheckerFunc struct {
	name  string
	check func(ctx context.Context) error
}

// NewCheckerFunc creates a named Checker from fn
func NewCheckerFunc(name string, fn func(ctx context.Context) error) *CheckerFunc {
	return &CheckerFunc{name: name, check: fn}
}

// Name returns the service name
func (c *CheckerFunc) Name() string { return c.name }

// HealthCheck runs the wrapped function
func (c *CheckerFunc) HealthCheck(ctx context.Context) error { return c.check(ctx) }

// Registry manages health checkers
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	timeout  time.Duration
}

// NewRegistry creates a new checker registry
func NewRegistry() *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
		timeout:  2 * time.Second,
	}
}

// Register adds a checker under its name
func (r *Registry) Register(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[c.Name()] = c
}

// Unregister removes a checker
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkers, name)
}

// List returns all registered checker names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthCheckAll checks every registered service concurrently
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	checkers := make([]Checker, 0, len(r.checkers))
	for _, c := range r.checkers {
		checkers = append(checkers, c)
	}
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make(map[string]error, len(checkers))
	for _, c := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			err := c.HealthCheck(ctx)
			mu.Lock()
			results[c.Name()] = err
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return results
}

// Ready reports whether every checker passed, with per-service status strings
func (r *Registry) Ready(ctx context.Context) (bool, map[string]string) {
	ok := true
	status := make(map[string]string)
	for name, err := range r.HealthCheckAll(ctx) {
		if err != nil {
			ok = false
			status[name] = err.Error()
			continue
		}
		status[name] = "ok"
	}
	return ok, status
}
