package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry manages notifier instances
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

// NewRegistry creates a new notifier registry
func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier),
	}
}

// Register adds a notifier to the registry
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}

	r.notifiers[name] = n
	return nil
}

// Names returns the registered notifier names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.notifiers))
	for name := range r.notifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered notifiers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// NotifyAll sends ev to every registered notifier and returns the
// failures keyed by notifier name
func (r *Registry) NotifyAll(ctx context.Context, ev Event) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errs := make(map[string]error)
	for name, n := range r.notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			errs[name] = err
		}
	}
	return errs
}
