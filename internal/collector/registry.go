package collector

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/newthinker/tradelab/internal/core"
)

// Registry manages history providers by name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]HistoryProvider
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]HistoryProvider),
	}
}

// Register adds a provider to the registry, replacing any with the same name
func (r *Registry) Register(p HistoryProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (HistoryProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// MustGet retrieves a provider or returns a CONFIG_INVALID error naming the
// registered providers
func (r *Registry) MustGet(name string) (HistoryProvider, error) {
	if p, ok := r.Get(name); ok {
		return p, nil
	}
	return nil, core.WrapError(core.ErrConfigInvalid,
		fmt.Errorf("unknown data provider %q, available: [%s]", name, strings.Join(r.Names(), ", ")))
}

// Names returns the registered provider names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
