package runs

import (
	"context"
	"sort"
	"sync"

	"github.com/newthinker/tradelab/internal/core"
)

// MemoryStore is an in-memory run store holding at most maxSize records.
type MemoryStore struct {
	records []Record // oldest first
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryStore{
		records: make([]Record, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save adds a record to the store, evicting the oldest when full.
func (m *MemoryStore) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return core.Configf("run record has no id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ID == rec.ID {
			m.records = append(m.records[:i], m.records[i+1:]...)
			break
		}
	}
	m.records = append(m.records, rec)

	if len(m.records) > m.maxSize {
		m.records = m.records[len(m.records)-m.maxSize:]
	}
	return nil
}

// Get retrieves a record by ID.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.records {
		if m.records[i].ID == id {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, core.ErrRunNotFound
}

// List returns records matching the filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	m.mu.RLock()
	result := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		if filter.matches(rec) {
			result = append(result, rec)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset >= len(result) {
		return []Record{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Count returns the count of matching records.
func (m *MemoryStore) Count(ctx context.Context, filter Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.records {
		if filter.matches(rec) {
			count++
		}
	}
	return count, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
