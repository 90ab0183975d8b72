// internal/api/job/store.go
package job

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/tradelab/internal/core"
)

// Status represents job status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Done reports whether the job reached a terminal state.
func (s Status) Done() bool {
	return s == StatusComplete || s == StatusFailed
}

// Job represents an async job.
type Job struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Status    Status      `json:"status"`
	Progress  int         `json:"progress"`
	Result    any         `json:"result,omitempty"`
	Error     *core.Error `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Store keeps async jobs in memory. It holds at most maxSize jobs, evicting
// the oldest first, and forgets finished jobs ttl after their last update.
type Store struct {
	jobs    map[string]*Job
	order   []string // insertion order for eviction
	maxSize int
	ttl     time.Duration
	mu      sync.RWMutex
	now     func() time.Time
}

// NewStore creates a new job store. A ttl <= 0 disables expiry.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Store{
		jobs:    make(map[string]*Job),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create creates a new pending job and returns a copy of it.
func (s *Store) Create(jobType string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked()

	now := s.now()
	job := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for len(s.jobs) >= s.maxSize && len(s.order) > 0 {
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}

	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	return *job
}

// Get retrieves a copy of a job by ID.
func (s *Store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok || s.expired(job) {
		return nil, core.ErrJobNotFound
	}

	jobCopy := *job
	return &jobCopy, nil
}

// Update modifies a job using an update function.
func (s *Store) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return core.ErrJobNotFound
	}

	fn(job)
	job.UpdatedAt = s.now()
	return nil
}

// List returns live jobs, newest first.
func (s *Store) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked()

	result := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		result = append(result, *job)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// Len returns the number of jobs held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Store) expired(job *Job) bool {
	return s.ttl > 0 && job.Status.Done() && s.now().Sub(job.UpdatedAt) > s.ttl
}

// expireLocked drops finished jobs past their ttl. Callers hold mu.
func (s *Store) expireLocked() {
	if s.ttl <= 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if job, ok := s.jobs[id]; ok && s.expired(job) {
			delete(s.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
