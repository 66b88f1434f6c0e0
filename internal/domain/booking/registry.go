package booking

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("booking session not found")

// Registry owns the live booking sessions. Sessions are kept in memory only
// and are evicted once idle for longer than the configured TTL.
type Registry struct {
	cfg StoreConfig
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Store
}

// NewRegistry creates a Registry whose sessions expire after ttl of
// inactivity. A non-positive ttl disables expiry.
func NewRegistry(cfg StoreConfig, ttl time.Duration) *Registry {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		cfg:      cfg,
		ttl:      ttl,
		now:      now,
		sessions: make(map[string]*Store),
	}
}

// Create starts a new session.
func (r *Registry) Create() *Store {
	s := NewStore(uuid.New().String(), r.cfg)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Get returns a live session.
func (r *Registry) Get(id string) (*Store, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if r.expired(s, r.now()) {
		r.Delete(id)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete drops a session. Unknown IDs are ignored.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) expired(s *Store, now time.Time) bool {
	return r.ttl > 0 && now.Sub(s.idleSince()) >= r.ttl && !s.Submitting()
}

// sweep removes idle sessions.
func (r *Registry) sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.sessions {
		if r.expired(s, now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// StartSweeper evicts idle sessions every interval until ctx is cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				r.sweep(now)
			}
		}
	}()
}
