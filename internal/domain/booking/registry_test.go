package booking

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRegistry_CreateGet(t *testing.T) {
	r := NewRegistry(StoreConfig{Location: time.UTC}, time.Hour)

	s := r.Create()
	got, err := r.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = r.Get("nope")
	require.ErrorIs(t, err, ErrSessionNotFound)

	r.Delete(s.ID())
	_, err = r.Get(s.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistry_Expiry(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	r := NewRegistry(StoreConfig{Location: time.UTC, Now: clock.Now}, 30*time.Minute)

	idle := r.Create()
	active := r.Create()

	clock.Advance(20 * time.Minute)
	_, err := active.AddService(svc("a", "1"))
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	_, err = r.Get(idle.ID())
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = r.Get(active.ID())
	require.NoError(t, err)

	clock.Advance(time.Hour)
	assert.Equal(t, 1, r.sweep(clock.Now()))
	assert.Zero(t, r.Len())
}

func TestRegistry_SubmittingNotEvicted(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	r := NewRegistry(StoreConfig{Location: time.UTC, Now: clock.Now}, time.Minute)

	s := r.Create()
	_, _ = s.AddService(svc("a", "1"))
	_, _, err := s.BeginCheckout()
	require.NoError(t, err)

	clock.Advance(time.Hour)
	assert.Zero(t, r.sweep(clock.Now()))

	s.EndCheckout(true)
	assert.Equal(t, 1, r.sweep(clock.Now()))
}
