// Package orderview keeps polled order lists fresh for the customer and
// admin views.
package orderview

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/laundry-booking/internal/domain/order"
)

// FetchFunc loads a full order list.
type FetchFunc func(ctx context.Context) ([]order.Order, error)

// Snapshot is the last applied state of a poller.
type Snapshot struct {
	Orders []order.Order
	// Loaded is set once any fetch has completed.
	Loaded bool
	// Err is the error of the last applied fetch. Orders keep the previous
	// successful result.
	Err        error
	FetchedAt  time.Time
	Generation uint64
}

// Poller refetches an order list on a fixed interval and on demand.
//
// Every fetch is numbered. A result is applied only when its number is
// higher than the last applied one, so a slow response can never overwrite
// a newer one.
type Poller struct {
	fetch    FetchFunc
	interval time.Duration
	timeout  time.Duration
	lg       *zap.Logger
	now      func() time.Time

	issued atomic.Uint64
	sf     singleflight.Group

	mu   sync.RWMutex
	snap Snapshot
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	Interval time.Duration
	// Timeout bounds a single fetch. Defaults to Interval.
	Timeout time.Duration
	Logger  *zap.Logger
	Now     func() time.Time
}

// NewPoller creates a Poller. It does nothing until Run or Refresh is called.
func NewPoller(fetch FetchFunc, cfg PollerConfig) *Poller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Poller{
		fetch:    fetch,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		lg:       cfg.Logger,
		now:      cfg.Now,
	}
}

// Run fetches right away and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	if _, err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
		p.lg.Debug("Initial fetch failed", zap.Error(err))
	}
	if p.interval <= 0 {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
				p.lg.Warn("Poll failed", zap.Error(err))
			}
		}
	}
}

// Snapshot returns the last applied state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

const flightKey = "fetch"

// Refresh fetches now. Callers arriving while a fetch is running share its
// result.
func (p *Poller) Refresh(ctx context.Context) (Snapshot, error) {
	ch := p.sf.DoChan(flightKey, func() (any, error) {
		return p.fetchAndApply(ctx), nil
	})
	select {
	case <-ctx.Done():
		return p.Snapshot(), ctx.Err()
	case res := <-ch:
		snap := res.Val.(Snapshot)
		return snap, snap.Err
	}
}

// Refetch starts a new fetch even when one is running, for use after a
// write. The running fetch is then stale and its result is dropped if it
// lands later.
func (p *Poller) Refetch(ctx context.Context) (Snapshot, error) {
	p.sf.Forget(flightKey)
	return p.Refresh(ctx)
}

func (p *Poller) fetchAndApply(ctx context.Context) Snapshot {
	gen := p.issued.Add(1)

	// Shared by every caller of the flight; one caller leaving must not
	// cancel it for the others.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	orders, err := p.fetch(fctx)
	return p.apply(gen, orders, err)
}

// apply stores a result unless a newer one was applied meanwhile. It returns
// the snapshot in effect afterwards.
func (p *Poller) apply(gen uint64, orders []order.Order, err error) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen <= p.snap.Generation {
		p.lg.Debug("Dropping stale fetch", zap.Uint64("generation", gen), zap.Uint64("applied", p.snap.Generation))
		return p.snap
	}

	p.snap.Generation = gen
	p.snap.Loaded = true
	p.snap.FetchedAt = p.now()
	p.snap.Err = err
	if err == nil {
		if orders == nil {
			orders = []order.Order{}
		}
		p.snap.Orders = orders
	}
	return p.snap
}
