package orderview

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xenking/laundry-booking/internal/domain/order"
)

// HubConfig configures a Hub.
type HubConfig struct {
	// Interval between polls of one customer's list.
	Interval time.Duration
	// IdleTTL stops a customer's poller after this long without a read.
	IdleTTL time.Duration
	// Limit caps the number of orders fetched. Zero means no limit.
	Limit  int
	Logger *zap.Logger
	Now    func() time.Time
}

type hubEntry struct {
	poller   *Poller
	cancel   context.CancelFunc
	lastRead time.Time
}

// Hub runs one lazily started poller per customer. Pollers of customers who
// stopped looking are stopped by Sweep.
type Hub struct {
	orders order.Lister
	cfg    HubConfig

	mu      sync.Mutex
	pollers map[string]*hubEntry
	closed  bool
}

// NewHub creates a Hub on top of the Order API.
func NewHub(orders order.Lister, cfg HubConfig) *Hub {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Hub{
		orders:  orders,
		cfg:     cfg,
		pollers: make(map[string]*hubEntry),
	}
}

// Get returns the customer's list, fetching it first if this is the first
// read.
func (h *Hub) Get(ctx context.Context, userID string) (Snapshot, error) {
	p := h.poller(userID)
	if snap := p.Snapshot(); snap.Loaded {
		return snap, nil
	}
	snap, err := p.Refresh(ctx)
	if err != nil && !snap.Loaded {
		return snap, err
	}
	return snap, nil
}

// Refresh fetches the customer's list now.
func (h *Hub) Refresh(ctx context.Context, userID string) (Snapshot, error) {
	return h.poller(userID).Refresh(ctx)
}

// Len returns the number of running pollers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pollers)
}

// Sweep stops pollers idle for longer than IdleTTL.
func (h *Hub) Sweep() int {
	now := h.cfg.Now()
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for id, e := range h.pollers {
		if now.Sub(e.lastRead) >= h.cfg.IdleTTL {
			e.cancel()
			delete(h.pollers, id)
			n++
		}
	}
	return n
}

// Run sweeps idle pollers until ctx is done, then stops them all.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.IdleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.Close()
			return
		case <-ticker.C:
			if n := h.Sweep(); n > 0 {
				h.cfg.Logger.Debug("Stopped idle pollers", zap.Int("count", n))
			}
		}
	}
}

// Close stops every poller. Later reads still work but are not polled.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, e := range h.pollers {
		e.cancel()
		delete(h.pollers, id)
	}
	h.closed = true
}

func (h *Hub) poller(userID string) *Poller {
	now := h.cfg.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	if e, ok := h.pollers[userID]; ok {
		e.lastRead = now
		return e.poller
	}

	lg := h.cfg.Logger.With(zap.String("user_id", userID))
	p := NewPoller(func(ctx context.Context) ([]order.Order, error) {
		return h.orders.ListOrders(ctx, userID, h.cfg.Limit)
	}, PollerConfig{Interval: h.cfg.Interval, Logger: lg, Now: h.cfg.Now})

	if h.closed {
		return p
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.pollers[userID] = &hubEntry{poller: p, cancel: cancel, lastRead: now}
	go h.runPoller(ctx, p)
	return p
}

// runPoller polls on the interval only; the first fetch is driven by Get.
func (h *Hub) runPoller(ctx context.Context, p *Poller) {
	ticker := time.NewTicker(h.cfg.Interval)
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
