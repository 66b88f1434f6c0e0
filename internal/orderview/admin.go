package orderview

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/laundry-booking/internal/domain/order"
)

// ErrSaveInProgress is returned when an order is already being saved.
var ErrSaveInProgress = errors.New("order update already in progress")

// MsgUpdateFailed is shown when the Order API refuses an admin edit.
const MsgUpdateFailed = "Erreur lors de la mise à jour de la commande"

// UpdateError wraps an Order API failure during an admin edit.
type UpdateError struct {
	OrderID string
	Err     error
}

func (e *UpdateError) Error() string { return MsgUpdateFailed }

func (e *UpdateError) Unwrap() error { return e.Err }

// AdminBoard is the administrative order list: a poller over every order
// plus edits with a per-order saving flag. Edits are never applied locally;
// a successful save triggers a full refetch.
type AdminBoard struct {
	client order.AdminClient
	poller *Poller
	lg     *zap.Logger

	mu     sync.Mutex
	saving map[string]bool
}

// AdminConfig configures an AdminBoard.
type AdminConfig struct {
	Interval time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
}

// NewAdminBoard creates an AdminBoard. Call Run to start polling.
func NewAdminBoard(client order.AdminClient, cfg AdminConfig) *AdminBoard {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &AdminBoard{
		client: client,
		poller: NewPoller(client.ListAdminOrders, PollerConfig{
			Interval: cfg.Interval,
			Logger:   cfg.Logger,
			Now:      cfg.Now,
		}),
		lg:     cfg.Logger,
		saving: make(map[string]bool),
	}
}

// Run polls until ctx is done.
func (b *AdminBoard) Run(ctx context.Context) {
	b.poller.Run(ctx)
}

// Snapshot returns the current list, loading it if nothing was fetched yet.
func (b *AdminBoard) Snapshot(ctx context.Context) (Snapshot, error) {
	if snap := b.poller.Snapshot(); snap.Loaded {
		return snap, nil
	}
	snap, err := b.poller.Refresh(ctx)
	if err != nil && !snap.Loaded {
		return snap, err
	}
	return snap, nil
}

// Refresh fetches the list now.
func (b *AdminBoard) Refresh(ctx context.Context) (Snapshot, error) {
	return b.poller.Refresh(ctx)
}

// Saving reports whether an edit of id is running.
func (b *AdminBoard) Saving(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saving[id]
}

// SavingIDs returns the orders being saved.
func (b *AdminBoard) SavingIDs() map[string]bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]bool, len(b.saving))
	for id := range b.saving {
		out[id] = true
	}
	return out
}

// Update sends the fields of u that differ from the last known state of the
// order, then refetches the list. Nothing is sent when nothing changed. The
// saving flag is taken before the diff, so an edit racing a save of the same
// order is refused rather than compared against a state about to change.
func (b *AdminBoard) Update(ctx context.Context, id string, u order.Update) (Snapshot, error) {
	if err := u.Validate(); err != nil {
		return Snapshot{}, err
	}
	if !b.begin(id) {
		return b.poller.Snapshot(), ErrSaveInProgress
	}
	defer b.end(id)

	snap := b.poller.Snapshot()
	for _, o := range snap.Orders {
		if o.ID == id {
			u = u.Diff(o)
			break
		}
	}
	if u.Empty() {
		return snap, nil
	}

	lg := b.lg.With(zap.String("order_id", id))
	if err := b.client.UpdateAdminOrder(ctx, id, u); err != nil {
		lg.Warn("Update order failed", zap.Error(err))
		return snap, &UpdateError{OrderID: id, Err: err}
	}
	lg.Info("Order updated")

	// The write succeeded; a failed refetch only leaves the list stale.
	refreshed, err := b.poller.Refetch(ctx)
	if err != nil {
		lg.Warn("Refetch after update failed", zap.Error(err))
	}
	return refreshed, nil
}

func (b *AdminBoard) begin(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saving[id] {
		return false
	}
	b.saving[id] = true
	return true
}

func (b *AdminBoard) end(id string) {
	b.mu.Lock()
	delete(b.saving, id)
	b.mu.Unlock()
}
