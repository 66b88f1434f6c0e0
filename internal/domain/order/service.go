package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/laundry-booking/internal/domain/booking"
)

// Sentinel errors for order submission.
var (
	ErrNoUser    = errors.New("Impossible de récupérer l'identifiant utilisateur. Veuillez vous reconnecter.")
	ErrEmptyCart = errors.New("cart is empty")
)

// MsgCreateFailed is shown to the customer when the Order API refuses or
// cannot be reached.
const MsgCreateFailed = "Erreur lors de la création de la commande"

// SubmitError wraps an Order API failure during checkout. Error returns the
// customer-facing message; the cause is kept for logs.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string { return MsgCreateFailed }

func (e *SubmitError) Unwrap() error { return e.Err }

// Checkout is the part of a booking session used by Submit.
type Checkout interface {
	BeginCheckout() (booking.State, string, error)
	EndCheckout(success bool)
	Location() *time.Location
}

// SubmitRequest holds the caller data that is not part of the cart.
type SubmitRequest struct {
	UserID  string
	Address string
	Notes   string
}

// SubmitResult is returned after a successful checkout.
type SubmitResult struct {
	Order         *Order
	Redirect      string
	RedirectAfter time.Duration
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Redirect is where the client goes after a successful checkout.
	Redirect string
	// RedirectAfter is how long the success message stays visible.
	RedirectAfter time.Duration
	Now           func() time.Time
}

// Service submits booking sessions as orders.
type Service struct {
	orders Creator
	cfg    ServiceConfig
}

// NewService creates an order Service on top of an Order API client.
func NewService(orders Creator, cfg ServiceConfig) *Service {
	if cfg.Redirect == "" {
		cfg.Redirect = "/dashboard"
	}
	if cfg.RedirectAfter == 0 {
		cfg.RedirectAfter = 1500 * time.Millisecond
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{orders: orders, cfg: cfg}
}

// Submit turns the session cart into an order. Nothing is sent without a
// user or with an empty cart. On success the cart is cleared and the wizard
// goes back to its first step; on failure the cart is kept and the next
// attempt reuses the same idempotency key.
func (s *Service) Submit(ctx context.Context, c Checkout, req SubmitRequest) (*SubmitResult, error) {
	if req.UserID == "" {
		return nil, ErrNoUser
	}

	st, key, err := c.BeginCheckout()
	switch {
	case errors.Is(err, booking.ErrEmptySelection):
		return nil, ErrEmptyCart
	case err != nil:
		return nil, err
	}

	lg := zctx.From(ctx).With(zap.String("user_id", req.UserID), zap.String("idempotency_key", key))

	d := s.draft(st, c.Location(), req)
	created, err := s.orders.CreateOrder(ctx, d, key)
	if err != nil {
		c.EndCheckout(false)
		lg.Warn("Create order failed", zap.Error(err))
		return nil, &SubmitError{Err: err}
	}
	c.EndCheckout(true)

	lg.Info("Order created",
		zap.String("order_id", created.ID),
		zap.String("total", d.Total.StringFixed(2)),
		zap.Int("items", len(d.Items)),
	)
	return &SubmitResult{
		Order:         created,
		Redirect:      s.cfg.Redirect,
		RedirectAfter: s.cfg.RedirectAfter,
	}, nil
}

func (s *Service) draft(st booking.State, loc *time.Location, req SubmitRequest) Draft {
	d := Draft{
		UserID:        req.UserID,
		Status:        StatusPending,
		CreatedAt:     s.cfg.Now().In(loc),
		ScheduledTime: st.TimeSlot,
		Total:         st.Total(),
		Address:       req.Address,
		Notes:         req.Notes,
		Items:         make([]Item, 0, len(st.Services)),
	}
	if st.ScheduledDate != nil {
		day := *st.ScheduledDate
		d.ScheduledDate = &day
	}
	for _, it := range st.Services {
		d.Items = append(d.Items, Item{
			ServiceID:   it.ID,
			Title:       it.Title,
			Description: it.Description,
			Price:       it.UnitPrice,
			Unit:        it.Unit,
			Icon:        it.Icon,
			Quantity:    it.Quantity,
			Category:    it.Category,
		})
	}
	return d
}
