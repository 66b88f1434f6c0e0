package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order as reported by the Order API.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every known status in display order.
var Statuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusCancelled}

// ErrInvalidStatus is returned for a status outside Statuses.
var ErrInvalidStatus = errors.New("invalid order status")

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", errors.Wrapf(ErrInvalidStatus, "%q", raw)
	}
	return s, nil
}

// DateLayout is the wire format of scheduled and delivery dates.
const DateLayout = "2006-01-02"

// Item is one line of an order.
type Item struct {
	ServiceID   string
	Title       string
	Description string
	Price       decimal.Decimal
	Unit        string
	Icon        string
	ImageURL    string
	Quantity    int
	Category    string
}

// Order is an order owned by the Order API. Empty date and time strings mean
// the value was not set.
type Order struct {
	ID            string
	UserID        string
	UserName      string
	UserPhone     string
	UserAddress   string
	Status        Status
	CreatedAt     time.Time
	ScheduledDate string
	ScheduledTime string
	DeliveryDate  string
	DeliveryTime  string
	Total         decimal.Decimal
	Address       string
	Notes         string
	Items         []Item
}

// Draft is the payload of a new order.
type Draft struct {
	UserID        string
	Status        Status
	CreatedAt     time.Time
	ScheduledDate *time.Time
	ScheduledTime string
	Total         decimal.Decimal
	Address       string
	Notes         string
	Items         []Item
}

// Update is a partial admin edit. Nil fields are left untouched.
type Update struct {
	Status       *Status
	DeliveryDate *string
	DeliveryTime *string
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u.Status == nil && u.DeliveryDate == nil && u.DeliveryTime == nil
}

// Validate checks the fields set on u.
func (u Update) Validate() error {
	if u.Status != nil && !u.Status.Valid() {
		return errors.Wrapf(ErrInvalidStatus, "%q", *u.Status)
	}
	if u.DeliveryDate != nil && *u.DeliveryDate != "" {
		if _, err := time.Parse(DateLayout, *u.DeliveryDate); err != nil {
			return errors.Wrap(err, "delivery date")
		}
	}
	return nil
}

// Diff keeps only the fields of u that differ from o.
func (u Update) Diff(o Order) Update {
	var out Update
	if u.Status != nil && *u.Status != o.Status {
		out.Status = u.Status
	}
	if u.DeliveryDate != nil && *u.DeliveryDate != o.DeliveryDate {
		out.DeliveryDate = u.DeliveryDate
	}
	if u.DeliveryTime != nil && *u.DeliveryTime != o.DeliveryTime {
		out.DeliveryTime = u.DeliveryTime
	}
	return out
}

// Creator submits new orders.
type Creator interface {
	CreateOrder(ctx context.Context, d Draft, idempotencyKey string) (*Order, error)
}

// Lister fetches a customer's orders. A non-positive limit means no limit.
type Lister interface {
	ListOrders(ctx context.Context, userID string, limit int) ([]Order, error)
}

// AdminClient covers the administrative order endpoints.
type AdminClient interface {
	ListAdminOrders(ctx context.Context) ([]Order, error)
	UpdateAdminOrder(ctx context.Context, id string, u Update) error
}
