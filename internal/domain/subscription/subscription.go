// Package subscription is an in-memory stand-in for the subscription backend.
// Nothing leaves the process; calls are delayed to mimic a remote service.
package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors.
var (
	ErrPlanNotFound        = errors.New("Plan non trouvé")
	ErrNoSubscription      = errors.New("Aucun abonnement actif")
	ErrInvalidCredits      = errors.New("Le nombre de crédits doit être au moins 1")
	ErrInsufficientCredits = errors.New("Crédits insuffisants")
)

// StatusActive is the status of a running subscription.
const StatusActive = "active"

// Feature is a line of a plan's feature list.
type Feature struct {
	Name     string
	Included bool
}

// Plan is a subscription offer.
type Plan struct {
	ID           string
	Name         string
	Description  string
	Price        decimal.Decimal
	Currency     string
	Interval     string
	TotalCredits int
	Features     []Feature
	Active       bool
}

// Subscription is a customer's current plan.
type Subscription struct {
	ID              string
	PlanID          string
	PlanName        string
	CreditsUsed     int
	TotalCredits    int
	Price           decimal.Decimal
	Currency        string
	Status          string
	StartDate       time.Time
	NextPaymentDate time.Time
}

// Remaining returns the unused credits.
func (s Subscription) Remaining() int {
	if r := s.TotalCredits - s.CreditsUsed; r > 0 {
		return r
	}
	return 0
}

// Usage records credits spent on a subscription.
type Usage struct {
	ID          string
	Credits     int
	Description string
	UsedAt      time.Time
}

// Latency is the artificial delay of each call kind.
type Latency struct {
	Load       time.Duration
	Mutate     time.Duration
	UseCredits time.Duration
}

// DefaultLatency mirrors the timings the web client was designed around.
var DefaultLatency = Latency{
	Load:       400 * time.Millisecond,
	Mutate:     600 * time.Millisecond,
	UseCredits: 800 * time.Millisecond,
}

// DefaultPlans are the two offers.
var DefaultPlans = []Plan{
	{
		ID:           "plan-1",
		Name:         "Big Ghassla",
		Description:  "Notre forfait premium avec un maximum de services et de crédits pour toutes vos besoins de lessive.",
		Price:        decimal.RequireFromString("299.99"),
		Currency:     "TND",
		Interval:     "monthly",
		TotalCredits: 50,
		Features: []Feature{
			{Name: "Lavage illimité", Included: true},
			{Name: "Repassage premium", Included: true},
			{Name: "Livraison express", Included: true},
			{Name: "Traitement des taches", Included: true},
			{Name: "Service prioritaire", Included: true},
		},
		Active: true,
	},
	{
		ID:           "plan-2",
		Name:         "Ghassla Fa9r",
		Description:  "Notre forfait économique pour les besoins essentiels de lessive à petit budget.",
		Price:        decimal.RequireFromString("99.99"),
		Currency:     "TND",
		Interval:     "monthly",
		TotalCredits: 20,
		Features: []Feature{
			{Name: "Lavage standard", Included: true},
			{Name: "Repassage basique", Included: true},
			{Name: "Livraison standard", Included: true},
			{Name: "Traitement des taches", Included: false},
			{Name: "Service prioritaire", Included: false},
		},
		Active: true,
	},
}

const day = 24 * time.Hour

type account struct {
	sub   *Subscription
	usage []Usage
}

// Service keeps one synthetic subscription per user. A user seen for the
// first time starts on plan-1 with 5 of 50 credits used.
type Service struct {
	plans []Plan
	lat   Latency
	now   func() time.Time

	mu       sync.Mutex
	accounts map[string]*account
}

// Option configures a Service.
type Option func(*Service)

// WithLatency overrides DefaultLatency.
func WithLatency(l Latency) Option {
	return func(s *Service) { s.lat = l }
}

// WithPlans overrides DefaultPlans.
func WithPlans(plans []Plan) Option {
	return func(s *Service) { s.plans = plans }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(opts ...Option) *Service {
	s := &Service{
		plans:    DefaultPlans,
		lat:      DefaultLatency,
		now:      time.Now,
		accounts: make(map[string]*account),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Plans lists the offers.
func (s *Service) Plans(ctx context.Context) ([]Plan, error) {
	if err := wait(ctx, s.lat.Load); err != nil {
		return nil, err
	}
	return append([]Plan(nil), s.plans...), nil
}

// Get returns the user's subscription, nil after a cancellation.
func (s *Service) Get(ctx context.Context, userID string) (*Subscription, error) {
	if err := wait(ctx, s.lat.Load); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account(userID).snapshot(), nil
}

// Subscribe replaces the user's subscription with a fresh one on planID.
func (s *Service) Subscribe(ctx context.Context, userID, planID string) (*Subscription, error) {
	p, ok := s.plan(planID)
	if !ok {
		return nil, ErrPlanNotFound
	}
	if err := wait(ctx, s.lat.Mutate); err != nil {
		return nil, err
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(userID)
	a.sub = &Subscription{
		ID:              "mock-sub-" + userID,
		PlanID:          p.ID,
		PlanName:        p.Name,
		TotalCredits:    p.TotalCredits,
		Price:           p.Price,
		Currency:        p.Currency,
		Status:          StatusActive,
		StartDate:       now,
		NextPaymentDate: now.Add(30 * day),
	}
	a.usage = nil
	return a.snapshot(), nil
}

// Cancel ends the user's subscription.
func (s *Service) Cancel(ctx context.Context, userID string) error {
	if err := wait(ctx, s.lat.Mutate); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(userID)
	if a.sub == nil {
		return ErrNoSubscription
	}
	a.sub = nil
	return nil
}

// UseCredits spends n credits. An empty description gets a generated one.
func (s *Service) UseCredits(ctx context.Context, userID string, n int, description string) (*Subscription, error) {
	if n < 1 {
		return nil, ErrInvalidCredits
	}
	if err := wait(ctx, s.lat.UseCredits); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(userID)
	switch {
	case a.sub == nil || a.sub.Status != StatusActive:
		return nil, ErrNoSubscription
	case n > a.sub.Remaining():
		return nil, errors.Wrapf(ErrInsufficientCredits, "%d requested, %d left", n, a.sub.Remaining())
	}
	if description == "" {
		description = fmt.Sprintf("Utilisation de %d crédits", n)
	}
	a.sub.CreditsUsed += n
	a.usage = append(a.usage, Usage{
		ID:          uuid.New().String(),
		Credits:     n,
		Description: description,
		UsedAt:      s.now(),
	})
	return a.snapshot(), nil
}

// History lists the credit usage of the current subscription, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]Usage, error) {
	if err := wait(ctx, s.lat.Load); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	usage := s.account(userID).usage
	out := make([]Usage, 0, len(usage))
	for i := len(usage) - 1; i >= 0; i-- {
		out = append(out, usage[i])
	}
	return out, nil
}

func (s *Service) plan(id string) (Plan, bool) {
	for _, p := range s.plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// account returns the user's account, seeding the default subscription.
// Callers hold s.mu.
func (s *Service) account(userID string) *account {
	if a, ok := s.accounts[userID]; ok {
		return a
	}
	now := s.now()
	a := &account{sub: &Subscription{
		ID:              "mock-sub-" + userID,
		PlanID:          "plan-1",
		PlanName:        "Big Ghassla",
		CreditsUsed:     5,
		TotalCredits:    50,
		Price:           decimal.RequireFromString("299.99"),
		Currency:        "TND",
		Status:          StatusActive,
		StartDate:       now.Add(-10 * day),
		NextPaymentDate: now.Add(20 * day),
	}}
	s.accounts[userID] = a
	return a
}

func (a *account) snapshot() *Subscription {
	if a.sub == nil {
		return nil
	}
	cp := *a.sub
	return &cp
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
