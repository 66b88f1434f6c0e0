package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/laundry-booking/internal/domain/booking"
	"github.com/xenking/laundry-booking/internal/domain/catalog"
)

// --- Mock implementations ---

type mockCreator struct {
	mu    sync.Mutex
	calls []Draft
	keys  []string
	err   error
	block chan struct{}
}

func (m *mockCreator) CreateOrder(_ context.Context, d Draft, key string) (*Order, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, d)
	m.keys = append(m.keys, key)
	if m.err != nil {
		return nil, m.err
	}
	return &Order{ID: "ord-1", UserID: d.UserID, Status: d.Status, Total: d.Total}, nil
}

func (m *mockCreator) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// --- Helpers ---

var testNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

func newSession() *booking.Store {
	return booking.NewStore("s1", booking.StoreConfig{
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	})
}

func washService() catalog.Service {
	return catalog.Service{
		ID:          "kilo-wash",
		Title:       "Lavage au kilo",
		Description: "Lavage et séchage",
		UnitPrice:   decimal.RequireFromString("22"),
		Unit:        "/5kg",
		Icon:        "shirt",
		Category:    "laver",
	}
}

func newTestService(c Creator) *Service {
	return NewService(c, ServiceConfig{Now: func() time.Time { return testNow }})
}

// --- Tests ---

func TestSubmit_NoUser(t *testing.T) {
	c := &mockCreator{}
	s := newSession()
	_, _ = s.AddService(washService())

	_, err := newTestService(c).Submit(context.Background(), s, SubmitRequest{})
	require.ErrorIs(t, err, ErrNoUser)
	assert.Zero(t, c.count())
	assert.Len(t, s.Snapshot().Services, 1)
}

func TestSubmit_EmptyCart(t *testing.T) {
	c := &mockCreator{}

	_, err := newTestService(c).Submit(context.Background(), newSession(), SubmitRequest{UserID: "u1"})
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, c.count())
}

func TestSubmit_Payload(t *testing.T) {
	c := &mockCreator{}
	s := newSession()
	_, _ = s.AddService(washService())
	_, _ = s.AddService(washService())
	_, err := s.Dispatch(booking.SetTimeSlot{Slot: "14:00 - 16:00"})
	require.NoError(t, err)

	res, err := newTestService(c).Submit(context.Background(), s, SubmitRequest{
		UserID:  "u1",
		Address: "12 rue de Carthage, Tunis",
		Notes:   "sonner deux fois",
	})
	require.NoError(t, err)
	require.Equal(t, 1, c.count())

	d := c.calls[0]
	assert.Equal(t, "u1", d.UserID)
	assert.Equal(t, StatusPending, d.Status)
	assert.Equal(t, testNow, d.CreatedAt)
	require.NotNil(t, d.ScheduledDate)
	assert.Equal(t, "2025-06-15", d.ScheduledDate.Format(DateLayout))
	assert.Equal(t, "14:00 - 16:00", d.ScheduledTime)
	assert.True(t, decimal.NewFromInt(44).Equal(d.Total))
	assert.Equal(t, "12 rue de Carthage, Tunis", d.Address)
	assert.Equal(t, "sonner deux fois", d.Notes)
	require.Len(t, d.Items, 1)
	assert.Equal(t, Item{
		ServiceID:   "kilo-wash",
		Title:       "Lavage au kilo",
		Description: "Lavage et séchage",
		Price:       decimal.RequireFromString("22"),
		Unit:        "/5kg",
		Icon:        "shirt",
		Quantity:    2,
		Category:    "laver",
	}, d.Items[0])

	assert.Equal(t, "ord-1", res.Order.ID)
	assert.Equal(t, "/dashboard", res.Redirect)
	assert.Equal(t, 1500*time.Millisecond, res.RedirectAfter)
}

func TestSubmit_SuccessClearsCart(t *testing.T) {
	s := newSession()
	_, _ = s.AddService(washService())
	_, err := s.SetCurrentStep(booking.StepPayment)
	require.NoError(t, err)

	_, err = newTestService(&mockCreator{}).Submit(context.Background(), s, SubmitRequest{UserID: "u1"})
	require.NoError(t, err)

	st := s.Snapshot()
	assert.True(t, st.Empty())
	assert.Equal(t, booking.StepServices, st.Step)
}

func TestSubmit_FailureKeepsCartAndKey(t *testing.T) {
	c := &mockCreator{err: errors.New("503 service unavailable")}
	s := newSession()
	_, _ = s.AddService(washService())
	svc := newTestService(c)

	_, err := svc.Submit(context.Background(), s, SubmitRequest{UserID: "u1"})
	var subErr *SubmitError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, MsgCreateFailed, err.Error())
	assert.Len(t, s.Snapshot().Services, 1)
	assert.False(t, s.Submitting())

	c.err = nil
	_, err = svc.Submit(context.Background(), s, SubmitRequest{UserID: "u1"})
	require.NoError(t, err)

	require.Len(t, c.keys, 2)
	assert.NotEmpty(t, c.keys[0])
	assert.Equal(t, c.keys[0], c.keys[1])
}

func TestSubmit_ConcurrentRefused(t *testing.T) {
	c := &mockCreator{block: make(chan struct{})}
	s := newSession()
	_, _ = s.AddService(washService())
	svc := newTestService(c)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), s, SubmitRequest{UserID: "u1"})
		done <- err
	}()

	require.Eventually(t, s.Submitting, time.Second, time.Millisecond)

	_, err := svc.Submit(context.Background(), s, SubmitRequest{UserID: "u1"})
	require.ErrorIs(t, err, booking.ErrSubmissionInFlight)

	close(c.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, c.count())
}

func TestSubmit_CartEditDuringSubmissionRefused(t *testing.T) {
	c := &mockCreator{block: make(chan struct{})}
	s := newSession()
	_, _ = s.AddService(washService())
	svc := newTestService(c)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), s, SubmitRequest{UserID: "u1"})
		done <- err
	}()
	require.Eventually(t, s.Submitting, time.Second, time.Millisecond)

	ironing := washService()
	ironing.ID = "ironing"
	ironing.UnitPrice = decimal.RequireFromString("3")
	_, err := s.AddService(ironing)
	require.ErrorIs(t, err, booking.ErrSubmissionInFlight)

	close(c.block)
	require.NoError(t, <-done)

	require.Equal(t, 1, c.count())
	require.Len(t, c.calls[0].Items, 1)
	assert.Equal(t, "kilo-wash", c.calls[0].Items[0].ServiceID)
	assert.True(t, s.Snapshot().Empty())
}
