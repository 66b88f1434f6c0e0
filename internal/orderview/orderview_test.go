package orderview

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/laundry-booking/internal/domain/order"
)

// fakeAPI is an in-memory Order API.
type fakeAPI struct {
	mu        sync.Mutex
	orders    []order.Order
	listErr   error
	updateErr error
	lists     atomic.Int32
	updates   []order.Update
	// gate, when set, blocks UpdateAdminOrder until closed.
	gate chan struct{}
}

func (f *fakeAPI) ListAdminOrders(context.Context) ([]order.Order, error) {
	f.lists.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]order.Order(nil), f.orders...), nil
}

func (f *fakeAPI) ListOrders(ctx context.Context, userID string, _ int) ([]order.Order, error) {
	all, err := f.ListAdminOrders(ctx)
	if err != nil {
		return nil, err
	}
	var out []order.Order
	for _, o := range all {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeAPI) UpdateAdminOrder(_ context.Context, id string, u order.Update) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, u)
	for i := range f.orders {
		if f.orders[i].ID != id {
			continue
		}
		if u.Status != nil {
			f.orders[i].Status = *u.Status
		}
		if u.DeliveryDate != nil {
			f.orders[i].DeliveryDate = *u.DeliveryDate
		}
		if u.DeliveryTime != nil {
			f.orders[i].DeliveryTime = *u.DeliveryTime
		}
	}
	return nil
}

func statusPtr(s order.Status) *order.Status { return &s }

func TestPoller_StaleResultDropped(t *testing.T) {
	p := NewPoller(nil, PollerConfig{})

	newer := p.apply(2, []order.Order{{ID: "new"}}, nil)
	assert.Equal(t, uint64(2), newer.Generation)

	got := p.apply(1, []order.Order{{ID: "old"}}, nil)
	assert.Equal(t, "new", got.Orders[0].ID)
	assert.Equal(t, "new", p.Snapshot().Orders[0].ID)

	// A stale error is dropped as well.
	p.apply(1, nil, errors.New("late failure"))
	assert.NoError(t, p.Snapshot().Err)
}

func TestPoller_ErrorKeepsLastOrders(t *testing.T) {
	api := &fakeAPI{orders: []order.Order{{ID: "o1"}}}
	p := NewPoller(api.ListAdminOrders, PollerConfig{})

	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	api.listErr = errors.New("503 upstream")
	snap, err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.EqualError(t, snap.Err, "503 upstream")
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, "o1", snap.Orders[0].ID)
}

func TestPoller_ConcurrentRefreshCoalesced(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	p := NewPoller(func(context.Context) ([]order.Order, error) {
		calls.Add(1)
		<-release
		return []order.Order{{ID: "o1"}}, nil
	}, PollerConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Refresh(context.Background())
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the other callers time to join the flight.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, p.Snapshot().Orders, 1)
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller(func(context.Context) ([]order.Order, error) {
		calls.Add(1)
		return nil, nil
	}, PollerConfig{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestAdmin_EmptyListIsNotAnError(t *testing.T) {
	b := NewAdminBoard(&fakeAPI{}, AdminConfig{})

	snap, err := b.Snapshot(context.Background())
	require.NoError(t, err)

	v := Render(snap, order.Filter{}, "")
	assert.True(t, v.Loaded)
	assert.True(t, v.Empty)
	assert.Empty(t, v.Error)
	assert.NotNil(t, v.Orders)
}

func TestAdmin_UpdateThenRefetch(t *testing.T) {
	api := &fakeAPI{orders: []order.Order{
		{ID: "o1", Status: order.StatusPending},
		{ID: "o2", Status: order.StatusPending},
	}}
	b := NewAdminBoard(api, AdminConfig{})
	ctx := context.Background()

	_, err := b.Snapshot(ctx)
	require.NoError(t, err)
	listsBefore := api.lists.Load()

	snap, err := b.Update(ctx, "o1", order.Update{Status: statusPtr(order.StatusCompleted)})
	require.NoError(t, err)

	assert.Equal(t, listsBefore+1, api.lists.Load())
	require.Len(t, api.updates, 1)
	assert.Equal(t, order.StatusCompleted, *api.updates[0].Status)
	assert.Nil(t, api.updates[0].DeliveryDate)

	assert.Equal(t, order.StatusCompleted, snap.Orders[0].Status)
	assert.Equal(t, order.StatusPending, snap.Orders[1].Status)
	assert.False(t, b.Saving("o1"))
}

func TestAdmin_UnchangedFieldsNotSent(t *testing.T) {
	api := &fakeAPI{orders: []order.Order{{ID: "o1", Status: order.StatusPending, DeliveryTime: "10:00 - 12:00"}}}
	b := NewAdminBoard(api, AdminConfig{})
	ctx := context.Background()
	_, _ = b.Snapshot(ctx)

	_, err := b.Update(ctx, "o1", order.Update{Status: statusPtr(order.StatusPending)})
	require.NoError(t, err)
	assert.Empty(t, api.updates)

	dt := "10:00 - 12:00"
	dd := "2025-06-20"
	_, err = b.Update(ctx, "o1", order.Update{DeliveryTime: &dt, DeliveryDate: &dd})
	require.NoError(t, err)
	require.Len(t, api.updates, 1)
	assert.Nil(t, api.updates[0].DeliveryTime)
	assert.Equal(t, "2025-06-20", *api.updates[0].DeliveryDate)
}

func TestAdmin_UpdateFailureKeepsState(t *testing.T) {
	api := &fakeAPI{orders: []order.Order{{ID: "o1", Status: order.StatusPending}}}
	b := NewAdminBoard(api, AdminConfig{})
	ctx := context.Background()
	_, _ = b.Snapshot(ctx)

	api.updateErr = errors.New("409 conflict")
	snap, err := b.Update(ctx, "o1", order.Update{Status: statusPtr(order.StatusCancelled)})

	var ue *UpdateError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, MsgUpdateFailed, err.Error())
	assert.Equal(t, order.StatusPending, snap.Orders[0].Status)
	assert.False(t, b.Saving("o1"))
}

func TestAdmin_ConcurrentEditOfSameOrderRefused(t *testing.T) {
	api := &fakeAPI{
		orders: []order.Order{{ID: "o1", Status: order.StatusPending}, {ID: "o2", Status: order.StatusPending}},
		gate:   make(chan struct{}),
	}
	b := NewAdminBoard(api, AdminConfig{})
	ctx := context.Background()
	_, _ = b.Snapshot(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := b.Update(ctx, "o1", order.Update{Status: statusPtr(order.StatusProcessing)})
		done <- err
	}()
	require.Eventually(t, func() bool { return b.Saving("o1") }, time.Second, time.Millisecond)
	assert.Equal(t, map[string]bool{"o1": true}, b.SavingIDs())

	_, err := b.Update(ctx, "o1", order.Update{Status: statusPtr(order.StatusCompleted)})
	require.ErrorIs(t, err, ErrSaveInProgress)

	close(api.gate)
	require.NoError(t, <-done)

	// Another order is not blocked.
	_, err = b.Update(ctx, "o2", order.Update{Status: statusPtr(order.StatusCompleted)})
	require.NoError(t, err)
}

func TestAdmin_UnchangedEditDuringSaveRefused(t *testing.T) {
	api := &fakeAPI{
		orders: []order.Order{{ID: "o1", Status: order.StatusPending}},
		gate:   make(chan struct{}),
	}
	b := NewAdminBoard(api, AdminConfig{})
	ctx := context.Background()
	_, _ = b.Snapshot(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := b.Update(ctx, "o1", order.Update{Status: statusPtr(order.StatusProcessing)})
		done <- err
	}()
	require.Eventually(t, func() bool { return b.Saving("o1") }, time.Second, time.Millisecond)

	// Equal to the pre-save state, but the save in flight is about to change it.
	_, err := b.Update(ctx, "o1", order.Update{Status: statusPtr(order.StatusPending)})
	require.ErrorIs(t, err, ErrSaveInProgress)

	close(api.gate)
	require.NoError(t, <-done)
	assert.False(t, b.Saving("o1"))
}

func TestAdmin_InvalidUpdate(t *testing.T) {
	b := NewAdminBoard(&fakeAPI{}, AdminConfig{})
	_, err := b.Update(context.Background(), "o1", order.Update{Status: statusPtr("shipped")})
	require.ErrorIs(t, err, order.ErrInvalidStatus)
}

func TestHub(t *testing.T) {
	api := &fakeAPI{orders: []order.Order{
		{ID: "o1", UserID: "u1"},
		{ID: "o2", UserID: "u2"},
	}}
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	h := NewHub(api, HubConfig{Interval: time.Hour, IdleTTL: time.Minute, Now: clock})
	t.Cleanup(h.Close)
	ctx := context.Background()

	snap, err := h.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, "o1", snap.Orders[0].ID)
	assert.Equal(t, 1, h.Len())

	// Second read is served from the snapshot.
	lists := api.lists.Load()
	_, err = h.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, lists, api.lists.Load())

	_, err = h.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, h.Len())

	mu.Lock()
	now = now.Add(30 * time.Second)
	mu.Unlock()
	_, _ = h.Get(ctx, "u2")

	mu.Lock()
	now = now.Add(45 * time.Second)
	mu.Unlock()
	assert.Equal(t, 1, h.Sweep())
	assert.Equal(t, 1, h.Len())
}

func TestHub_FirstFetchError(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("down")}
	h := NewHub(api, HubConfig{Interval: time.Hour})
	t.Cleanup(h.Close)

	// A failed fetch still counts as loaded; the error travels in the snapshot.
	snap, err := h.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, snap.Loaded)
	require.Error(t, snap.Err)

	v := Render(snap, order.Filter{}, "")
	assert.Equal(t, "down", v.Error)
	assert.False(t, v.Empty)
}

func TestRender_Expand(t *testing.T) {
	snap := Snapshot{Loaded: true, Orders: []order.Order{
		{ID: "o1", Status: order.StatusPending},
		{ID: "o2", Status: order.StatusCompleted},
	}}

	v := Render(snap, order.Filter{}, "o2")
	assert.Equal(t, "o2", v.Expanded)
	assert.Equal(t, 2, v.Total)
	assert.Equal(t, 1, v.Counts[order.StatusCompleted])

	f, err := order.ParseFilter("pending", "")
	require.NoError(t, err)
	v = Render(snap, f, "o2")
	assert.Empty(t, v.Expanded)
	assert.Len(t, v.Orders, 1)
	assert.Equal(t, 2, v.Total)
}
