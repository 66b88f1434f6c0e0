package orderapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/laundry-booking/internal/domain/order"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("/api", Options{})
	require.Error(t, err)
}

func TestListOrders(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("userId"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, `[
			{"id":"o1","userId":"u1","status":"pending","createdAt":"2025-06-15T09:00:00Z",
			 "scheduledDate":"2025-06-16","scheduledTime":"10:00 - 12:00","deliveryDate":null,
			 "deliveryTime":null,"total":44,"address":"Tunis","notes":"",
			 "items":[{"serviceId":"kilo-wash","title":"Lavage au kilo","price":"22","quantity":2}]},
			{"id":2,"status":"COMPLETED","total":"12.50","items":["Pressing"]}
		]`)
	}))

	orders, err := c.ListOrders(context.Background(), "u1", 5)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	o := orders[0]
	assert.Equal(t, "o1", o.ID)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC), o.CreatedAt.UTC())
	assert.Equal(t, "2025-06-16", o.ScheduledDate)
	assert.Empty(t, o.DeliveryDate)
	assert.True(t, decimal.NewFromInt(44).Equal(o.Total))
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(22).Equal(o.Items[0].Price))

	assert.Equal(t, "2", orders[1].ID)
	assert.Equal(t, order.StatusCompleted, orders[1].Status)
	assert.Equal(t, "12.50", orders[1].Total.StringFixed(2))
	assert.Equal(t, []order.Item{{Title: "Pressing", Quantity: 1}}, orders[1].Items)
}

func TestListAdminOrders_EmptyAndWrapped(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/orders", r.URL.Path)
		if calls.Add(1) == 1 {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		_, _ = io.WriteString(w, `{"orders":[{"id":"o9","status":"processing"}],"count":1}`)
	}))

	orders, err := c.ListAdminOrders(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)

	orders, err = c.ListAdminOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.StatusProcessing, orders[0].Status)
}

func TestCreateOrder(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"new-1","userId":"u1","status":"pending","total":44}`)
	}))

	day := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	created, err := c.CreateOrder(context.Background(), order.Draft{
		UserID:        "u1",
		Status:        order.StatusPending,
		CreatedAt:     time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC),
		ScheduledDate: &day,
		Total:         decimal.RequireFromString("44.00"),
		Address:       "Tunis",
		Items: []order.Item{{
			ServiceID: "kilo-wash",
			Title:     "Lavage au kilo",
			Price:     decimal.RequireFromString("22"),
			Unit:      "/5kg",
			Quantity:  2,
			Category:  "laver",
		}},
	}, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "new-1", created.ID)

	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "2025-06-15T09:00:00Z", body["created_at"])
	assert.Equal(t, "2025-06-16", body["scheduled_date"])
	assert.Nil(t, body["scheduled_time"])
	assert.Contains(t, body, "delivery_date")
	assert.Nil(t, body["delivery_date"])
	assert.Nil(t, body["delivery_time"])
	assert.Equal(t, 44.0, body["total"])
	assert.Equal(t, "Tunis", body["address"])

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "kilo-wash", item["serviceId"])
	assert.Equal(t, 22.0, item["price"])
	assert.Equal(t, 2.0, item["quantity"])
	assert.Equal(t, "laver", item["category"])
}

func TestCreateOrder_EmptyBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	created, err := c.CreateOrder(context.Background(), order.Draft{UserID: "u1", Status: order.StatusPending}, "")
	require.NoError(t, err)
	assert.Equal(t, "u1", created.UserID)
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))

	_, err := c.CreateOrder(context.Background(), order.Draft{}, "k")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, "boom", se.Body)
}

func TestUpdateAdminOrder_SendsChangedFieldsOnly(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/admin/orders/o1", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	}))

	st := order.StatusCompleted
	require.NoError(t, c.UpdateAdminOrder(context.Background(), "o1", order.Update{Status: &st}))
	assert.Equal(t, map[string]any{"status": "completed"}, body)
}

func TestUpdateAdminOrder_EscapesID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/orders/a%2Fb%3Fc", r.URL.EscapedPath())
		assert.Equal(t, "/api/admin/orders/a/b?c", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		w.WriteHeader(http.StatusNoContent)
	}))

	st := order.StatusCancelled
	require.NoError(t, c.UpdateAdminOrder(context.Background(), "a/b?c", order.Update{Status: &st}))
}

func TestDashboardStatsAndSubscription(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/dashboard/stats", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"orderCount":4,"nextPickup":"2025-06-16T10:00:00Z","nextDelivery":null,
			"recentActivity":[{"type":"order","date":"2025-06-14T08:00:00Z","description":"Commande créée"}],
			"currentOrder":{"status":"processing","scheduledDate":"2025-06-16","scheduledTime":null}}`)
	})
	mux.HandleFunc("/api/subscriptions", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"plan":"Big Ghassla","creditsUsed":5,"totalCredits":50,"nextPaymentDate":"2025-07-05","status":"ACTIVE"}`)
	})
	c := newTestClient(t, mux)

	st, err := c.DashboardStats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, st.OrderCount)
	require.NotNil(t, st.NextPickup)
	assert.Nil(t, st.NextDelivery)
	require.Len(t, st.RecentActivity, 1)
	assert.Equal(t, "Commande créée", st.RecentActivity[0].Description)
	require.NotNil(t, st.CurrentOrder)
	assert.Equal(t, order.StatusProcessing, st.CurrentOrder.Status)

	sub, err := c.Subscription(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Big Ghassla", sub.Plan)
	assert.Equal(t, 45, sub.TotalCredits-sub.CreditsUsed)
	assert.True(t, sub.Active)
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, Options{RPS: 0.001, Burst: 1})
	require.NoError(t, err)

	_, err = c.ListAdminOrders(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.ListAdminOrders(ctx)
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))

	require.NoError(t, c.Ping(context.Background()))

	status.Store(http.StatusBadGateway)
	require.Error(t, c.Ping(context.Background()))
}
