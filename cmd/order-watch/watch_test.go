package main

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/laundry-booking/internal/domain/order"
)

func ids(orders []order.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestWatcher_Fresh(t *testing.T) {
	w := newWatcher(time.UTC)

	first := []order.Order{{ID: "a"}, {ID: "b"}}
	assert.Empty(t, w.fresh(first), "backlog is not reported")

	second := []order.Order{{ID: "c"}, {ID: "a"}, {ID: "b"}, {ID: "d"}}
	assert.Equal(t, []string{"c", "d"}, ids(w.fresh(second)))
	assert.Empty(t, w.fresh(second))
}

func TestArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.ndjson.gz")
	arc, err := openArchive(path)
	require.NoError(t, err)

	at := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, arc.write(at, []order.Order{{
		ID:     "o-1",
		Status: order.StatusPending,
		Total:  decimal.RequireFromString("44"),
		Items:  []order.Item{{ServiceID: "kilo-wash", Price: decimal.NewFromInt(22), Quantity: 2}},
	}}))
	require.NoError(t, arc.write(at.Add(time.Minute), nil))
	require.NoError(t, arc.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	gz, err := pgzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	require.Len(t, lines, 2)

	var (
		fetchedAt string
		total     string
		count     int
	)
	require.NoError(t, jx.DecodeStr(lines[0]).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "fetchedAt":
			v, err := d.Str()
			fetchedAt = v
			return err
		case "orders":
			return d.Arr(func(d *jx.Decoder) error {
				count++
				return d.Obj(func(d *jx.Decoder, key string) error {
					if key != "total" {
						return d.Skip()
					}
					n, err := d.Num()
					total = n.String()
					return err
				})
			})
		default:
			return d.Skip()
		}
	}))
	assert.Equal(t, "2025-06-15T09:00:00Z", fetchedAt)
	assert.Equal(t, 1, count)
	assert.Equal(t, "44.00", total)
	assert.Contains(t, lines[1], `"orders":[]`)
}

type fakeAdmin struct {
	orders []order.Order
	err    error
}

func (f *fakeAdmin) ListAdminOrders(context.Context) ([]order.Order, error) {
	return f.orders, f.err
}

func (f *fakeAdmin) UpdateAdminOrder(context.Context, string, order.Update) error {
	return nil
}

func TestPoll_Once(t *testing.T) {
	client := &fakeAdmin{orders: []order.Order{{ID: "a", Total: decimal.NewFromInt(10)}}}
	out := make(chan snapshot, 1)

	err := poll(context.Background(), client, options{interval: time.Hour, once: true}, newWatcher(time.UTC), out)
	require.NoError(t, err)
	s := <-out
	assert.Equal(t, []string{"a"}, ids(s.orders))

	client.err = errors.New("boom")
	err = poll(context.Background(), client, options{interval: time.Hour, once: true}, newWatcher(time.UTC), out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list orders")
}

func TestPoll_StopsOnCancel(t *testing.T) {
	client := &fakeAdmin{err: errors.New("down")}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- poll(ctx, client, options{interval: 10 * time.Millisecond}, newWatcher(time.UTC), make(chan snapshot))
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poll did not stop")
	}
}
