package main

import (
	"bufio"
	"os"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/laundry-booking/internal/domain/order"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.0001
)

// watcher remembers which order IDs were already reported. A false positive
// of the filter hides a new order from the log; it still shows up in the
// summary and the archive.
type watcher struct {
	seen *bloom.BloomFilter
	loc  *time.Location
	// primed is false until the first list is absorbed, so startup does not
	// report the whole backlog.
	primed bool
}

func newWatcher(loc *time.Location) *watcher {
	return &watcher{seen: bloom.NewWithEstimates(bloomCapacity, bloomFPR), loc: loc}
}

// fresh marks orders as seen and returns those that were not.
func (w *watcher) fresh(orders []order.Order) []order.Order {
	var out []order.Order
	for _, o := range orders {
		if w.seen.TestOrAddString(o.ID) {
			continue
		}
		if w.primed {
			out = append(out, o)
		}
	}
	w.primed = true
	return out
}

// archive appends one JSON line per fetched list to a gzip file.
type archive struct {
	f  *os.File
	gz *pgzip.Writer
	bw *bufio.Writer
}

func openArchive(path string) (*archive, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open archive %s", path)
	}
	gz := pgzip.NewWriter(f)
	return &archive{f: f, gz: gz, bw: bufio.NewWriter(gz)}, nil
}

func (a *archive) write(at time.Time, orders []order.Order) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("fetchedAt")
	e.Str(at.UTC().Format(time.RFC3339))
	e.FieldStart("orders")
	e.ArrStart()
	for _, o := range orders {
		encodeOrder(e, o)
	}
	e.ArrEnd()
	e.ObjEnd()

	if _, err := a.bw.Write(e.Bytes()); err != nil {
		return errors.Wrap(err, "write archive")
	}
	if err := a.bw.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "write archive")
	}
	return nil
}

// Close flushes the gzip stream and closes the file.
func (a *archive) Close() error {
	if err := a.bw.Flush(); err != nil {
		_ = a.f.Close()
		return errors.Wrap(err, "flush archive")
	}
	if err := a.gz.Close(); err != nil {
		_ = a.f.Close()
		return errors.Wrap(err, "close gzip")
	}
	return a.f.Close()
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	str := func(k, v string) {
		e.FieldStart(k)
		e.Str(v)
	}
	e.ObjStart()
	str("id", o.ID)
	str("userId", o.UserID)
	str("userName", o.UserName)
	str("status", string(o.Status))
	str("createdAt", o.CreatedAt.UTC().Format(time.RFC3339))
	str("scheduledDate", o.ScheduledDate)
	str("scheduledTime", o.ScheduledTime)
	str("deliveryDate", o.DeliveryDate)
	str("deliveryTime", o.DeliveryTime)
	e.FieldStart("total")
	e.Num(jx.Num(o.Total.StringFixed(2)))
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		str("serviceId", it.ServiceID)
		str("title", it.Title)
		e.FieldStart("price")
		e.Num(jx.Num(it.Price.StringFixed(2)))
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
