// Command order-watch follows the admin order list from the terminal. It logs
// orders it has not seen before, a summary after every poll, and can archive
// each fetched list to a gzip NDJSON file.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/laundry-booking/internal/domain/dashboard"
	"github.com/xenking/laundry-booking/internal/domain/order"
	"github.com/xenking/laundry-booking/internal/orderapi"
)

type options struct {
	orderAPIURL string
	interval    time.Duration
	once        bool
	archivePath string
	timeZone    string
}

func main() {
	var opts options

	flag.StringVar(&opts.orderAPIURL, "order-api-url", "", "Order API base URL (or LAUNDRY_ORDER_API_URL env)")
	flag.DurationVar(&opts.interval, "interval", 10*time.Second, "poll interval")
	flag.BoolVar(&opts.once, "once", false, "poll once and exit")
	flag.StringVar(&opts.archivePath, "archive", "", "write every fetched list to this gzip NDJSON file")
	flag.StringVar(&opts.timeZone, "time-zone", "Africa/Tunis", "IANA time zone for today/yesterday figures")
	flag.Parse()

	if opts.orderAPIURL == "" {
		opts.orderAPIURL = os.Getenv("LAUNDRY_ORDER_API_URL")
	}
	if opts.orderAPIURL == "" {
		slog.Error("order API URL is required: set --order-api-url or LAUNDRY_ORDER_API_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("order watch failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type snapshot struct {
	at     time.Time
	orders []order.Order
}

func run(ctx context.Context, opts options) error {
	loc, err := time.LoadLocation(opts.timeZone)
	if err != nil {
		return errors.Wrapf(err, "time zone %q", opts.timeZone)
	}
	client, err := orderapi.New(opts.orderAPIURL, orderapi.Options{})
	if err != nil {
		return errors.Wrap(err, "create order api client")
	}

	var arc *archive
	if opts.archivePath != "" {
		if arc, err = openArchive(opts.archivePath); err != nil {
			return err
		}
	}

	w := newWatcher(loc)
	snapshots := make(chan snapshot, 1)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(snapshots)
		return poll(ctx, client, opts, w, snapshots)
	})
	g.Go(func() error {
		for s := range snapshots {
			if arc == nil {
				continue
			}
			if err := arc.write(s.at, s.orders); err != nil {
				return err
			}
		}
		return nil
	})

	err = g.Wait()
	if arc != nil {
		if cerr := arc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func poll(ctx context.Context, client order.AdminClient, opts options, w *watcher, out chan<- snapshot) error {
	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for {
		orders, err := client.ListAdminOrders(ctx)
		switch {
		case err == nil:
			now := time.Now()
			for _, o := range w.fresh(orders) {
				slog.Info("new order",
					slog.String("id", o.ID),
					slog.String("customer", o.UserName),
					slog.String("status", string(o.Status)),
					slog.String("total", o.Total.StringFixed(2)),
				)
			}
			logSummary(dashboard.Summarize(orders, now, w.loc))
			select {
			case out <- snapshot{at: now, orders: orders}:
			case <-ctx.Done():
				return ctx.Err()
			}
		case ctx.Err() != nil:
			return ctx.Err()
		case opts.once:
			return errors.Wrap(err, "list orders")
		default:
			slog.Warn("poll failed", slog.String("error", err.Error()))
		}

		if opts.once {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func logSummary(s dashboard.Summary) {
	slog.Info("summary",
		slog.Int("total", s.Total),
		slog.Int("pending", s.Pending),
		slog.Int("processing", s.Processing),
		slog.Int("completed", s.Completed),
		slog.Int("cancelled", s.Cancelled),
		slog.String("revenue", s.Revenue.StringFixed(2)),
		slog.Int("today", s.TodayOrders),
		slog.String("orders_trend", s.OrdersTrend),
		slog.String("revenue_trend", s.RevenueTrend),
	)
}
