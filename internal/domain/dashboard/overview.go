package dashboard

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/laundry-booking/internal/domain/order"
)

// Messages shown when one dashboard section cannot be loaded.
const (
	MsgStatsFailed        = "Erreur lors du chargement des statistiques"
	MsgSubscriptionFailed = "Erreur lors du chargement de l'abonnement"
	MsgOrdersFailed       = "Erreur lors du chargement des commandes"
)

// Activity is an entry of the customer's recent activity feed.
type Activity struct {
	Type        string
	Date        time.Time
	Description string
}

// CurrentOrder is the customer's most recent open order.
type CurrentOrder struct {
	Status        order.Status
	ScheduledDate string
	ScheduledTime string
}

// Stats are the per-customer figures computed by the Order API.
type Stats struct {
	OrderCount     int
	NextPickup     *time.Time
	NextDelivery   *time.Time
	RecentActivity []Activity
	CurrentOrder   *CurrentOrder
}

// SubscriptionInfo is the subscription summary reported by the Order API.
type SubscriptionInfo struct {
	Plan            string
	CreditsUsed     int
	TotalCredits    int
	NextPaymentDate string
	Active          bool
}

// Source is the Order API surface used by the customer dashboard.
type Source interface {
	order.Lister
	DashboardStats(ctx context.Context, userID string) (*Stats, error)
	Subscription(ctx context.Context, userID string) (*SubscriptionInfo, error)
}

// Overview is the customer dashboard. Each section is loaded on its own; a
// failed section carries its message and leaves the others intact.
type Overview struct {
	Stats           *Stats
	StatsError      string
	Subscription    *SubscriptionInfo
	SubscriptionErr string
	RecentOrders    []order.Order
	RecentOrdersErr string
}

// Loader fetches the customer dashboard sections concurrently.
type Loader struct {
	src    Source
	recent int
}

// NewLoader creates a Loader listing up to recent orders.
func NewLoader(src Source, recent int) *Loader {
	if recent <= 0 {
		recent = 5
	}
	return &Loader{src: src, recent: recent}
}

// Load fetches stats, subscription and recent orders for userID.
func (l *Loader) Load(ctx context.Context, userID string) Overview {
	lg := zctx.From(ctx).With(zap.String("user_id", userID))

	var (
		ov Overview
		g  errgroup.Group
	)
	g.Go(func() error {
		st, err := l.src.DashboardStats(ctx, userID)
		if err != nil {
			lg.Warn("Load dashboard stats", zap.Error(err))
			ov.StatsError = MsgStatsFailed
			return nil
		}
		ov.Stats = st
		return nil
	})
	g.Go(func() error {
		sub, err := l.src.Subscription(ctx, userID)
		if err != nil {
			lg.Warn("Load subscription", zap.Error(err))
			ov.SubscriptionErr = MsgSubscriptionFailed
			return nil
		}
		ov.Subscription = sub
		return nil
	})
	g.Go(func() error {
		orders, err := l.src.ListOrders(ctx, userID, l.recent)
		if err != nil {
			lg.Warn("Load recent orders", zap.Error(err))
			ov.RecentOrdersErr = MsgOrdersFailed
			return nil
		}
		if len(orders) > l.recent {
			orders = orders[:l.recent]
		}
		ov.RecentOrders = orders
		return nil
	})
	_ = g.Wait()
	return ov
}
