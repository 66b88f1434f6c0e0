// Package handler exposes the booking service over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/laundry-booking/internal/domain/auth"
	"github.com/xenking/laundry-booking/internal/domain/booking"
	"github.com/xenking/laundry-booking/internal/domain/catalog"
	"github.com/xenking/laundry-booking/internal/domain/dashboard"
	"github.com/xenking/laundry-booking/internal/domain/identity"
	"github.com/xenking/laundry-booking/internal/domain/order"
	"github.com/xenking/laundry-booking/internal/domain/subscription"
	"github.com/xenking/laundry-booking/internal/orderview"
)

// APIKeyHeader carries the admin API key.
const APIKeyHeader = "api_key"

// Deps are the services behind the HTTP API.
type Deps struct {
	Catalog       *catalog.Catalog
	Sessions      *booking.Registry
	Orders        *order.Service
	CustomerViews *orderview.Hub
	AdminBoard    *orderview.AdminBoard
	Dashboard     *dashboard.Loader
	Subscriptions *subscription.Service
	Identity      identity.Provider
	AdminKeys     *auth.KeySet
}

// Config holds non-dependency settings.
type Config struct {
	// Location is the business time zone used by the admin summary.
	Location *time.Location
	Now      func() time.Time
}

// Handler serves the HTTP API.
type Handler struct {
	Deps
	loc *time.Location
	now func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(cfg Config, deps Deps) *Handler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{Deps: deps, loc: cfg.Location, now: cfg.Now}
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/api/catalog", h.getCatalog)
	r.Get("/api/subscription/plans", h.listPlans)

	r.Route("/api/booking/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{sid}", func(r chi.Router) {
			r.Use(h.loadSession)
			r.Get("/", h.getSession)
			r.Delete("/", h.deleteSession)
			r.Post("/services", h.addService)
			r.Delete("/services", h.clearServices)
			r.Put("/services/{serviceId}", h.updateQuantity)
			r.Delete("/services/{serviceId}", h.removeService)
			r.Post("/next", h.nextStep)
			r.Post("/back", h.prevStep)
			r.Put("/step", h.setStep)
			r.Put("/schedule", h.setSchedule)
			r.Get("/slots", h.getSlots)
			r.With(h.requireUser).Post("/checkout", h.checkout)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)
		r.Get("/api/me/orders", h.myOrders)
		r.Post("/api/me/orders/refresh", h.refreshMyOrders)
		r.Get("/api/me/dashboard", h.myDashboard)
		r.Get("/api/me/subscription", h.mySubscription)
		r.Post("/api/me/subscription", h.subscribe)
		r.Delete("/api/me/subscription", h.cancelSubscription)
		r.Post("/api/me/subscription/credits", h.useCredits)
		r.Get("/api/profile/metadata", h.getMetadata)
		r.Post("/api/profile/metadata", h.updateMetadata)
		r.Post("/api/profile/password", h.changePassword)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/orders", h.adminOrders)
		r.Post("/orders/refresh", h.refreshAdminOrders)
		r.Put("/orders/{id}", h.updateAdminOrder)
		r.Get("/summary", h.adminSummary)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, func(e *jx.Encoder) {
			e.ObjStart()
			field(e, "error", "not found")
			e.ObjEnd()
		})
	})
	return r
}

func (h *Handler) getCatalog(w http.ResponseWriter, r *http.Request) {
	services := h.Catalog.List(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCatalog(e, h.Catalog.Categories(), services)
	})
}
