// Package orderapi is the HTTP client of the remote Order API.
package orderapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/xenking/laundry-booking/internal/domain/dashboard"
	"github.com/xenking/laundry-booking/internal/domain/order"
)

// Compile-time checks against the domain interfaces.
var (
	_ order.Creator     = (*Client)(nil)
	_ order.Lister      = (*Client)(nil)
	_ order.AdminClient = (*Client)(nil)
	_ dashboard.Source  = (*Client)(nil)
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	// Timeout bounds each request. Zero means 10s.
	Timeout time.Duration
	// RPS limits outgoing requests per second. Zero or less disables the limit.
	RPS   float64
	Burst int
	// Transport is the base round tripper, http.DefaultTransport by default.
	Transport      http.RoundTripper
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client talks to the Order API.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
}

// New creates a Client for the Order API at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}

	var otelOpts []otelhttp.Option
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}
	if opts.MeterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(opts.MeterProvider))
	}

	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	return &Client{
		base: u,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(opts.Transport, otelOpts...),
		},
		limiter: rate.NewLimiter(limit, opts.Burst),
	}, nil
}

// ListOrders implements order.Lister.
func (c *Client) ListOrders(ctx context.Context, userID string, limit int) ([]order.Order, error) {
	q := url.Values{"userId": {userID}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []order.Order
	err := c.do(ctx, http.MethodGet, "/api/orders", q, nil, nil, func(d *jx.Decoder) error {
		var err error
		out, err = decodeOrders(d)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return out, nil
}

// CreateOrder implements order.Creator.
func (c *Client) CreateOrder(ctx context.Context, d order.Draft, key string) (*order.Order, error) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encodeDraft(e, d)

	h := http.Header{}
	if key != "" {
		h.Set("Idempotency-Key", key)
	}

	var created *order.Order
	err := c.do(ctx, http.MethodPost, "/api/orders", nil, e.Bytes(), h, func(dec *jx.Decoder) error {
		o, err := decodeOrder(dec)
		if err != nil {
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	if created == nil {
		// Some deployments answer 201 with an empty body.
		created = &order.Order{UserID: d.UserID, Status: d.Status, CreatedAt: d.CreatedAt, Total: d.Total}
	}
	return created, nil
}

// ListAdminOrders implements order.AdminClient.
func (c *Client) ListAdminOrders(ctx context.Context) ([]order.Order, error) {
	var out []order.Order
	err := c.do(ctx, http.MethodGet, "/api/admin/orders", nil, nil, nil, func(d *jx.Decoder) error {
		var err error
		out, err = decodeOrders(d)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "list admin orders")
	}
	return out, nil
}

// UpdateAdminOrder implements order.AdminClient.
func (c *Client) UpdateAdminOrder(ctx context.Context, id string, u order.Update) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encodeUpdate(e, u)

	p := "/api/admin/orders/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, p, nil, e.Bytes(), nil, nil); err != nil {
		return errors.Wrapf(err, "update order %s", id)
	}
	return nil
}

// DashboardStats implements dashboard.Source.
func (c *Client) DashboardStats(ctx context.Context, userID string) (*dashboard.Stats, error) {
	var st *dashboard.Stats
	err := c.do(ctx, http.MethodGet, "/api/dashboard/stats", url.Values{"userId": {userID}}, nil, nil, func(d *jx.Decoder) error {
		var err error
		st, err = decodeStats(d)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "dashboard stats")
	}
	if st == nil {
		st = &dashboard.Stats{}
	}
	return st, nil
}

// Subscription implements dashboard.Source.
func (c *Client) Subscription(ctx context.Context, userID string) (*dashboard.SubscriptionInfo, error) {
	var sub *dashboard.SubscriptionInfo
	err := c.do(ctx, http.MethodGet, "/api/subscriptions", url.Values{"userId": {userID}}, nil, nil, func(d *jx.Decoder) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		sub, err = decodeSubscription(d)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "subscription")
	}
	return sub, nil
}

// Ping checks that the Order API answers. Any response below 500 counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String()+"/", http.NoBody)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "ping")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return errors.Errorf("ping: status %d", resp.StatusCode)
	}
	return nil
}

// resolve appends an already escaped path to the base URL.
func (c *Client) resolve(path string) (*url.URL, error) {
	u := *c.base
	u.RawPath = c.base.EscapedPath() + path
	p, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return nil, errors.Wrapf(err, "path %q", path)
	}
	u.Path = p
	return &u, nil
}

// do performs one request. decode is called with the response body unless
// the body is empty; a nil decode discards it.
func (c *Client) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	body []byte,
	header http.Header,
	decode func(d *jx.Decoder) error,
) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit")
	}

	u, err := c.resolve(path)
	if err != nil {
		return err
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var r io.Reader = http.NoBody
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	if decode == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := decode(jx.DecodeBytes(data)); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}
