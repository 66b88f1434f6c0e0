// Package identityapi is the HTTP client of the external identity provider.
package identityapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/laundry-booking/internal/domain/identity"
)

var _ identity.Provider = (*Client)(nil)

// StatusError is returned for an unexpected response status.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("identity %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	// SecretKey authenticates the server-side calls (metadata, password).
	SecretKey      string
	Timeout        time.Duration
	Transport      http.RoundTripper
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client implements identity.Provider over HTTP.
type Client struct {
	base   *url.URL
	secret string
	http   *http.Client
}

// New creates a Client for the provider at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
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
	return &Client{
		base:   u,
		secret: opts.SecretKey,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(opts.Transport, otelOpts...),
		},
	}, nil
}

// Authenticate resolves a session token into the signed-in user.
func (c *Client) Authenticate(ctx context.Context, token string) (*identity.User, error) {
	if token == "" {
		return nil, identity.ErrUnauthenticated
	}
	var u *identity.User
	err := c.do(ctx, http.MethodGet, "/v1/me", token, nil, func(d *jx.Decoder) error {
		var err error
		u, err = decodeUser(d)
		return err
	})
	var se *StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
		return nil, identity.ErrUnauthenticated
	}
	if err != nil {
		return nil, errors.Wrap(err, "authenticate")
	}
	if u == nil || u.ID == "" {
		return nil, identity.ErrUnauthenticated
	}
	return u, nil
}

// Metadata returns the profile metadata of userID.
func (c *Client) Metadata(ctx context.Context, userID string) (*identity.Metadata, error) {
	m := &identity.Metadata{}
	err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(userID)+"/metadata", c.secret, nil, func(d *jx.Decoder) error {
		return decodeMetadata(d, m)
	})
	if err != nil {
		return nil, errors.Wrap(err, "get metadata")
	}
	return m, nil
}

// UpdateMetadata replaces phone and address of userID.
func (c *Client) UpdateMetadata(ctx context.Context, userID string, m identity.Metadata) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("public_metadata")
	e.ObjStart()
	e.FieldStart("phone")
	e.Str(m.Phone)
	e.FieldStart("address")
	e.Str(m.Address)
	e.ObjEnd()
	e.ObjEnd()

	if err := c.do(ctx, http.MethodPatch, "/v1/users/"+url.PathEscape(userID)+"/metadata", c.secret, e.Bytes(), nil); err != nil {
		return errors.Wrap(err, "update metadata")
	}
	return nil
}

// ChangePassword updates the password of userID. The confirmation is checked
// before calling.
func (c *Client) ChangePassword(ctx context.Context, userID string, p identity.PasswordChange) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("current_password")
	e.Str(p.Current)
	e.FieldStart("new_password")
	e.Str(p.New)
	e.ObjEnd()

	err := c.do(ctx, http.MethodPost, "/v1/users/"+url.PathEscape(userID)+"/password", c.secret, e.Bytes(), nil)
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusUnprocessableEntity {
		return identity.ErrWrongPassword
	}
	if err != nil {
		return errors.Wrap(err, "change password")
	}
	return nil
}

// Ping checks that the provider answers.
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

func (c *Client) do(ctx context.Context, method, path, bearer string, body []byte, decode func(*jx.Decoder) error) error {
	u, err := c.resolve(path)
	if err != nil {
		return err
	}

	var r io.Reader = http.NoBody
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
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

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if decode == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return errors.Wrap(decode(jx.DecodeBytes(data)), "decode")
}

func decodeUser(d *jx.Decoder) (*identity.User, error) {
	u := &identity.User{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			u.ID, err = str(d)
		case "first_name":
			u.FirstName, err = str(d)
		case "last_name":
			u.LastName, err = str(d)
		case "email":
			u.Email, err = str(d)
		case "email_addresses":
			if d.Next() == jx.Null {
				return d.Null()
			}
			err = d.Arr(func(d *jx.Decoder) error {
				return d.Obj(func(d *jx.Decoder, key string) error {
					if key != "email_address" {
						return d.Skip()
					}
					addr, err := str(d)
					if err == nil && u.Email == "" {
						u.Email = addr
					}
					return err
				})
			})
		case "image_url":
			u.ImageURL, err = str(d)
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	})
	return u, err
}

// decodeMetadata accepts {"public_metadata":{...}} and the flat form.
func decodeMetadata(d *jx.Decoder, m *identity.Metadata) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "public_metadata", "publicMetadata":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return decodeMetadata(d, m)
		case "phone":
			m.Phone, err = str(d)
		case "address":
			m.Address, err = str(d)
		default:
			err = d.Skip()
		}
		return err
	})
}

func str(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
