package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (LAUNDRY_ prefix), flags, or YAML config files.
type Config struct {
	Addr string `default:"0.0.0.0:8080" usage:"API server listen address"`
	// TimeZone is the business zone for schedule and dashboard day
	// boundaries.
	TimeZone     string         `default:"Africa/Tunis" usage:"IANA time zone of the business" flag:"time-zone"`
	CatalogFile  string         `default:"" usage:"JSON catalog file, optionally gzipped; built-in catalog when empty" flag:"catalog-file"`
	OrderAPI     OrderAPIConfig `env:"ORDER_API" yaml:"order_api"`
	Identity     IdentityConfig
	Admin        AdminConfig
	Polling      PollingConfig
	Sessions     SessionsConfig
	Checkout     CheckoutConfig
	Subscription SubscriptionConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// OrderAPIConfig points at the backend that owns orders.
type OrderAPIConfig struct {
	URL     string        `usage:"Order API base URL" flag:"order-api-url"`
	Timeout time.Duration `default:"10s" usage:"Order API request timeout"`
	RPS     float64       `default:"20" usage:"Outgoing Order API requests per second, 0 for unlimited"`
	Burst   int           `default:"40" usage:"Outgoing Order API burst"`
}

// IdentityConfig points at the hosted identity provider.
type IdentityConfig struct {
	URL       string        `usage:"Identity provider base URL" flag:"identity-url"`
	SecretKey string        `usage:"Identity provider secret key" flag:"identity-secret-key"`
	Timeout   time.Duration `default:"5s" usage:"Identity provider request timeout"`
}

// AdminConfig holds the admin API keys as HMAC-SHA256 hex hashes.
type AdminConfig struct {
	Pepper    string   `usage:"HMAC pepper for admin key hashing" flag:"admin-pepper"`
	KeyHashes []string `usage:"Accepted admin key hashes (see hash-admin-key)" flag:"admin-key-hashes"`
}

// PollingConfig controls the order list pollers.
type PollingConfig struct {
	CustomerInterval time.Duration `default:"30s" usage:"Customer order list poll interval"`
	CustomerIdleTTL  time.Duration `default:"5m" usage:"Stop a customer poller after this long without reads"`
	AdminInterval    time.Duration `default:"10s" usage:"Admin order list poll interval"`
	OrderLimit       int           `default:"0" usage:"Max orders fetched per customer, 0 for all"`
	RecentOrders     int           `default:"5" usage:"Orders shown on the customer dashboard"`
}

// SessionsConfig controls booking session lifetime.
type SessionsConfig struct {
	TTL           time.Duration `default:"2h" usage:"Idle booking session lifetime"`
	SweepInterval time.Duration `default:"5m" usage:"Expired session sweep interval"`
	TimeSlots     []string      `usage:"Pickup time slots, HH:MM - HH:MM" flag:"time-slots"`
}

// CheckoutConfig controls the post-checkout redirect.
type CheckoutConfig struct {
	Redirect      string        `default:"/dashboard" usage:"Where the client goes after checkout"`
	RedirectAfter time.Duration `default:"1500ms" usage:"Delay before the redirect"`
}

// SubscriptionConfig controls the simulated latency of the subscription
// service.
type SubscriptionConfig struct {
	LoadLatency   time.Duration `default:"400ms"`
	MutateLatency time.Duration `default:"600ms"`
	CreditLatency time.Duration `default:"800ms"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "LAUNDRY",
		SkipFlags: true,
		Files:     []string{"config.yaml", "/etc/laundry/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults honours the PORT variable set by hosting platforms.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.OrderAPI.URL == "" {
		return errors.New("order API URL is required: set LAUNDRY_ORDER_API_URL")
	}
	if c.Identity.URL == "" {
		return errors.New("identity provider URL is required: set LAUNDRY_IDENTITY_URL")
	}
	if len(c.Admin.KeyHashes) > 0 && c.Admin.Pepper == "" {
		return errors.New("admin pepper is required with admin key hashes")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "time zone %q", c.TimeZone)
	}
	return loc, nil
}
