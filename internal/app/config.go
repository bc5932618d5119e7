package app

import (
	"os"
	"slices"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Catalog     CatalogConfig
	Storage     StorageConfig
	Coupons     CouponsConfig
	Landing     LandingConfig
	Checkout    CheckoutConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// Catalog sources.
const (
	SourceFile     = "file"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
	SourceStatic   = "static"
)

// Slot storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// CatalogConfig selects where the product list comes from.
type CatalogConfig struct {
	Source  string        `default:"file" usage:"Catalog source: file, http or postgres"`
	Path    string        `default:"data/catalogo.json" usage:"Catalog JSON file for the file source"`
	URL     string        `usage:"Catalog JSON URL for the http source"`
	Timeout time.Duration `default:"10s" usage:"HTTP catalog fetch timeout"`
}

// StorageConfig selects the session slot backend.
type StorageConfig struct {
	Driver        string        `default:"memory" usage:"Session slot storage: memory, postgres or redis"`
	RedisAddr     string        `default:"localhost:6379" usage:"Redis address" flag:"redis-addr"`
	RedisPassword string        `usage:"Redis password" flag:"redis-password"`
	RedisDB       int           `default:"0" usage:"Redis database index" flag:"redis-db"`
	SessionTTL    time.Duration `default:"720h" usage:"Idle lifetime of a session cart" flag:"session-ttl"`
	SecureCookie  bool          `default:"false" usage:"Mark the session cookie Secure" flag:"secure-cookie"`
}

// CouponsConfig selects the coupon rule table.
type CouponsConfig struct {
	Source string         `default:"static" usage:"Coupon rules: static or postgres"`
	Codes  map[string]int `default:"JBL20:20" usage:"Static coupon table, CODE:percent pairs"`
}

// LandingConfig lists the landing page sections.
type LandingConfig struct {
	Sections []string `default:"Ofertas,Auriculares" usage:"Categories shown on the landing page"`
}

// CheckoutConfig controls the post-order navigation hint.
type CheckoutConfig struct {
	ProcessingDelay time.Duration `default:"1.5s" usage:"Delay before the client clears the cart view" flag:"processing-delay"`
	RedirectDelay   time.Duration `default:"2s"   usage:"Further delay before returning to RedirectTo" flag:"redirect-delay"`
	RedirectTo      string        `default:"/"    usage:"Location the client navigates to after checkout" flag:"redirect-to"`
}

// RateLimitConfig controls the per-session sliding window rate limiter.
type RateLimitConfig struct {
	Max      int           `default:"100" usage:"Max requests per window"`
	WriteMax int           `default:"30"  usage:"Max cart and checkout writes per window, 0 shares Max" flag:"rate-write-max"`
	IPMax    int           `default:"300" usage:"Max requests per client IP per window, 0 disables" flag:"rate-ip-max"`
	Window   time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow the session cookie cross-origin" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NeedsPostgres reports whether any component is backed by PostgreSQL.
func (c *Config) NeedsPostgres() bool {
	return c.Catalog.Source == SourcePostgres ||
		c.Storage.Driver == DriverPostgres ||
		c.Coupons.Source == SourcePostgres
}

// Validate rejects unknown sources and missing connection settings.
func (c *Config) Validate() error {
	if !slices.Contains([]string{SourceFile, SourceHTTP, SourcePostgres}, c.Catalog.Source) {
		return errors.Errorf("unknown catalog source %q", c.Catalog.Source)
	}
	if !slices.Contains([]string{DriverMemory, DriverPostgres, DriverRedis}, c.Storage.Driver) {
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if !slices.Contains([]string{SourceStatic, SourcePostgres}, c.Coupons.Source) {
		return errors.Errorf("unknown coupon source %q", c.Coupons.Source)
	}

	switch {
	case c.Catalog.Source == SourceFile && c.Catalog.Path == "":
		return errors.New("catalog path is required for the file source")
	case c.Catalog.Source == SourceHTTP && c.Catalog.URL == "":
		return errors.New("catalog URL is required for the http source")
	case c.Storage.Driver == DriverRedis && c.Storage.RedisAddr == "":
		return errors.New("redis address is required for the redis driver")
	case c.NeedsPostgres() && c.DatabaseURL == "":
		return errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT
// to the application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
