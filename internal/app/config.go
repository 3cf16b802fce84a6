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
// environment variables (QUOTE_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Square    SquareConfig
	Notify    NotifyConfig
	Quote     QuoteConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// SquareConfig points the service at the invoicing vendor.
type SquareConfig struct {
	AccessToken string        `usage:"Vendor access token (QUOTE_SQUARE_ACCESS_TOKEN or SQUARE_ACCESS_TOKEN)" flag:"square-access-token"`
	LocationID  string        `env:"LOCATION_ID" usage:"Vendor location ID (QUOTE_SQUARE_LOCATION_ID or SQUARE_LOCATION_ID)" flag:"square-location-id"`
	BaseURL     string        `env:"BASE_URL" default:"https://connect.squareup.com" usage:"Vendor API base URL" flag:"square-base-url"`
	APIVersion  string        `env:"API_VERSION" default:"2024-10-17" usage:"Vendor API version header" flag:"square-api-version"`
	Currency    string        `default:"USD" usage:"Currency of order amounts"`
	Timeout     time.Duration `default:"10s" usage:"Timeout of a single vendor call" flag:"square-timeout"`
}

// NotifyConfig controls owner notifications. Empty values disable a channel.
type NotifyConfig struct {
	OwnerEmail string        `usage:"Owner address for form relay notifications (OWNER_EMAIL)" flag:"owner-email"`
	FormURL    string        `env:"FORM_URL" default:"https://formsubmit.co/ajax" usage:"Form relay base URL" flag:"notify-form-url"`
	AMQPURL    string        `env:"AMQP_URL" usage:"AMQP broker URL for quote events" flag:"notify-amqp-url"`
	Exchange   string        `default:"quote.notifications" usage:"AMQP fanout exchange" flag:"notify-exchange"`
	Timeout    time.Duration `default:"5s" usage:"Notification timeout" flag:"notify-timeout"`
}

// QuoteConfig controls invoicing behaviour.
type QuoteConfig struct {
	InvoiceDueIn   time.Duration `default:"168h" usage:"Invoice due date offset" flag:"invoice-due-in"`
	RequestTimeout time.Duration `default:"30s" usage:"Deadline for the vendor call sequence of one quote" flag:"request-timeout"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"30" usage:"Max requests per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
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

// LoadConfig loads configuration from command-line args, environment
// variables and YAML config files, then applies platform-specific defaults.
func LoadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "QUOTE",
		SkipFlags: len(args) == 0,
		Args:      args,
		Files:     []string{"config.yaml", "/etc/quote/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports missing required settings.
func (c *Config) Validate() error {
	switch {
	case c.Square.AccessToken == "":
		return errors.New("square access token is required: set QUOTE_SQUARE_ACCESS_TOKEN or SQUARE_ACCESS_TOKEN")
	case c.Square.LocationID == "":
		return errors.New("square location ID is required: set QUOTE_SQUARE_LOCATION_ID or SQUARE_LOCATION_ID")
	case c.Quote.InvoiceDueIn < 0:
		return errors.Errorf("invoice due offset must not be negative, got %s", c.Quote.InvoiceDueIn)
	}
	return nil
}

// applyPlatformDefaults maps the unprefixed variables used by hosting
// platforms and the original deployment onto the QUOTE_ configuration.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = getenv(key)
		}
	}
	fill(&c.Square.AccessToken, "SQUARE_ACCESS_TOKEN")
	fill(&c.Square.LocationID, "SQUARE_LOCATION_ID")
	fill(&c.Notify.OwnerEmail, "OWNER_EMAIL")

	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
