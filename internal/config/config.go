// Package config loads and validates all environment variables at startup.
// Every other package receives typed values; nothing reads os.Getenv directly.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Email providers understood by EMAIL_PROVIDER.
const (
	ProviderEmailJS = "emailjs"
	ProviderResend  = "resend"
)

// Order modes understood by ORDER_MODE.
const (
	// OrderModeMetadata embeds the whole order in the Checkout session metadata.
	OrderModeMetadata = "metadata"
	// OrderModeStore keeps the order server-side and sends only its id to Stripe.
	OrderModeStore = "store"
)

// DefaultPriceMinorUnit is used when a price variable is unset or unusable (0,99 €).
const DefaultPriceMinorUnit int64 = 99

// Config is the fully-parsed application configuration.
type Config struct {
	// ── Server ────────────────────────────────────────────────────────────────
	Port      string // default "3000"
	Env       string // "development" | "staging" | "production"
	BaseURL   string // e.g. "https://ironic.example.com"; derived per request when empty
	StaticDir string // serve pages from disk instead of the embedded copies

	// ── Stripe ────────────────────────────────────────────────────────────────
	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string // default "eur"
	PriceCustom         int64  // minor units, default 99
	PriceTemplate       int64  // minor units, default 99
	ProductName         string
	ProductDescription  string

	// ── Email ─────────────────────────────────────────────────────────────────
	EmailProvider string // "emailjs" | "resend"
	EmailToName   string // default "Utente"

	EmailJSPublicKey  string
	EmailJSPrivateKey string
	EmailJSServiceID  string
	EmailJSTemplateID string

	ResendAPIKey  string
	EmailFromAddr string
	EmailFromName string

	// ── Orders ────────────────────────────────────────────────────────────────
	OrderMode     string        // "metadata" | "store"
	OrderTTL      time.Duration // default 24h
	OrderCapacity int           // default 10000, in-memory store only

	// ── Backing services (all optional) ───────────────────────────────────────
	RedisURL    string
	DatabaseURL string
	EventTTL    time.Duration // default 72h
}

// Load reads all environment variables and returns a validated Config.
// It automatically loads a .env file from the working directory when present,
// so plain `go run ./cmd/api` works in development without any wrapper.
// Real environment variables always take precedence over .env values.
func Load() (*Config, error) {
	loadDotEnv(".env")

	c := &Config{
		Port:                getEnv("PORT", "3000"),
		Env:                 getEnv("ENV", "development"),
		BaseURL:             strings.TrimRight(os.Getenv("BASE_URL"), "/"),
		StaticDir:           os.Getenv("STATIC_DIR"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            strings.ToLower(getEnv("CURRENCY", "eur")),
		PriceCustom:         getEnvAsPrice("PRICE_MINOR_UNIT_CUSTOM"),
		PriceTemplate:       getEnvAsPrice("PRICE_MINOR_UNIT_TEMPLATE"),
		ProductName:         getEnv("PRODUCT_NAME", "Fanculo automatico"),
		ProductDescription:  getEnv("PRODUCT_DESCRIPTION", "Invia un messaggio ironico via email!"),
		EmailProvider:       strings.ToLower(getEnv("EMAIL_PROVIDER", ProviderEmailJS)),
		EmailToName:         getEnv("EMAIL_TO_NAME", "Utente"),
		EmailJSPublicKey:    os.Getenv("EMAILJS_PUBLIC_KEY"),
		EmailJSPrivateKey:   os.Getenv("EMAILJS_PRIVATE_KEY"),
		EmailJSServiceID:    os.Getenv("EMAILJS_SERVICE_ID"),
		EmailJSTemplateID:   os.Getenv("EMAILJS_TEMPLATE_ID"),
		ResendAPIKey:        os.Getenv("RESEND_API_KEY"),
		EmailFromAddr:       getEnv("EMAIL_FROM_ADDR", "noreply@example.com"),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "Fanculo automatico"),
		OrderMode:           strings.ToLower(getEnv("ORDER_MODE", OrderModeMetadata)),
		OrderTTL:            getEnvAsDuration("ORDER_TTL", 24*time.Hour),
		OrderCapacity:       getEnvAsInt("ORDER_CAPACITY", 10000),
		RedisURL:            os.Getenv("REDIS_URL"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		EventTTL:            getEnvAsDuration("EVENT_TTL", 72*time.Hour),
	}

	return c, c.validate()
}

// PriceFor returns the unit amount in minor units for a custom or template message.
func (c *Config) PriceFor(custom bool) int64 {
	if custom {
		return c.PriceCustom
	}
	return c.PriceTemplate
}

// IsProduction reports whether ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	var errs []error

	required := map[string]string{
		"STRIPE_SECRET_KEY":     c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": c.StripeWebhookSecret,
	}

	switch c.EmailProvider {
	case ProviderEmailJS:
		required["EMAILJS_PUBLIC_KEY"] = c.EmailJSPublicKey
		required["EMAILJS_PRIVATE_KEY"] = c.EmailJSPrivateKey
		required["EMAILJS_SERVICE_ID"] = c.EmailJSServiceID
		required["EMAILJS_TEMPLATE_ID"] = c.EmailJSTemplateID
	case ProviderResend:
		required["RESEND_API_KEY"] = c.ResendAPIKey
	default:
		errs = append(errs, fmt.Errorf("unknown EMAIL_PROVIDER %q (want %q or %q)",
			c.EmailProvider, ProviderEmailJS, ProviderResend))
	}

	for name, val := range required {
		if val == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", name))
		}
	}

	if c.OrderMode != OrderModeMetadata && c.OrderMode != OrderModeStore {
		errs = append(errs, fmt.Errorf("unknown ORDER_MODE %q (want %q or %q)",
			c.OrderMode, OrderModeMetadata, OrderModeStore))
	}

	if c.OrderCapacity <= 0 {
		errs = append(errs, errors.New("ORDER_CAPACITY must be positive"))
	}

	return errors.Join(errs...)
}

// ─── DOT-ENV LOADER ──────────────────────────────────────────────────────────

// loadDotEnv reads key=value pairs from path and sets them in the environment,
// but only for keys that are not already set. This means real env vars (e.g.
// from Docker / Render / your shell) always win over the file.
// Missing file, blank lines, and #-comments are all silently ignored.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return // no .env file
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		// Strip optional surrounding quotes: KEY="value" or KEY='value'
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsPrice parses a minor-unit price from the leading digits of the
// value, so "150abc" is 150. A value without leading digits, or one that is
// not positive, yields DefaultPriceMinorUnit.
func getEnvAsPrice(key string) int64 {
	valueStr := strings.TrimSpace(os.Getenv(key))
	end := 0
	if end < len(valueStr) && (valueStr[end] == '+' || valueStr[end] == '-') {
		end++
	}
	for end < len(valueStr) && valueStr[end] >= '0' && valueStr[end] <= '9' {
		end++
	}
	value, err := strconv.ParseInt(valueStr[:end], 10, 64)
	if err != nil || value <= 0 {
		return DefaultPriceMinorUnit
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	// A plain integer is treated as seconds.
	if value, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(value) * time.Second
	}
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}
