package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequired sets the minimum environment for a valid EmailJS config.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("EMAILJS_PUBLIC_KEY", "pub")
	t.Setenv("EMAILJS_PRIVATE_KEY", "priv")
	t.Setenv("EMAILJS_SERVICE_ID", "service_x")
	t.Setenv("EMAILJS_TEMPLATE_ID", "template_x")
}

// chdirTemp moves into an empty directory so a developer's .env is not picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "eur", cfg.Currency)
	assert.Equal(t, DefaultPriceMinorUnit, cfg.PriceCustom)
	assert.Equal(t, DefaultPriceMinorUnit, cfg.PriceTemplate)
	assert.Equal(t, ProviderEmailJS, cfg.EmailProvider)
	assert.Equal(t, OrderModeMetadata, cfg.OrderMode)
	assert.Equal(t, "Utente", cfg.EmailToName)
	assert.Equal(t, 24*time.Hour, cfg.OrderTTL)
	assert.Equal(t, 72*time.Hour, cfg.EventTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingStripeAndEmailJS(t *testing.T) {
	chdirTemp(t)
	for _, k := range []string{
		"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET",
		"EMAILJS_PUBLIC_KEY", "EMAILJS_PRIVATE_KEY", "EMAILJS_SERVICE_ID", "EMAILJS_TEMPLATE_ID",
	} {
		t.Setenv(k, "")
	}

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY")
	assert.Contains(t, err.Error(), "STRIPE_WEBHOOK_SECRET")
	assert.Contains(t, err.Error(), "EMAILJS_TEMPLATE_ID")
}

func TestLoad_ResendOnlyNeedsAPIKey(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("EMAIL_PROVIDER", "Resend")
	t.Setenv("EMAILJS_PUBLIC_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESEND_API_KEY")
	assert.NotContains(t, err.Error(), "EMAILJS_PUBLIC_KEY")

	t.Setenv("RESEND_API_KEY", "re_123")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderResend, cfg.EmailProvider)
}

func TestLoad_UnknownModes(t *testing.T) {
	chdirTemp(t)
	setRequired(t)
	t.Setenv("ORDER_MODE", "database")
	t.Setenv("EMAIL_PROVIDER", "smtp")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORDER_MODE")
	assert.Contains(t, err.Error(), "EMAIL_PROVIDER")
}

func TestLoad_PricesFallBackTo99(t *testing.T) {
	chdirTemp(t)
	setRequired(t)
	t.Setenv("PRICE_MINOR_UNIT_CUSTOM", "abc")
	t.Setenv("PRICE_MINOR_UNIT_TEMPLATE", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(99), cfg.PriceFor(true))
	assert.Equal(t, int64(99), cfg.PriceFor(false))

	t.Setenv("PRICE_MINOR_UNIT_CUSTOM", "250")
	t.Setenv("PRICE_MINOR_UNIT_TEMPLATE", "150")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, int64(250), cfg.PriceFor(true))
	assert.Equal(t, int64(150), cfg.PriceFor(false))
}

func TestLoad_PricesUseLeadingDigits(t *testing.T) {
	chdirTemp(t)
	setRequired(t)
	t.Setenv("PRICE_MINOR_UNIT_CUSTOM", "150abc")
	t.Setenv("PRICE_MINOR_UNIT_TEMPLATE", " 120.50 ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(150), cfg.PriceFor(true))
	assert.Equal(t, int64(120), cfg.PriceFor(false))

	t.Setenv("PRICE_MINOR_UNIT_CUSTOM", "-5")
	t.Setenv("PRICE_MINOR_UNIT_TEMPLATE", "eur150")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, int64(99), cfg.PriceFor(true))
	assert.Equal(t, int64(99), cfg.PriceFor(false))
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := chdirTemp(t)
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("BASE_URL", "")

	content := "# comment\nPORT=1111\nBASE_URL=\"https://ironic.example.com/\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://ironic.example.com", cfg.BaseURL)
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("X_TTL", "90")
	assert.Equal(t, 90*time.Second, getEnvAsDuration("X_TTL", time.Minute))

	t.Setenv("X_TTL", "2h")
	assert.Equal(t, 2*time.Hour, getEnvAsDuration("X_TTL", time.Minute))

	t.Setenv("X_TTL", "soon")
	assert.Equal(t, time.Minute, getEnvAsDuration("X_TTL", time.Minute))
}
