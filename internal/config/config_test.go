package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.QueueBackend)
	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, 43200*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, []int{30, 15, 7, 1}, cfg.Scheduler.ExpiryReminderDays)
	assert.Equal(t, "MES-AA", cfg.Cloudinary.RootFolder)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SITE_DOMAIN", "https://alumni.example.org/")
	t.Setenv("CORS_ORIGIN_SERVER", "https://a.example.org, https://b.example.org")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "15")
	t.Setenv("EXPIRY_REMINDER_DAYS", "10, x, 3")
	t.Setenv("TEMPLATE_REGISTRATION", "4242")
	t.Setenv("EMAIL_PROVIDER", "Resend")
	t.Setenv("ANNUAL_MEMBERSHIP_AMOUNT", "350")

	cfg := Load()

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "https://alumni.example.org", cfg.SiteDomain)
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, cfg.CORSOrigins)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, []int{10, 3}, cfg.Scheduler.ExpiryReminderDays)
	assert.Equal(t, 4242, cfg.Email.Templates["registration"])
	assert.NotContains(t, cfg.Email.Templates, "birthday")
	assert.Equal(t, "resend", cfg.Email.Provider)
	assert.Equal(t, 350, cfg.Membership.AnnualAmount)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, App{Timezone: "Nowhere/Invalid"}.Location())
	assert.Equal(t, "Asia/Kolkata", App{Timezone: "Asia/Kolkata"}.Location().String())
}
