package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"

	ScopeCalendar = "calendar"
	ScopePatient  = "patient"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32  `mapstructure:"DB_MIN_CONNS"`
	GCPProject     string `mapstructure:"GCP_PROJECT"`
	GCPLocation    string `mapstructure:"GCP_LOCATION"`

	AuthIssuer               string `mapstructure:"AUTH_ISSUER"`
	AuthAudience             string `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL              string `mapstructure:"AUTH_JWKS_URL"`
	AuthRequireVerifiedEmail bool   `mapstructure:"AUTH_REQUIRE_VERIFIED_EMAIL"`

	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	AppURL                  string `mapstructure:"APP_URL"`
	GoogleOAuthClientID     string `mapstructure:"GOOGLE_OAUTH_CLIENT_ID"`
	GoogleOAuthClientSecret string `mapstructure:"GOOGLE_OAUTH_CLIENT_SECRET"`
	GoogleOAuthRedirectURL  string `mapstructure:"GOOGLE_OAUTH_REDIRECT_URL"`
	OAuthStateSecret        string `mapstructure:"OAUTH_STATE_SECRET"`

	ReminderWebhookURL    string `mapstructure:"REMINDER_WEBHOOK_URL"`
	ReminderWebhookSecret string `mapstructure:"REMINDER_WEBHOOK_SECRET"`

	LLMProvider  string `mapstructure:"LLM_PROVIDER"`
	LLMModel     string `mapstructure:"LLM_MODEL"`
	OpenAIAPIKey string `mapstructure:"OPENAI_API_KEY"`

	Timezone     string `mapstructure:"TIMEZONE"`
	OverlapScope string `mapstructure:"OVERLAP_SCOPE"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"STORAGE_BACKEND", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "GCP_PROJECT", "GCP_LOCATION",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_REQUIRE_VERIFIED_EMAIL",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"APP_URL", "GOOGLE_OAUTH_CLIENT_ID", "GOOGLE_OAUTH_CLIENT_SECRET", "GOOGLE_OAUTH_REDIRECT_URL", "OAUTH_STATE_SECRET",
	"REMINDER_WEBHOOK_URL", "REMINDER_WEBHOOK_SECRET",
	"LLM_PROVIDER", "LLM_MODEL", "OPENAI_API_KEY",
	"TIMEZONE", "OVERLAP_SCOPE",
}

// Load reads configuration from an optional .env file and the environment,
// then validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_BACKEND", BackendPostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("GCP_LOCATION", "us-central1")
	v.SetDefault("AUTH_REQUIRE_VERIFIED_EMAIL", true)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("APP_URL", "http://localhost:3000")
	v.SetDefault("LLM_PROVIDER", "mock")
	v.SetDefault("LLM_MODEL", "gemini-2.0-flash")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("OVERLAP_SCOPE", ScopeCalendar)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env file is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// viper leaves comma separated env values as a single element.
	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location returns the default time zone used to interpret form dates.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CalendarEnabled reports whether the Google OAuth client is configured.
func (c *Config) CalendarEnabled() bool {
	return c.GoogleOAuthClientID != "" && c.GoogleOAuthClientSecret != "" && c.GoogleOAuthRedirectURL != ""
}

// Validate checks that the configuration is consistent for the selected
// storage backend, auth mode and LLM provider.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND is %q", BackendPostgres)
		}
	case BackendFirestore:
		if c.GCPProject == "" {
			return fmt.Errorf("GCP_PROJECT is required when STORAGE_BACKEND is %q", BackendFirestore)
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendFirestore, c.StorageBackend)
	}

	if c.IsProduction() && c.AuthJWKSURL == "" {
		return fmt.Errorf("AUTH_JWKS_URL is required in production")
	}

	switch c.LLMProvider {
	case "mock":
	case "vertex":
		if c.GCPProject == "" {
			return fmt.Errorf("GCP_PROJECT is required when LLM_PROVIDER is \"vertex\"")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER is \"openai\"")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be \"vertex\", \"openai\" or \"mock\", got %q", c.LLMProvider)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}

	if c.OverlapScope != ScopeCalendar && c.OverlapScope != ScopePatient {
		return fmt.Errorf("OVERLAP_SCOPE must be %q or %q, got %q", ScopeCalendar, ScopePatient, c.OverlapScope)
	}

	if c.CalendarEnabled() && c.OAuthStateSecret == "" {
		return fmt.Errorf("OAUTH_STATE_SECRET is required when Google Calendar is configured")
	}

	return nil
}
