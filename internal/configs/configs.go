/*
Package configs loads the application's configuration from environment variables.

Values are bound with caarlos0/env struct tags and then validated. Development mode
relaxes the requirements so the server starts with an in-memory store and mocked
email delivery.
*/
package configs

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvDevelopment is the default environment name.
const EnvDevelopment = "development"

// AppConfig contains every setting the server needs.
type AppConfig struct {
	// General Server Settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"8080"`

	// AppURL is the public base URL used to build join links.
	AppURL string `env:"APP_URL" envDefault:"http://localhost:3000"`

	// Security Settings
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// Invite creation limits per client IP.
	InviteRate  float64 `env:"INVITE_RATE" envDefault:"0.1"`
	InviteBurst int     `env:"INVITE_BURST" envDefault:"5"`

	// Database Settings
	DatabaseDSN string `env:"DATABASE_URL"`

	// Public datastore settings handed to browser clients.
	SupabaseURL     string `env:"SUPABASE_URL"`
	SupabaseAnonKey string `env:"SUPABASE_ANON_KEY"`

	// Media Service Settings
	LiveKit LiveKitConfig `envPrefix:"LIVEKIT_"`

	// Mail Transport Settings
	SMTP SMTPConfig `envPrefix:"SMTP_"`

	// Translation lookup base URL.
	TranslateURL     string        `env:"TRANSLATE_URL" envDefault:"https://api.mymemory.translated.net"`
	TranslateTimeout time.Duration `env:"TRANSLATE_TIMEOUT" envDefault:"5s"`
}

// LiveKitConfig holds the media-service signing credentials and public URL.
type LiveKitConfig struct {
	APIKey    string `env:"API_KEY"`
	APISecret string `env:"API_SECRET"`
	URL       string `env:"URL"`
}

// Configured reports whether tokens can be issued.
func (c LiveKitConfig) Configured() bool {
	return c.APIKey != "" && c.APISecret != "" && c.URL != ""
}

// SMTPConfig holds the mail transport settings. An empty Host disables delivery.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"no-reply@localhost.localdomain"`
	TLS      bool   `env:"TLS"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// LoadConfig parses and validates the configuration from the environment.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *AppConfig) normalize() error {
	c.Environment = strings.TrimSpace(c.Environment)
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}

	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the allowed range (%d-%d)", c.Port, 1024, 65535)
	}

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.AllowedOrigins = origins

	c.AppURL = strings.TrimRight(strings.TrimSpace(c.AppURL), "/")
	if _, err := url.ParseRequestURI(c.AppURL); err != nil {
		return fmt.Errorf("invalid APP_URL %q: %w", c.AppURL, err)
	}

	if c.InviteRate <= 0 || c.InviteBurst <= 0 {
		return fmt.Errorf("INVITE_RATE and INVITE_BURST must be positive")
	}

	if c.DatabaseDSN == "" && !c.IsDevelopment() {
		return fmt.Errorf("DATABASE_URL environment variable is required in %s environment", c.Environment)
	}

	if c.SMTP.Host != "" && c.SMTP.Port <= 0 {
		return fmt.Errorf("SMTP_PORT must be positive when SMTP_HOST is set")
	}

	c.TranslateURL = strings.TrimRight(c.TranslateURL, "/")

	return nil
}
