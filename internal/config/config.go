package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config defines all configurable parameters of the shop, sourced from
// environment variables (loaded from .env for local runs).
type Config struct {
	Env  string `envconfig:"ENVIRONMENT" default:"development"`
	Port string `envconfig:"PORT" default:"8080"`

	DataDir   string `envconfig:"DATA_DIR" default:"data"`
	ImageRoot string `envconfig:"IMAGE_ROOT" default:"image"`

	Feed     FeedConfig
	Admin    AdminConfig
	Session  SessionConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	Pipeline PipelineConfig
	TLS      TLSConfig

	SecurityLog string `envconfig:"SECURITY_LOG" default:"security.log"`
}

// FeedConfig locates the spreadsheet the catalog feed is exported from.
type FeedConfig struct {
	SheetID string        `split_words:"true" default:"1Cnd19QAMyNEgvEdfXTA1QtW0VMiTRMCBFGmrzKWezNQ"`
	URL     string        `split_words:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
	Retries int           `split_words:"true" default:"2"`
}

// ExportURL is the CSV export location of the sheet unless URL overrides it.
func (f FeedConfig) ExportURL() string {
	if f.URL != "" {
		return f.URL
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", f.SheetID)
}

// EditURL is shown to the admin as the place to maintain product rows.
func (f FeedConfig) EditURL() string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit?usp=sharing", f.SheetID)
}

type AdminConfig struct {
	Username string `split_words:"true" default:"oahu"`
	// Password is only used when PasswordHash is empty; it is hashed at startup.
	Password     string `split_words:"true" default:"oahu123"`
	PasswordHash string `split_words:"true"`
}

type SessionConfig struct {
	HashKey  string `split_words:"true"`
	BlockKey string `split_words:"true"`
	Secure   bool   `split_words:"true" default:"false"`
}

type RedisConfig struct {
	URL string        `split_words:"true"`
	TTL time.Duration `split_words:"true" default:"12h"`
}

type SMTPConfig struct {
	Host     string `split_words:"true" default:"smtp.gmail.com"`
	Port     int    `split_words:"true" default:"587"`
	User     string `split_words:"true"`
	Pass     string `split_words:"true"`
	NotifyTo string `split_words:"true"`
}

type PipelineConfig struct {
	Enabled bool          `split_words:"true" default:"true"`
	Dir     string        `split_words:"true" default:"."`
	Timeout time.Duration `split_words:"true" default:"2m"`
}

type TLSConfig struct {
	SelfSigned bool   `split_words:"true" default:"false"`
	CertFile   string `split_words:"true"`
	KeyFile    string `split_words:"true"`
}

// Environment returns the parsed deployment environment.
func (c Config) Environment() Environment {
	return ParseEnvironment(c.Env)
}

// SettingsPath is the location of the settings document.
func (c Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.json")
}

// InquiriesPath is the location of the inquiry document.
func (c Config) InquiriesPath() string {
	return filepath.Join(c.DataDir, "inquiries.json")
}

// Load reads an optional .env file and processes the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment config: %w", err)
	}
	return cfg, nil
}
