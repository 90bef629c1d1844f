// Package config handles loading and parsing application configuration.
// It supports two sources (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Every value read from the file can also be overridden by the environment
// variable named in its env:"..." tag.
package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration structure.
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	// StoragePath is the filesystem path to the SQLite file that keeps
	// browser sessions across restarts.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-required:"true"`

	// LoanPeriod is added to the approval instant to compute an issue's
	// return date.
	LoanPeriod time.Duration `yaml:"loan_period" env:"LOAN_PERIOD" env-default:"168h"`

	HTTPServer `yaml:"http_server"`
	API        API     `yaml:"api"`
	Session    Session `yaml:"session"`
}

// HTTPServer holds settings for the server browsers talk to.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8080".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true"`
}

// API describes the remote library REST API.
type API struct {
	// BaseURL is prefixed to every outbound path, e.g. "http://127.0.0.1:8000".
	BaseURL string `yaml:"base_url" env:"API_BASE_URL" env-required:"true"`

	// LoginPath is the token endpoint. It takes a form-encoded
	// username/password pair and answers with an access token.
	LoginPath string `yaml:"login_path" env:"API_LOGIN_PATH" env-default:"/auth/token"`
}

// Session controls the cookie that carries the session ID.
type Session struct {
	CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"library_session"`
	MaxAge     time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE" env-default:"24h"`
	Secure     bool          `yaml:"secure" env:"SESSION_SECURE" env-default:"false"`
}

// MustLoad reads, validates, and returns the application config.
// Like every Must* function it does not return on failure: a bad config
// stops the process before the server starts.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err.Error())
	}

	return cfg
}

// Load reads the YAML file at path and applies env overrides and defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
