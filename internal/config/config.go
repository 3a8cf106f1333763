// Package config loads gateway configuration from a YAML file with
// environment-variable expansion, then overlays TENET_* environment
// variables on top.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the full gateway configuration.
type Config struct {
	ListenAddr      string     `yaml:"listen_addr" env:"TENET_LISTEN_ADDR"`
	DB              DB         `yaml:"db"`
	ConstraintsPath string     `yaml:"constraints_path" env:"TENET_CONSTRAINTS_PATH"`
	Evaluation      Evaluation `yaml:"evaluation"`
	Auth            Auth       `yaml:"auth"`
}

// DB selects the storage backend. An empty DSN selects the in-memory store.
type DB struct {
	Driver string `yaml:"driver" env:"TENET_DB_DRIVER"`
	DSN    string `yaml:"dsn" env:"TENET_DB_DSN"`
}

// Evaluation tunes the scheduler and the detection oracle.
type Evaluation struct {
	StaleAfterHours      int `yaml:"stale_after_hours" env:"TENET_EVAL_STALE_AFTER_HOURS"`
	OracleTimeoutSeconds int `yaml:"oracle_timeout_seconds" env:"TENET_ORACLE_TIMEOUT_SECONDS"`
}

// Auth holds the bearer tokens for the two roles.
type Auth struct {
	MemberToken string `yaml:"member_token" env:"TENET_MEMBER_TOKEN"`
	LeadToken   string `yaml:"lead_token" env:"TENET_LEAD_TOKEN"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		DB:         DB{Driver: "memory"},
		Evaluation: Evaluation{StaleAfterHours: 24, OracleTimeoutSeconds: 10},
	}
}

// Load reads the YAML file at path (skipped when empty), expands ${VAR}
// references, applies environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 -- path comes from operator configuration.
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the gateway cannot run with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	switch c.DB.Driver {
	case "memory":
		if c.DB.DSN != "" {
			return fmt.Errorf("db.dsn is not used by the memory driver")
		}
	case "sqlite":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown db.driver %q", c.DB.Driver)
	}
	if c.Evaluation.StaleAfterHours <= 0 {
		return fmt.Errorf("evaluation.stale_after_hours must be positive")
	}
	if c.Evaluation.OracleTimeoutSeconds <= 0 {
		return fmt.Errorf("evaluation.oracle_timeout_seconds must be positive")
	}
	return nil
}

// StaleAfter is the evaluation staleness window as a duration.
func (c Config) StaleAfter() time.Duration {
	return time.Duration(c.Evaluation.StaleAfterHours) * time.Hour
}

// OracleTimeout is the oracle call budget as a duration.
func (c Config) OracleTimeout() time.Duration {
	return time.Duration(c.Evaluation.OracleTimeoutSeconds) * time.Second
}
