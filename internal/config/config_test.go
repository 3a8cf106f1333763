package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tenet.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.DB.Driver != "memory" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.StaleAfter() != 24*time.Hour || cfg.OracleTimeout() != 10*time.Second {
		t.Fatalf("unexpected durations: %+v", cfg.Evaluation)
	}
}

func TestLoadExpandsEnvInFile(t *testing.T) {
	t.Setenv("TEST_TENET_DSN", "/tmp/tenet.db")
	path := writeConfig(t, `
listen_addr: ":9090"
db:
  driver: sqlite
  dsn: ${TEST_TENET_DSN}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.DSN != "/tmp/tenet.db" || cfg.ListenAddr != ":9090" {
		t.Fatalf("expansion wrong: %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("TENET_LISTEN_ADDR", ":7070")
	path := writeConfig(t, `listen_addr: ":9090"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":7070" {
		t.Fatalf("env override lost: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(*Config) {}, false},
		{"sqlite needs dsn", func(c *Config) { c.DB = DB{Driver: "sqlite"} }, true},
		{"memory rejects dsn", func(c *Config) { c.DB = DB{Driver: "memory", DSN: "x"} }, true},
		{"unknown driver", func(c *Config) { c.DB.Driver = "postgres" }, true},
		{"stale window positive", func(c *Config) { c.Evaluation.StaleAfterHours = 0 }, true},
		{"listen addr required", func(c *Config) { c.ListenAddr = "" }, true},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err=%v wantErr=%v", tc.name, err, tc.wantErr)
		}
	}
}
