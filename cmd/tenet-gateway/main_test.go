package main

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/premiselabs/tenet/internal/config"
)

func TestNewServerMemory(t *testing.T) {
	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:9999"
	srv, err := newServer(cfg)
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	if srv.Addr != "127.0.0.1:9999" {
		t.Fatalf("expected addr from config, got %s", srv.Addr)
	}
	if srv.Handler == nil {
		t.Fatalf("expected handler to be set")
	}
}

func TestNewServerSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.DB = config.DB{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "tenet.db")}
	srv, err := newServer(cfg)
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	if srv.Handler == nil {
		t.Fatalf("expected handler to be set")
	}
}

func TestRunDefaults(t *testing.T) {
	factory := func(cfg config.Config) (*http.Server, error) {
		if cfg.ListenAddr != ":8080" {
			t.Fatalf("expected default addr, got %s", cfg.ListenAddr)
		}
		if cfg.DB.Driver != "memory" {
			t.Fatalf("expected memory driver, got %s", cfg.DB.Driver)
		}
		return &http.Server{Addr: cfg.ListenAddr}, nil
	}

	listen := func(_ *http.Server) error { return http.ErrServerClosed }
	getenv := func(string) string { return "" }

	if err := run(nil, getenv, listen, factory); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunError(t *testing.T) {
	listenErr := errors.New("listen failed")
	listen := func(_ *http.Server) error { return listenErr }
	factory := func(cfg config.Config) (*http.Server, error) {
		return &http.Server{Addr: cfg.ListenAddr}, nil
	}
	getenv := func(string) string { return "" }

	if err := run(nil, getenv, listen, factory); !errors.Is(err, listenErr) {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestRunLoadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tenet.yaml")
	contents := "listen_addr: \":9999\"\nauth:\n  lead_token: \"l-token\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	factory := func(cfg config.Config) (*http.Server, error) {
		if cfg.ListenAddr != ":9999" {
			t.Fatalf("expected addr from config, got %s", cfg.ListenAddr)
		}
		if cfg.Auth.LeadToken != "l-token" {
			t.Fatalf("expected token from config")
		}
		return &http.Server{Addr: cfg.ListenAddr}, nil
	}

	listen := func(_ *http.Server) error { return http.ErrServerClosed }
	getenv := func(key string) string {
		if key == "TENET_CONFIG_PATH" {
			return path
		}
		return ""
	}

	if err := run(nil, getenv, listen, factory); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMainNoError(t *testing.T) {
	oldRun := runFn
	oldFatal := fatalf
	defer func() {
		runFn = oldRun
		fatalf = oldFatal
	}()

	runFn = func([]string, envFn, listenFn, serverFactory) error { return nil }

	called := false
	fatalf = func(string, ...any) { called = true }

	main()
	if called {
		t.Fatalf("unexpected fatal call")
	}
}

func TestMainError(t *testing.T) {
	oldRun := runFn
	oldFatal := fatalf
	defer func() {
		runFn = oldRun
		fatalf = oldFatal
	}()

	runFn = func([]string, envFn, listenFn, serverFactory) error { return errors.New("boom") }

	called := false
	fatalf = func(string, ...any) { called = true }

	main()
	if !called {
		t.Fatalf("expected fatal call")
	}
}
