package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/premiselabs/tenet/internal/api"
	"github.com/premiselabs/tenet/internal/auth"
	"github.com/premiselabs/tenet/internal/config"
	"github.com/premiselabs/tenet/internal/conflict"
	"github.com/premiselabs/tenet/internal/constraint"
	"github.com/premiselabs/tenet/internal/engine"
	"github.com/premiselabs/tenet/internal/store"
	"github.com/premiselabs/tenet/internal/store/sqlstore"
)

func main() {
	if err := runFn(os.Args[1:], os.Getenv, listenAndServe, newServer); err != nil {
		fatalf("server error: %v", err)
	}
}

var runFn = run
var fatalf = log.Fatalf

func newServer(cfg config.Config) (*http.Server, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	var constraints constraint.Loaded
	if cfg.ConstraintsPath != "" {
		constraints, err = constraint.Load(cfg.ConstraintsPath)
		if err != nil {
			return nil, err
		}
		log.Printf("tenet-gateway loaded %d constraints (%s)", len(constraints.Set.Constraints), constraints.Hash)
	}

	registry := conflict.NewRegistry(st, conflict.HeuristicDetector{}, cfg.OracleTimeout())
	eng := engine.New(st, registry, constraints, cfg.StaleAfter())

	h := &api.Handler{
		Auth: &auth.TokenAuthenticator{
			MemberToken: cfg.Auth.MemberToken,
			LeadToken:   cfg.Auth.LeadToken,
		},
		Engine: eng,
	}
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}, nil
}

func openStore(cfg config.Config) (store.Store, error) {
	if cfg.DB.Driver == "sqlite" {
		return sqlstore.Open(cfg.DB.DSN)
	}
	return store.NewInMemoryStore(), nil
}

type envFn func(string) string
type listenFn func(*http.Server) error
type serverFactory func(cfg config.Config) (*http.Server, error)

func run(args []string, getenv envFn, listen listenFn, factory serverFactory) error {
	fs := flag.NewFlagSet("tenet-gateway", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to tenet config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfgFile := *configPath
	if cfgFile == "" {
		cfgFile = getenv("TENET_CONFIG_PATH")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	server, err := factory(cfg)
	if err != nil {
		return err
	}

	log.Printf("tenet-gateway listening on %s", cfg.ListenAddr)
	if err := listen(server); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func listenAndServe(server *http.Server) error {
	return server.ListenAndServe()
}
