package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mezzala/gaffer/pkg/api"
	"github.com/mezzala/gaffer/pkg/chassis"
	"github.com/mezzala/gaffer/pkg/match"
	"github.com/mezzala/gaffer/pkg/roster"
	"github.com/mezzala/gaffer/pkg/session"
	"gopkg.in/yaml.v3"
)

const version = "1.0.0"

type config struct {
	Addr      string       `yaml:"addr"`
	DB        string       `yaml:"db"`
	CertFile  string       `yaml:"cert_file"`
	KeyFile   string       `yaml:"key_file"`
	PlainHTTP bool         `yaml:"plain_http"`
	Match     match.Config `yaml:"match"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "import":
		cmdImport(os.Args[2:])
	case "export":
		cmdExport(os.Args[2:])
	case "check":
		cmdCheck(os.Args[2:])
	case "call":
		cmdCall(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: gaffer <command>

Commands:
  serve    Start the API server (HTTP/1.1+2 on TCP, HTTP/3 + MCP on QUIC)
  import   Load roster data from an external source
  export   Write the roster as a portable snapshot (data.gob + manifest.yaml)
  check    Verify availability of all import sources
  call     Invoke an MCP tool on a running server over QUIC
`)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg := loadConfig(*cfgPath, logger)

	store, err := roster.OpenStore(cfg.DB)
	if err != nil {
		logger.Error("failed to open roster database", "path", cfg.DB, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	sessions, err := session.Open(cfg.DB)
	if err != nil {
		logger.Error("failed to open session store", "path", cfg.DB, "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	count, err := store.Count(context.Background())
	if err != nil {
		logger.Error("failed to count roster", "error", err)
		os.Exit(1)
	}
	logger.Info("roster loaded", "players", count)

	resolver := match.New(store, cfg.Match, logger)

	deps := api.Deps{
		Resolver: resolver,
		Cards:    store,
		Sessions: sessions,
		Logger:   logger,
	}
	router := api.NewRouter(deps)

	mcpSrv := server.NewMCPServer("gaffer", version)
	api.RegisterMCPTools(mcpSrv, deps)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.PlainHTTP {
		servePlain(ctx, cfg, router, logger)
		return
	}

	srv, err := chassis.New(chassis.Config{
		Addr:      cfg.Addr,
		CertFile:  cfg.CertFile,
		KeyFile:   cfg.KeyFile,
		Handler:   router,
		MCPServer: mcpSrv,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("chassis setup failed", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gaffer listening", "addr", cfg.Addr)
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("shutting down")
	srv.Stop(context.Background())
}

// servePlain runs HTTP without TLS or QUIC, for local development and tests.
func servePlain(ctx context.Context, cfg config, handler http.Handler, logger *slog.Logger) {
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	go func() {
		logger.Info("gaffer listening", "addr", cfg.Addr, "mode", "plain HTTP")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	srv.Shutdown(context.Background())
}

func loadConfig(path string, logger *slog.Logger) config {
	cfg := config{
		Addr:  ":8430",
		DB:    "gaffer.db",
		Match: match.DefaultConfig(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no config file, using defaults", "path", path)
			return cfg
		}
		logger.Error("read config", "error", err)
		os.Exit(1)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Error("parse config", "error", err)
		os.Exit(1)
	}
	return cfg
}
