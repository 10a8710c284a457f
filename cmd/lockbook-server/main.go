// Command lockbook-server runs the authoritative per-owner validator
// (pkg/server) behind the wire protocol's HTTP router (pkg/server/api).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lockbookapp/lockbook-core/internal/logger"
	"github.com/lockbookapp/lockbook-core/internal/telemetry"
	"github.com/lockbookapp/lockbook-core/pkg/config"
	"github.com/lockbookapp/lockbook-core/pkg/docstore"
	"github.com/lockbookapp/lockbook-core/pkg/metrics"
	promcollectors "github.com/lockbookapp/lockbook-core/pkg/metrics/prometheus"
	"github.com/lockbookapp/lockbook-core/pkg/server"
	"github.com/lockbookapp/lockbook-core/pkg/server/api"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `lockbook-server - Lockbook sync server

Usage:
  lockbook-server <command> [flags]

Commands:
  init     Initialize a sample configuration file
  start    Start the sync server
  version  Show version information

Flags:
  --config string    Path to config file (default: $XDG_CONFIG_HOME/lockbook/config.yaml)
  --force            Force overwrite existing config file (init command only)

Environment Variables:
  All configuration options can be overridden using environment variables.
  Format: LOCKBOOK_<SECTION>_<KEY> (use underscores for nested keys)

  Example:
    LOCKBOOK_LOGGING_LEVEL=DEBUG lockbook-server start
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit()
	case "start":
		runStart()
	case "help", "--help", "-h":
		fmt.Print(usage)
		os.Exit(0)
	case "version", "--version", "-v":
		fmt.Printf("lockbook-server %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runInit() {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	configFile := initFlags.String("config", "", "Path to config file")
	force := initFlags.Bool("force", false, "Force overwrite existing config file")
	if err := initFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	var configPath string
	var err error
	if *configFile != "" {
		err = config.InitConfigToPath(*configFile, *force)
		configPath = *configFile
	} else {
		configPath, err = config.InitConfig(*force)
	}
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: lockbook-server start")
}

func runStart() {
	startFlags := flag.NewFlagSet("start", flag.ExitOnError)
	configFile := startFlags.String("config", "", "Path to config file")
	if err := startFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	if *configFile == "" {
		if !config.DefaultConfigExists() {
			fmt.Fprintf(os.Stderr, "Error: No configuration file found at default location: %s\n\n", config.GetDefaultConfigPath())
			fmt.Fprintln(os.Stderr, "Please initialize a configuration file first:")
			fmt.Fprintln(os.Stderr, "  lockbook-server init")
			os.Exit(1)
		}
	} else if _, err := os.Stat(*configFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: Configuration file not found: %s\n", *configFile)
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "lockbook-server",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	if cfg.Metrics.Enabled {
		reg := metrics.InitRegistry()
		go serveMetrics(cfg.Metrics.Port, reg)
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	st, err := config.CreateServerStore(cfg.Server.Store)
	if err != nil {
		log.Fatalf("Failed to create server store: %v", err)
	}
	docs, err := config.CreateDocStore(ctx, cfg.Server.DocStore)
	if err != nil {
		log.Fatalf("Failed to create document store: %v", err)
	}
	if metrics.IsEnabled() {
		docs = docstore.WithMetrics(cfg.Server.DocStore.Type, docs, promcollectors.NewDocStoreMetrics())
	}

	srv := server.New(st, docs, cfg.Server.UsageCap.Int64())
	if metrics.IsEnabled() {
		srv.SetMetrics(promcollectors.NewServerMetrics())
	}

	var admin *api.AdminAuth
	if cfg.Server.JWTSecret != "" {
		admin, err = api.NewAdminAuth(cfg.Server.JWTSecret, "lockbook-server", 24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to initialize admin auth: %v", err)
		}
	} else {
		logger.Info("admin operator surface disabled: server.jwt_secret not set")
	}

	router := api.NewRouter(srv, admin)
	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: router,
	}

	serverDone := make(chan error, 1)
	go func() {
		logger.Info("lockbook-server listening", "addr", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, draining connections")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case err := <-serverDone:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

// serveMetrics exposes reg on its own listener, independent of the
// protocol router's shutdown path. Errors here are logged, not fatal: the
// sync server keeps running even if the metrics endpoint fails to bind.
func serveMetrics(port int, reg *promclient.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	addr := fmt.Sprintf(":%d", port)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server error", "error", err)
	}
}
