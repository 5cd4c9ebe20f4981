// Command echost serves the file hosting web application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"echost/internal/app"
	"echost/internal/config"
	"echost/internal/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("echost", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "config.json", "path to the JSON or YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		cfg *config.Config
		err error
	)
	if isFlagSet(fs, "config") {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadOptional(*configPath)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := app.NewLogger(cfg, stderr)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	slog.SetDefault(log)
	log = log.With("service", "echost")

	ctx := context.Background()
	store, err := app.OpenDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	log.Info("database ready", "dialect", string(store.Dialect()))

	blobs, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	svc := app.NewServices(cfg, store, blobs, log)
	svc.Sessions.Start()
	svc.CSRF.Start()
	defer func() {
		svc.Sessions.Shutdown()
		svc.CSRF.Shutdown()
	}()

	srv := server.New(server.Config{
		Addr:              cfg.Addr(),
		Auth:              svc.Auth,
		Sessions:          svc.Sessions,
		CSRF:              svc.CSRF,
		Files:             svc.Files,
		DB:                store,
		OpenRegistrations: cfg.OpenRegistrations,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		SecureCookies:     cfg.SecureCookies,
		AuthRateLimit:     cfg.AuthRateLimit,
		TrustProxy:        cfg.TrustProxy,
		Logger:            log,
		Version:           version,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting", "addr", cfg.Addr(), "version", version, "storage", cfg.Storage,
			"open_registrations", cfg.OpenRegistrations)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("shutdown complete")
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
