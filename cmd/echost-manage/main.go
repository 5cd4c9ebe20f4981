// Command echost-manage administers users and files of an echost instance.
// It works directly on the database and storage configured for the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"echost/internal/app"
	"echost/internal/config"
	"echost/internal/manage"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("echost-manage", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, manage.Usage()) }
	configPath := fs.String("config", "config.json", "path to the JSON or YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	inv, err := manage.Parse(fs.Args())
	switch {
	case errors.Is(err, manage.ErrNoCommand):
		fs.Usage()
		return err
	case errors.Is(err, manage.ErrUnknownCommand):
		return errors.New("Subcommand not found. Invoke without arguments to see options")
	case err != nil:
		return err
	}

	cfg, err := config.LoadOptional(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := app.NewLogger(cfg, stderr)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	ctx := context.Background()
	store, err := app.OpenDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	blobs, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	svc := app.NewServices(cfg, store, blobs, log.With("service", "manage"))

	r := &manage.Runner{
		Accounts: svc.Auth,
		Users:    store,
		Files:    svc.Files,
		Out:      stdout,
		Prompt:   manage.TerminalPrompt(os.Stdin, stderr),
	}
	return r.Run(ctx, inv)
}
