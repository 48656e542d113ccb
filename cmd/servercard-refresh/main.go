// Package main runs the webhook publisher: it keeps one Discord message
// pointing at a cache-busted copy of the banner and edits it on a fixed
// interval.
//
// Exit status: 0 after a graceful stop, 1 for configuration or startup
// errors, 2 when the initial message cannot be created.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"tools.zach/dev/servercard/internal/buildinfo"
	"tools.zach/dev/servercard/internal/config"
	"tools.zach/dev/servercard/internal/discord"
	"tools.zach/dev/servercard/internal/logger"
	"tools.zach/dev/servercard/internal/paths"
	"tools.zach/dev/servercard/internal/publisher"
	"tools.zach/dev/servercard/internal/shutdown"
	"tools.zach/dev/servercard/internal/state"
)

// Exit codes.
const (
	exitOK     = 0
	exitConfig = 1
	exitCreate = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("servercard-refresh", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.StringP("config", "c", "", "TOML config file (default $SERVERCARD_CONFIG or ./servercard.toml)")
	envFile := fs.String("env-file", "", "dotenv file read below the real environment (default ./.env)")
	once := fs.Bool("once", false, "ensure the message, refresh it once and exit")
	showVersion := fs.BoolP("version", "v", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}

	ver := buildinfo.Version()
	if *showVersion {
		fmt.Fprintln(stdout, ver)
		return exitOK
	}

	cfg, err := config.Resolve(config.Options{File: *cfgPath, EnvFile: *envFile})
	if err != nil {
		fmt.Fprintf(stderr, "fatal: load config: %v\n", err)
		return exitConfig
	}
	if err := cfg.ValidateRefresh(); err != nil {
		fmt.Fprintf(stderr, "fatal: %v\n", err)
		return exitConfig
	}

	log, logCloser := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		File:      cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB,
	})
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("servercard-refresh starting", "version", ver, "state_file", cfg.Refresh.StateFile, "interval", cfg.Interval())

	lock, err := acquireLock(paths.Lock(cfg.Refresh.StateFile))
	if err != nil {
		slog.Error("another publisher holds the state file", "error", err)
		return exitConfig
	}
	defer releaseLock(lock)

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	return publish(ctx, cfg, *once)
}

// publish wires the publisher from cfg and runs it until ctx is cancelled.
func publish(ctx context.Context, cfg *config.Config, once bool) int {
	hook, err := discord.NewWebhook(cfg.Refresh.WebhookURL, discord.Options{Timeout: cfg.HTTPTimeout()})
	if err != nil {
		slog.Error("invalid webhook", "error", err)
		return exitConfig
	}
	store := state.NewStore(cfg.Refresh.StateFile)

	opts := publisher.Options{
		Webhook:   hook,
		Store:     store,
		BannerURL: cfg.Refresh.BannerURL,
		Title:     cfg.Refresh.EmbedTitle,
		Content:   cfg.Refresh.Content,
		Interval:  cfg.Interval(),
		MessageID: cfg.Refresh.MessageID,
	}
	if cfg.Refresh.WarmUp {
		opts.Warmer = publisher.NewWarmer(cfg.HTTPTimeout())
	}

	if !once {
		watcher, err := state.NewWatcher(store.Path())
		if err != nil {
			slog.Warn("state file watch disabled", "error", err)
		} else {
			defer watcher.Close()
			if watcher.Polling() {
				slog.Info("using polling mode for state file watching")
			}
			opts.Reload = watcher.Events()
		}
	}

	pub := publisher.New(opts)
	if once {
		if _, err := pub.Ensure(ctx); err != nil {
			slog.Error("cannot create webhook message", "error", err)
			return exitCreate
		}
		if err := pub.Cycle(context.WithoutCancel(ctx)); err != nil {
			slog.Error("refresh failed", "error", err)
			return exitConfig
		}
		return exitOK
	}

	err = pub.Run(ctx)
	switch {
	case errors.Is(err, publisher.ErrCreate):
		slog.Error("cannot create webhook message", "error", err)
		return exitCreate
	case err != nil:
		slog.Error("publisher stopped", "error", err)
		return exitConfig
	}
	return exitOK
}

// ///////////////////////////////////////////////
// Single Instance
// ///////////////////////////////////////////////

// acquireLock opens path and takes a non-blocking exclusive lock on it. The
// returned file must stay open for as long as the lock is needed.
func acquireLock(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func releaseLock(f *os.File) {
	if err := unlockFile(f); err != nil {
		slog.Debug("unlock failed", "error", err)
	}
	f.Close()
}
