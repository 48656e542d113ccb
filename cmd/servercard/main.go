// Package main runs the banner server: it probes a Minecraft server on each
// request and answers with a freshly rendered status card PNG.
package main

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/spf13/pflag"

	rootpkg "tools.zach/dev/servercard"
	"tools.zach/dev/servercard/internal/buildinfo"
	"tools.zach/dev/servercard/internal/card"
	"tools.zach/dev/servercard/internal/config"
	"tools.zach/dev/servercard/internal/fonts"
	"tools.zach/dev/servercard/internal/logger"
	"tools.zach/dev/servercard/internal/server"
	"tools.zach/dev/servercard/internal/shutdown"
	"tools.zach/dev/servercard/internal/status"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("servercard", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.StringP("config", "c", "", "TOML config file (default $SERVERCARD_CONFIG or ./servercard.toml)")
	envFile := fs.String("env-file", "", "dotenv file read below the real environment (default ./.env)")
	printConfig := fs.Bool("print-config", false, "print the annotated default config and exit")
	showVersion := fs.BoolP("version", "v", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *printConfig {
		_, _ = stdout.Write(rootpkg.DefaultConfigTOML)
		return 0
	}
	ver := buildinfo.Version()
	if *showVersion {
		fmt.Fprintln(stdout, ver)
		return 0
	}

	cfg, err := config.Resolve(config.Options{File: *cfgPath, EnvFile: *envFile})
	if err != nil {
		fmt.Fprintf(stderr, "fatal: load config: %v\n", err)
		return 1
	}

	log, logCloser := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		File:      cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB,
	})
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("servercard starting", "version", ver, "port", cfg.Server.Port, "target", cfg.Target.Address)

	srv, err := buildServer(cfg, ver)
	if err != nil {
		slog.Error("startup failed", "error", err)
		return 1
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	if err := srv.ListenAndServe(ctx, ":"+strconv.Itoa(cfg.Server.Port)); err != nil {
		slog.Error("server stopped", "error", err)
		return 1
	}
	slog.Info("servercard stopped")
	return 0
}

// ///////////////////////////////////////////////
// Wiring
// ///////////////////////////////////////////////

// buildServer assembles fonts, theme, icon, renderer and prober from cfg.
func buildServer(cfg *config.Config, ver string) (*server.Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	set := fonts.Load(fonts.Options{
		Regular:    cfg.Fonts.Regular,
		Bold:       cfg.BoldFont(),
		Search:     cfg.Fonts.Search,
		BoldSearch: cfg.Fonts.BoldSearch,
		Fallback:   cfg.Fonts.Fallback,
	})

	icon, err := card.LoadIcon(cfg.Card.IconFile)
	switch {
	case err != nil:
		slog.Warn("fallback icon unusable, using placeholder", "path", cfg.Card.IconFile, "error", err)
		icon = nil
	case icon == nil:
		slog.Debug("no fallback icon", "path", cfg.Card.IconFile)
	}

	renderer := card.NewRenderer(set, themeFrom(cfg), icon)
	return server.New(server.Options{
		Renderer:       renderer,
		Prober:         status.NewPinger(cfg.ProbeTimeout()),
		Defaults:       defaultsFrom(cfg, loc),
		RequestTimeout: cfg.RequestTimeout(),
		Version:        ver,
	}), nil
}

// themeFrom applies the configured accent and offline colours.
func themeFrom(cfg *config.Config) card.Theme {
	theme := card.DefaultTheme()
	theme.Accent = parseColor("card.accent_hex", cfg.Card.AccentHex, card.DefaultAccent)
	theme.Bad = parseColor("card.bad_hex", cfg.Card.BadHex, card.DefaultBad)
	return theme
}

func parseColor(key, hex string, fallback color.NRGBA) color.NRGBA {
	if hex == "" {
		return fallback
	}
	c, err := card.ParseHexColor(hex)
	if err != nil {
		slog.Warn("invalid colour, using default", "key", key, "value", hex, "error", err)
		return fallback
	}
	return c
}

func defaultsFrom(cfg *config.Config, loc *time.Location) server.Defaults {
	return server.Defaults{
		Address:    cfg.Target.Address,
		Name:       cfg.Target.Name,
		Port:       cfg.Target.Port,
		Width:      cfg.Card.Width,
		Height:     cfg.Card.Height,
		Multiplier: cfg.Card.Scale,
		Flags: card.Flags{
			ShowPort:      cfg.Display.ShowPort,
			ShowMOTD:      cfg.Display.ShowMOTD,
			ShowPing:      cfg.Display.ShowPing,
			ShowVersion:   cfg.Display.ShowVersion,
			ShowPlayers:   cfg.Display.ShowPlayers,
			ShowTimestamp: cfg.Display.ShowTimestamp,
		},
		Location: loc,
	}
}
