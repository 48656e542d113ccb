// genpreview renders sample status cards for documentation and visual
// review of layout changes.
//
// Each scenario pairs a canned snapshot with a request and is written to
// {out}/{name}.png using the fonts and colours of the active config.
//
// Usage:
//
//	go run ./cmd/genpreview
//	go run ./cmd/genpreview --config servercard.toml --out docs/preview
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"tools.zach/dev/servercard/internal/card"
	"tools.zach/dev/servercard/internal/config"
	"tools.zach/dev/servercard/internal/fonts"
	"tools.zach/dev/servercard/internal/status"
)

// scenario is one preview image.
type scenario struct {
	name   string
	snap   status.Snapshot
	modify func(*card.Request)
}

// previewTime keeps the rendered timestamp stable between runs.
var previewTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

var scenarios = []scenario{
	{
		name: "online",
		snap: status.Snapshot{
			Online: true, Description: "§aWelcome§r to the §lserver", PlayersOnline: 12, PlayersMax: 40,
			LatencyMS: 23, HasLatency: true, Version: "Paper 1.20.4",
		},
	},
	{
		name: "full",
		snap: status.Snapshot{
			Online: true, Description: "Event night", PlayersOnline: 64, PlayersMax: 50,
			LatencyMS: 71, HasLatency: true, Version: "1.20.1",
		},
	},
	{
		name: "offline",
		snap: status.Offline(status.ReasonUnreachable),
	},
	{
		name: "minimal",
		snap: status.Snapshot{Online: true, PlayersOnline: 1, PlayersMax: 10, Version: "1.8.9"},
		modify: func(r *card.Request) {
			r.NoIcon = true
			r.Flags.ShowMOTD = false
			r.Flags.ShowPing = false
			r.Flags.ShowTimestamp = false
		},
	},
	{
		name: "large",
		snap: status.Snapshot{
			Online: true, Description: "Double size", PlayersOnline: 3, PlayersMax: 20,
			LatencyMS: 5, HasLatency: true, Version: "1.21",
		},
		modify: func(r *card.Request) {
			r.Width *= 2
			r.Height *= 2
		},
	},
}

func main() {
	cfgPath := pflag.StringP("config", "c", "", "TOML config file (defaults when empty)")
	outDir := pflag.StringP("out", "o", "preview", "output directory")
	pflag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}
	n, err := generate(cfg, *outDir, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Done. Generated %d previews in %s.\n", n, *outDir)
}

// generate renders every scenario into outDir and returns how many were
// written.
func generate(cfg *config.Config, outDir string, log io.Writer) (int, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	set := fonts.Load(fonts.Options{
		Regular:    cfg.Fonts.Regular,
		Bold:       cfg.BoldFont(),
		Search:     cfg.Fonts.Search,
		BoldSearch: cfg.Fonts.BoldSearch,
		Fallback:   cfg.Fonts.Fallback,
	})
	theme := card.DefaultTheme()
	theme.Accent = card.ResolveColor(cfg.Card.AccentHex, card.DefaultAccent)
	theme.Bad = card.ResolveColor(cfg.Card.BadHex, card.DefaultBad)

	icon, err := card.LoadIcon(cfg.Card.IconFile)
	if err != nil {
		fmt.Fprintf(log, "  icon: %v (using placeholder)\n", err)
	}
	renderer := card.NewRenderer(set, theme, icon)

	for _, sc := range scenarios {
		req := card.Request{
			Label:      cfg.Target.Name,
			Address:    cfg.Target.Address,
			Width:      cfg.Card.Width,
			Height:     cfg.Card.Height,
			Multiplier: cfg.Card.Scale,
			Flags:      card.DefaultFlags(),
			Now:        previewTime,
			Location:   time.UTC,
		}
		if sc.modify != nil {
			sc.modify(&req)
		}

		img, err := renderer.Render(sc.snap, req)
		if err != nil {
			return 0, fmt.Errorf("render %s: %w", sc.name, err)
		}
		data, err := card.PNG(img)
		if err != nil {
			return 0, fmt.Errorf("encode %s: %w", sc.name, err)
		}
		outPath := filepath.Join(outDir, sc.name+".png")
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return 0, fmt.Errorf("write %s: %w", outPath, err)
		}
		fmt.Fprintf(log, "  %s.png (%dx%d)\n", sc.name, req.Width, req.Height)
	}
	return len(scenarios), nil
}
