package card

import (
	"image"
	"image/color"
	"time"
)

// Theme holds the card palette. Only Accent and Bad are expected to vary
// between deployments.
type Theme struct {
	Background color.NRGBA
	Panel      color.NRGBA
	Edge       color.NRGBA
	Text       color.NRGBA
	SubText    color.NRGBA
	Muted      color.NRGBA
	IconBox    color.NRGBA
	ChipText   color.NRGBA
	Accent     color.NRGBA
	Bad        color.NRGBA
}

// DefaultAccent is used when no valid accent override is available.
var DefaultAccent = color.NRGBA{R: 64, G: 226, B: 140, A: 255}

// DefaultBad colours the chip of an offline server.
var DefaultBad = color.NRGBA{R: 226, G: 86, B: 86, A: 255}

// DefaultTheme returns the stock dark palette.
func DefaultTheme() Theme {
	return Theme{
		Background: color.NRGBA{R: 15, G: 17, B: 21, A: 255},
		Panel:      color.NRGBA{R: 26, G: 29, B: 36, A: 255},
		Edge:       color.NRGBA{R: 54, G: 58, B: 66, A: 255},
		Text:       color.NRGBA{R: 236, G: 240, B: 244, A: 255},
		SubText:    color.NRGBA{R: 186, G: 194, B: 204, A: 255},
		Muted:      color.NRGBA{R: 140, G: 146, B: 160, A: 255},
		IconBox:    color.NRGBA{R: 38, G: 41, B: 49, A: 255},
		ChipText:   color.NRGBA{R: 20, G: 22, B: 25, A: 255},
		Accent:     DefaultAccent,
		Bad:        DefaultBad,
	}
}

// Flags toggles optional card elements.
type Flags struct {
	// ShowPort keeps the ":port" suffix on the address in the meta line.
	// When false only the port is dropped; the meta line is still drawn.
	ShowPort      bool
	ShowMOTD      bool
	ShowPing      bool
	ShowVersion   bool
	ShowPlayers   bool
	ShowTimestamp bool
}

// DefaultFlags enables every element.
func DefaultFlags() Flags {
	return Flags{
		ShowPort:      true,
		ShowMOTD:      true,
		ShowPing:      true,
		ShowVersion:   true,
		ShowPlayers:   true,
		ShowTimestamp: true,
	}
}

// Request carries everything that may vary per render call. It is passed
// by value and never retained.
type Request struct {
	Label   string // server display name
	Address string // host, optionally with :port

	Width      int
	Height     int
	Multiplier float64 // zero means 1

	// Accent overrides Theme.Accent when it is a valid hex colour.
	Accent string
	// Icon is used when the snapshot carries no icon.
	Icon image.Image
	// NoIcon skips Icon and the renderer's fallback image, leaving only the
	// server's own icon or the placeholder.
	NoIcon bool

	Flags Flags

	// Now is the timestamp drawn on the card; zero means time.Now.
	Now time.Time
	// Location formats Now; nil means time.Local.
	Location *time.Location
}

func (r Request) multiplier() float64 {
	if r.Multiplier == 0 {
		return 1
	}
	return r.Multiplier
}

func (r Request) timestamp() string {
	now := r.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(TimestampLayout)
}

// TimestampLayout is the format of the bottom-right timestamp.
const TimestampLayout = "2006-01-02 15:04:05"
