// Package fonts loads the typefaces used to draw status cards and measures
// text set in them.
//
// Font resolution never fails. For each of the regular and bold weights:
//  1. An explicitly configured file (TTF, OTF, WOFF or WOFF2)
//  2. The first file matching the search globs (e.g. a system DejaVu Sans)
//  3. The configured built-in fallback: the embedded Go fonts ("go", a
//     scalable face) or the fixed 7x13 bitmap face ("basic")
//
// A [Source] hands out a fresh [font.Face] per call. Faces are not safe for
// concurrent use, so each render acquires its own and closes it afterwards.
package fonts

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	sfnt "github.com/tdewolff/font"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Fallback names accepted by [Options.Fallback].
const (
	FallbackGo    = "go"
	FallbackBasic = "basic"
)

// ///////////////////////////////////////////////
// Sources
// ///////////////////////////////////////////////

// Source produces faces of one typeface.
type Source interface {
	// Face returns a face at size pixels per em. Fixed-size sources ignore
	// size. The caller owns the face and should Close it.
	Face(size float64) font.Face
	// Scalable reports whether Face honours the requested size.
	Scalable() bool
	// Name identifies the source in logs.
	Name() string
}

type scalableSource struct {
	name string
	font *opentype.Font
}

func (s *scalableSource) Face(size float64) font.Face {
	if size < 1 {
		size = 1
	}
	face, err := opentype.NewFace(s.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		slog.Warn("font face creation failed, using bitmap face", "font", s.name, "size", size, "error", err)
		return basicfont.Face7x13
	}
	return face
}

func (s *scalableSource) Scalable() bool { return true }
func (s *scalableSource) Name() string   { return s.name }

type fixedSource struct{}

func (fixedSource) Face(float64) font.Face { return basicfont.Face7x13 }
func (fixedSource) Scalable() bool         { return false }
func (fixedSource) Name() string           { return "basicfont-7x13" }

// Fixed returns the fixed-size bitmap source.
func Fixed() Source { return fixedSource{} }

// Parse builds a scalable source from font file bytes, converting WOFF and
// WOFF2 containers to SFNT first.
func Parse(name string, data []byte) (Source, error) {
	if isWebFont(name, data) {
		converted, err := sfnt.ToSFNT(data)
		if err != nil {
			return nil, fmt.Errorf("convert %s to sfnt: %w", name, err)
		}
		data = converted
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}
	return &scalableSource{name: name, font: f}, nil
}

// isWebFont checks for WOFF/WOFF2 by extension or magic bytes.
func isWebFont(path string, data []byte) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".woff2") || strings.HasSuffix(lower, ".woff") {
		return true
	}
	return len(data) >= 4 && data[0] == 'w' && data[1] == 'O' && data[2] == 'F' && (data[3] == '2' || data[3] == 'F')
}

// ///////////////////////////////////////////////
// Set
// ///////////////////////////////////////////////

// Set is the pair of weights the card is drawn with.
type Set struct {
	Regular Source
	Bold    Source
}

// Builtin returns the embedded Go fonts. If they cannot be parsed (which
// would indicate a broken build) the bitmap face is used instead.
func Builtin() *Set {
	regular, err := Parse("goregular", goregular.TTF)
	if err != nil {
		slog.Error("embedded regular font unusable", "error", err)
		regular = Fixed()
	}
	bold, err := Parse("gobold", gobold.TTF)
	if err != nil {
		slog.Error("embedded bold font unusable", "error", err)
		bold = Fixed()
	}
	return &Set{Regular: regular, Bold: bold}
}

// Basic returns a set that draws everything with the fixed bitmap face.
func Basic() *Set {
	return &Set{Regular: Fixed(), Bold: Fixed()}
}

// Options configures [Load].
type Options struct {
	// Regular and Bold are explicit font file paths.
	Regular string
	Bold    string
	// Search and BoldSearch are doublestar glob patterns tried in order
	// when the explicit path is empty or unreadable.
	Search     []string
	BoldSearch []string
	// Fallback selects the built-in set: [FallbackGo] or [FallbackBasic].
	Fallback string
}

// Load resolves a font set. It always returns a usable set.
func Load(opts Options) *Set {
	fallback := Builtin()
	if opts.Fallback == FallbackBasic {
		fallback = Basic()
	}

	set := &Set{
		Regular: resolve("regular", opts.Regular, opts.Search, fallback.Regular),
		Bold:    resolve("bold", opts.Bold, opts.BoldSearch, fallback.Bold),
	}
	slog.Info("fonts resolved", "regular", set.Regular.Name(), "bold", set.Bold.Name())
	return set
}

func resolve(weight, explicit string, patterns []string, fallback Source) Source {
	if explicit != "" {
		src, err := loadFile(explicit)
		if err == nil {
			return src
		}
		slog.Warn("configured font unusable", "weight", weight, "path", explicit, "error", err)
	}
	for _, path := range Discover(patterns) {
		src, err := loadFile(path)
		if err == nil {
			return src
		}
		slog.Debug("skipping font candidate", "weight", weight, "path", path, "error", err)
	}
	return fallback
}

func loadFile(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// Discover expands glob patterns into existing file paths, preserving
// pattern order and sorting matches within each pattern.
func Discover(patterns []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			slog.Warn("invalid font search pattern", "pattern", pattern, "error", err)
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}
