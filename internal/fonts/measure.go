package fonts

import (
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Measure returns the rendered bounding box of text set in face, relative
// to a pen origin at the text's top-left. Width is the rightmost inked
// pixel (never less than zero), height the distance from the ascender line
// to the lowest inked pixel. Nothing is drawn.
func Measure(face font.Face, text string) (width, height int) {
	if text == "" {
		return 0, 0
	}
	bounds, _ := font.BoundString(face, text)
	width = bounds.Max.X.Ceil()
	if width < 0 {
		width = 0
	}
	ascent := face.Metrics().Ascent
	height = (bounds.Max.Y + ascent).Ceil()
	if height < 0 {
		height = 0
	}
	return width, height
}

// InkHeight is the height of the inked area of text alone, ignoring the
// ascender space above it.
func InkHeight(face font.Face, text string) int {
	if text == "" {
		return 0
	}
	bounds, _ := font.BoundString(face, text)
	return (bounds.Max.Y - bounds.Min.Y).Ceil()
}

// Ascent returns the face ascent in whole pixels; adding it to a top
// coordinate yields the baseline.
func Ascent(face font.Face) int {
	return face.Metrics().Ascent.Ceil()
}

// Truncate shortens text until its measured width fits maxWidth, dropping
// trailing runes and appending an ellipsis. Text that already fits is
// returned unchanged. Shrinking stops once three runes remain.
//
// Prefix widths come from one pass over the glyph advances, so the cost is
// linear in the length of text; only the chosen candidate is re-measured.
func Truncate(face font.Face, text string, maxWidth int) string {
	if w, _ := Measure(face, text); w <= maxWidth {
		return text
	}
	const minRunes = 3
	runes := []rune(text)
	if len(runes) <= minRunes {
		return text + ellipsis
	}

	// ends[i] is the pen advance after runes[:i+1], kerning included.
	ends := make([]fixed.Int26_6, len(runes))
	var pen fixed.Int26_6
	prev := rune(-1)
	for i, r := range runes {
		if prev >= 0 {
			pen += face.Kern(prev, r)
		}
		if adv, ok := face.GlyphAdvance(r); ok {
			pen += adv
			prev = r
		}
		ends[i] = pen
	}
	tail, _ := face.GlyphAdvance(ellipsisRune)
	limit := fixed.I(maxWidth)

	keep := minRunes
	for n := len(runes) - 1; n > minRunes; n-- {
		if ends[n-1]+face.Kern(runes[n-1], ellipsisRune)+tail <= limit {
			keep = n
			break
		}
	}
	// Ink can overhang the advance box; tighten until the bounds agree.
	for keep > minRunes {
		if w, _ := Measure(face, string(runes[:keep])+ellipsis); w <= maxWidth {
			break
		}
		keep--
	}
	return string(runes[:keep]) + ellipsis
}

const (
	ellipsis     = "…"
	ellipsisRune = '…'
)
