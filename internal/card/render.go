// Package card draws server status cards.
//
// A [Renderer] lays the card out against a 900x240 design reference
// scaled uniformly to the requested canvas, paints it onto a content
// surface, and centres that surface on the canvas, letterboxing in the
// background colour when the aspect ratios differ. Rendering holds no
// shared mutable state; a single Renderer may serve concurrent calls.
package card

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"tools.zach/dev/servercard/internal/fonts"
	"tools.zach/dev/servercard/internal/status"
)

// MaxDimension bounds the canvas and content surface edges in pixels.
const MaxDimension = 8192

// ErrInvalidCanvas is returned for non-positive or oversized canvases and
// non-positive multipliers.
var ErrInvalidCanvas = errors.New("invalid canvas")

// Renderer draws cards with a fixed font set and theme.
type Renderer struct {
	fonts    *fonts.Set
	theme    Theme
	fallback image.Image
}

// NewRenderer returns a renderer. A nil set uses the embedded fonts;
// fallbackIcon may be nil.
func NewRenderer(set *fonts.Set, theme Theme, fallbackIcon image.Image) *Renderer {
	if set == nil {
		set = fonts.Builtin()
	}
	return &Renderer{fonts: set, theme: theme, fallback: fallbackIcon}
}

// Theme returns the renderer's base theme.
func (r *Renderer) Theme() Theme { return r.theme }

// Validate reports whether req describes a drawable canvas.
func Validate(req Request) error {
	if req.Width <= 0 || req.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidCanvas, req.Width, req.Height)
	}
	if req.Width > MaxDimension || req.Height > MaxDimension {
		return fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidCanvas, req.Width, req.Height, MaxDimension)
	}
	m := req.multiplier()
	if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return fmt.Errorf("%w: scale multiplier %v", ErrInvalidCanvas, m)
	}
	s := ComputeScale(req.Width, req.Height, m)
	if ToPx(DesignWidth, s) > MaxDimension || ToPx(DesignHeight, s) > MaxDimension {
		return fmt.Errorf("%w: scaled content exceeds %d", ErrInvalidCanvas, MaxDimension)
	}
	return nil
}

// Render draws snap onto a req.Width x req.Height image. Missing optional
// data only changes what is drawn; the sole error is [ErrInvalidCanvas].
func (r *Renderer) Render(snap status.Snapshot, req Request) (*image.RGBA, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	theme := r.themeFor(req)
	scale := ComputeScale(req.Width, req.Height, req.multiplier())

	faces := openFaces(r.fonts, scale)
	defer faces.Close()
	l := plan(snap, req, theme, r.resolveIcon(snap, req), scale, faces)

	content := image.NewRGBA(image.Rect(0, 0, l.Size.X, l.Size.Y))
	paint(content, l, theme)

	out := image.NewRGBA(image.Rect(0, 0, req.Width, req.Height))
	draw.Draw(out, out.Bounds(), image.NewUniform(theme.Background), image.Point{}, draw.Src)
	draw.Draw(out, content.Bounds().Add(l.Offset), content, image.Point{}, draw.Src)
	return out, nil
}

func (r *Renderer) themeFor(req Request) Theme {
	theme := r.theme
	if req.Accent != "" {
		c, err := ParseHexColor(req.Accent)
		if err != nil {
			logInvalidAccent(req.Accent, err)
		} else {
			theme.Accent = c
		}
	}
	return theme
}

func (r *Renderer) resolveIcon(snap status.Snapshot, req Request) image.Image {
	if snap.Icon != nil {
		return snap.Icon
	}
	if req.NoIcon {
		return nil
	}
	if req.Icon != nil {
		return req.Icon
	}
	return r.fallback
}

// ///////////////////////////////////////////////
// Painting
// ///////////////////////////////////////////////

func paint(dst *image.RGBA, l *layout, theme Theme) {
	dc := gg.NewContextForRGBA(dst)
	dc.SetColor(theme.Background)
	dc.Clear()

	paintShadow(dc, l.Shadow, l.ShadowSigma)
	fillRect(dc, l.Panel, theme.Panel)
	fillRect(dc, l.IconBox, theme.IconBox)

	if l.Icon != nil {
		icon := imaging.Resize(l.Icon, l.IconRect.Dx(), l.IconRect.Dy(), imaging.CatmullRom)
		dc.DrawImage(icon, l.IconRect.Min.X, l.IconRect.Min.Y)
	} else {
		strokeRoundRect(dc, l.Placeholder.Outline, l.Placeholder.Stroke, theme.Edge)
		for _, b := range l.Placeholder.Blocks {
			fillRect(dc, b, theme.Edge)
		}
	}

	drawText(dc, l.Title)
	fillRoundRect(dc, l.Chip.Shape, l.Chip.Fill)
	drawText(dc, l.Chip.Label)
	drawText(dc, l.Meta)

	if l.Players != nil {
		drawText(dc, *l.Players)
	}
	if l.Bar != nil {
		strokeRoundRect(dc, l.Bar.Track, l.Bar.Stroke, theme.Edge)
		if l.Bar.Fill != nil {
			fillRoundRect(dc, *l.Bar.Fill, theme.Accent)
		}
	}
	if l.Description != nil {
		drawText(dc, *l.Description)
	}
	if l.Timestamp != nil {
		drawText(dc, *l.Timestamp)
	}
}

// paintShadow blurs a translucent black copy of r on a surface padded by
// the blur radius so the falloff is not clipped.
func paintShadow(dc *gg.Context, r image.Rectangle, sigma float64) {
	margin := int(math.Ceil(3 * sigma))
	canvas := image.NewNRGBA(image.Rect(0, 0, r.Dx()+2*margin, r.Dy()+2*margin))
	inner := image.Rect(margin, margin, margin+r.Dx(), margin+r.Dy())
	draw.Draw(canvas, inner, image.NewUniform(color.NRGBA{A: shadowAlpha}), image.Point{}, draw.Src)
	blurred := imaging.Blur(canvas, sigma)
	dc.DrawImage(blurred, r.Min.X-margin, r.Min.Y-margin)
}

func fillRect(dc *gg.Context, r image.Rectangle, c color.Color) {
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	dc.SetColor(c)
	dc.Fill()
}

func fillRoundRect(dc *gg.Context, rr roundRect, c color.Color) {
	r := rr.Rect
	dc.DrawRoundedRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()), rr.Radius)
	dc.SetColor(c)
	dc.Fill()
}

// strokeRoundRect draws an outline whose outer edge lies on rr.
func strokeRoundRect(dc *gg.Context, rr roundRect, width int, c color.Color) {
	lw := float64(width)
	inset := lw / 2
	r := rr.Rect
	w := math.Max(float64(r.Dx())-lw, 0)
	h := math.Max(float64(r.Dy())-lw, 0)
	dc.DrawRoundedRectangle(float64(r.Min.X)+inset, float64(r.Min.Y)+inset, w, h, math.Max(rr.Radius-inset, 0))
	dc.SetLineWidth(lw)
	dc.SetColor(c)
	dc.Stroke()
}

func drawText(dc *gg.Context, t textSpan) {
	if t.Text == "" {
		return
	}
	dc.SetFontFace(t.Face)
	dc.SetColor(t.Color)
	dc.DrawString(t.Text, float64(t.X), float64(t.Baseline))
}
