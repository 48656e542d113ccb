// Card layout planning.
//
// All positions are computed in design units on the 900x240 reference card
// and converted to pixels with the request's scale. The plan is drawn by
// render.go and inspected directly by tests.

package card

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/font"

	"tools.zach/dev/servercard/internal/fonts"
	"tools.zach/dev/servercard/internal/status"
)

// ///////////////////////////////////////////////
// Design geometry (design units)
// ///////////////////////////////////////////////

const (
	padding     = 16
	panelWidth  = DesignWidth - 2*padding
	panelHeight = DesignHeight - 2*padding

	shadowDX    = 2
	shadowDY    = 3
	shadowBlur  = 6
	shadowAlpha = 80

	iconLeft  = padding + 20
	iconTop   = padding + 18
	iconBox   = 150
	iconSize  = 128
	textLeft  = iconLeft + iconBox + 20
	textRight = DesignWidth - padding - 20

	placeholderRadius = 18
	placeholderStroke = 2
	blockALeft        = iconLeft + 48
	blockATop         = iconTop + 52
	blockASize        = 34
	blockBLeft        = iconLeft + 95
	blockBTop         = iconTop + 84
	blockBSize        = 22

	titleTop  = iconTop - 2
	titleSize = 34

	chipGap     = 12
	chipOffsetY = 6
	chipPadX    = 8
	chipPadY    = 3
	chipRadius  = 9
	chipSize    = 16

	metaTop  = iconTop + 46
	metaSize = 20

	playersTop  = metaTop + 36
	playersSize = 20
	barTop      = playersTop + 28
	barWidth    = 610
	barHeight   = 14
	barRadius   = 9
	barStroke   = 2
	barMinFill  = 8

	motdTop  = barTop + 26
	motdSize = 16

	stampSize   = 14
	stampRight  = 22
	stampBottom = 28
)

const metaSeparator = " • "

// Chip labels.
const (
	LabelOnline  = "ONLINE"
	LabelOffline = "OFFLINE"
)

// ///////////////////////////////////////////////
// Layout plan
// ///////////////////////////////////////////////

// textSpan is a single line of text. Top is the ascender line, so the pen
// baseline sits Ascent pixels below it.
type textSpan struct {
	Text     string
	X        int
	Top      int
	Baseline int
	Width    int
	Height   int
	Face     font.Face
	Color    color.NRGBA
}

// Bounds is the measured box of the span on the content surface.
func (t textSpan) Bounds() image.Rectangle {
	return image.Rect(t.X, t.Top, t.X+t.Width, t.Top+t.Height)
}

type roundRect struct {
	Rect   image.Rectangle
	Radius float64
}

func newRoundRect(r image.Rectangle, radius int) roundRect {
	rad := math.Min(float64(radius), math.Min(float64(r.Dx())/2, float64(r.Dy())/2))
	return roundRect{Rect: r, Radius: rad}
}

type placeholder struct {
	Outline roundRect
	Stroke  int
	Blocks  [2]image.Rectangle
}

type chip struct {
	Shape roundRect
	Fill  color.NRGBA
	Label textSpan
}

type playerBar struct {
	Track  roundRect
	Stroke int
	Ratio  float64
	// Fill is nil when Ratio is zero.
	Fill *roundRect
}

// layout is every element of one card positioned in content-surface pixels.
// Nil elements are not drawn.
type layout struct {
	Scale  float64
	Size   image.Point
	Offset image.Point

	Panel       image.Rectangle
	Shadow      image.Rectangle
	ShadowSigma float64

	IconBox     image.Rectangle
	IconRect    image.Rectangle
	Icon        image.Image
	Placeholder placeholder

	Title       textSpan
	Chip        chip
	Meta        textSpan
	Players     *textSpan
	Bar         *playerBar
	Description *textSpan
	Timestamp   *textSpan
}

// faceSet holds the faces of one render. Faces are stateful, so each
// render opens its own.
type faceSet struct {
	title font.Face
	large font.Face
	small font.Face
	stamp font.Face
}

func openFaces(set *fonts.Set, scale float64) *faceSet {
	return &faceSet{
		title: set.Bold.Face(titleSize * scale),
		large: set.Regular.Face(metaSize * scale),
		small: set.Regular.Face(chipSize * scale),
		stamp: set.Regular.Face(stampSize * scale),
	}
}

func (f *faceSet) Close() {
	for _, face := range []font.Face{f.title, f.large, f.small, f.stamp} {
		_ = face.Close()
	}
}

// PlayerRatio is online/capacity clamped to [0, 1]; zero when capacity is zero.
func PlayerRatio(online, capacity int) float64 {
	if capacity <= 0 || online <= 0 {
		return 0
	}
	if online >= capacity {
		return 1
	}
	return float64(online) / float64(capacity)
}

// MetaLine joins the address, version and latency shown under the title.
func MetaLine(snap status.Snapshot, address string, flags Flags) string {
	if !flags.ShowPort {
		address = status.StripPort(address)
	}
	parts := []string{address}
	if flags.ShowVersion && snap.Version != "" {
		parts = append(parts, snap.Version)
	}
	if flags.ShowPing && snap.HasLatency {
		parts = append(parts, fmt.Sprintf("%d ms", snap.LatencyMS))
	}
	return strings.Join(parts, metaSeparator)
}

func newSpan(face font.Face, text string, x, top int, c color.NRGBA) textSpan {
	w, h := fonts.Measure(face, text)
	return textSpan{
		Text:     text,
		X:        x,
		Top:      top,
		Baseline: top + fonts.Ascent(face),
		Width:    w,
		Height:   h,
		Face:     face,
		Color:    c,
	}
}

// plan positions every element for one render. All lengths derive from
// scale; nothing here draws.
func plan(snap status.Snapshot, req Request, theme Theme, icon image.Image, scale float64, f *faceSet) *layout {
	px := func(units float64) int { return ToPx(units, scale) }

	l := &layout{
		Scale: scale,
		Size:  image.Pt(px(DesignWidth), px(DesignHeight)),
	}
	l.Offset = image.Pt((req.Width-l.Size.X)/2, (req.Height-l.Size.Y)/2)

	l.Panel = image.Rect(px(padding), px(padding), px(padding)+px(panelWidth), px(padding)+px(panelHeight))
	l.Shadow = l.Panel.Add(image.Pt(px(shadowDX), px(shadowDY)))
	l.ShadowSigma = shadowBlur * scale

	l.IconBox = image.Rect(px(iconLeft), px(iconTop), px(iconLeft)+px(iconBox), px(iconTop)+px(iconBox))
	size := px(iconSize)
	ix := l.IconBox.Min.X + (l.IconBox.Dx()-size)/2
	iy := l.IconBox.Min.Y + (l.IconBox.Dy()-size)/2
	l.IconRect = image.Rect(ix, iy, ix+size, iy+size)
	l.Icon = icon
	l.Placeholder = placeholder{
		Outline: newRoundRect(l.IconRect, px(placeholderRadius)),
		Stroke:  px(placeholderStroke),
		Blocks: [2]image.Rectangle{
			image.Rect(px(blockALeft), px(blockATop), px(blockALeft)+px(blockASize), px(blockATop)+px(blockASize)),
			image.Rect(px(blockBLeft), px(blockBTop), px(blockBLeft)+px(blockBSize), px(blockBTop)+px(blockBSize)),
		},
	}

	x := px(textLeft)
	right := px(textRight)
	avail := right - x

	// Chip size is known before the title so the title can make room.
	label, fill := LabelOffline, theme.Bad
	if snap.Online {
		label, fill = LabelOnline, theme.Accent
	}
	bounds, _ := font.BoundString(f.small, label)
	inkW := (bounds.Max.X - bounds.Min.X).Ceil()
	inkH := (bounds.Max.Y - bounds.Min.Y).Ceil()
	chipW := inkW + 2*px(chipPadX)
	chipH := inkH + 2*px(chipPadY)

	titleAvail := max(avail-px(chipGap)-chipW, 0)
	title := fonts.Truncate(f.title, req.Label, titleAvail)
	l.Title = newSpan(f.title, title, x, px(titleTop), theme.Text)

	cx := x + l.Title.Width + px(chipGap)
	if cx+chipW > right {
		cx = right - chipW
	}
	cx = max(cx, x)
	cy := px(titleTop) + px(chipOffsetY)
	chipRect := image.Rect(cx, cy, cx+chipW, cy+chipH)
	labelX := cx + (chipW-inkW)/2 - bounds.Min.X.Floor()
	labelBaseline := cy + (chipH-inkH)/2 - bounds.Min.Y.Floor()
	l.Chip = chip{
		Shape: newRoundRect(chipRect, px(chipRadius)),
		Fill:  fill,
		Label: textSpan{
			Text:     label,
			X:        labelX,
			Top:      labelBaseline - fonts.Ascent(f.small),
			Baseline: labelBaseline,
			Width:    inkW,
			Height:   inkH,
			Face:     f.small,
			Color:    theme.ChipText,
		},
	}

	meta := fonts.Truncate(f.large, MetaLine(snap, req.Address, req.Flags), avail)
	l.Meta = newSpan(f.large, meta, x, px(metaTop), theme.SubText)

	if req.Flags.ShowPlayers {
		text := fmt.Sprintf("Players: %d / %d", max(snap.PlayersOnline, 0), max(snap.PlayersMax, 0))
		players := newSpan(f.large, text, x, px(playersTop), theme.Text)
		l.Players = &players

		track := image.Rect(x, px(barTop), x+px(barWidth), px(barTop)+px(barHeight))
		bar := &playerBar{
			Track:  newRoundRect(track, px(barRadius)),
			Stroke: px(barStroke),
			Ratio:  PlayerRatio(snap.PlayersOnline, snap.PlayersMax),
		}
		if bar.Ratio > 0 {
			w := max(px(barMinFill), int(float64(track.Dx())*bar.Ratio))
			w = min(w, track.Dx())
			fillRect := newRoundRect(image.Rect(track.Min.X, track.Min.Y, track.Min.X+w, track.Max.Y), px(barRadius))
			bar.Fill = &fillRect
		}
		l.Bar = bar
	}

	if req.Flags.ShowMOTD {
		if motd := Sanitize(snap.Description); motd != "" {
			motd = fonts.Truncate(f.small, motd, avail)
			desc := newSpan(f.small, motd, x, px(motdTop), theme.Muted)
			l.Description = &desc
		}
	}

	if req.Flags.ShowTimestamp {
		ts := req.timestamp()
		w, _ := fonts.Measure(f.stamp, ts)
		stamp := newSpan(f.stamp, ts, l.Size.X-w-px(stampRight), l.Size.Y-px(stampBottom), theme.Muted)
		l.Timestamp = &stamp
	}

	return l
}
