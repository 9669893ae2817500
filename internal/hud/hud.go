// Package hud draws the status overlay on top of composited frames.
//
// Left-aligned lines are drawn with a Go Mono face from x/image; the
// right-aligned device line is measured with HarfBuzz shaping so that it
// ends exactly at the frame edge.
package hud

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	gtlanguage "github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/fractal/internal/cache"
)

// DefaultSize is the default font size in points.
const DefaultSize = 13

// margin is the inset from the frame edge in pixels.
const margin = 6

// widthCacheSize bounds the number of memoized shaped widths.
const widthCacheSize = 64

// Status is the information shown by the overlay.
type Status struct {
	FrameTime  time.Duration
	Active     string
	Iterations int
	Zoom       float64
	CenterX    float64
	CenterY    float64
	Coloring   string
	Device     string
}

// HUD renders Status onto images. It is not safe for concurrent use.
type HUD struct {
	face    font.Face
	shape   *gtfont.Face
	shaper  shaping.HarfbuzzShaper
	size    fixed.Int26_6
	printer *message.Printer
	widths  *cache.Cache[string, int]

	Foreground color.Color
	Shadow     color.Color
}

// New loads the overlay font at the given size in points.
func New(size float64) (*HUD, error) {
	if size <= 0 {
		size = DefaultSize
	}
	otf, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("hud: parse font: %w", err)
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("hud: create face: %w", err)
	}
	shape, err := gtfont.ParseTTF(bytes.NewReader(gomono.TTF))
	if err != nil {
		_ = face.Close()
		return nil, fmt.Errorf("hud: parse shaping font: %w", err)
	}

	return &HUD{
		face:       face,
		shape:      shape,
		size:       fixed.Int26_6(size * 64),
		printer:    message.NewPrinter(language.English),
		widths:     cache.New[string, int](widthCacheSize),
		Foreground: color.RGBA{0xf0, 0xf0, 0xf0, 0xff},
		Shadow:     color.RGBA{0, 0, 0, 0xc0},
	}, nil
}

// Close releases the font face.
func (h *HUD) Close() error {
	return h.face.Close()
}

// Lines formats the left-aligned status lines.
func (h *HUD) Lines(s Status) []string {
	ms := float64(s.FrameTime.Microseconds()) / 1000
	fps := 0.0
	if s.FrameTime > 0 {
		fps = float64(time.Second) / float64(s.FrameTime)
	}
	return []string{
		fmt.Sprintf("%.2f ms  %.0f fps", ms, fps),
		h.printer.Sprintf("%s  iterations %d", s.Active, s.Iterations),
		fmt.Sprintf("zoom %.3e", s.Zoom),
		fmt.Sprintf("center %+.12f %+.12fi", s.CenterX, s.CenterY),
		"coloring " + s.Coloring,
	}
}

// Measure returns the shaped advance of text in pixels. Results are
// memoized per string.
func (h *HUD) Measure(text string) int {
	return h.widths.GetOrCreate(text, func() int { return h.shapeWidth(text) })
}

// MeasureStats reports the hit rate of the width cache.
func (h *HUD) MeasureStats() cache.Stats {
	return h.widths.Stats()
}

func (h *HUD) shapeWidth(text string) int {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	out := h.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      h.shape,
		Size:      h.size,
		Script:    gtlanguage.Latin,
		Language:  gtlanguage.NewLanguage("en"),
	})
	return out.Advance.Ceil()
}

// Draw renders the overlay onto dst.
func (h *HUD) Draw(dst draw.Image, s Status) {
	b := dst.Bounds()
	metrics := h.face.Metrics()
	lineHeight := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()

	lines := h.Lines(s)
	width := 0
	for _, l := range lines {
		if adv := font.MeasureString(h.face, l).Ceil(); adv > width {
			width = adv
		}
	}
	panel := image.Rect(b.Min.X, b.Min.Y, b.Min.X+width+2*margin, b.Min.Y+len(lines)*lineHeight+2*margin)
	draw.Draw(dst, panel.Intersect(b), image.NewUniform(h.Shadow), image.Point{}, draw.Over)

	y := b.Min.Y + margin + ascent
	for _, l := range lines {
		h.text(dst, b.Min.X+margin, y, l)
		y += lineHeight
	}

	if s.Device != "" {
		x := b.Max.X - margin - h.Measure(s.Device)
		h.text(dst, x, b.Min.Y+margin+ascent, s.Device)
	}
}

func (h *HUD) text(dst draw.Image, x, y int, s string) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(h.Shadow),
		Face: h.face,
		Dot:  fixed.P(x+1, y+1),
	}
	d.DrawString(s)

	d.Src = image.NewUniform(h.Foreground)
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}
