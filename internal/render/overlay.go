// Package render draws the interaction overlay on camera frames and shows
// them in a window.
package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/pryvit/internal/gesture"
	"github.com/ayusman/pryvit/internal/interaction"
)

// UnknownLabel is drawn above faces that were not recognized.
const UnknownLabel = "Невідомо"

var (
	black = color.RGBA{A: 255}

	palette = map[interaction.Color]color.RGBA{
		interaction.ColorGreen:   {G: 255, A: 255},
		interaction.ColorCyan:    {G: 255, B: 255, A: 255},
		interaction.ColorMagenta: {R: 255, B: 255, A: 255},
		interaction.ColorWhite:   {R: 255, G: 255, B: 255, A: 255},
		interaction.ColorRed:     {R: 255, A: 255},
	}
)

// RGBA maps a message color name to a pixel color. Unknown names are white.
func RGBA(c interaction.Color) color.RGBA {
	if rgba, ok := palette[c]; ok {
		return rgba
	}
	return palette[interaction.ColorWhite]
}

// Scene is everything drawn on one frame.
type Scene struct {
	Faces   []interaction.Face
	Hands   []gesture.Detection
	Message interaction.Message
}

// Options tunes the overlay layout.
type Options struct {
	MessagePosition image.Point
	MessageHeight   int
	LabelHeight     int
}

// DefaultOptions returns the stock layout.
func DefaultOptions() Options {
	return Options{
		MessagePosition: image.Pt(20, 40),
		MessageHeight:   40,
		LabelHeight:     28,
	}
}

// Overlay draws scenes onto frames.
type Overlay struct {
	text TextDrawer
	opts Options
}

// NewOverlay creates an Overlay writing text with drawer.
func NewOverlay(drawer TextDrawer, opts Options) *Overlay {
	def := DefaultOptions()
	if opts.MessageHeight <= 0 {
		opts.MessageHeight = def.MessageHeight
	}
	if opts.LabelHeight <= 0 {
		opts.LabelHeight = def.LabelHeight
	}
	if opts.MessagePosition == (image.Point{}) {
		opts.MessagePosition = def.MessagePosition
	}
	return &Overlay{text: drawer, opts: opts}
}

// Draw renders faces, gesture labels and the current message onto frame.
func (o *Overlay) Draw(frame *gocv.Mat, scene Scene) {
	for _, f := range scene.Faces {
		c := RGBA(interaction.ColorRed)
		label := UnknownLabel
		if f.Known() {
			c = RGBA(interaction.ColorGreen)
			label = f.Identity
		}

		gocv.Rectangle(frame, f.BBox, c, 2)
		o.text.PutText(frame, label, image.Pt(f.BBox.Min.X, f.BBox.Min.Y-o.opts.LabelHeight-7), o.opts.LabelHeight, c)
	}

	for _, h := range scene.Hands {
		if h.Label == gesture.None {
			continue
		}
		c := RGBA(interaction.ColorCyan)
		gocv.PutText(frame, h.Label.String(), image.Pt(h.BBox.Min.X, h.BBox.Min.Y-10), gocv.FontHersheySimplex, 0.7, c, 2)
	}

	if !scene.Message.Empty() && scene.Message.Text != "" {
		o.drawShadowed(frame, scene.Message.Text, o.opts.MessagePosition, o.opts.MessageHeight, RGBA(scene.Message.Color))
	}
}

func (o *Overlay) drawShadowed(frame *gocv.Mat, text string, org image.Point, height int, c color.RGBA) {
	offset := max(1, height/20)
	o.text.PutText(frame, text, org.Add(image.Pt(offset, offset)), height, black)
	o.text.PutText(frame, text, org, height, c)
}

// Close releases the text drawer.
func (o *Overlay) Close() error {
	return o.text.Close()
}
