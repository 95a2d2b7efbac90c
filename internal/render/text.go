package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// TextDrawer writes text onto a frame. org is the top-left corner of the
// text and height its pixel height.
type TextDrawer interface {
	PutText(img *gocv.Mat, text string, org image.Point, height int, c color.RGBA)
	Close() error
}

// hersheyDrawer draws with OpenCV's built-in fonts, which only cover ASCII.
type hersheyDrawer struct{}

// NewHersheyDrawer returns a TextDrawer using the built-in fonts. Text is
// transliterated first.
func NewHersheyDrawer() TextDrawer {
	return hersheyDrawer{}
}

func (hersheyDrawer) PutText(img *gocv.Mat, text string, org image.Point, height int, c color.RGBA) {
	const font = gocv.FontHersheySimplex

	text = Transliterate(text)
	thickness := max(1, height/15)
	// Base glyph height of the simplex font at scale 1
	scale := float64(height) / 22

	baseline := image.Pt(org.X, org.Y+height)
	gocv.PutText(img, text, baseline, font, scale, c, thickness)
}

func (hersheyDrawer) Close() error {
	return nil
}
