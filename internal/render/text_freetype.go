//go:build freetype

package render

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

type freetypeDrawer struct {
	ft contrib.FreeType2
}

// NewTextDrawer loads a TrueType font through OpenCV's freetype module,
// which draws Cyrillic directly. An empty fontPath falls back to the
// built-in fonts.
func NewTextDrawer(fontPath string) (TextDrawer, error) {
	if fontPath == "" {
		return NewHersheyDrawer(), nil
	}
	if _, err := os.Stat(fontPath); err != nil {
		return nil, fmt.Errorf("font: %w", err)
	}

	ft := contrib.NewFreeType2()
	ft.LoadFontData(fontPath, 0)
	return &freetypeDrawer{ft: ft}, nil
}

func (d *freetypeDrawer) PutText(img *gocv.Mat, text string, org image.Point, height int, c color.RGBA) {
	d.ft.PutText(img, text, org, height, c, -1, gocv.LineAA, false)
}

func (d *freetypeDrawer) Close() error {
	return d.ft.Close()
}
