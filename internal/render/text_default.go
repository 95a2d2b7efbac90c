//go:build !freetype

package render

// NewTextDrawer returns the built-in font drawer. Builds with the freetype
// tag load fontPath instead.
func NewTextDrawer(fontPath string) (TextDrawer, error) {
	return NewHersheyDrawer(), nil
}
