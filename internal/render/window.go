package render

import "gocv.io/x/gocv"

// KeyEscape is the key code that closes the window loop.
const KeyEscape = 27

// DefaultTitle is the preview window title.
const DefaultTitle = "AI Assistant"

// Window is an on-screen preview.
type Window struct {
	w *gocv.Window
}

// NewWindow opens a preview window.
func NewWindow(title string) *Window {
	if title == "" {
		title = DefaultTitle
	}
	return &Window{w: gocv.NewWindow(title)}
}

// Show displays frame and polls the keyboard for one millisecond. It
// returns false when the user pressed Escape.
func (w *Window) Show(frame *gocv.Mat) bool {
	w.w.IMShow(*frame)
	key := w.w.WaitKey(1)
	return key&0xFF != KeyEscape
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.w.Close()
}
