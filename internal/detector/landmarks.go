// Package detector provides hand landmark extraction for the interaction engine.
package detector

import "image"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark position. X and Y are normalized to the frame
// (0..1, Y grows downwards), Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Hand is one detected hand in a frame.
//
// Slot is positional: the first hand reported by the tracker is 0, the next
// is 1, and so on. It is not a stable identity across frames.
type Hand struct {
	Slot       int                   `json:"slot"`
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
	BBox       image.Rectangle       `json:"bbox"`
}

// WristPosition returns the normalized wrist coordinates.
func (h *Hand) WristPosition() (x, y float64) {
	return h.Points[Wrist].X, h.Points[Wrist].Y
}

// BoundingBox returns the pixel rectangle enclosing all landmarks in a
// frame of the given size.
func (h *Hand) BoundingBox(width, height int) image.Rectangle {
	minX, minY := h.Points[0].X, h.Points[0].Y
	maxX, maxY := minX, minY
	for _, p := range h.Points[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}

	r := image.Rect(
		int(minX*float64(width)),
		int(minY*float64(height)),
		int(maxX*float64(width)),
		int(maxY*float64(height)),
	)
	return r.Intersect(image.Rect(0, 0, width, height))
}

// Shifted returns a copy of the hand with every landmark translated by
// (dx, dy) in normalized units.
func (h Hand) Shifted(dx, dy float64) Hand {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}
