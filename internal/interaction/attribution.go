package interaction

import (
	"image"

	"github.com/ayusman/pryvit/internal/gesture"
)

// Default attribution padding in pixels around a face box.
const (
	DefaultPaddingX = 200
	DefaultPaddingY = 300
)

// Face is one resolved face in the current frame. An empty Identity means
// the face was not recognized.
type Face struct {
	Identity string          `json:"identity"`
	BBox     image.Rectangle `json:"bbox"`
}

// Known reports whether the face was matched to an enrolled person.
func (f Face) Known() bool {
	return f.Identity != ""
}

// Pair is a gesture attributed to a recognized identity.
type Pair struct {
	Identity string
	Gesture  gesture.Label
}

// Padding is the region around a face box in which a hand belongs to it:
// X pixels to either side, Y pixels below the face, none above.
type Padding struct {
	X int
	Y int
}

// Contains reports whether point p falls in the padded region of face.
func (p Padding) Contains(face image.Rectangle, pt image.Point) bool {
	return pt.X >= face.Min.X-p.X && pt.X <= face.Max.X+p.X &&
		pt.Y >= face.Min.Y && pt.Y <= face.Max.Y+p.Y
}

// center returns the midpoint of r.
func center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

// Attribute pairs each labelled hand with the first recognized face whose
// padded region contains the hand center. Hands with no gesture, and hands
// near no recognized face, produce nothing.
func Attribute(faces []Face, hands []gesture.Detection, pad Padding) []Pair {
	var pairs []Pair
	for _, h := range hands {
		if h.Label == gesture.None {
			continue
		}

		c := center(h.BBox)
		for _, f := range faces {
			if !f.Known() {
				continue
			}
			if pad.Contains(f.BBox, c) {
				pairs = append(pairs, Pair{Identity: f.Identity, Gesture: h.Label})
				break
			}
		}
	}
	return pairs
}
