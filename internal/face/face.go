// Package face resolves faces in a frame to enrolled identities.
//
// An Embedder finds faces and computes an embedding for each; a Recognizer
// matches embeddings against the enrolled set by cosine similarity; a
// Resolver combines the two per frame.
package face

import (
	"image"

	"gocv.io/x/gocv"
)

// Detected is one face found in a frame.
type Detected struct {
	BBox      image.Rectangle
	Embedding []float32
}

// Embedder finds faces in a frame and embeds them.
type Embedder interface {
	Embed(frame *gocv.Mat) ([]Detected, error)
	Close() error
}
