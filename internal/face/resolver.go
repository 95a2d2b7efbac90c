package face

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/pryvit/internal/interaction"
)

// Resolver turns a frame into faces labelled with identities.
type Resolver struct {
	embedder   Embedder
	recognizer *Recognizer
}

// NewResolver creates a Resolver.
func NewResolver(embedder Embedder, recognizer *Recognizer) *Resolver {
	return &Resolver{embedder: embedder, recognizer: recognizer}
}

// Resolve returns every face in frame. Unrecognized faces have an empty
// identity.
func (r *Resolver) Resolve(frame *gocv.Mat) ([]interaction.Face, error) {
	detected, err := r.embedder.Embed(frame)
	if err != nil {
		return nil, err
	}

	faces := make([]interaction.Face, 0, len(detected))
	for _, d := range detected {
		faces = append(faces, interaction.Face{
			Identity: r.recognizer.Recognize(d.Embedding),
			BBox:     d.BBox,
		})
	}
	return faces, nil
}

// Recognizer returns the underlying recognizer.
func (r *Resolver) Recognizer() *Recognizer {
	return r.recognizer
}
