package face

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/pryvit/internal/sidecar"
)

// ScriptName is the face embedding service shipped in scripts/.
const ScriptName = "face_service.py"

// SidecarConfig configures the face embedding helper.
type SidecarConfig struct {
	Script string
	Model  string
	Device string
}

// SidecarEmbedder implements Embedder with a Python InsightFace subprocess.
type SidecarEmbedder struct {
	proc *sidecar.Process
}

// NewSidecarEmbedder creates the embedder. The helper starts on first use.
func NewSidecarEmbedder(cfg SidecarConfig) (*SidecarEmbedder, error) {
	script := cfg.Script
	if script == "" {
		script = ScriptName
	}

	var args []string
	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}
	if cfg.Device != "" {
		args = append(args, "--device", cfg.Device)
	}

	proc, err := sidecar.New(sidecar.Options{Script: script, Args: args})
	if err != nil {
		return nil, err
	}
	return &SidecarEmbedder{proc: proc}, nil
}

// Embed sends the frame to the helper.
func (e *SidecarEmbedder) Embed(frame *gocv.Mat) ([]Detected, error) {
	var response struct {
		Faces []jsonFace `json:"faces"`
	}
	if err := e.proc.CallFrame(frame, &response); err != nil {
		return nil, fmt.Errorf("face embedder: %w", err)
	}

	out := make([]Detected, 0, len(response.Faces))
	for _, f := range response.Faces {
		if len(f.Embedding) == 0 {
			continue
		}
		out = append(out, f.toDetected())
	}
	return out, nil
}

// Close shuts down the helper.
func (e *SidecarEmbedder) Close() error {
	return e.proc.Close()
}

// jsonFace is one face in the helper response: bbox is [x1, y1, x2, y2].
type jsonFace struct {
	BBox      [4]int    `json:"bbox"`
	Embedding []float32 `json:"embedding"`
}

func (f jsonFace) toDetected() Detected {
	return Detected{
		BBox:      image.Rect(f.BBox[0], f.BBox[1], f.BBox[2], f.BBox[3]),
		Embedding: f.Embedding,
	}
}
