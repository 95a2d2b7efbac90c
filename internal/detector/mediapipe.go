package detector

import (
	"fmt"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/ayusman/pryvit/internal/sidecar"
)

// ScriptName is the MediaPipe hands service shipped in scripts/.
const ScriptName = "mediapipe_service.py"

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
type MediaPipeDetector struct {
	config Config
	proc   *sidecar.Process
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := config.Script
	if script == "" {
		script = ScriptName
	}

	proc, err := sidecar.New(sidecar.Options{
		Script: script,
		Args: []string{
			"--max-hands", strconv.Itoa(config.MaxHands),
			"--min-detection-confidence", strconv.FormatFloat(config.MinConfidence, 'f', 2, 64),
			"--min-tracking-confidence", strconv.FormatFloat(config.MinTrackingConf, 'f', 2, 64),
		},
	})
	if err != nil {
		return nil, err
	}

	return &MediaPipeDetector{
		config: config,
		proc:   proc,
	}, nil
}

// Detect analyzes a frame and returns detected hands in tracker order.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]Hand, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := d.proc.CallFrame(frame, &response); err != nil {
		return nil, fmt.Errorf("mediapipe: %w", err)
	}

	width, height := frame.Cols(), frame.Rows()

	result := make([]Hand, 0, len(response.Hands))
	for i, h := range response.Hands {
		if len(h.Points) < NumLandmarks {
			continue
		}
		result = append(result, h.toHand(i, width, height))
	}

	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	return d.proc.Close()
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (h jsonHand) toHand(slot, width, height int) Hand {
	hand := Hand{
		Slot:       slot,
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks; i++ {
		hand.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	hand.BBox = hand.BoundingBox(width, height)
	return hand
}
