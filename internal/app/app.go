// Package app wires the camera, the recognizers, the coordinator and the
// display into the frame loop.
package app

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/pryvit/internal/capture"
	"github.com/ayusman/pryvit/internal/detector"
	"github.com/ayusman/pryvit/internal/gesture"
	"github.com/ayusman/pryvit/internal/interaction"
	plog "github.com/ayusman/pryvit/internal/log"
	"github.com/ayusman/pryvit/internal/render"
	"github.com/ayusman/pryvit/internal/server"
)

// FaceResolver finds and identifies the faces in a frame.
type FaceResolver interface {
	Resolve(frame *gocv.Mat) ([]interaction.Face, error)
}

// Display shows annotated frames. Show returns false when the user asked
// to quit.
type Display interface {
	Show(frame *gocv.Mat) bool
	Close() error
}

// Config holds the collaborators of the frame loop. Overlay, Window,
// Frames and OnFrame are optional.
type Config struct {
	Camera      capture.Camera
	Detector    detector.Detector
	Faces       FaceResolver
	Classifier  *gesture.Classifier
	Coordinator *interaction.Coordinator

	Overlay *render.Overlay
	Window  Display
	Frames  *server.FrameBuffer

	// OnFrame receives the coordinator state after every processed frame.
	OnFrame func(interaction.Snapshot)
}

// App runs the frame loop.
type App struct {
	config  Config
	log     zerolog.Logger
	mu      sync.RWMutex
	paused  bool
	running bool
}

// New creates an App. Camera, Detector, Faces and Coordinator are required.
func New(config Config) (*App, error) {
	switch {
	case config.Camera == nil:
		return nil, errors.New("app: camera is required")
	case config.Detector == nil:
		return nil, errors.New("app: detector is required")
	case config.Faces == nil:
		return nil, errors.New("app: face resolver is required")
	case config.Coordinator == nil:
		return nil, errors.New("app: coordinator is required")
	}
	if config.Classifier == nil {
		config.Classifier = gesture.NewClassifier(gesture.DefaultParams())
	}

	return &App{
		config: config,
		log:    plog.With("app"),
	}, nil
}

// SetPaused pauses or resumes recognition. Frames are still shown while
// paused.
func (a *App) SetPaused(paused bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paused = paused
	a.log.Info().Bool("paused", paused).Msg("recognition state changed")
}

// Paused reports whether recognition is paused.
func (a *App) Paused() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.paused
}

// Running reports whether the frame loop is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// Coordinator returns the event coordinator.
func (a *App) Coordinator() *interaction.Coordinator {
	return a.config.Coordinator
}

// Close releases the camera, the detector, the overlay and the window.
func (a *App) Close() error {
	var errs []error
	if err := a.config.Camera.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.config.Detector.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.config.Overlay != nil {
		if err := a.config.Overlay.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.config.Window != nil {
		if err := a.config.Window.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
