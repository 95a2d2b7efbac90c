package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pryvit/internal/capture"
	"github.com/ayusman/pryvit/internal/interaction"
	"github.com/ayusman/pryvit/internal/render"
)

// Run opens the camera and processes frames until ctx is cancelled, the
// window is closed with Escape, or the camera runs out of frames. Each
// frame goes through face resolution, hand detection, gesture
// classification and the coordinator before it is drawn and shown.
func (a *App) Run(ctx context.Context) error {
	cam := a.config.Camera
	if err := cam.Open(); err != nil {
		return err
	}

	a.mu.Lock()
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	fps := cam.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	a.log.Info().Int("fps", fps).Msg("frame loop started")
	defer a.log.Info().Msg("frame loop stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		frame, err := cam.ReadFrame()
		if errors.Is(err, capture.ErrNoMoreFrames) {
			return nil
		}
		if err != nil {
			a.log.Warn().Err(err).Msg("read frame")
			continue
		}

		quit := a.handle(time.Now(), frame)
		frame.Close()
		if quit {
			a.log.Info().Msg("quit requested from window")
			return nil
		}
	}
}

// handle processes and shows one frame. It reports whether the user asked
// to quit.
func (a *App) handle(now time.Time, frame *gocv.Mat) bool {
	if !a.Paused() {
		result, err := a.Step(now, frame)
		if err != nil {
			a.log.Warn().Err(err).Msg("frame skipped")
		} else if len(result.Greeted) > 0 || len(result.Fired) > 0 {
			a.log.Debug().
				Strs("greeted", result.Greeted).
				Int("gestures", len(result.Fired)).
				Msg("frame events")
		}
		if a.config.OnFrame != nil {
			a.config.OnFrame(a.config.Coordinator.Snapshot())
		}
	}

	if a.config.Frames != nil {
		if err := a.config.Frames.Update(frame); err != nil {
			a.log.Debug().Err(err).Msg("publish frame")
		}
	}
	if a.config.Window != nil {
		return !a.config.Window.Show(frame)
	}
	return false
}

// Step runs the recognizers and the coordinator on frame and draws the
// overlay onto it. A collaborator error skips the coordinator update.
func (a *App) Step(now time.Time, frame *gocv.Mat) (interaction.FrameResult, error) {
	faces, err := a.config.Faces.Resolve(frame)
	if err != nil {
		return interaction.FrameResult{}, fmt.Errorf("resolve faces: %w", err)
	}

	hands, err := a.config.Detector.Detect(frame)
	if err != nil {
		return interaction.FrameResult{}, fmt.Errorf("detect hands: %w", err)
	}

	detections := a.config.Classifier.Classify(hands)
	result := a.config.Coordinator.HandleFrame(now, faces, detections)

	if a.config.Overlay != nil {
		a.config.Overlay.Draw(frame, render.Scene{
			Faces:   faces,
			Hands:   detections,
			Message: a.config.Coordinator.Display().Current(),
		})
	}
	return result, nil
}
