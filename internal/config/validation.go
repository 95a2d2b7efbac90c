package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError is a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "": true,
}

// ValidateConfig checks every section and returns ValidationErrors when
// anything is invalid.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.DataDir == "" {
		add("data_dir", "must not be empty")
	}

	if c.Camera.Device < 0 {
		add("camera.device", "must be >= 0, got %d", c.Camera.Device)
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		add("camera", "resolution must not be negative")
	}
	if c.Camera.FPS <= 0 {
		add("camera.fps", "must be positive, got %d", c.Camera.FPS)
	}

	if c.Detector.MaxHands < 1 {
		add("detector.max_hands", "must be at least 1")
	}
	if !unit(c.Detector.MinDetectionConfidence) {
		add("detector.min_detection_confidence", "must be in [0, 1]")
	}
	if !unit(c.Detector.MinTrackingConfidence) {
		add("detector.min_tracking_confidence", "must be in [0, 1]")
	}

	if c.Face.Threshold <= 0 || c.Face.Threshold >= 1 {
		add("face.threshold", "must be in (0, 1), got %g", c.Face.Threshold)
	}

	g := c.Gesture
	if g.HistorySize < g.MinSamples {
		add("gesture.history_size", "must be >= min_samples (%d)", g.MinSamples)
	}
	if g.NoiseFloor < 0 || g.MinAmplitude < 0 || g.MinMeanStep < 0 {
		add("gesture", "thresholds must not be negative")
	}
	if g.OpenFingers < 1 || g.OpenFingers > 4 {
		add("gesture.open_fingers", "must be in [1, 4], got %d", g.OpenFingers)
	}

	i := c.Interaction
	for field, d := range map[string]Duration{
		"gesture_cooldown":   i.GestureCooldown,
		"action_cooldown":    i.ActionCooldown,
		"greeting_duration":  i.GreetingDuration,
		"wave_duration":      i.WaveDuration,
		"thumbs_up_duration": i.ThumbsUpDuration,
		"victory_duration":   i.VictoryDuration,
		"farewell_wait":      i.FarewellWait,
	} {
		if d < 0 {
			add("interaction."+field, "must not be negative")
		}
	}
	if i.PaddingX < 0 || i.PaddingY < 0 {
		add("interaction.padding", "must not be negative")
	}
	if i.BrowserURL != "" {
		if u, err := url.Parse(i.BrowserURL); err != nil || u.Scheme == "" {
			add("interaction.browser_url", "invalid URL %q", i.BrowserURL)
		}
	}

	if c.Speech.Enabled && c.Speech.Command == "" {
		add("speech.command", "required when speech is enabled")
	}
	if c.Voice.Enabled && len(c.Voice.Command) == 0 {
		add("voice.command", "required when voice is enabled")
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		add("server.addr", "required when the server is enabled")
	}

	if !logLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		add("log.format", "must be console or json, got %q", c.Log.Format)
	}

	for name, paths := range c.Users {
		if strings.TrimSpace(name) == "" {
			add("users", "user name must not be empty")
		}
		if len(paths) == 0 {
			add("users."+name, "needs at least one image")
		}
	}

	seen := make(map[string]bool)
	for n, app := range c.Applications {
		field := fmt.Sprintf("applications[%d]", n)
		if app.Keyword == "" {
			add(field+".keyword", "must not be empty")
		}
		if app.Path == "" {
			add(field+".path", "must not be empty")
		}
		if seen[app.Keyword] {
			add(field+".keyword", "duplicate keyword %q", app.Keyword)
		}
		seen[app.Keyword] = true
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}
