// Package config handles configuration loading, validation and reloading
// for pryvit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/ayusman/pryvit/internal/face"
	"github.com/ayusman/pryvit/internal/gesture"
	"github.com/ayusman/pryvit/internal/interaction"
	"github.com/ayusman/pryvit/internal/render"
	"github.com/ayusman/pryvit/internal/speech"
	"github.com/ayusman/pryvit/internal/voice"
)

// Duration is a time.Duration written as a string such as "2s" or "1500ms".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// Config holds the complete application configuration.
type Config struct {
	// DataDir holds the face database and relative enrollment images.
	DataDir string `toml:"data_dir" json:"data_dir" yaml:"data_dir"`

	Camera      CameraConfig      `toml:"camera" json:"camera" yaml:"camera"`
	Detector    DetectorConfig    `toml:"detector" json:"detector" yaml:"detector"`
	Face        FaceConfig        `toml:"face" json:"face" yaml:"face"`
	Gesture     GestureConfig     `toml:"gesture" json:"gesture" yaml:"gesture"`
	Interaction InteractionConfig `toml:"interaction" json:"interaction" yaml:"interaction"`
	Speech      SpeechConfig      `toml:"speech" json:"speech" yaml:"speech"`
	Voice       VoiceConfig       `toml:"voice" json:"voice" yaml:"voice"`
	Display     DisplayConfig     `toml:"display" json:"display" yaml:"display"`
	Server      ServerConfig      `toml:"server" json:"server" yaml:"server"`
	Tray        TrayConfig        `toml:"tray" json:"tray" yaml:"tray"`
	Log         LogConfig         `toml:"log" json:"log" yaml:"log"`

	// Users maps a person's name to enrollment image paths. Relative paths
	// are resolved against DataDir.
	Users map[string][]string `toml:"users" json:"users" yaml:"users"`

	// Applications are the programs the voice launcher knows.
	Applications []interaction.Application `toml:"applications" json:"applications" yaml:"applications"`
}

// CameraConfig selects the capture device.
type CameraConfig struct {
	Device int  `toml:"device" json:"device" yaml:"device"`
	Width  int  `toml:"width" json:"width" yaml:"width"`
	Height int  `toml:"height" json:"height" yaml:"height"`
	FPS    int  `toml:"fps" json:"fps" yaml:"fps"`
	Mirror bool `toml:"mirror" json:"mirror" yaml:"mirror"`
}

// DetectorConfig configures the hand landmark helper.
type DetectorConfig struct {
	Script                 string  `toml:"script" json:"script" yaml:"script"`
	MaxHands               int     `toml:"max_hands" json:"max_hands" yaml:"max_hands"`
	MinDetectionConfidence float64 `toml:"min_detection_confidence" json:"min_detection_confidence" yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `toml:"min_tracking_confidence" json:"min_tracking_confidence" yaml:"min_tracking_confidence"`
}

// FaceConfig configures face embedding and recognition.
type FaceConfig struct {
	Script    string  `toml:"script" json:"script" yaml:"script"`
	Model     string  `toml:"model" json:"model" yaml:"model"`
	Device    string  `toml:"device" json:"device" yaml:"device"`
	Threshold float64 `toml:"threshold" json:"threshold" yaml:"threshold"`
}

// GestureConfig tunes the gesture classifier.
type GestureConfig struct {
	HistorySize  int     `toml:"history_size" json:"history_size" yaml:"history_size"`
	MinSamples   int     `toml:"min_samples" json:"min_samples" yaml:"min_samples"`
	NoiseFloor   float64 `toml:"noise_floor" json:"noise_floor" yaml:"noise_floor"`
	MinMoves     int     `toml:"min_moves" json:"min_moves" yaml:"min_moves"`
	MinReversals int     `toml:"min_reversals" json:"min_reversals" yaml:"min_reversals"`
	MinAmplitude float64 `toml:"min_amplitude" json:"min_amplitude" yaml:"min_amplitude"`
	MinMeanStep  float64 `toml:"min_mean_step" json:"min_mean_step" yaml:"min_mean_step"`
	OpenFingers  int     `toml:"open_fingers" json:"open_fingers" yaml:"open_fingers"`
}

// InteractionConfig tunes cooldowns, message lifetimes and attribution.
type InteractionConfig struct {
	GestureCooldown       Duration `toml:"gesture_cooldown" json:"gesture_cooldown" yaml:"gesture_cooldown"`
	ActionCooldown        Duration `toml:"action_cooldown" json:"action_cooldown" yaml:"action_cooldown"`
	EnforceActionCooldown bool     `toml:"enforce_action_cooldown" json:"enforce_action_cooldown" yaml:"enforce_action_cooldown"`
	GreetingDuration      Duration `toml:"greeting_duration" json:"greeting_duration" yaml:"greeting_duration"`
	WaveDuration          Duration `toml:"wave_duration" json:"wave_duration" yaml:"wave_duration"`
	ThumbsUpDuration      Duration `toml:"thumbs_up_duration" json:"thumbs_up_duration" yaml:"thumbs_up_duration"`
	VictoryDuration       Duration `toml:"victory_duration" json:"victory_duration" yaml:"victory_duration"`
	PaddingX              int      `toml:"padding_x" json:"padding_x" yaml:"padding_x"`
	PaddingY              int      `toml:"padding_y" json:"padding_y" yaml:"padding_y"`
	BrowserURL            string   `toml:"browser_url" json:"browser_url" yaml:"browser_url"`
	FarewellWait          Duration `toml:"farewell_wait" json:"farewell_wait" yaml:"farewell_wait"`
}

// SpeechConfig configures speech synthesis and playback.
type SpeechConfig struct {
	Enabled    bool     `toml:"enabled" json:"enabled" yaml:"enabled"`
	Command    string   `toml:"command" json:"command" yaml:"command"`
	Voice      string   `toml:"voice" json:"voice" yaml:"voice"`
	Player     string   `toml:"player" json:"player" yaml:"player"`
	PlayerArgs []string `toml:"player_args" json:"player_args" yaml:"player_args"`
	Grace      Duration `toml:"grace" json:"grace" yaml:"grace"`
	TempDir    string   `toml:"temp_dir" json:"temp_dir" yaml:"temp_dir"`
}

// VoiceConfig configures the speech-to-text helper.
type VoiceConfig struct {
	Enabled      bool     `toml:"enabled" json:"enabled" yaml:"enabled"`
	Command      []string `toml:"command" json:"command" yaml:"command"`
	RestartDelay Duration `toml:"restart_delay" json:"restart_delay" yaml:"restart_delay"`
}

// DisplayConfig configures the preview window.
type DisplayConfig struct {
	Window bool   `toml:"window" json:"window" yaml:"window"`
	Title  string `toml:"title" json:"title" yaml:"title"`
	Font   string `toml:"font" json:"font" yaml:"font"`
}

// ServerConfig configures the local state server.
type ServerConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Addr    string `toml:"addr" json:"addr" yaml:"addr"`
}

// TrayConfig configures the system tray icon.
type TrayConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level"`
	Format string `toml:"format" json:"format" yaml:"format"`
}

// DefaultConfig returns a configuration with the stock settings.
func DefaultConfig() *Config {
	gp := gesture.DefaultParams()
	ic := interaction.DefaultConfig()

	return &Config{
		DataDir: PryvitDir(),
		Camera: CameraConfig{
			Width:  640,
			Height: 480,
			FPS:    15,
		},
		Detector: DetectorConfig{
			MaxHands:               2,
			MinDetectionConfidence: 0.7,
			MinTrackingConfidence:  0.5,
		},
		Face: FaceConfig{
			Model:     "buffalo_l",
			Device:    "cpu",
			Threshold: face.DefaultThreshold,
		},
		Gesture: GestureConfig{
			HistorySize:  gp.HistorySize,
			MinSamples:   gp.MinSamples,
			NoiseFloor:   gp.NoiseFloor,
			MinMoves:     gp.MinMoves,
			MinReversals: gp.MinReversals,
			MinAmplitude: gp.MinAmplitude,
			MinMeanStep:  gp.MinMeanStep,
			OpenFingers:  gp.OpenFingers,
		},
		Interaction: InteractionConfig{
			GestureCooldown:  Duration(ic.GestureCooldown),
			ActionCooldown:   Duration(ic.ActionCooldown),
			GreetingDuration: Duration(ic.GreetingDuration),
			WaveDuration:     Duration(ic.WaveDuration),
			ThumbsUpDuration: Duration(ic.ThumbsUpDuration),
			VictoryDuration:  Duration(ic.VictoryDuration),
			PaddingX:         ic.Padding.X,
			PaddingY:         ic.Padding.Y,
			BrowserURL:       ic.BrowserURL,
			FarewellWait:     Duration(ic.FarewellWait),
		},
		Speech: SpeechConfig{
			Enabled: true,
			Command: speech.DefaultSynthCommand,
			Voice:   speech.DefaultVoice,
			Player:  speech.DefaultPlayerCommand,
			Grace:   Duration(speech.DefaultGrace),
		},
		Voice: VoiceConfig{
			Enabled:      true,
			Command:      []string{"python3", "scripts/listen.py"},
			RestartDelay: Duration(voice.DefaultRestartDelay),
		},
		Display: DisplayConfig{
			Window: true,
			Title:  render.DefaultTitle,
			Font:   "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		},
		Server: ServerConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8765",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Users:        map[string][]string{},
		Applications: DefaultApplications(runtime.GOOS),
	}
}

// DefaultApplications returns the stock launch catalog for goos: Telegram,
// under both its Ukrainian and Latin names.
func DefaultApplications(goos string) []interaction.Application {
	var path string
	switch goos {
	case "darwin":
		path = "/Applications/Telegram.app"
	case "windows":
		path = filepath.Join(os.Getenv("APPDATA"), "Telegram Desktop", "Telegram.exe")
	default:
		path = "telegram-desktop"
	}

	return []interaction.Application{
		{Keyword: "телеграм", Name: "Telegram", Path: path},
		{Keyword: "telegram", Name: "Telegram", Path: path},
	}
}

// PryvitDir returns the per-user state directory, ~/.pryvit unless
// PRYVIT_DATA_DIR is set.
func PryvitDir() string {
	if dir := os.Getenv("PRYVIT_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pryvit"
	}
	return filepath.Join(home, ".pryvit")
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PryvitDir(), "config.toml")
}

// DatabasePath returns the face database path.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "pryvit.db")
}

// UserImages returns the enrollment images with relative paths resolved
// against DataDir.
func (c *Config) UserImages() map[string][]string {
	out := make(map[string][]string, len(c.Users))
	for name, paths := range c.Users {
		for _, p := range paths {
			if !filepath.IsAbs(p) {
				p = filepath.Join(c.DataDir, p)
			}
			out[name] = append(out[name], p)
		}
	}
	return out
}

// ApplyEnvOverrides applies PRYVIT_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PRYVIT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("PRYVIT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PRYVIT_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("PRYVIT_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
		c.Server.Enabled = true
	}
	if v := os.Getenv("PRYVIT_CAMERA_DEVICE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Camera.Device = n
		}
	}
	if v := os.Getenv("PRYVIT_VOICE"); v != "" {
		c.Speech.Voice = v
	}
}

// GestureParams converts the gesture section to classifier parameters.
func (c *Config) GestureParams() gesture.Params {
	g := c.Gesture
	return gesture.Params{
		HistorySize:  g.HistorySize,
		MinSamples:   g.MinSamples,
		NoiseFloor:   g.NoiseFloor,
		MinMoves:     g.MinMoves,
		MinReversals: g.MinReversals,
		MinAmplitude: g.MinAmplitude,
		MinMeanStep:  g.MinMeanStep,
		OpenFingers:  g.OpenFingers,
	}
}

// CoordinatorConfig converts the interaction section.
func (c *Config) CoordinatorConfig() interaction.Config {
	i := c.Interaction
	return interaction.Config{
		GestureCooldown:       i.GestureCooldown.D(),
		ActionCooldown:        i.ActionCooldown.D(),
		GreetingDuration:      i.GreetingDuration.D(),
		WaveDuration:          i.WaveDuration.D(),
		ThumbsUpDuration:      i.ThumbsUpDuration.D(),
		VictoryDuration:       i.VictoryDuration.D(),
		Padding:               interaction.Padding{X: i.PaddingX, Y: i.PaddingY},
		BrowserURL:            i.BrowserURL,
		EnforceActionCooldown: i.EnforceActionCooldown,
		FarewellWait:          i.FarewellWait.D(),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// String summarizes the config for logs.
func (c *Config) String() string {
	return fmt.Sprintf("camera=%d %dx%d@%d users=%d apps=%d", c.Camera.Device, c.Camera.Width, c.Camera.Height, c.Camera.FPS, len(c.Users), len(c.Applications))
}
