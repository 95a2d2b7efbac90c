package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/pryvit/internal/interaction"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("PRYVIT_DATA_DIR", "")
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15, cfg.Camera.FPS)
	assert.Equal(t, 0.4, cfg.Face.Threshold)
	assert.Equal(t, 2*time.Second, cfg.Interaction.GestureCooldown.D())
	assert.Equal(t, 5*time.Second, cfg.Interaction.ActionCooldown.D())
	assert.Equal(t, ".pryvit", filepath.Base(cfg.DataDir))
	assert.Equal(t, "pryvit.db", filepath.Base(cfg.DatabasePath()))
	assert.Equal(t, interaction.DefaultConfig(), cfg.CoordinatorConfig())
	assert.True(t, cfg.Voice.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.Speech.Grace.D())
	assert.Equal(t, DefaultApplications(runtime.GOOS), cfg.Applications)
}

func TestDefaultApplications(t *testing.T) {
	tests := map[string]string{
		"linux":  "telegram-desktop",
		"darwin": "/Applications/Telegram.app",
	}
	for goos, want := range tests {
		apps := DefaultApplications(goos)
		require.Len(t, apps, 2, goos)
		assert.Equal(t, "телеграм", apps[0].Keyword)
		assert.Equal(t, "telegram", apps[1].Keyword)
		for _, app := range apps {
			assert.Equal(t, "Telegram", app.Name)
			assert.Equal(t, want, app.Path, goos)
		}
	}

	t.Setenv("APPDATA", `C:\Users\olena\AppData\Roaming`)
	win := DefaultApplications("windows")
	assert.Equal(t, "Telegram.exe", filepath.Base(strings.ReplaceAll(win[0].Path, `\`, "/")))
}

func TestLoadKeepsDefaultApplicationsUnlessSet(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "data_dir = \""+dir+"\"\n")
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultApplications(runtime.GOOS), cfg.Applications)

	// A file entry replaces the defaults and inherits none of their fields
	writeFile(t, path, "data_dir = \""+dir+"\"\n\n[[applications]]\nkeyword = \"термінал\"\npath = \"/bin/sh\"\n")
	cfg, err = NewLoader(path).Load()
	require.NoError(t, err)
	require.Len(t, cfg.Applications, 1)
	assert.Equal(t, interaction.Application{Keyword: "термінал", Path: "/bin/sh"}, cfg.Applications[0])

	writeFile(t, path, "data_dir = \""+dir+"\"\napplications = []\n")
	cfg, err = NewLoader(path).Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Applications)
}

func TestConfigPath(t *testing.T) {
	t.Setenv("PRYVIT_DATA_DIR", "/srv/pryvit")
	assert.Equal(t, filepath.Join("/srv/pryvit", "config.toml"), ConfigPath())
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1500ms")))
	assert.Equal(t, 1500*time.Millisecond, d.D())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PRYVIT_DATA_DIR", t.TempDir())

	cfg, err := NewLoader(filepath.Join(t.TempDir(), "config.toml")).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Camera, cfg.Camera)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `
data_dir = "`+dir+`"

[camera]
device = 1
mirror = true

[interaction]
gesture_cooldown = "3s"
enforce_action_cooldown = true

[users]
Olena = ["faces/olena.jpg", "/abs/olena2.jpg"]

[[applications]]
keyword = "калькулятор"
name = "Калькулятор"
path = "/usr/bin/gnome-calculator"
`)

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Camera.Device)
	assert.True(t, cfg.Camera.Mirror)
	assert.Equal(t, 640, cfg.Camera.Width, "unset fields keep defaults")
	assert.Equal(t, 3*time.Second, cfg.CoordinatorConfig().GestureCooldown)
	assert.True(t, cfg.CoordinatorConfig().EnforceActionCooldown)

	require.Len(t, cfg.Applications, 1)
	assert.Equal(t, "Калькулятор", cfg.Applications[0].Name)

	images := cfg.UserImages()
	assert.Equal(t, []string{filepath.Join(dir, "faces/olena.jpg"), "/abs/olena2.jpg"}, images["Olena"])
}

func TestLoadYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	writeFile(t, yamlPath, "data_dir: "+dir+"\ncamera:\n  fps: 30\ninteraction:\n  wave_duration: 750ms\n")
	cfg, err := NewLoader(yamlPath).Load()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Camera.FPS)
	assert.Equal(t, 750*time.Millisecond, cfg.Interaction.WaveDuration.D())

	jsonPath := filepath.Join(dir, "config.json")
	writeFile(t, jsonPath, `{"data_dir": "`+dir+`", "log": {"level": "debug", "format": "json"}}`)
	cfg, err = NewLoader(jsonPath).Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[camera\nfps = ")

	_, err := NewLoader(path).Load()
	assert.ErrorContains(t, err, "decode TOML")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PRYVIT_LOG_LEVEL", "debug")
	t.Setenv("PRYVIT_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("PRYVIT_CAMERA_DEVICE", "2")
	t.Setenv("PRYVIT_VOICE", "uk-UA-OstapNeural")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, 2, cfg.Camera.Device)
	assert.Equal(t, "uk-UA-OstapNeural", cfg.Speech.Voice)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative device", func(c *Config) { c.Camera.Device = -1 }, "camera.device"},
		{"zero fps", func(c *Config) { c.Camera.FPS = 0 }, "camera.fps"},
		{"threshold out of range", func(c *Config) { c.Face.Threshold = 1.5 }, "face.threshold"},
		{"history shorter than samples", func(c *Config) { c.Gesture.HistorySize = 3 }, "gesture.history_size"},
		{"negative cooldown", func(c *Config) { c.Interaction.GestureCooldown = Duration(-time.Second) }, "interaction.gesture_cooldown"},
		{"bad url", func(c *Config) { c.Interaction.BrowserURL = "youtube" }, "interaction.browser_url"},
		{"voice without command", func(c *Config) { c.Voice.Enabled, c.Voice.Command = true, nil }, "voice.command"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"user without images", func(c *Config) { c.Users["Olena"] = nil }, "users.Olena"},
		{"duplicate keyword", func(c *Config) {
			c.Applications = []interaction.Application{
				{Keyword: "калькулятор", Path: "/a"},
				{Keyword: "калькулятор", Path: "/b"},
			}
		}, "applications[1].keyword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			fields := make([]string, 0, len(verrs))
			for _, v := range verrs {
				fields = append(fields, v.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestSaveAndLoadOrCreate(t *testing.T) {
	t.Setenv("PRYVIT_DATA_DIR", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	require.FileExists(t, path)

	cfg.Camera.Device = 3
	cfg.Interaction.ThumbsUpDuration = Duration(2500 * time.Millisecond)
	require.NoError(t, Save(cfg, path))

	again, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 3, again.Camera.Device)
	assert.Equal(t, 2500*time.Millisecond, again.Interaction.ThumbsUpDuration.D())
}

func TestLoaderWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "data_dir = \""+dir+"\"\n[camera]\ndevice = 0\n")

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)

	changed := make(chan *Config, 1)
	l.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	require.NoError(t, l.Watch())
	defer l.Close()

	writeFile(t, path, "data_dir = \""+dir+"\"\n[camera]\ndevice = 4\n")

	select {
	case c := <-changed:
		assert.Equal(t, 4, c.Camera.Device)
		assert.Equal(t, 4, l.Config().Camera.Device)
	case <-time.After(3 * time.Second):
		t.Fatal("config change not observed")
	}
}

func TestLoaderWatchRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "data_dir = \""+dir+"\"\n")

	l := NewLoader(path)
	_, err := l.Load()
	require.NoError(t, err)
	require.NoError(t, l.Watch())
	defer l.Close()

	writeFile(t, path, "data_dir = \""+dir+"\"\n[camera]\nfps = 0\n")

	select {
	case err := <-l.Errors():
		assert.ErrorContains(t, err, "camera.fps")
	case <-time.After(3 * time.Second):
		t.Fatal("expected reload error")
	}
	assert.Equal(t, 15, l.Config().Camera.FPS, "previous config kept")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
