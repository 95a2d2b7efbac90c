package e2e

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/pryvit/internal/action"
	"github.com/ayusman/pryvit/internal/app"
	"github.com/ayusman/pryvit/internal/capture"
	"github.com/ayusman/pryvit/internal/config"
	"github.com/ayusman/pryvit/internal/detector"
	"github.com/ayusman/pryvit/internal/face"
	"github.com/ayusman/pryvit/internal/gesture"
	"github.com/ayusman/pryvit/internal/interaction"
	"github.com/ayusman/pryvit/internal/server"
	"github.com/ayusman/pryvit/internal/store"
)

type recordingSpeaker struct {
	mu    sync.Mutex
	texts []string
}

func (s *recordingSpeaker) Speak(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func (s *recordingSpeaker) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()

	img := gocv.NewMatWithSize(120, 120, gocv.MatTypeCV8UC3)
	defer img.Close()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "faces"), 0o755))
	require.True(t, gocv.IMWrite(filepath.Join(dir, "faces", "olena.jpg"), img))

	path := filepath.Join(dir, "config.toml")
	content := `data_dir = "` + dir + `"

[users]
Olena = ["faces/olena.jpg"]

[[applications]]
keyword = "термінал"
name = "Термінал"
path = "/bin/sh"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestE2E_EnrollRecognizeAndCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX helper programs")
	}

	dir := t.TempDir()
	cfg, err := config.NewLoader(writeConfig(t, dir)).Load()
	require.NoError(t, err)

	st, err := store.New(cfg.DatabasePath())
	require.NoError(t, err)
	defer st.Close()

	olena := []float32{0.6, 0.8, 0}
	embedder := face.NewMockEmbedder()
	embedder.SetFaces([]face.Detected{{BBox: image.Rect(250, 50, 350, 150), Embedding: olena}})

	t.Run("Enroll", func(t *testing.T) {
		res, err := face.NewEnroller(embedder, st).Enroll(cfg.UserImages())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Added)

		// Second run finds the stored embedding
		res, err = face.NewEnroller(embedder, st).Enroll(cfg.UserImages())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Skipped)
	})

	recognizer := face.NewRecognizer(cfg.Face.Threshold)
	n, err := face.Seed(recognizer, st)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	speaker := &recordingSpeaker{}
	actions := action.NewExecutor(action.WithOpener("true"))
	defer actions.Wait()

	vocab := interaction.DefaultVocabulary()
	coord := interaction.NewCoordinator(cfg.CoordinatorConfig(), speaker, actions,
		interaction.WithCatalog(interaction.NewStaticCatalog(vocab, cfg.Applications)),
		interaction.WithExit(func(int) { t.Error("unexpected exit") }),
	)

	hand := detector.OpenPalmHand()
	hand.BBox = hand.BoundingBox(640, 480)
	det := detector.NewMockDetector()
	det.SetHands([]detector.Hand{hand})

	cam := capture.NewBlankCamera(640, 480)
	cam.SetFPS(100)
	defer cam.CloseFrames()

	frames := server.NewFrameBuffer()
	application, err := app.New(app.Config{
		Camera:      cam,
		Detector:    det,
		Faces:       face.NewResolver(embedder, recognizer),
		Classifier:  gesture.NewClassifier(cfg.GestureParams()),
		Coordinator: coord,
		Frames:      frames,
	})
	require.NoError(t, err)
	defer application.Close()

	ts := httptest.NewServer(server.New(server.Config{
		State:    coord,
		Commands: coord,
		Users:    st.Users(),
		Frames:   frames,
	}))
	defer ts.Close()
	client := ts.Client()

	t.Run("FrameLoopGreets", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- application.Run(ctx) }()

		require.Eventually(t, func() bool {
			return len(coord.Snapshot().Greeted) == 1
		}, 5*time.Second, 10*time.Millisecond)
		cancel()
		require.NoError(t, <-done)

		assert.Contains(t, speaker.Texts(), "Привіт, Olena. Рада тебе бачити")
		_, seq := frames.Latest()
		assert.NotZero(t, seq)
	})

	t.Run("StateEndpoint", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/state")
		require.NoError(t, err)
		defer resp.Body.Close()

		var snap interaction.Snapshot
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
		assert.Equal(t, []string{"Olena"}, snap.Greeted)
		assert.Equal(t, "Olena", snap.LastSeen)
	})

	t.Run("UsersEndpoint", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/users")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body struct {
			Users []store.User `json:"users"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Users, 1)
		assert.Equal(t, "Olena", body.Users[0].Name)
	})

	t.Run("IdentityCommand", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/command", "application/json",
			strings.NewReader(`{"text": "Хто я?"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var r interaction.Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
		assert.Equal(t, interaction.CommandIdentity, r.Kind)
		assert.Equal(t, "Olena", r.Identity)
		assert.Equal(t, "Ви — Olena. Я впізнала вас за жестом.", r.Reply)
	})

	t.Run("LaunchCommand", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/command", "application/json",
			strings.NewReader(`{"text": "відкрий термінал"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var r interaction.Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
		assert.Equal(t, interaction.CommandLaunch, r.Kind)
		assert.Equal(t, "Відкриваю Термінал", r.Reply)
	})

	t.Run("HealthStillWorks", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
