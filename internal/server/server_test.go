package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/pryvit/internal/gesture"
	"github.com/ayusman/pryvit/internal/interaction"
	"github.com/ayusman/pryvit/internal/store"
)

type fakeState struct {
	mu   sync.Mutex
	snap interaction.Snapshot
}

func (f *fakeState) Snapshot() interaction.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeState) set(s interaction.Snapshot) {
	f.mu.Lock()
	f.snap = s
	f.mu.Unlock()
}

type fakeCommands struct {
	texts []string
}

func (f *fakeCommands) HandleCommand(now time.Time, text string) interaction.Response {
	f.texts = append(f.texts, text)
	if text == "хто я" {
		return interaction.Response{Kind: interaction.CommandIdentity, Identity: "Olena", Reply: "Ви — Olena."}
	}
	return interaction.Response{Kind: interaction.CommandUnknown}
}

type fakeUsers struct {
	users []*store.User
	err   error
}

func (f fakeUsers) List() ([]*store.User, error) { return f.users, f.err }

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var response map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "ok", response["status"])
		assert.Contains(t, response, "uptime")
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(method, "/api/health", nil))
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/nonexistent", "/api/state", "/api/stream", "/"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestServer_State(t *testing.T) {
	state := &fakeState{snap: interaction.Snapshot{
		ActiveIdentity: "Olena",
		LastGesture:    gesture.Wave,
		Greeted:        []string{"Olena"},
	}}
	s := New(Config{State: state})
	defer s.events.Close()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got interaction.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "Olena", got.ActiveIdentity)
	assert.Equal(t, gesture.Wave, got.LastGesture)
	assert.Equal(t, []string{"Olena"}, got.Greeted)
}

func TestServer_Command(t *testing.T) {
	commands := &fakeCommands{}
	s := New(Config{Commands: commands})

	tests := []struct {
		name   string
		body   string
		status int
		kind   interaction.CommandKind
	}{
		{"identity", `{"text": "хто я"}`, http.StatusOK, interaction.CommandIdentity},
		{"unknown", `{"text": "котра година"}`, http.StatusUnprocessableEntity, interaction.CommandUnknown},
		{"empty", `{"text": "  "}`, http.StatusBadRequest, ""},
		{"malformed", `{"text":`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(tt.body)))
			require.Equal(t, tt.status, rec.Code)

			if tt.kind != "" {
				var resp interaction.Response
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tt.kind, resp.Kind)
			}
		})
	}
	assert.Equal(t, []string{"хто я", "котра година"}, commands.texts)
}

func TestServer_Users(t *testing.T) {
	t.Run("lists users", func(t *testing.T) {
		s := New(Config{Users: fakeUsers{users: []*store.User{{ID: "1", Name: "Olena"}}}})
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Users []store.User `json:"users"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Len(t, body.Users, 1)
		assert.Equal(t, "Olena", body.Users[0].Name)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		s := New(Config{Users: fakeUsers{}})
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
		assert.JSONEq(t, `{"users": []}`, rec.Body.String())
	})

	t.Run("store error", func(t *testing.T) {
		s := New(Config{Users: fakeUsers{err: errors.New("disk gone")}})
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	content := "<html><body>pryvit</body></html>"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(content), 0o644))

	s := New(Config{StaticDir: dir})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.String())

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.css", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFrameBuffer(t *testing.T) {
	b := NewFrameBuffer()
	jpeg, seq := b.Latest()
	assert.Nil(t, jpeg)
	assert.Zero(t, seq)

	b.Set([]byte{0xff, 0xd8})
	jpeg, seq = b.Latest()
	assert.Equal(t, []byte{0xff, 0xd8}, jpeg)
	assert.Equal(t, uint64(1), seq)
}

func TestStreamHandler(t *testing.T) {
	frames := NewFrameBuffer()
	frames.Set([]byte("JPEGDATA"))

	ts := httptest.NewServer(New(Config{Frames: frames}))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	buf := make([]byte, 256)
	var got strings.Builder
	for !strings.Contains(got.String(), "JPEGDATA") {
		n, err := resp.Body.Read(buf)
		require.NoError(t, err)
		got.Write(buf[:n])
	}
	assert.Contains(t, got.String(), "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: 8\r\n")
}

func TestEvents(t *testing.T) {
	state := &fakeState{}
	srv := New(Config{State: state, EventInterval: 10 * time.Millisecond})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	defer srv.events.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first interaction.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Empty(t, first.ActiveIdentity)

	state.set(interaction.Snapshot{ActiveIdentity: "Olena", LastGesture: gesture.ThumbsUp})

	for {
		var snap interaction.Snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		if snap.ActiveIdentity == "Olena" {
			assert.Equal(t, gesture.ThumbsUp, snap.LastGesture)
			break
		}
	}
	assert.Equal(t, 1, srv.events.Clients())
}
