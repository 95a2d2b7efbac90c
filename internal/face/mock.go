package face

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockEmbedder is a mock Embedder for testing.
type MockEmbedder struct {
	mu     sync.Mutex
	faces  []Detected
	err    error
	calls  int
	closed bool
}

// NewMockEmbedder creates a new mock embedder.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// SetFaces configures the faces returned by Embed.
func (m *MockEmbedder) SetFaces(faces []Detected) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetError configures an error returned by Embed.
func (m *MockEmbedder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Embed returns the configured faces.
func (m *MockEmbedder) Embed(frame *gocv.Mat) ([]Detected, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]Detected(nil), m.faces...), nil
}

// Calls returns how many times Embed was called.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the embedder closed.
func (m *MockEmbedder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Verify MockEmbedder implements Embedder at compile time.
var _ Embedder = (*MockEmbedder)(nil)
