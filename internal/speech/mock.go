package speech

import (
	"context"
	"os"
	"sync"
)

// MockSynthesizer implements Synthesizer for testing.
// If SynthesizeFunc is nil, it writes a small placeholder file.
type MockSynthesizer struct {
	SynthesizeFunc func(ctx context.Context, text, path string) error

	mu    sync.Mutex
	texts []string
	paths []string
}

// Synthesize records the call and runs SynthesizeFunc.
func (m *MockSynthesizer) Synthesize(ctx context.Context, text, path string) error {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.paths = append(m.paths, path)
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text, path)
	}
	return os.WriteFile(path, []byte("ID3"), 0644)
}

// Texts returns the synthesized texts in call order.
func (m *MockSynthesizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Paths returns the artifact paths in call order.
func (m *MockSynthesizer) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

// MockPlayer implements Player for testing. Playback finishes immediately
// with PlayErr unless PlayFunc overrides it.
type MockPlayer struct {
	PlayFunc func(ctx context.Context, path string) (Playback, error)
	PlayErr  error

	mu       sync.Mutex
	played   []string
	released int
}

// Play records the call.
func (m *MockPlayer) Play(ctx context.Context, path string) (Playback, error) {
	m.mu.Lock()
	m.played = append(m.played, path)
	m.mu.Unlock()

	if m.PlayFunc != nil {
		return m.PlayFunc(ctx, path)
	}
	return NewFinishedPlayback(m.PlayErr, func() {
		m.mu.Lock()
		m.released++
		m.mu.Unlock()
	}), nil
}

// Played returns the played paths in call order.
func (m *MockPlayer) Played() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.played...)
}

// Released returns how many playbacks were released.
func (m *MockPlayer) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// NewFinishedPlayback returns a Playback that has already completed with
// err. onRelease may be nil.
func NewFinishedPlayback(err error, onRelease func()) Playback {
	done := make(chan error, 1)
	done <- err
	return &finishedPlayback{done: done, onRelease: onRelease}
}

type finishedPlayback struct {
	done      chan error
	onRelease func()
	once      sync.Once
}

func (p *finishedPlayback) Done() <-chan error {
	return p.done
}

func (p *finishedPlayback) Release() {
	p.once.Do(func() {
		if p.onRelease != nil {
			p.onRelease()
		}
	})
}

// Verify mocks implement their interfaces at compile time.
var (
	_ Synthesizer = (*MockSynthesizer)(nil)
	_ Player      = (*MockPlayer)(nil)
)
