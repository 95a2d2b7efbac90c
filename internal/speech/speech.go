// Package speech turns text into spoken audio without blocking the caller.
//
// Each Speak call becomes an independent unit of work: the text is
// synthesized into a temporary audio file, played back to completion, and
// the file is removed. Failures are logged and never reach the caller.
// Units are not queued, so overlapping speech is possible.
//
// Example usage:
//
//	d := speech.NewDispatcher(
//	    speech.CommandSynthesizer{Voice: "uk-UA-PolinaNeural"},
//	    speech.CommandPlayer{},
//	)
//	d.Speak("Привіт!")
package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	plog "github.com/ayusman/pryvit/internal/log"
)

// DefaultGrace is how long a finished unit waits before deleting its audio
// file, so the player process has released it.
const DefaultGrace = 200 * time.Millisecond

// Synthesizer renders text into an audio file at path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, path string) error
}

// Player starts playback of an audio file.
type Player interface {
	Play(ctx context.Context, path string) (Playback, error)
}

// Playback is an in-progress playback.
type Playback interface {
	// Done receives the playback result once, when playback finishes.
	Done() <-chan error

	// Release frees the playback handle. It is safe to call after Done.
	Release()
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTempDir sets the directory for temporary audio files.
func WithTempDir(dir string) Option {
	return func(d *Dispatcher) { d.dir = dir }
}

// WithGrace sets the delay between playback end and file deletion.
func WithGrace(grace time.Duration) Option {
	return func(d *Dispatcher) { d.grace = grace }
}

// WithExtension sets the audio file extension, including the dot.
func WithExtension(ext string) Option {
	return func(d *Dispatcher) { d.ext = ext }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// Dispatcher runs speech units in the background.
type Dispatcher struct {
	synth  Synthesizer
	player Player
	dir    string
	ext    string
	grace  time.Duration
	now    func() time.Time
	log    zerolog.Logger

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(synth Synthesizer, player Player, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		synth:  synth,
		player: player,
		dir:    os.TempDir(),
		ext:    ".mp3",
		grace:  DefaultGrace,
		now:    time.Now,
		log:    plog.With("speech"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Speak starts speaking text and returns immediately.
func (d *Dispatcher) Speak(text string) {
	if text == "" {
		return
	}

	at := d.now()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(text, at)
	}()
}

// Wait blocks until every started unit has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Flush waits up to timeout for the units in flight. It reports whether
// they all finished.
func (d *Dispatcher) Flush(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (d *Dispatcher) run(text string, at time.Time) {
	path := d.artifactPath(at)
	log := d.log.With().Str("file", filepath.Base(path)).Logger()

	defer d.remove(path, log)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("text", text).Msg("speech unit panicked")
		}
	}()

	if err := d.speak(text, path); err != nil {
		log.Warn().Err(err).Str("text", text).Msg("speech failed")
		return
	}
	log.Debug().Str("text", text).Dur("took", time.Since(at)).Msg("spoken")
}

func (d *Dispatcher) speak(text, path string) error {
	ctx := context.Background()

	if err := d.synth.Synthesize(ctx, text, path); err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	pb, err := d.player.Play(ctx, path)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	defer pb.Release()

	if err := <-pb.Done(); err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	return nil
}

func (d *Dispatcher) remove(path string, log zerolog.Logger) {
	if d.grace > 0 {
		time.Sleep(d.grace)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("remove speech file")
	}
}

// artifactPath names the unit's file by submission time plus a random
// suffix, so concurrent units never collide.
func (d *Dispatcher) artifactPath(at time.Time) string {
	name := fmt.Sprintf("pryvit-speech-%d-%s%s", at.UnixNano(), uuid.NewString()[:8], d.ext)
	return filepath.Join(d.dir, name)
}
