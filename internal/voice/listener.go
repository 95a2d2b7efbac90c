// Package voice runs the background listening task. A speech-to-text
// helper prints one recognized utterance per line; the Listener turns each
// line into a Command and pushes it onto a channel.
package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	plog "github.com/ayusman/pryvit/internal/log"
)

// DefaultRestartDelay is the pause before restarting a source that ended.
const DefaultRestartDelay = 2 * time.Second

// Command is one recognized utterance. It carries no frame association.
type Command struct {
	Text string
	At   time.Time
}

// Source opens a stream of recognized utterances, one per line.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (io.ReadCloser, error)

// Open calls f.
func (f SourceFunc) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

// Listener reads utterances from a Source until its context is done.
type Listener struct {
	source       Source
	restartDelay time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// NewListener creates a Listener. restartDelay <= 0 uses DefaultRestartDelay.
func NewListener(source Source, restartDelay time.Duration) *Listener {
	if restartDelay <= 0 {
		restartDelay = DefaultRestartDelay
	}
	return &Listener{
		source:       source,
		restartDelay: restartDelay,
		now:          time.Now,
		log:          plog.With("voice"),
	}
}

// Run reads commands into out until ctx is cancelled. When the source ends
// or fails, it is reopened after the restart delay. Run closes out on return.
func (l *Listener) Run(ctx context.Context, out chan<- Command) {
	defer close(out)

	for {
		err := l.listenOnce(ctx, out)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			l.log.Warn().Err(err).Msg("speech source failed")
		} else {
			l.log.Debug().Msg("speech source ended")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.restartDelay):
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context, out chan<- Command) error {
	rc, err := l.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer rc.Close()

	// Unblock the scanner when the context ends
	stop := context.AfterFunc(ctx, func() { rc.Close() })
	defer stop()

	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		l.log.Info().Str("text", text).Msg("heard")

		select {
		case out <- Command{Text: text, At: l.now()}:
		case <-ctx.Done():
			return nil
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("read source: %w", err)
	}
	return nil
}

// ErrHelperNotFound is returned by Check when the speech-to-text helper or
// its script is missing.
var ErrHelperNotFound = errors.New("speech-to-text helper not found")

// CommandSource runs a speech-to-text helper and reads its stdout.
type CommandSource struct {
	Argv []string
}

// Check verifies that the helper executable resolves and that any script
// argument exists.
func (s CommandSource) Check() error {
	if len(s.Argv) == 0 {
		return fmt.Errorf("%w: no command configured", ErrHelperNotFound)
	}
	if _, err := exec.LookPath(s.Argv[0]); err != nil {
		return fmt.Errorf("%w: %s", ErrHelperNotFound, s.Argv[0])
	}
	for _, arg := range s.Argv[1:] {
		if filepath.Ext(arg) != ".py" {
			continue
		}
		if _, err := os.Stat(arg); err != nil {
			return fmt.Errorf("%w: %s", ErrHelperNotFound, arg)
		}
	}
	return nil
}

// Open starts the helper process. Closing the returned reader stops it.
func (s CommandSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if len(s.Argv) == 0 {
		return nil, errors.New("no speech-to-text command configured")
	}

	cmd := exec.CommandContext(ctx, s.Argv[0], s.Argv[1:]...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start speech-to-text: %w", err)
	}

	return &processReader{ReadCloser: stdout, cmd: cmd}, nil
}

type processReader struct {
	io.ReadCloser
	cmd  *exec.Cmd
	once sync.Once
}

func (r *processReader) Close() error {
	r.once.Do(func() {
		if r.cmd.Process != nil {
			r.cmd.Process.Kill()
		}
		// The pipe is closed by Wait
		r.cmd.Wait()
	})
	return nil
}
