// Package action triggers external side effects: opening a URL in the
// default browser and launching an application by path.
//
// Both return as soon as the process is started. Exit status is reaped in
// the background and only logged.
package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	plog "github.com/ayusman/pryvit/internal/log"
)

// DefaultOpenTimeout bounds how long a URL opener helper may run.
const DefaultOpenTimeout = 10 * time.Second

// ErrNoApplication is returned when an application path is empty or does
// not exist.
var ErrNoApplication = errors.New("application not found")

// Option configures an Executor.
type Option func(*Executor)

// WithOpener overrides the URL opener argv; the URL is appended.
func WithOpener(argv ...string) Option {
	return func(e *Executor) { e.opener = argv }
}

// WithOpenTimeout sets how long the URL opener may run before it is killed.
func WithOpenTimeout(d time.Duration) Option {
	return func(e *Executor) { e.openTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// Executor starts external processes.
type Executor struct {
	opener      []string
	openTimeout time.Duration
	log         zerolog.Logger

	wg sync.WaitGroup
}

// NewExecutor creates an Executor using the platform URL opener.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		opener:      DefaultOpener(runtime.GOOS),
		openTimeout: DefaultOpenTimeout,
		log:         plog.With("action"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultOpener returns the argv that opens a URL on goos.
func DefaultOpener(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler"}
	default:
		return []string{"xdg-open"}
	}
}

// OpenURL opens url in the default browser.
func (e *Executor) OpenURL(url string) error {
	if url == "" {
		return errors.New("empty url")
	}
	if len(e.opener) == 0 {
		return errors.New("no url opener configured")
	}

	argv := append(append([]string(nil), e.opener...), url)
	return e.start(argv, e.openTimeout)
}

// Launch starts the application at path. On macOS an .app bundle is started
// through open(1).
func (e *Executor) Launch(path string) error {
	if path == "" {
		return ErrNoApplication
	}
	if _, err := os.Stat(path); err != nil {
		if _, lookErr := exec.LookPath(path); lookErr != nil {
			return fmt.Errorf("%w: %s", ErrNoApplication, path)
		}
	}

	argv := []string{path}
	if runtime.GOOS == "darwin" && strings.HasSuffix(path, ".app") {
		argv = []string{"open", "-a", path}
	}
	// Launched applications live on past the launch; never time out
	return e.start(argv, 0)
}

// Wait blocks until every URL opener has exited. Openers are bounded by
// their timeout. Launched applications are never waited for.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// start runs argv in the background. A positive timeout kills the process
// when it runs too long and makes Wait track it.
func (e *Executor) start(argv []string, timeout time.Duration) error {
	ctx := context.Background()
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Children of a killed helper may keep stderr open
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start %s: %w", argv[0], err)
	}

	log := e.log.With().Strs("argv", argv).Logger()
	log.Debug().Int("pid", cmd.Process.Pid).Msg("started")

	tracked := timeout > 0
	if tracked {
		e.wg.Add(1)
	}
	go func() {
		if tracked {
			defer e.wg.Done()
		}
		defer cancel()

		err := cmd.Wait()
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			log.Warn().Dur("timeout", timeout).Msg("action timed out and was killed")
		case err != nil:
			ev := log.Warn().Err(err)
			if s := strings.TrimSpace(stderr.String()); s != "" {
				ev = ev.Str("stderr", s)
			}
			ev.Msg("action failed")
		}
	}()
	return nil
}
