// Package sidecar talks to long-lived helper processes (MediaPipe hands,
// face embedding) over stdin/stdout.
//
// Framing: each request is a 4-byte big-endian length followed by the
// payload; each response is a single JSON line.
package sidecar

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	plog "github.com/ayusman/pryvit/internal/log"
)

// DefaultIdleTimeout is how long a process may sit unused before it is shut down.
const DefaultIdleTimeout = 30 * time.Second

// ErrScriptNotFound is returned when the helper script cannot be located.
var ErrScriptNotFound = errors.New("sidecar script not found")

// Options configures a sidecar process.
type Options struct {
	// Command is the full argv to run. When empty, the process is started as
	// <python> <Script> <Args...> with Script located by FindScript.
	Command []string

	// Script is the helper script file name, e.g. "mediapipe_service.py".
	Script string

	// Args are extra arguments passed after the script.
	Args []string

	// IdleTimeout shuts the process down after this long without calls.
	// Zero uses DefaultIdleTimeout, negative disables idle shutdown.
	IdleTimeout time.Duration
}

// Process is a lazily started helper process. Calls are serialized.
type Process struct {
	argv        []string
	idleTimeout time.Duration
	log         zerolog.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	started   bool
	idleTimer *time.Timer
	idleGen   uint64
}

// New resolves the command line for the helper. The process itself is
// started on the first call.
func New(opts Options) (*Process, error) {
	argv := opts.Command
	if len(argv) == 0 {
		script := opts.Script
		if !filepath.IsAbs(script) {
			script = FindScript(opts.Script)
		}
		if script == "" {
			return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, opts.Script)
		}
		if _, err := os.Stat(script); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, script)
		}

		python := findVenvPython()
		if python == "" {
			python = "python3"
		}
		argv = append([]string{python, script}, opts.Args...)
	}

	idle := opts.IdleTimeout
	if idle == 0 {
		idle = DefaultIdleTimeout
	}

	return &Process{
		argv:        argv,
		idleTimeout: idle,
		log:         plog.With("sidecar").With().Str("cmd", filepath.Base(argv[0])).Logger(),
	}, nil
}

// Call sends one framed payload and returns the raw response line.
func (p *Process) Call(payload []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureStarted(); err != nil {
		return nil, err
	}

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(payload)))

	if _, err := p.stdin.Write(length); err != nil {
		p.shutdown()
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := p.stdin.Write(payload); err != nil {
		p.shutdown()
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := p.stdout.ReadBytes('\n')
	if err != nil {
		p.shutdown()
		return nil, fmt.Errorf("read response: %w", err)
	}

	p.resetIdleTimer()
	return line, nil
}

// CallJSON sends payload and decodes the JSON response into v.
func (p *Process) CallJSON(payload []byte, v any) error {
	line, err := p.Call(payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// CallFrame encodes frame as JPEG and sends it.
func (p *Process) CallFrame(frame *gocv.Mat, v any) error {
	if frame == nil || frame.Empty() {
		return errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return p.CallJSON(buf.GetBytes(), v)
}

// Close shuts down the helper process.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown()
}

func (p *Process) ensureStarted() error {
	if p.started {
		return nil
	}

	cmd := exec.Command(p.argv[0], p.argv[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Helper diagnostics go straight to our stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start sidecar: %w", err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.stdout = bufio.NewReader(stdout)
	p.started = true

	p.log.Debug().Int("pid", cmd.Process.Pid).Msg("sidecar started")
	return nil
}

func (p *Process) shutdown() error {
	if !p.started {
		return nil
	}

	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}
	p.idleGen++

	if p.stdin != nil {
		p.stdin.Close()
	}

	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	err := p.cmd.Wait()

	p.started = false
	p.cmd = nil
	p.stdin = nil
	p.stdout = nil

	p.log.Debug().Msg("sidecar stopped")

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Killed on purpose
		return nil
	}
	return err
}

func (p *Process) resetIdleTimer() {
	if p.idleTimeout < 0 {
		return
	}
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	p.idleGen++
	gen := p.idleGen
	p.idleTimer = time.AfterFunc(p.idleTimeout, func() { p.idleExpired(gen) })
}

// idleExpired shuts the process down unless a call or shutdown since timer
// gen was armed has superseded it. Stop cannot recall a callback that is
// already waiting on the lock.
func (p *Process) idleExpired(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.idleGen {
		return
	}
	p.log.Debug().Dur("idle", p.idleTimeout).Msg("sidecar idle")
	p.shutdown()
}

// FindScript looks for a helper script in the usual locations:
// scripts/, ../scripts/, next to the executable and ~/.pryvit/scripts.
func FindScript(name string) string {
	if name == "" {
		return ""
	}

	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", name),
		filepath.Join("..", "scripts", name),
		filepath.Join(execDir, "scripts", name),
		filepath.Join(os.Getenv("HOME"), ".pryvit", "scripts", name),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".pryvit/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
