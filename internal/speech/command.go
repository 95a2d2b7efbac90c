package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Default helper programs.
const (
	DefaultSynthCommand  = "edge-tts"
	DefaultVoice         = "uk-UA-PolinaNeural"
	DefaultPlayerCommand = "ffplay"
)

// CommandSynthesizer runs an edge-tts compatible program:
//
//	<command> --voice <voice> --text <text> --write-media <path>
type CommandSynthesizer struct {
	Command string
	Voice   string
}

// Synthesize runs the program and waits for it to exit.
func (s CommandSynthesizer) Synthesize(ctx context.Context, text, path string) error {
	name := s.Command
	if name == "" {
		name = DefaultSynthCommand
	}
	voice := s.Voice
	if voice == "" {
		voice = DefaultVoice
	}

	cmd := exec.CommandContext(ctx, name, "--voice", voice, "--text", text, "--write-media", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// CommandPlayer plays a file with an external program, by default
// ffplay without a window.
type CommandPlayer struct {
	Command string
	Args    []string
}

// Play starts the player program. The playback completes when it exits.
func (p CommandPlayer) Play(ctx context.Context, path string) (Playback, error) {
	name := p.Command
	args := p.Args
	if name == "" {
		name = DefaultPlayerCommand
		if args == nil {
			args = []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}
		}
	}

	cmd := exec.CommandContext(ctx, name, append(append([]string(nil), args...), path)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	pb := &processPlayback{cmd: cmd, done: make(chan error, 1), exited: make(chan struct{})}
	go pb.wait()
	return pb, nil
}

type processPlayback struct {
	cmd    *exec.Cmd
	done   chan error
	exited chan struct{}
	once   sync.Once
}

func (p *processPlayback) wait() {
	p.done <- p.cmd.Wait()
	close(p.exited)
}

func (p *processPlayback) Done() <-chan error {
	return p.done
}

// Release stops the player if it is still running and waits for it.
func (p *processPlayback) Release() {
	p.once.Do(func() {
		select {
		case <-p.exited:
			return
		default:
		}
		if p.cmd.Process != nil {
			p.cmd.Process.Kill()
		}
		<-p.exited
	})
}
