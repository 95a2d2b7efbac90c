// Package interaction is the event coordinator: it decides who is active,
// enforces cooldowns, drives the on-screen message and dispatches speech
// and external actions.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/pryvit/internal/gesture"
	plog "github.com/ayusman/pryvit/internal/log"
	"github.com/ayusman/pryvit/internal/voice"
)

// Speaker says text without blocking the caller.
type Speaker interface {
	Speak(text string)
}

// Flusher is a Speaker that can wait for speech in flight. It reports
// whether everything finished within timeout.
type Flusher interface {
	Flush(timeout time.Duration) bool
}

// Actions triggers external side effects. Both calls return as soon as the
// action is launched; an error means it could not be launched at all.
type Actions interface {
	OpenURL(url string) error
	Launch(path string) error
}

// Config tunes the coordinator.
type Config struct {
	GestureCooldown  time.Duration
	ActionCooldown   time.Duration
	GreetingDuration time.Duration
	WaveDuration     time.Duration
	ThumbsUpDuration time.Duration
	VictoryDuration  time.Duration
	Padding          Padding
	BrowserURL       string

	// EnforceActionCooldown also gates voice application launches on the
	// action channel. The wave browser action is only gated by the gesture
	// channel either way.
	EnforceActionCooldown bool

	// FarewellWait bounds how long the exit command waits for the farewell
	// to be spoken. Zero exits without waiting.
	FarewellWait time.Duration
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		GestureCooldown:  DefaultGestureCooldown,
		ActionCooldown:   DefaultActionCooldown,
		GreetingDuration: 4 * time.Second,
		WaveDuration:     2 * time.Second,
		ThumbsUpDuration: 1500 * time.Millisecond,
		VictoryDuration:  2 * time.Second,
		Padding:          Padding{X: DefaultPaddingX, Y: DefaultPaddingY},
		BrowserURL:       "https://www.youtube.com",
		FarewellWait:     3 * time.Second,
	}
}

// Phrases are the texts shown and spoken. Entries containing %s receive
// the identity or application name.
type Phrases struct {
	Greeting           string
	GreetingSpeech     string
	WaveMessage        string
	WaveSpeech         string
	ThumbsUpMessage    string
	ThumbsUpSpeech     string
	VictoryMessage     string
	VictorySpeech      string
	BrowserFailed      string
	WhoAmI             string
	GestureFirst       string
	LaunchNeedsGesture string
	Launching          string
	LaunchFailed       string
	UnknownApp         string
	ActionCooldown     string
	Farewell           string
}

// DefaultPhrases returns the Ukrainian phrases.
func DefaultPhrases() Phrases {
	return Phrases{
		Greeting:           "Привіт, %s!",
		GreetingSpeech:     "Привіт, %s. Рада тебе бачити",
		WaveMessage:        "Відкриваю YouTube...",
		WaveSpeech:         "Відкриваю ютуб",
		ThumbsUpMessage:    "Круто!",
		ThumbsUpSpeech:     "Це просто круто",
		VictoryMessage:     "Перемога!",
		VictorySpeech:      "Все буде Україна",
		BrowserFailed:      "Вибач, не вдалося відкрити браузер",
		WhoAmI:             "Ви — %s. Я впізнала вас за жестом.",
		GestureFirst:       "Я не впевнена. Будь ласка, покажіть жест, щоб я зрозуміла, хто запитує.",
		LaunchNeedsGesture: "Будь ласка, авторизуйтесь жестом для доступу до додатку.",
		Launching:          "Відкриваю %s",
		LaunchFailed:       "Я не можу знайти %s на цьому комп'ютері",
		UnknownApp:         "Я не знаю такого додатку",
		ActionCooldown:     "Зачекайте трохи",
		Farewell:           "Бувайте!",
	}
}

// Snapshot is a consistent view of the interaction state.
type Snapshot struct {
	ActiveIdentity string        `json:"active_identity,omitempty"`
	LastActiveTime time.Time     `json:"last_active_time"`
	LastSeen       string        `json:"last_seen,omitempty"`
	LastGesture    gesture.Label `json:"last_gesture,omitempty"`
	LastGestureAt  time.Time     `json:"last_gesture_at"`
	LastActionAt   time.Time     `json:"last_action_at"`
	Greeted        []string      `json:"greeted"`
	Message        Message       `json:"message"`
}

// FrameResult reports what one frame update did.
type FrameResult struct {
	Greeted []string
	Fired   []Pair
	Cleared bool
	Message Message
}

// Response is the outcome of a voice command.
type Response struct {
	Kind     CommandKind `json:"kind"`
	Identity string      `json:"identity,omitempty"`
	Reply    string      `json:"reply,omitempty"`
}

// ErrUnknownCommand is reported for utterances matching no command.
var ErrUnknownCommand = errors.New("unknown command")

// Err returns ErrUnknownCommand when the utterance was not understood.
func (r Response) Err() error {
	if r.Kind == CommandUnknown {
		return ErrUnknownCommand
	}
	return nil
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPhrases overrides the default phrases.
func WithPhrases(p Phrases) Option {
	return func(c *Coordinator) { c.phrases = p }
}

// WithVocabulary overrides the default command vocabulary.
func WithVocabulary(v Vocabulary) Option {
	return func(c *Coordinator) { c.vocab = v }
}

// WithCatalog sets the application catalog for launch commands.
func WithCatalog(cat Catalog) Option {
	return func(c *Coordinator) { c.catalog = cat }
}

// WithExit replaces the process exit used by the exit command.
func WithExit(exit func(code int)) Option {
	return func(c *Coordinator) { c.exit = exit }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// Coordinator owns the shared interaction state. HandleFrame is called by
// the frame loop, HandleCommand by the voice consumer; both take the same
// lock. Effects (speech, actions) run after the lock is released.
type Coordinator struct {
	cfg     Config
	phrases Phrases
	vocab   Vocabulary
	speaker Speaker
	actions Actions
	exit    func(code int)
	log     zerolog.Logger
	display *Display

	mu             sync.Mutex
	catalog        Catalog
	ledger         *Ledger
	activeIdentity string
	lastActiveTime time.Time
	lastSeen       string
	lastGesture    gesture.Label
}

// NewCoordinator creates a Coordinator with fresh state.
func NewCoordinator(cfg Config, speaker Speaker, actions Actions, opts ...Option) *Coordinator {
	def := DefaultConfig()
	if cfg.GreetingDuration <= 0 {
		cfg.GreetingDuration = def.GreetingDuration
	}
	if cfg.WaveDuration <= 0 {
		cfg.WaveDuration = def.WaveDuration
	}
	if cfg.ThumbsUpDuration <= 0 {
		cfg.ThumbsUpDuration = def.ThumbsUpDuration
	}
	if cfg.VictoryDuration <= 0 {
		cfg.VictoryDuration = def.VictoryDuration
	}
	if cfg.BrowserURL == "" {
		cfg.BrowserURL = def.BrowserURL
	}

	c := &Coordinator{
		cfg:     cfg,
		phrases: DefaultPhrases(),
		vocab:   DefaultVocabulary(),
		speaker: speaker,
		actions: actions,
		exit:    os.Exit,
		log:     plog.With("coordinator"),
		display: &Display{},
		ledger:  NewLedger(cfg.GestureCooldown, cfg.ActionCooldown),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.catalog == nil {
		c.catalog = NewStaticCatalog(c.vocab, nil)
	}
	return c
}

// Display returns the message display read by the render collaborator.
func (c *Coordinator) Display() *Display {
	return c.display
}

// Padding returns the hand-to-face attribution padding.
func (c *Coordinator) Padding() Padding {
	return c.cfg.Padding
}

// SetCatalog swaps the application catalog.
func (c *Coordinator) SetCatalog(cat Catalog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalog = cat
}

// HandleFrame applies one frame's faces and hand detections at now.
func (c *Coordinator) HandleFrame(now time.Time, faces []Face, hands []gesture.Detection) FrameResult {
	return c.HandlePairs(now, faces, Attribute(faces, hands, c.cfg.Padding))
}

// HandlePairs applies one frame whose gestures are already attributed.
func (c *Coordinator) HandlePairs(now time.Time, faces []Face, pairs []Pair) FrameResult {
	var (
		result  FrameResult
		effects []func()
	)

	c.mu.Lock()

	// 1. Identity arrival
	for _, f := range faces {
		if !f.Known() {
			continue
		}
		c.lastSeen = f.Identity
		if !c.ledger.Greet(f.Identity) {
			continue
		}

		c.display.Set(c.phrase(c.phrases.Greeting, f.Identity), ColorGreen, now.Add(c.cfg.GreetingDuration))
		effects = append(effects, c.say(c.phrase(c.phrases.GreetingSpeech, f.Identity)))
		result.Greeted = append(result.Greeted, f.Identity)

		c.log.Info().Str("identity", f.Identity).Msg("greeted")
	}

	// 2. Gesture arrival
	for _, p := range pairs {
		if !c.ledger.Allow(ChannelGesture, now) {
			continue
		}
		c.ledger.Record(ChannelGesture, now)
		c.activeIdentity = p.Identity
		c.lastActiveTime = now
		c.lastGesture = p.Gesture

		// Gesture feedback never interrupts a visible message
		if !c.display.Current().Expired(now) {
			c.log.Debug().Str("identity", p.Identity).Str("gesture", p.Gesture.String()).Msg("gesture suppressed by visible message")
			continue
		}

		effects = append(effects, c.actOnGesture(now, p)...)
		result.Fired = append(result.Fired, p)

		c.log.Info().Str("identity", p.Identity).Str("gesture", p.Gesture.String()).Msg("gesture")
	}

	// 3. Message expiry
	if len(result.Fired) == 0 {
		msg := c.display.Current()
		if !msg.Empty() && msg.Expired(now) {
			c.display.Clear()
			result.Cleared = true
		}
	}

	result.Message = c.display.Current()
	c.mu.Unlock()

	for _, fx := range effects {
		fx()
	}
	return result
}

// actOnGesture sets the message for a fired gesture and returns its
// effects. Must hold c.mu.
func (c *Coordinator) actOnGesture(now time.Time, p Pair) []func() {
	switch p.Gesture {
	case gesture.Wave:
		c.ledger.Record(ChannelAction, now)
		c.display.Set(c.phrase(c.phrases.WaveMessage, p.Identity), ColorCyan, now.Add(c.cfg.WaveDuration))
		url := c.cfg.BrowserURL
		return []func(){
			c.say(c.phrase(c.phrases.WaveSpeech, p.Identity)),
			func() {
				if err := c.actions.OpenURL(url); err != nil {
					c.log.Warn().Err(err).Str("url", url).Msg("open browser failed")
					c.speak(c.phrases.BrowserFailed)
				}
			},
		}

	case gesture.ThumbsUp:
		c.display.Set(c.phrase(c.phrases.ThumbsUpMessage, p.Identity), ColorGreen, now.Add(c.cfg.ThumbsUpDuration))
		return []func(){c.say(c.phrase(c.phrases.ThumbsUpSpeech, p.Identity))}

	case gesture.Victory:
		c.display.Set(c.phrase(c.phrases.VictoryMessage, p.Identity), ColorMagenta, now.Add(c.cfg.VictoryDuration))
		return []func(){c.say(c.phrase(c.phrases.VictorySpeech, p.Identity))}
	}
	return nil
}

// HandleCommand interprets recognized speech against the current state.
// The acting identity is the active one, or else the last face seen.
func (c *Coordinator) HandleCommand(now time.Time, text string) Response {
	c.mu.Lock()
	identity := c.activeIdentity
	if identity == "" {
		identity = c.lastSeen
	}
	catalog := c.catalog
	c.mu.Unlock()

	kind := c.vocab.ClassifyWith(text, catalog)

	resp := Response{Kind: kind, Identity: identity}

	switch kind {
	case CommandExit:
		c.log.Info().Str("identity", identity).Msg("exit requested")
		c.farewell()
		c.exit(0)
		return resp

	case CommandIdentity:
		if identity == "" {
			resp.Reply = c.phrases.GestureFirst
		} else {
			resp.Reply = c.phrase(c.phrases.WhoAmI, identity)
		}

	case CommandLaunch:
		resp.Reply = c.launch(now, identity, catalog, text)

	default:
		c.log.Debug().Str("text", text).Msg("unrecognized command dropped")
		return resp
	}

	c.speak(resp.Reply)
	return resp
}

func (c *Coordinator) launch(now time.Time, identity string, catalog Catalog, text string) string {
	if identity == "" {
		return c.phrases.LaunchNeedsGesture
	}

	app, ok := catalog.Lookup(text)
	if !ok {
		return c.phrases.UnknownApp
	}

	c.mu.Lock()
	if c.cfg.EnforceActionCooldown && !c.ledger.Allow(ChannelAction, now) {
		c.mu.Unlock()
		return c.phrases.ActionCooldown
	}
	c.ledger.Record(ChannelAction, now)
	c.mu.Unlock()

	if err := c.actions.Launch(app.Path); err != nil {
		c.log.Warn().Err(err).Str("app", app.Name).Str("path", app.Path).Msg("launch failed")
		return c.phrase(c.phrases.LaunchFailed, app.Name)
	}

	c.log.Info().Str("identity", identity).Str("app", app.Name).Msg("launched")
	return c.phrase(c.phrases.Launching, app.Name)
}

// Run consumes voice commands until the channel closes or ctx is done.
func (c *Coordinator) Run(ctx context.Context, commands <-chan voice.Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			at := cmd.At
			if at.IsZero() {
				at = time.Now()
			}
			c.HandleCommand(at, cmd.Text)
		}
	}
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		ActiveIdentity: c.activeIdentity,
		LastActiveTime: c.lastActiveTime,
		LastSeen:       c.lastSeen,
		LastGesture:    c.lastGesture,
		LastGestureAt:  c.ledger.LastFired(ChannelGesture),
		LastActionAt:   c.ledger.LastFired(ChannelAction),
		Greeted:        c.ledger.Identities(),
		Message:        c.display.Current(),
	}
}

// farewell says goodbye and waits up to FarewellWait for it to finish
// when the speaker supports waiting.
func (c *Coordinator) farewell() {
	c.speak(c.phrases.Farewell)
	f, ok := c.speaker.(Flusher)
	if !ok || c.cfg.FarewellWait <= 0 {
		return
	}
	if !f.Flush(c.cfg.FarewellWait) {
		c.log.Debug().Dur("wait", c.cfg.FarewellWait).Msg("farewell cut short")
	}
}

// say returns an effect speaking text.
func (c *Coordinator) say(text string) func() {
	return func() { c.speak(text) }
}

func (c *Coordinator) speak(text string) {
	if c.speaker == nil || text == "" {
		return
	}
	c.speaker.Speak(text)
}

func (c *Coordinator) phrase(format, arg string) string {
	if !strings.Contains(format, "%s") {
		return format
	}
	return fmt.Sprintf(format, arg)
}
