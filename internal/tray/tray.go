// Package tray provides the system tray icon: it shows who is active and
// the last gesture, and lets the user pause recognition or quit.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/pryvit/internal/interaction"
)

const (
	titleRunning = "● Running"
	titlePaused  = "○ Paused"
)

// Tray is the system tray application.
type Tray struct {
	mu       sync.RWMutex
	paused   bool
	onPause  func(paused bool)
	onOpen   func()
	onQuit   func()
	openable bool

	menuPause   *systray.MenuItem
	menuActive  *systray.MenuItem
	menuGesture *systray.MenuItem
	lastActive  string
	lastGesture string
}

// New creates a Tray in the running state.
func New() *Tray {
	return &Tray{}
}

// OnPause sets the callback run when recognition is paused or resumed.
func (t *Tray) OnPause(fn func(paused bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPause = fn
}

// OnOpen sets the callback for the "Open preview" item. The item is only
// shown when a callback is set before Run.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
	t.openable = fn != nil
}

// OnQuit sets the callback run when Quit is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit and must be called from the
// main goroutine on macOS.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Pryvit")
	systray.SetTooltip("Pryvit assistant")

	t.mu.Lock()
	t.menuPause = systray.AddMenuItem(titleRunning, "Pause gesture recognition")
	systray.AddSeparator()

	t.menuActive = systray.AddMenuItem(ActiveLabel(""), "Active identity")
	t.menuActive.Disable()
	t.menuGesture = systray.AddMenuItem(GestureLabel(""), "Last detected gesture")
	t.menuGesture.Disable()
	systray.AddSeparator()

	openCh := make(chan struct{})
	if t.openable {
		openCh = systray.AddMenuItem("Open preview...", "Open the preview in a browser").ClickedCh
		systray.AddSeparator()
	}
	t.mu.Unlock()

	menuQuit := systray.AddMenuItem("Quit", "Quit Pryvit")

	go func() {
		for {
			select {
			case <-t.menuPause.ClickedCh:
				t.Toggle()
			case <-openCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// Toggle flips the paused state and notifies the OnPause callback.
func (t *Tray) Toggle() {
	t.mu.Lock()
	t.paused = !t.paused
	paused := t.paused
	if t.menuPause != nil {
		if paused {
			t.menuPause.SetTitle(titlePaused)
		} else {
			t.menuPause.SetTitle(titleRunning)
		}
	}
	callback := t.onPause
	t.mu.Unlock()

	if callback != nil {
		callback(paused)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// Update refreshes the menu from a coordinator snapshot. Unchanged labels
// are not rewritten.
func (t *Tray) Update(s interaction.Snapshot) {
	active := s.ActiveIdentity
	if active == "" {
		active = s.LastSeen
	}
	gesture := string(s.LastGesture)

	t.mu.Lock()
	defer t.mu.Unlock()

	if active != t.lastActive {
		t.lastActive = active
		if t.menuActive != nil {
			t.menuActive.SetTitle(ActiveLabel(active))
		}
	}
	if gesture != t.lastGesture {
		t.lastGesture = gesture
		if t.menuGesture != nil {
			t.menuGesture.SetTitle(GestureLabel(gesture))
		}
	}
}

// Paused reports whether recognition is paused.
func (t *Tray) Paused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}

// ActiveLabel formats the active identity menu entry.
func ActiveLabel(identity string) string {
	if identity == "" {
		return "Active: nobody"
	}
	return "Active: " + identity
}

// GestureLabel formats the last gesture menu entry.
func GestureLabel(name string) string {
	if name == "" {
		return "Last: none"
	}
	return "Last: " + name
}
