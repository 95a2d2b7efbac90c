package interaction

import (
	"sync"
	"time"
)

// Color names a message color. The render layer maps names to pixels.
type Color string

// Message colors.
const (
	ColorGreen   Color = "green"
	ColorCyan    Color = "cyan"
	ColorMagenta Color = "magenta"
	ColorWhite   Color = "white"
	ColorRed     Color = "red"
)

// Message is the single on-screen message. A zero Expiry means no message.
type Message struct {
	Text   string    `json:"text"`
	Color  Color     `json:"color"`
	Expiry time.Time `json:"expiry"`
}

// Empty reports whether there is no message.
func (m Message) Empty() bool {
	return m.Expiry.IsZero()
}

// Expired reports whether the message is gone at now. An empty message
// counts as expired.
func (m Message) Expired(now time.Time) bool {
	return m.Expiry.IsZero() || now.After(m.Expiry)
}

// Display holds the current message. The coordinator writes it, the
// render collaborator reads it every frame from another goroutine.
type Display struct {
	mu  sync.RWMutex
	msg Message
}

// Set replaces the current message.
func (d *Display) Set(text string, color Color, expiry time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msg = Message{Text: text, Color: color, Expiry: expiry}
}

// Clear removes the current message.
func (d *Display) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msg = Message{}
}

// Current returns a copy of the current message.
func (d *Display) Current() Message {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.msg
}
