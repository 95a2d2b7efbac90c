package interaction

import (
	"sort"
	"time"
)

// Channel is an independent cooldown bucket.
type Channel string

const (
	// ChannelGesture debounces gesture-triggered feedback.
	ChannelGesture Channel = "gesture"
	// ChannelAction debounces external actions (browser, applications).
	ChannelAction Channel = "action"
)

// Default cooldown windows.
const (
	DefaultGestureCooldown = 2 * time.Second
	DefaultActionCooldown  = 5 * time.Second
)

// Ledger tracks when each channel last fired and which identities have
// already been greeted. It is not safe for concurrent use; the Coordinator
// guards it.
//
// Allow and Record are separate calls: the window is measured from
// the start of the previously allowed action.
type Ledger struct {
	windows   map[Channel]time.Duration
	lastFired map[Channel]time.Time
	greeted   map[string]struct{}
}

// NewLedger creates a Ledger with the given windows.
func NewLedger(gesture, action time.Duration) *Ledger {
	if gesture <= 0 {
		gesture = DefaultGestureCooldown
	}
	if action <= 0 {
		action = DefaultActionCooldown
	}
	return &Ledger{
		windows: map[Channel]time.Duration{
			ChannelGesture: gesture,
			ChannelAction:  action,
		},
		lastFired: make(map[Channel]time.Time),
		greeted:   make(map[string]struct{}),
	}
}

// Allow reports whether ch may fire at now.
func (l *Ledger) Allow(ch Channel, now time.Time) bool {
	last, ok := l.lastFired[ch]
	if !ok {
		return true
	}
	return now.Sub(last) >= l.windows[ch]
}

// Record marks ch as fired at now. It never rejects, but a timestamp older
// than the one already recorded is ignored so the ledger only moves forward.
func (l *Ledger) Record(ch Channel, now time.Time) {
	if last, ok := l.lastFired[ch]; ok && now.Before(last) {
		return
	}
	l.lastFired[ch] = now
}

// LastFired returns when ch last fired, or the zero time.
func (l *Ledger) LastFired(ch Channel) time.Time {
	return l.lastFired[ch]
}

// Greet adds identity to the greeted set. It returns true only the first
// time an identity is seen.
func (l *Ledger) Greet(identity string) bool {
	if _, ok := l.greeted[identity]; ok {
		return false
	}
	l.greeted[identity] = struct{}{}
	return true
}

// Identities returns the greeted identities in sorted order.
func (l *Ledger) Identities() []string {
	ids := make([]string, 0, len(l.greeted))
	for id := range l.greeted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
