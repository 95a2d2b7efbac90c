package interaction

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/pryvit/internal/gesture"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLedger_AllowNeverFired(t *testing.T) {
	l := NewLedger(0, 0)
	assert.True(t, l.Allow(ChannelGesture, t0))
	assert.True(t, l.Allow(ChannelAction, t0))
	assert.True(t, l.LastFired(ChannelGesture).IsZero())

	// Zero windows fall back to the defaults
	l.Record(ChannelGesture, t0)
	l.Record(ChannelAction, t0)
	assert.False(t, l.Allow(ChannelGesture, t0.Add(DefaultGestureCooldown-time.Millisecond)))
	assert.True(t, l.Allow(ChannelGesture, t0.Add(DefaultGestureCooldown)))
	assert.False(t, l.Allow(ChannelAction, t0.Add(DefaultActionCooldown-time.Millisecond)))
	assert.True(t, l.Allow(ChannelAction, t0.Add(DefaultActionCooldown)))
}

func TestLedger_Window(t *testing.T) {
	l := NewLedger(2*time.Second, 5*time.Second)
	l.Record(ChannelGesture, t0)

	tests := []struct {
		name  string
		at    time.Duration
		allow bool
	}{
		{"immediately", 0, false},
		{"within window", 1999 * time.Millisecond, false},
		{"at boundary", 2 * time.Second, true},
		{"beyond window", 2500 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allow, l.Allow(ChannelGesture, t0.Add(tt.at)))
		})
	}
}

func TestLedger_ChannelsIndependent(t *testing.T) {
	l := NewLedger(2*time.Second, 5*time.Second)
	l.Record(ChannelGesture, t0)

	assert.False(t, l.Allow(ChannelGesture, t0.Add(time.Second)))
	assert.True(t, l.Allow(ChannelAction, t0.Add(time.Second)))

	l.Record(ChannelAction, t0)
	assert.True(t, l.Allow(ChannelGesture, t0.Add(3*time.Second)))
	assert.False(t, l.Allow(ChannelAction, t0.Add(3*time.Second)))
}

func TestLedger_RecordMonotonic(t *testing.T) {
	l := NewLedger(0, 0)
	l.Record(ChannelGesture, t0.Add(10*time.Second))
	l.Record(ChannelGesture, t0)

	assert.Equal(t, t0.Add(10*time.Second), l.LastFired(ChannelGesture))
}

func TestLedger_Greet(t *testing.T) {
	l := NewLedger(0, 0)

	assert.True(t, l.Greet("Olena"))
	assert.False(t, l.Greet("Olena"))
	assert.True(t, l.Greet("Andrii"))
	assert.Equal(t, []string{"Andrii", "Olena"}, l.Identities())
}

func TestMessage_Expired(t *testing.T) {
	const eps = time.Millisecond

	var empty Message
	assert.True(t, empty.Empty())
	assert.True(t, empty.Expired(t0))

	m := Message{Text: "Привіт", Color: ColorGreen, Expiry: t0}
	assert.False(t, m.Empty())
	assert.False(t, m.Expired(t0.Add(-eps)))
	assert.False(t, m.Expired(t0))
	assert.True(t, m.Expired(t0.Add(eps)))
}

func TestDisplay(t *testing.T) {
	var d Display
	assert.True(t, d.Current().Empty())

	d.Set("Мир, Olena!", ColorMagenta, t0)
	got := d.Current()
	assert.Equal(t, "Мир, Olena!", got.Text)
	assert.Equal(t, ColorMagenta, got.Color)
	assert.Equal(t, t0, got.Expiry)

	d.Clear()
	assert.True(t, d.Current().Empty())
}

func TestPadding_Contains(t *testing.T) {
	face := image.Rect(100, 100, 200, 200)
	pad := Padding{X: DefaultPaddingX, Y: DefaultPaddingY}

	tests := []struct {
		name string
		pt   image.Point
		want bool
	}{
		{"inside face", image.Pt(150, 150), true},
		{"left edge of padding", image.Pt(-100, 150), true},
		{"past left padding", image.Pt(-101, 150), false},
		{"right edge of padding", image.Pt(400, 150), true},
		{"past right padding", image.Pt(401, 150), false},
		{"above face", image.Pt(150, 99), false},
		{"bottom edge of padding", image.Pt(150, 500), true},
		{"below padding", image.Pt(150, 501), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pad.Contains(face, tt.pt))
		})
	}
}

func TestAttribute(t *testing.T) {
	pad := Padding{X: DefaultPaddingX, Y: DefaultPaddingY}
	olena := Face{Identity: "Olena", BBox: image.Rect(100, 100, 200, 200)}
	andrii := Face{Identity: "Andrii", BBox: image.Rect(150, 100, 250, 200)}
	stranger := Face{BBox: image.Rect(100, 100, 200, 200)}

	nearHand := gesture.Detection{Slot: 0, Label: gesture.ThumbsUp, BBox: image.Rect(140, 300, 160, 320)}
	farHand := gesture.Detection{Slot: 1, Label: gesture.Victory, BBox: image.Rect(900, 900, 920, 920)}
	idleHand := gesture.Detection{Slot: 2, Label: gesture.None, BBox: image.Rect(140, 300, 160, 320)}

	t.Run("near hand attributed", func(t *testing.T) {
		pairs := Attribute([]Face{olena}, []gesture.Detection{nearHand, farHand, idleHand}, pad)
		require.Len(t, pairs, 1)
		assert.Equal(t, Pair{Identity: "Olena", Gesture: gesture.ThumbsUp}, pairs[0])
	})

	t.Run("unknown faces never attributed", func(t *testing.T) {
		assert.Empty(t, Attribute([]Face{stranger}, []gesture.Detection{nearHand}, pad))
	})

	t.Run("first qualifying face wins", func(t *testing.T) {
		pairs := Attribute([]Face{stranger, andrii, olena}, []gesture.Detection{nearHand}, pad)
		require.Len(t, pairs, 1)
		assert.Equal(t, "Andrii", pairs[0].Identity)
	})

	t.Run("no faces", func(t *testing.T) {
		assert.Empty(t, Attribute(nil, []gesture.Detection{nearHand}, pad))
	})
}
