package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "info")

	l := With("speech")
	l.Info().Str("text", "Привіт").Msg("speaking")
	l.Debug().Msg("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "speech", entry["component"])
	assert.Equal(t, "Привіт", entry["text"])
	assert.Equal(t, "info", entry["level"])
}

func TestSetOutputLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "warn")

	l := L()
	l.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestSetOutputUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "loud")

	l := L()
	l.Info().Msg("info is the fallback")
	assert.Contains(t, buf.String(), "fallback")
}
