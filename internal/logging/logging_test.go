// internal/logging/logging_test.go
package logging

import (
	"bytes"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New("debug", "json", &buf), "poller")

	l.Info().Str("tag", "joint1").Msg("read ok")

	var rec map[string]any
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "poller", rec["component"])
	assert.Equal(t, "joint1", rec["tag"])
	assert.Equal(t, "info", rec["level"])
	assert.Contains(t, rec, "time")
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", "json", &buf)

	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	l := New("chatty", "json", &bytes.Buffer{})
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}
