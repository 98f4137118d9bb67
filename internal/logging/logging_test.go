package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/edged/internal/config"
)

func TestNewConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	l, c, err := New(config.Log{Level: "info"}, &buf)
	require.NoError(t, err)
	defer c.Close()

	l.Debug().Msg("hidden")
	l.Info().Str("lock", "abc").Msg("lease granted")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "lease granted")
	assert.Contains(t, buf.String(), "abc")
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edged.log")
	l, c, err := New(config.Log{Level: "debug", File: path, MaxSizeMB: 1}, &bytes.Buffer{})
	require.NoError(t, err)

	l.Debug().Msg("to file")
	require.NoError(t, c.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"message":"to file"`)
}

func TestNewBadLevel(t *testing.T) {
	_, _, err := New(config.Log{Level: "shouting"}, nil)
	assert.Error(t, err)
}
