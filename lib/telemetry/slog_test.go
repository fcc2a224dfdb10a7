package telemetry

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSlog(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "uicrawler.log")
	closer, err := InitSlog(LogOptions{File: file, Output: &console})
	require.NoError(t, err)

	slog.Debug("hidden")
	slog.Info("fetched", "status", 200)
	require.NoError(t, closer.Close())

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "msg=fetched status=200")

	contents, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, console.String(), string(contents))
}

func TestInitSlogDebug(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var console bytes.Buffer
	closer, err := InitSlog(LogOptions{Debug: true, Output: &console})
	require.NoError(t, err)
	defer closer.Close()

	slog.Debug("request dump", "message_id", "1")
	assert.Contains(t, console.String(), "level=DEBUG")
	assert.False(t, Telemetry{}.Enabled())
}
