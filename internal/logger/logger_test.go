package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Format = FormatJSON
	cfg.Level = "debug"

	log, closeFn, err := New(cfg, &buf)
	require.NoError(t, err)

	log.Named("threadpool").Debug("task failed", zap.Uint64("task_id", 7))
	require.NoError(t, closeFn())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "threadpool", entry["logger"])
	assert.Equal(t, "task failed", entry["msg"])
	assert.EqualValues(t, 7, entry["task_id"])
	assert.Contains(t, entry, "ts")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Level = "warn"

	log, closeFn, err := New(cfg, &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	require.NoError(t, closeFn())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threadpool.log")
	cfg := Default()
	cfg.File = path

	var buf bytes.Buffer
	log, closeFn, err := New(cfg, &buf)
	require.NoError(t, err)

	log.Info("pool started", zap.Int("workers", 4))
	require.NoError(t, closeFn())

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	line := strings.TrimSpace(string(content))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry), "file entries are always JSON")
	assert.Equal(t, "pool started", entry["msg"])
	assert.EqualValues(t, 4, entry["workers"])
	assert.Contains(t, buf.String(), "pool started")
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown level", Config{Level: "loud", Format: FormatJSON}},
		{"unknown format", Config{Level: "info", Format: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := New(tt.cfg, &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}
