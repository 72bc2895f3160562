package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLoggerFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "info").With(String("comp", "test"))

	log.Debug("hidden")
	log.Warn("visible", String("destination", "golang"), Err(errors.New("boom")))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var m map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &m))
	assert.Equal(t, "visible", m["message"])
	assert.Equal(t, "test", m["comp"])
	assert.Equal(t, "golang", m["destination"])
	assert.Equal(t, "boom", m["err"])
	assert.Equal(t, "warn", m["level"])
}

func TestZeroLoggerIsNop(t *testing.T) {
	var log Logger
	assert.True(t, log.IsZero())
	log.Info("nothing happens")
	assert.False(t, Nop().IsZero())
}

func TestServiceFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xpost.log")
	svc, log := New(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	log.Debug("to file", Int("n", 3))
	require.NoError(t, svc.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"message":"to file"`)
	assert.Contains(t, string(b), `"n":3`)
}

func TestValidLevel(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"debug", "INFO", " warn ", "Warning", "error", "trace"} {
		assert.True(t, ValidLevel(s), s)
	}
	assert.False(t, ValidLevel("loud"))
}
