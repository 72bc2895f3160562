package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromArgsOnlySetFlagsArePresent(t *testing.T) {
	t.Parallel()
	a, err := FromArgs([]string{"-t", "Title", "--type", "text", "-c", "alpha, beta", "--communities", "gamma"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, Some("Title"), a.Post.Title)
	assert.Equal(t, Some("text"), a.Post.Kind)
	assert.Equal(t, Some([]string{"alpha", "beta", "gamma"}), a.Post.Destinations)
	assert.False(t, a.Post.Body.Present())
	assert.False(t, a.Post.Strict.Present())
	assert.False(t, a.Settings.Pace.Present())
	assert.Equal(t, DefaultConfigPath, a.ConfigPath)
}

func TestFromArgsSettingsAndModes(t *testing.T) {
	t.Parallel()
	a, err := FromArgs([]string{"--strict", "-i", "--pace", "2s", "--capacity", "3", "--overflow", "reject", "--config", "x.toml"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, Some(true), a.Post.Strict)
	assert.True(t, a.Interactive)
	assert.Equal(t, Some(2*time.Second), a.Settings.Pace)
	assert.Equal(t, Some(3), a.Settings.Capacity)
	assert.Equal(t, Some("reject"), a.Settings.Overflow)
	assert.Equal(t, "x.toml", a.ConfigPath)
}

func TestFromArgsRejectsPositional(t *testing.T) {
	t.Parallel()
	_, err := FromArgs([]string{"-t", "x", "stray"}, io.Discard)
	require.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Parallel()
	env := map[string]string{
		EnvTitle:       "env title",
		EnvStrict:      "false",
		EnvCommunities: "a,b,,c",
	}
	p, err := FromEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	require.NoError(t, err)
	assert.Equal(t, Some("env title"), p.Title)
	assert.Equal(t, Some(false), p.Strict)
	assert.Equal(t, Some([]string{"a", "b", "c"}), p.Destinations)
	assert.False(t, p.Body.Present())

	env[EnvStrict] = "maybe"
	_, err = FromEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	require.Error(t, err)
}

func TestParseFileFormats(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		path string
		data string
	}{
		{name: "yaml", path: "xpost.yaml", data: "title: Hi\nkind: text\ncommunities: [alpha, beta]\nstrict: false\ndispatch:\n  pace: 3s\n  capacity: 2\n"},
		{name: "json", path: "xpost.json", data: `{"title":"Hi","kind":"text","communities":"alpha,beta","strict":false,"dispatch":{"pace":"3s","capacity":2}}`},
		{name: "toml", path: "xpost.toml", data: "title = \"Hi\"\nkind = \"text\"\ncommunities = [\"alpha\", \"beta\"]\nstrict = false\n\n[dispatch]\npace = \"3s\"\ncapacity = 2\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fc, err := ParseFile(tt.path, []byte(tt.data))
			require.NoError(t, err)

			p := fc.Partial()
			assert.Equal(t, Some("Hi"), p.Title)
			assert.Equal(t, Some("text"), p.Kind)
			assert.Equal(t, Some(false), p.Strict)
			assert.Equal(t, Some([]string{"alpha", "beta"}), p.Destinations)
			assert.False(t, p.Password.Present())

			s, err := fc.Settings()
			require.NoError(t, err)
			assert.Equal(t, Some(3*time.Second), s.Pace)
			assert.Equal(t, Some(2), s.Capacity)
		})
	}
}

func TestParseFileRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	_, err := ParseFile("xpost.yaml", []byte("titel: typo\n"))
	require.Error(t, err)
}

func TestLoadFileMissingIsEmpty(t *testing.T) {
	t.Parallel()
	fc, found, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, PartialConfig{}, fc.Partial())
}

func TestLoadFileReportsPath(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, found, err := LoadFile(path)
	require.Error(t, err)
	assert.True(t, found)
	assert.Contains(t, err.Error(), path)
}

func TestResolveSettings(t *testing.T) {
	t.Parallel()
	s, err := ResolveSettings(PartialSettings{Pace: Some(time.Second)}, PartialSettings{Pace: Some(time.Minute), Capacity: Some(7)})
	require.NoError(t, err)
	assert.Equal(t, time.Second, s.Pace)
	assert.Equal(t, 7, s.Capacity)
	assert.Equal(t, DefaultOverflow, s.Overflow)
	assert.True(t, s.LogConsole)

	_, err = ResolveSettings(PartialSettings{Capacity: Some(0)})
	require.Error(t, err)
}
