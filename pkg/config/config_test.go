package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, FormatConsole, cfg.Log.Format)
	assert.Equal(t, 1000, cfg.Jobs.MaxRounds)
	assert.Equal(t, 1<<30, cfg.Memory.MaxByteLength)
	assert.True(t, cfg.Realm.Strict)
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
log:
  level: debug
  format: json
jobs:
  maxRounds: 5
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, FormatJSON, cfg.Log.Format)
	assert.Equal(t, 5, cfg.Jobs.MaxRounds)
	assert.Equal(t, 1<<30, cfg.Memory.MaxByteLength, "unset sections keep their defaults")
	assert.True(t, cfg.Realm.Strict)

	cfg, err = Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "log: {colour: red}", "parse config"},
		{"bad level", "log: {level: loud}", `invalid log level "loud"`},
		{"bad format", "log: {format: xml}", `invalid log format "xml"`},
		{"zero rounds", "jobs: {maxRounds: 0}", "jobs.maxRounds must be positive"},
		{"negative memory", "memory: {maxByteLength: -1}", "memory.maxByteLength must be positive"},
		{"not yaml", "log: [", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jscore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("realm: {strict: false}\nmemory: {maxByteLength: 64}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Realm.Strict)
	assert.Equal(t, 64, cfg.Memory.MaxByteLength)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestMarshalRoundTrips(t *testing.T) {
	cfg := Default()
	cfg.Jobs.MaxRounds = 7
	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "maxRounds: 7")

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
