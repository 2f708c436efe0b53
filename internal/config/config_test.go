package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSONKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"store":"file","debug":true}`), 0o644))

	cfg := Default()
	require.NoError(t, Load(p, &cfg))
	assert.Equal(t, StoreFile, cfg.Store)
	assert.True(t, cfg.Debug)
	assert.Equal(t, DefaultKey, cfg.Key)
	assert.Equal(t, Default().DataDir, cfg.DataDir)
	assert.Equal(t, "2006/1/2 15:04:05", cfg.TimeFormat)
}

func TestLoadYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	body := "store: memory\nkey: other@todos\nexportDir: /tmp/out\ntimeFormat: \"2006-01-02 15:04\"\n"
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))

	cfg := Default()
	require.NoError(t, Load(p, &cfg))
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "other@todos", cfg.Key)
	assert.Equal(t, "/tmp/out", cfg.ExportDir)
	assert.Equal(t, "2006-01-02 15:04", cfg.TimeFormat)
}

func TestLoadMissingFile(t *testing.T) {
	cfg := Default()
	err := Load(filepath.Join(t.TempDir(), "nope.json"), &cfg)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", "cfg.json")
	in := Default()
	in.Store = StoreFile
	require.NoError(t, Save(p, in))

	out := Config{}
	require.NoError(t, Load(p, &out))
	assert.Equal(t, in, out)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.Store = "redis"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Key = "  "
	assert.Error(t, cfg.Validate())

	cfg = Config{Store: StoreMemory, Key: DefaultKey}
	assert.NoError(t, cfg.Validate())
}
