package definitions

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "127.0.0.1:4444", cfg.WearSerial)
	assert.Equal(t, "Astral", cfg.DefaultWatchFace)
	assert.Equal(t, 45*time.Second, cfg.Timeouts.Long)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Medium)
	assert.Equal(t, time.Second, cfg.Timeouts.Short)
	assert.Equal(t, time.Second, cfg.Timeouts.Hold)
	assert.Equal(t, 100*time.Millisecond, cfg.Timeouts.SwipeDuration)
	assert.Equal(t, 10, cfg.Timeouts.SwipeSteps)
	assert.Contains(t, cfg.Listeners.Prefixes, "com.android")
	assert.Contains(t, cfg.Listeners.Prefixes, "com.google")
	assert.Contains(t, cfg.Listeners.Exact, "ick")
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	t.Setenv("HANDHELD_SERIAL_FOR_TEST", "00944424b877b2ce")

	path := filepath.Join(t.TempDir(), "wearprobe.yaml")
	yamlData := `
handheld_serial: ${HANDHELD_SERIAL_FOR_TEST}
script: [swipe_up, standby]
ignored_listeners:
  prefixes: [com.samsung]
  exact: []
timeouts:
  long: 2s
  swipe_steps: 4
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "00944424b877b2ce", cfg.HandheldSerial)
	assert.Equal(t, "127.0.0.1:4444", cfg.WearSerial)
	assert.Equal(t, []string{"swipe_up", "standby"}, cfg.Script)
	assert.Equal(t, []string{"com.samsung"}, cfg.Listeners.Prefixes)
	assert.Empty(t, cfg.Listeners.Exact)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Long)
	assert.Equal(t, 4, cfg.Timeouts.SwipeSteps)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Medium)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *HarnessConfig)
		errMsg string
	}{
		{"missing handheld", func(c *HarnessConfig) { c.HandheldSerial = "" }, "handheld_serial"},
		{"missing wear", func(c *HarnessConfig) { c.WearSerial = "" }, "wear_serial is required"},
		{"same device", func(c *HarnessConfig) { c.HandheldSerial = c.WearSerial }, "must differ"},
		{"bad port", func(c *HarnessConfig) { c.MonkeyPort = 0 }, "monkey_port"},
		{"zero steps", func(c *HarnessConfig) { c.Timeouts.SwipeSteps = 0 }, "swipe_steps"},
		{"no default face", func(c *HarnessConfig) { c.DefaultWatchFace = "" }, "default_watch_face"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.HandheldSerial = "handheld-1"
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
