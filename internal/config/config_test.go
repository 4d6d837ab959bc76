package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skyless.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, found, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, Defaults(), c)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, 64, c.Game.MaxDepth)
	assert.Equal(t, time.Second, c.Tick.Interval)
	require.NoError(t, c.Validate())
}

func TestLoad_OverridesAndFillsGaps(t *testing.T) {
	path := writeFile(t, `
server:
  addr: "127.0.0.1:7171"
game:
  max_depth: 16
map:
  center: 100
  range: 5
tick:
  enabled: true
  interval: 250ms
log:
  format: json
`)
	c, found, err := Load(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "127.0.0.1:7171", c.Server.Addr)
	assert.Equal(t, "/ws", c.Server.WSPath)
	assert.Equal(t, 16, c.Game.MaxDepth)
	assert.Equal(t, 100, c.Game.CommandBuffer)
	assert.Equal(t, uint16(100), c.Map.Center)
	assert.Equal(t, uint16(5), c.Map.Range)
	assert.Equal(t, uint8(7), c.Map.Floor)
	assert.True(t, c.Tick.Enabled)
	assert.Equal(t, 250*time.Millisecond, c.Tick.Interval)
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, "info", c.Log.Level)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad yaml":       "server: [",
		"negative depth": "game:\n  max_depth: -1\n",
		"inverted range": "map:\n  center: 2\n  range: 5\n",
		"tiny range":     "map:\n  range: 1\n",
		"ws path":        "server:\n  ws_path: ws\n",
		"log format":     "log:\n  format: xml\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Load(writeFile(t, body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config:")
		})
	}
}

func TestLoad_ShippedConfig(t *testing.T) {
	c, found, err := Load(filepath.Join("..", "..", "configs", "skyless.yaml"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "/ws", c.Server.WSPath)
}
