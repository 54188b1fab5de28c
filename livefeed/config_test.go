package livefeed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yaml")
	data := []byte("url: ws://127.0.0.1:8000/ws\nreconnect_delay: 2s\nqueue_while_offline: true\nfeed_capacity: 50\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://127.0.0.1:8000/ws", cfg.URL)
	assert.Equal(t, 2*time.Second, cfg.ReconnectDelay)
	assert.True(t, cfg.QueueWhileOffline)
	assert.Equal(t, 50, cfg.FeedCapacity)
	// untouched fields keep their defaults
	assert.Equal(t, DefaultConfig().HandshakeTimeout, cfg.HandshakeTimeout)
	assert.Equal(t, DefaultConfig().OfflineQueueSize, cfg.OfflineQueueSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err, "URL is required")
	assert.ErrorIs(t, err, NewError(ErrorInvalidConfig, ""))

	cfg.URL = "ws://localhost:8000/ws"
	require.NoError(t, cfg.Validate())

	cfg.ReconnectDelay = 0
	require.Error(t, cfg.Validate())
}
