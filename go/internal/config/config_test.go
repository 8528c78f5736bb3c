package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, c.Store.Driver)
	assert.Equal(t, FeedPostgres, c.Feed.Driver)
	assert.Equal(t, time.Second, c.Alert.BellInterval)
	assert.Equal(t, "fieldboss", c.Database.Database)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldboss.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: remote
feed:
  driver: ws
gateway:
  url: http://gw:9000
alert:
  bell_interval: 2s
`), 0o600))

	t.Setenv("FIELDBOSS_GATEWAY_URL", "http://override:9001")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StoreRemote, c.Store.Driver)
	assert.Equal(t, FeedWS, c.Feed.Driver)
	assert.Equal(t, "http://override:9001", c.Gateway.URL)
	assert.Equal(t, 2*time.Second, c.Alert.BellInterval)
}

func TestValidateRejectsMismatchedMemoryDrivers(t *testing.T) {
	t.Setenv("FIELDBOSS_STORE", StoreMemory)
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("FIELDBOSS_FEED", FeedMemory)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, c.Store.Driver)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	t.Setenv("FIELDBOSS_FEED", "carrier-pigeon")
	_, err := Load("")
	assert.Error(t, err)
}
