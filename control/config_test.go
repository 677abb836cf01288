package control_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mq/api"
	"github.com/momentics/hioload-mq/control"
)

func TestDefaultConfig(t *testing.T) {
	cfg := control.DefaultConfig()
	assert.Equal(t, "inproc", cfg.Transport)
	assert.Equal(t, 5*time.Second, cfg.RecvTimeout.Duration())
	assert.Equal(t, 10*time.Second, cfg.ReactorTimeout.Duration())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := control.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, control.DefaultConfig(), cfg)

	cfg, err = control.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, control.DefaultConfig(), cfg)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
transport: zmq
recv_timeout: infinite
reactor_timeout: 250ms
linger: 1s
log_level: debug
metrics:
  enabled: true
  namespace: test
`), 0o600))

	cfg, err := control.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "zmq", cfg.Transport)
	assert.Equal(t, api.Infinite, cfg.RecvTimeout.Duration())
	assert.Equal(t, 250*time.Millisecond, cfg.ReactorTimeout.Duration())
	assert.Equal(t, time.Second, cfg.Linger)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "test", cfg.Metrics.Namespace)
}

func TestLoadConfigRejectsUnknownTransport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mq.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: carrier-pigeon\n"), 0o600))

	_, err := control.LoadConfig(path)
	assert.True(t, errors.Is(err, api.ErrInvalidArgument))
}

func TestParseTimeout(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"100":      100 * time.Millisecond,
		"2s":       2 * time.Second,
		"-1":       api.Infinite,
		"blocking": api.Infinite,
		"Infinity": api.Infinite,
	} {
		got, err := control.ParseTimeout(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := control.ParseTimeout("soon")
	assert.True(t, errors.Is(err, api.ErrInvalidArgument))
	_, err = control.ParseTimeout("-5s")
	assert.True(t, errors.Is(err, api.ErrInvalidArgument))
}

func TestNewLogger(t *testing.T) {
	logger, err := control.NewLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = control.NewLogger("loud")
	assert.True(t, errors.Is(err, api.ErrInvalidArgument))
}
