package config

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(fs, "/nonexistent/.env")
	require.Error(t, err) // explicit missing file path is an error

	fs2 := pflag.NewFlagSet("test2", pflag.ContinueOnError)
	BindFlags(fs2)
	require.NoError(t, fs2.Parse(nil))
	cfg, err = Load(fs2, "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8000", cfg.ListenAddr)
	assert.Equal(t, 100, cfg.MaxClients)
	assert.Equal(t, 30000, cfg.ClientTimeoutMS)
	assert.Equal(t, 10000, cfg.HeartbeatIntervalMS)
	assert.Equal(t, 32, cfg.OutboundQueue)
	assert.Equal(t, 1048576, cfg.MaxPayloadBytes)
}

func TestEnvOverridesDefault(t *testing.T) {
	t.Setenv("OTSYNC_MAX_CLIENTS", "7")
	t.Setenv("OTSYNC_LISTEN_ADDR", "0.0.0.0:9999")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxClients)
	assert.Equal(t, "0.0.0.0:9999", cfg.ListenAddr)
}

func TestFlagOverridesEnv(t *testing.T) {
	t.Setenv("OTSYNC_MAX_CLIENTS", "7")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--max-clients=42"}))

	cfg, err := Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.MaxClients)
}

func TestLoadWithMissingDefaultEnvFileIsOK(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(nil))

	_, err = Load(fs, "")
	require.NoError(t, err)
}
