package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseFlags tests the ParseFlags function
func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		validate func(t *testing.T, cfg *StructuredConfig)
	}{
		{
			name: "all flags set",
			args: []string{
				"-a", "https://api.example.com",
				"-realtime-address", "wss://api.example.com/realtime",
				"-d", "chat-sync.db",
				"-secrets-path", "/var/secrets.bin",
				"-secrets-key", "passphrase",
				"-c", "/path/to/config.json",
				"-device-name", "workstation-linux",
				"-request-timeout", "30s",
				"-sync-interval", "1m",
			},
			validate: func(t *testing.T, cfg *StructuredConfig) {
				assert.Equal(t, "https://api.example.com", cfg.Adapter.HTTPAddress)
				assert.Equal(t, "wss://api.example.com/realtime", cfg.Realtime.Address)
				assert.Equal(t, "chat-sync.db", cfg.Storage.DB.DSN)
				assert.Equal(t, "/var/secrets.bin", cfg.Storage.Secrets.Path)
				assert.Equal(t, "passphrase", cfg.Storage.Secrets.Passphrase)
				assert.Equal(t, "/path/to/config.json", cfg.JSONFilePath)
				assert.Equal(t, "workstation-linux", cfg.App.DeviceName)
				assert.Equal(t, 30*time.Second, cfg.Adapter.RequestTimeout)
				assert.Equal(t, time.Minute, cfg.Sync.Interval)
			},
		},
		{
			name: "config alias flag",
			args: []string{
				"-config", "/path/to/config.json",
			},
			validate: func(t *testing.T, cfg *StructuredConfig) {
				assert.Equal(t, "/path/to/config.json", cfg.JSONFilePath)
			},
		},
		{
			name: "partial flags",
			args: []string{
				"-a", "http://127.0.0.1:3000",
				"-d", "local.db",
			},
			validate: func(t *testing.T, cfg *StructuredConfig) {
				assert.Equal(t, "http://127.0.0.1:3000", cfg.Adapter.HTTPAddress)
				assert.Equal(t, "local.db", cfg.Storage.DB.DSN)
				assert.Empty(t, cfg.Realtime.Address)
				assert.Empty(t, cfg.Storage.Secrets.Path)
			},
		},
		{
			name: "no flags",
			args: []string{},
			validate: func(t *testing.T, cfg *StructuredConfig) {
				assert.Empty(t, cfg.Adapter.HTTPAddress)
				assert.Empty(t, cfg.Realtime.Address)
				assert.Empty(t, cfg.Storage.DB.DSN)
				assert.Empty(t, cfg.Storage.Secrets.Path)
				assert.Empty(t, cfg.JSONFilePath)
				assert.Empty(t, cfg.App.DeviceName)
				assert.Zero(t, cfg.Adapter.RequestTimeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset flag.CommandLine for each test
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)

			// Set os.Args to simulate command line arguments
			oldArgs := os.Args
			os.Args = append([]string{"cmd"}, tt.args...)
			defer func() { os.Args = oldArgs }()

			cfg := ParseFlags()
			require.NotNil(t, cfg)
			tt.validate(t, cfg)
		})
	}
}

// TestParseFlags_FlagsAreIndependent verifies that flag values from one
// parse do not leak into a subsequent parse with a fresh FlagSet.
func TestParseFlags_FlagsAreIndependent(t *testing.T) {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	oldArgs := os.Args
	os.Args = []string{"cmd", "-a", "https://first.example.com"}
	cfg := ParseFlags()
	require.Equal(t, "https://first.example.com", cfg.Adapter.HTTPAddress)

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	os.Args = []string{"cmd"}
	defer func() { os.Args = oldArgs }()

	cfg = ParseFlags()
	assert.Empty(t, cfg.Adapter.HTTPAddress)
}
