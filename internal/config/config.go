// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the
// go-chat-sync client. It aggregates all sub-configurations and is populated
// by merging values from environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level settings such as the version string and
	// the device description reported at login.
	App App `envPrefix:"APP_"`

	// Storage holds configuration for local persistence: the SQLite
	// database and the encrypted secrets file.
	Storage Storage `envPrefix:"STORAGE_"`

	// Adapter holds settings of the outbound HTTP transport.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Realtime holds settings of the persistent WebSocket channel.
	Realtime Realtime `envPrefix:"REALTIME_"`

	// Sync holds settings of the background synchronization engine.
	Sync Sync `envPrefix:"SYNC_"`

	// Netmon holds settings of the connectivity monitor.
	Netmon Netmon `envPrefix:"NETMON_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// Version is the semantic version string of the running application
	// (e.g. "1.2.3"). Reported to the server as part of the device info.
	// Env: APP_VERSION
	Version string `env:"VERSION"`

	// DeviceName is a short free-form description of this installation
	// (e.g. "workstation-linux"). Sent with login requests.
	// Env: APP_DEVICE_NAME
	DeviceName string `env:"DEVICE_NAME"`
}

// Storage groups the configuration for all local persistence backends.
type Storage struct {
	// DB holds the local database connection settings.
	DB DB `envPrefix:"DB_"`

	// Secrets holds the encrypted credential store settings.
	Secrets Secrets `envPrefix:"SECRETS_"`
}

// DB holds connection settings for the local database.
type DB struct {
	// DSN is the SQLite database file path
	// (e.g. "chat-sync.db" or "/home/user/.local/share/chat-sync/db").
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Secrets holds settings of the encrypted file that stores credentials
// between runs.
type Secrets struct {
	// Path is the location of the encrypted secrets file. When empty, the
	// file is created next to the database.
	// Env: STORAGE_SECRETS_PATH
	Path string `env:"PATH"`

	// Passphrase is the key material used to derive the at-rest
	// encryption key. Must be kept confidential.
	// Env: STORAGE_SECRETS_PASSPHRASE
	Passphrase string `env:"PASSPHRASE"`
}

// Adapter holds settings of the outbound HTTP transport layer.
type Adapter struct {
	// HTTPAddress is the base URL of the messaging server API
	// (e.g. "https://api.example.com").
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds a single outbound request attempt.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// MaxRetries is how many times a failed transient request is retried.
	// Env: ADAPTER_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`

	// RetryDelay is the base delay of the exponential retry backoff.
	// Env: ADAPTER_RETRY_DELAY
	RetryDelay time.Duration `env:"RETRY_DELAY"`
}

// Realtime holds settings of the persistent WebSocket channel.
type Realtime struct {
	// Address is the WebSocket endpoint (e.g. "wss://api.example.com").
	// When empty it is derived from the adapter HTTP address.
	// Env: REALTIME_ADDRESS
	Address string `env:"ADDRESS"`

	// ConnectTimeout bounds one dial attempt.
	// Env: REALTIME_CONNECT_TIMEOUT
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT"`

	// HeartbeatInterval is the period of keep-alive frames.
	// Env: REALTIME_HEARTBEAT_INTERVAL
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL"`

	// ResponseTimeout bounds the wait for a correlated response frame.
	// Env: REALTIME_RESPONSE_TIMEOUT
	ResponseTimeout time.Duration `env:"RESPONSE_TIMEOUT"`

	// ReconnectDelay is the base delay of the reconnect backoff.
	// Env: REALTIME_RECONNECT_DELAY
	ReconnectDelay time.Duration `env:"RECONNECT_DELAY"`

	// MaxReconnects caps consecutive reconnect attempts before the
	// transport gives up until an external trigger.
	// Env: REALTIME_MAX_RECONNECTS
	MaxReconnects int `env:"MAX_RECONNECTS"`
}

// Sync holds settings of the synchronization engine.
type Sync struct {
	// BatchSize is the number of journal entries uploaded per request.
	// Env: SYNC_BATCH_SIZE
	BatchSize int `env:"BATCH_SIZE"`

	// UploadRetries is how many times a failed batch upload is retried.
	// Env: SYNC_UPLOAD_RETRIES
	UploadRetries int `env:"UPLOAD_RETRIES"`

	// RetryDelay is the base of the linearly increasing batch retry delay.
	// Env: SYNC_RETRY_DELAY
	RetryDelay time.Duration `env:"RETRY_DELAY"`

	// Debounce is how long after the last recorded change a sync pass is
	// scheduled.
	// Env: SYNC_DEBOUNCE
	Debounce time.Duration `env:"DEBOUNCE"`

	// Interval is the period of the background periodic sync.
	// Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL"`
}

// Netmon holds settings of the connectivity monitor.
type Netmon struct {
	// ProbeURL is the endpoint polled to detect connectivity. When empty
	// it is derived from the adapter HTTP address.
	// Env: NETMON_PROBE_URL
	ProbeURL string `env:"PROBE_URL"`

	// ProbeInterval is the polling period.
	// Env: NETMON_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (last source wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
