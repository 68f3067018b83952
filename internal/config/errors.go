package config

import "errors"

// Validation errors returned by [ClientConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidAdapterConfigs indicates invalid client adapter settings
	// (for example, missing server base URL or request timeout).
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
	// ErrInvalidStorageConfigs indicates invalid client storage settings
	// (for example, empty DSN or unsupported in-memory DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidSecretsConfigs indicates invalid credential store settings
	// (for example, missing encryption passphrase).
	ErrInvalidSecretsConfigs = errors.New("invalid secrets configuration")
	// ErrInvalidRealtimeConfigs indicates invalid WebSocket channel
	// settings (for example, no endpoint and no HTTP address to derive from).
	ErrInvalidRealtimeConfigs = errors.New("invalid realtime configuration")
	// ErrInvalidSyncConfigs indicates invalid synchronization settings
	// (for example, non-positive batch size or zero interval).
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
)
