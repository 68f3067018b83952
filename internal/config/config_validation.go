// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "strings"

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
//
// Currently a no-op placeholder; the client-facing rules live on
// [ClientConfig.validate], which runs after defaults are applied.
//
// Returns nil if the configuration is valid, or a descriptive error otherwise.
func (cfg *StructuredConfig) validate() error {
	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || strings.Contains(cfg.Storage.DB.DSN, "memory") {
		return ErrInvalidStorageConfigs
	}

	if cfg.Storage.Secrets.Passphrase == "" {
		return ErrInvalidSecretsConfigs
	}

	if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout == 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Realtime.Address == "" {
		return ErrInvalidRealtimeConfigs
	}

	if cfg.Sync.BatchSize <= 0 || cfg.Sync.Interval == 0 {
		return ErrInvalidSyncConfigs
	}

	return nil
}
