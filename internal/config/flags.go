package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a server base URL (e.g. "https://api.example.com")
//	-realtime-address WebSocket endpoint URL (e.g. "wss://api.example.com/realtime")
//	-d local database file path
//	-secrets-path encrypted secrets file path
//	-secrets-key secrets encryption passphrase
//	-c/-config json file path with configs
//	-device-name device description sent at login
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-sync-interval periodic sync interval (e.g., "30s", "1m")
func ParseFlags() *StructuredConfig {
	var serverAddress string
	var realtimeAddress string
	var databaseDSN string
	var secretsPath string
	var secretsKey string
	var jsonConfigPath string
	var deviceName string
	var requestTimeout time.Duration
	var syncInterval time.Duration

	flag.StringVar(&serverAddress, "a", "", "Server base URL")
	flag.StringVar(&realtimeAddress, "realtime-address", "", "WebSocket endpoint URL")
	flag.StringVar(&databaseDSN, "d", "", "Local database file path")
	flag.StringVar(&secretsPath, "secrets-path", "", "Encrypted secrets file path")
	flag.StringVar(&secretsKey, "secrets-key", "", "Secrets encryption passphrase")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&deviceName, "device-name", "", "Device description sent at login")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Periodic sync interval (e.g., 30s, 1m)")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			DeviceName: deviceName,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
			Secrets: Secrets{
				Path:       secretsPath,
				Passphrase: secretsKey,
			},
		},
		Adapter: Adapter{
			HTTPAddress:    serverAddress,
			RequestTimeout: requestTimeout,
		},
		Realtime: Realtime{
			Address: realtimeAddress,
		},
		Sync: Sync{
			Interval: syncInterval,
		},
		Netmon:       Netmon{},
		JSONFilePath: jsonConfigPath,
	}
}
