package config

import (
	"fmt"
	"strings"
	"time"
)

// Default values applied by [GetClientConfig] when a setting is absent from
// every configuration source.
const (
	DefaultRequestTimeout    = 10 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = time.Second
	DefaultConnectTimeout    = 10 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultResponseTimeout   = 10 * time.Second
	DefaultReconnectDelay    = time.Second
	DefaultMaxReconnects     = 5
	DefaultSyncBatchSize     = 50
	DefaultUploadRetries     = 3
	DefaultSyncRetryDelay    = 500 * time.Millisecond
	DefaultSyncDebounce      = time.Second
	DefaultSyncInterval      = 30 * time.Second
	DefaultProbeInterval     = 15 * time.Second
)

// ClientApp holds client-side application settings derived from the shared
// structured config.
type ClientApp struct {
	// Version is the application version reported to the server.
	Version string
	// DeviceName is the free-form device description sent at login.
	DeviceName string
}

// ClientAdapter holds network settings used by the client HTTP transport.
type ClientAdapter struct {
	// HTTPAddress is the base URL of the messaging server API.
	HTTPAddress string
	// RequestTimeout is the default timeout for outbound client requests.
	RequestTimeout time.Duration
	// MaxRetries is the default retry budget for transient failures.
	MaxRetries int
	// RetryDelay is the base delay of the exponential retry backoff.
	RetryDelay time.Duration
}

// ClientRealtime holds settings of the persistent WebSocket channel.
type ClientRealtime struct {
	// Address is the WebSocket endpoint URL.
	Address string
	// ConnectTimeout bounds one dial attempt.
	ConnectTimeout time.Duration
	// HeartbeatInterval is the period of keep-alive frames.
	HeartbeatInterval time.Duration
	// ResponseTimeout bounds the wait for a correlated response frame.
	ResponseTimeout time.Duration
	// ReconnectDelay is the base delay of the reconnect backoff.
	ReconnectDelay time.Duration
	// MaxReconnects caps consecutive reconnect attempts.
	MaxReconnects int
}

// ClientSync holds settings of the synchronization engine.
type ClientSync struct {
	// BatchSize is the number of journal entries uploaded per request.
	BatchSize int
	// UploadRetries is the attempt budget of one batch upload, first try
	// included.
	UploadRetries int
	// RetryDelay is the base of the linear batch retry delay.
	RetryDelay time.Duration
	// Debounce delays a sync pass after the last recorded change.
	Debounce time.Duration
	// Interval is the period of the background periodic sync.
	Interval time.Duration
}

// ClientNetmon holds settings of the connectivity monitor.
type ClientNetmon struct {
	// ProbeURL is the endpoint polled to detect connectivity.
	ProbeURL string
	// ProbeInterval is the polling period.
	ProbeInterval time.Duration
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite database file path used by the client.
	DSN string
}

// ClientSecrets contains the encrypted secrets file settings.
type ClientSecrets struct {
	// Path is the location of the encrypted secrets file.
	Path string
	// Passphrase is the key material for the at-rest encryption key.
	Passphrase string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
	// Secrets holds the credential store settings.
	Secrets ClientSecrets
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// App contains application-level client settings.
	App ClientApp
	// Adapter contains client transport addresses and timeouts.
	Adapter ClientAdapter
	// Realtime contains WebSocket channel settings.
	Realtime ClientRealtime
	// Sync contains synchronization engine settings.
	Sync ClientSync
	// Netmon contains connectivity monitor settings.
	Netmon ClientNetmon
	// Storage contains client storage settings.
	Storage ClientStorage
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps the fields
// relevant to the client runtime, fills unset values with defaults, and
// validates the resulting [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		App: ClientApp{
			Version:    cfg.App.Version,
			DeviceName: cfg.App.DeviceName,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
			MaxRetries:     cfg.Adapter.MaxRetries,
			RetryDelay:     cfg.Adapter.RetryDelay,
		},
		Realtime: ClientRealtime{
			Address:           cfg.Realtime.Address,
			ConnectTimeout:    cfg.Realtime.ConnectTimeout,
			HeartbeatInterval: cfg.Realtime.HeartbeatInterval,
			ResponseTimeout:   cfg.Realtime.ResponseTimeout,
			ReconnectDelay:    cfg.Realtime.ReconnectDelay,
			MaxReconnects:     cfg.Realtime.MaxReconnects,
		},
		Sync: ClientSync{
			BatchSize:     cfg.Sync.BatchSize,
			UploadRetries: cfg.Sync.UploadRetries,
			RetryDelay:    cfg.Sync.RetryDelay,
			Debounce:      cfg.Sync.Debounce,
			Interval:      cfg.Sync.Interval,
		},
		Netmon: ClientNetmon{
			ProbeURL:      cfg.Netmon.ProbeURL,
			ProbeInterval: cfg.Netmon.ProbeInterval,
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN: cfg.Storage.DB.DSN,
			},
			Secrets: ClientSecrets{
				Path:       cfg.Storage.Secrets.Path,
				Passphrase: cfg.Storage.Secrets.Passphrase,
			},
		},
	}
	clientCfg.applyDefaults()

	return clientCfg, clientCfg.validate()
}

// applyDefaults fills every unset tunable with its package default and
// derives the realtime and probe endpoints from the HTTP address when they
// are not configured explicitly.
func (cfg *ClientConfig) applyDefaults() {
	if cfg.Adapter.RequestTimeout == 0 {
		cfg.Adapter.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Adapter.MaxRetries == 0 {
		cfg.Adapter.MaxRetries = DefaultMaxRetries
	}
	if cfg.Adapter.RetryDelay == 0 {
		cfg.Adapter.RetryDelay = DefaultRetryDelay
	}

	if cfg.Realtime.Address == "" {
		cfg.Realtime.Address = deriveRealtimeAddress(cfg.Adapter.HTTPAddress)
	}
	if cfg.Realtime.ConnectTimeout == 0 {
		cfg.Realtime.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Realtime.HeartbeatInterval == 0 {
		cfg.Realtime.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.Realtime.ResponseTimeout == 0 {
		cfg.Realtime.ResponseTimeout = DefaultResponseTimeout
	}
	if cfg.Realtime.ReconnectDelay == 0 {
		cfg.Realtime.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Realtime.MaxReconnects == 0 {
		cfg.Realtime.MaxReconnects = DefaultMaxReconnects
	}

	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = DefaultSyncBatchSize
	}
	if cfg.Sync.UploadRetries == 0 {
		cfg.Sync.UploadRetries = DefaultUploadRetries
	}
	if cfg.Sync.RetryDelay == 0 {
		cfg.Sync.RetryDelay = DefaultSyncRetryDelay
	}
	if cfg.Sync.Debounce == 0 {
		cfg.Sync.Debounce = DefaultSyncDebounce
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = DefaultSyncInterval
	}

	if cfg.Netmon.ProbeURL == "" && cfg.Adapter.HTTPAddress != "" {
		cfg.Netmon.ProbeURL = strings.TrimRight(cfg.Adapter.HTTPAddress, "/") + "/api/health"
	}
	if cfg.Netmon.ProbeInterval == 0 {
		cfg.Netmon.ProbeInterval = DefaultProbeInterval
	}
}

// deriveRealtimeAddress maps the API base URL onto the matching WebSocket
// endpoint: https -> wss, http -> ws, path fixed to /realtime.
func deriveRealtimeAddress(httpAddress string) string {
	if httpAddress == "" {
		return ""
	}

	address := strings.TrimRight(httpAddress, "/")
	switch {
	case strings.HasPrefix(address, "https://"):
		address = "wss://" + strings.TrimPrefix(address, "https://")
	case strings.HasPrefix(address, "http://"):
		address = "ws://" + strings.TrimPrefix(address, "http://")
	}

	return address + "/realtime"
}
