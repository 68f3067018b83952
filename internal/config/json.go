package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	App struct {
		Version    string `json:"version"`
		DeviceName string `json:"device_name"`
	} `json:"app,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`

		Secrets struct {
			Path       string `json:"path"`
			Passphrase string `json:"passphrase"`
		} `json:"secrets,omitempty"`
	} `json:"storage,omitempty"`

	Adapter struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
		MaxRetries     int      `json:"max_retries"`
		RetryDelay     Duration `json:"retry_delay"`
	} `json:"adapter,omitempty"`

	Realtime struct {
		Address           string   `json:"address"`
		ConnectTimeout    Duration `json:"connect_timeout"`
		HeartbeatInterval Duration `json:"heartbeat_interval"`
		ResponseTimeout   Duration `json:"response_timeout"`
		ReconnectDelay    Duration `json:"reconnect_delay"`
		MaxReconnects     int      `json:"max_reconnects"`
	} `json:"realtime,omitempty"`

	Sync struct {
		BatchSize     int      `json:"batch_size"`
		UploadRetries int      `json:"upload_retries"`
		RetryDelay    Duration `json:"retry_delay"`
		Debounce      Duration `json:"debounce"`
		Interval      Duration `json:"interval"`
	} `json:"sync,omitempty"`

	Netmon struct {
		ProbeURL      string   `json:"probe_url"`
		ProbeInterval Duration `json:"probe_interval"`
	} `json:"netmon,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			Version:    jsonCfg.App.Version,
			DeviceName: jsonCfg.App.DeviceName,
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
			Secrets: Secrets{
				Path:       jsonCfg.Storage.Secrets.Path,
				Passphrase: jsonCfg.Storage.Secrets.Passphrase,
			},
		},
		Adapter: Adapter{
			HTTPAddress:    jsonCfg.Adapter.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
			MaxRetries:     jsonCfg.Adapter.MaxRetries,
			RetryDelay:     time.Duration(jsonCfg.Adapter.RetryDelay),
		},
		Realtime: Realtime{
			Address:           jsonCfg.Realtime.Address,
			ConnectTimeout:    time.Duration(jsonCfg.Realtime.ConnectTimeout),
			HeartbeatInterval: time.Duration(jsonCfg.Realtime.HeartbeatInterval),
			ResponseTimeout:   time.Duration(jsonCfg.Realtime.ResponseTimeout),
			ReconnectDelay:    time.Duration(jsonCfg.Realtime.ReconnectDelay),
			MaxReconnects:     jsonCfg.Realtime.MaxReconnects,
		},
		Sync: Sync{
			BatchSize:     jsonCfg.Sync.BatchSize,
			UploadRetries: jsonCfg.Sync.UploadRetries,
			RetryDelay:    time.Duration(jsonCfg.Sync.RetryDelay),
			Debounce:      time.Duration(jsonCfg.Sync.Debounce),
			Interval:      time.Duration(jsonCfg.Sync.Interval),
		},
		Netmon: Netmon{
			ProbeURL:      jsonCfg.Netmon.ProbeURL,
			ProbeInterval: time.Duration(jsonCfg.Netmon.ProbeInterval),
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
