// internal/config/load.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

// Environment overrides. Non-empty values win over the YAML file.
const (
	EnvEndpoint     = "OPCUA_ENDPOINT"
	EnvPollInterval = "OPCUA_POLL_INTERVAL_MS"
	EnvReadTimeout  = "OPCUA_READ_TIMEOUT_MS"
	EnvMQTTBroker   = "MQTT_BROKER"
	EnvHTTPListen   = "HTTP_LISTEN"
	EnvLogLevel     = "LOG_LEVEL"
)

// LoadEnvFiles loads dotenv files into the process environment.
// Missing files are skipped; existing variables are never overwritten.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: env file %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from environment variables read through getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if cfg == nil {
		return nil
	}
	if getenv == nil {
		getenv = os.Getenv
	}

	if v := getenv(EnvEndpoint); v != "" {
		cfg.Source.Endpoint = v
	}
	if err := envInt(getenv, EnvPollInterval, &cfg.Poll.IntervalMs); err != nil {
		return err
	}
	if err := envInt(getenv, EnvReadTimeout, &cfg.Poll.ReadTimeoutMs); err != nil {
		return err
	}
	if v := getenv(EnvMQTTBroker); v != "" {
		if cfg.MQTT == nil {
			cfg.MQTT = &MQTTConfig{}
		}
		cfg.MQTT.Broker = v
	}
	if v := getenv(EnvHTTPListen); v != "" {
		cfg.HTTP.Listen = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func envInt(getenv func(string) string, key string, dst *int) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s=%q: not an integer", key, v)
	}
	*dst = n
	return nil
}
