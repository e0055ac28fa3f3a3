// Package config loads kvstore settings from defaults, an optional YAML file,
// KVSTORE_* environment variables and explicit overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "KVSTORE_"

type Config struct {
	Store   Store   `koanf:"store"`
	Server  Server  `koanf:"server"`
	Log     Log     `koanf:"log"`
	Auth    Auth    `koanf:"auth"`
	Metrics Metrics `koanf:"metrics"`
}

type Store struct {
	URL string `koanf:"url" validate:"required"`
	// Mode is "overwrite" or "append"; empty picks the backend's default.
	Mode          string        `koanf:"mode" validate:"omitempty,oneof=overwrite append"`
	Codec         string        `koanf:"codec" validate:"oneof=json bson cbor msgpack protobuf"`
	Namespace     string        `koanf:"namespace"`
	Timeout       time.Duration `koanf:"timeout"`
	PingTimeout   time.Duration `koanf:"ping_timeout" validate:"gte=0"`
	Database      string        `koanf:"database"`
	Collection    string        `koanf:"collection"`
	MaxValueBytes int           `koanf:"max_value_bytes" validate:"gte=0"`
}

type Server struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

type Log struct {
	Driver string `koanf:"driver" validate:"oneof=charm slog zap logrus"`
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON   bool   `koanf:"json"`
}

type Auth struct {
	Enabled bool `koanf:"enabled"`
}

type Metrics struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace" validate:"required_if=Enabled true"`
}

func Default() *Config {
	return &Config{
		Store: Store{
			URL:         "redis://localhost:6379/0",
			Codec:       "json",
			Timeout:     5 * time.Second,
			PingTimeout: 5 * time.Second,
		},
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: Log{
			Driver: "charm",
			Level:  "info",
		},
		Auth:    Auth{Enabled: true},
		Metrics: Metrics{Enabled: true, Namespace: "kvstore"},
	}
}

// Load builds the configuration. path may be empty. overrides are koanf paths
// such as "store.url" and win over every other source.
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		data, err := readYAML(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawMap(data), nil); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnvKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("failed to apply override %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// transformEnvKey maps KVSTORE_STORE_PING_TIMEOUT to store.ping_timeout: the
// first segment is the section, the rest is the field name.
func transformEnvKey(key, value string) (string, any) {
	s := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' })
	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], value
	default:
		return parts[0] + "." + strings.Join(parts[1:], "_"), value
	}
}

func readYAML(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var data map[string]any
	if err := yaml.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return data, nil
}

// rawMap is a koanf.Provider over already-parsed data.
type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) {
	return r, nil
}

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ReadBytes not implemented")
}
