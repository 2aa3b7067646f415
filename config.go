package statebox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the file form of the store options.
type Config struct {
	History        bool   `yaml:"history" json:"history"`
	Debug          bool   `yaml:"debug" json:"debug"`
	Exclusive      bool   `yaml:"exclusive" json:"exclusive"`
	Slot           string `yaml:"slot" json:"slot"`
	PersistLocal   bool   `yaml:"persist_local" json:"persist_local"`
	PersistSession bool   `yaml:"persist_session" json:"persist_session"`
	Evaluator      string `yaml:"evaluator" json:"evaluator"`
	Activity       struct {
		Enabled *bool  `yaml:"enabled" json:"enabled"`
		Channel string `yaml:"channel" json:"channel"`
	} `yaml:"activity" json:"activity"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("statebox: read config %q: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML config document. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("statebox: parse config: %w", err)
	}
	return cfg, nil
}

// WithConfig applies a Config. Persistence flags only take effect for
// storages attached with WithLocalStorage or WithSessionStorage, so list
// those options before WithConfig to let the file switch them off.
func WithConfig(c Config) Option {
	return func(cfg *storeConfig) {
		cfg.history = c.History || c.Debug
		cfg.debug = c.Debug
		cfg.exclusive = cfg.exclusive || c.Exclusive
		if c.Slot != "" {
			cfg.slot = c.Slot
		}
		cfg.persistLocal = c.PersistLocal
		cfg.persistSession = c.PersistSession
		if c.Evaluator != "" {
			WithEngine(c.Evaluator)(cfg)
		}
		if c.Activity.Enabled != nil {
			cfg.activityConfig.Enabled = *c.Activity.Enabled
		}
		if c.Activity.Channel != "" {
			cfg.activityConfig.Channel = c.Activity.Channel
		}
	}
}
