// Package config loads the YAML configuration of the filedb tool.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/maruel/filedb/internal/filedb"
)

// ID formats accepted in Config.IDFormat.
const (
	IDFormatHex  = "hex"
	IDFormatKSID = "ksid"
)

// Config is the on-disk configuration. Empty fields select the defaults of
// package filedb.
type Config struct {
	Directory     string `yaml:"directory,omitempty" json:"directory,omitempty" jsonschema:"description=Directory holding database files"`
	Extension     string `yaml:"extension,omitempty" json:"extension,omitempty" jsonschema:"description=Database file suffix,example=.json"`
	IDFormat      string `yaml:"id_format,omitempty" json:"id_format,omitempty" jsonschema:"enum=hex,enum=ksid,description=Document identifier generator"`
	LogLevel      string `yaml:"log_level,omitempty" json:"log_level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	WatchInterval string `yaml:"watch_interval,omitempty" json:"watch_interval,omitempty" jsonschema:"description=Minimum delay between reloads while watching,example=100ms"`
}

// Load reads the YAML file at path. A missing file yields an empty Config.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that enumerated and duration fields hold usable values.
func (c *Config) Validate() error {
	switch c.IDFormat {
	case "", IDFormatHex, IDFormatKSID:
	default:
		return fmt.Errorf("unknown id_format %q", c.IDFormat)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.watchInterval(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level, info by default.
func (c *Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
	}
}

func (c *Config) watchInterval() (time.Duration, error) {
	if c.WatchInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.WatchInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid watch_interval: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid watch_interval %q: negative", c.WatchInterval)
	}
	return d, nil
}

// Options converts the configuration into store options.
func (c *Config) Options(logger *slog.Logger) (*filedb.Options, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	d, _ := c.watchInterval()
	opts := &filedb.Options{
		Directory:     c.Directory,
		Extension:     c.Extension,
		Logger:        logger,
		WatchInterval: d,
	}
	if c.IDFormat == IDFormatKSID {
		opts.NewID = filedb.KSIDGenerator
	}
	return opts, nil
}

// Schema returns the JSON Schema describing Config, for editor validation of
// the YAML file.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	schema := r.Reflect(&Config{})
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
