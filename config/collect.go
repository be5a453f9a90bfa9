package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no config file is named.
const DefaultPath = "omevox.yaml"

// Parse reads YAML over the defaults, so missing keys keep their default.
func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.Log.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("config: log.color must be auto, always or never, got %q", c.Log.Color)
	}
	if c.Pack.ChunkEdge < 0 || c.Pack.BatchSize < 0 || c.Pack.Workers < 0 {
		return fmt.Errorf("config: pack sizes must not be negative")
	}
	if c.Server.MaxUpload <= 0 {
		return fmt.Errorf("config: server.max_upload must be positive")
	}
	return nil
}

// Load reads path, or DefaultPath when path is empty. A missing file is
// not an error: the defaults are returned and created reports that the
// file should be written back.
func Load(path string) (c *Config, created bool, err error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		c = Default()
		c.writeBackPath = path
		return c, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if c, err = Parse(data); err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}
	c.writeBackPath = path
	return c, false, nil
}

// WriteBack saves c to the path it was loaded from.
func (c *Config) WriteBack() error {
	if c.writeBackPath == "" {
		return fmt.Errorf("config: no write back path")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.writeBackPath, data, 0o644)
}
