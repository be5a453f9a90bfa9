package config

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

type LogConfig struct {
	Level string `yaml:"level"`
	// Color is auto, always or never.
	Color string `yaml:"color"`
}

type TranslateConfig struct {
	// Rules is a JSONC rule file; empty uses the built-in table.
	Rules   string `yaml:"rules"`
	Enabled bool   `yaml:"enabled"`
}

type HollowConfig struct {
	// NonSolid extends the stock list of blocks that never hide neighbours.
	NonSolid []string `yaml:"non_solid"`
}

type PackConfig struct {
	Namespace string `yaml:"namespace"`
	ChunkEdge int    `yaml:"chunk_edge"`
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
	// MaxUpload caps the input file size in bytes.
	MaxUpload int64    `yaml:"max_upload"`
	Origins   []string `yaml:"origins"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Translate TranslateConfig `yaml:"translate"`
	Hollow    HollowConfig    `yaml:"hollow"`
	Pack      PackConfig      `yaml:"pack"`
	Server    ServerConfig    `yaml:"server"`

	writeBackPath string
}

func Default() *Config {
	return &Config{
		Log:       LogConfig{Level: "info", Color: "auto"},
		Translate: TranslateConfig{Enabled: true},
		Pack:      PackConfig{Namespace: "omevox", ChunkEdge: 64, BatchSize: 256},
		Server:    ServerConfig{Listen: "127.0.0.1:8765", MaxUpload: 256 << 20},
	}
}

// Logger builds the process logger writing to out. Colors follow
// Log.Color, "auto" meaning only when out is a terminal.
func (c *Config) Logger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	colors := false
	switch c.Log.Color {
	case "always":
		colors = true
	case "never":
	default:
		if f, ok := out.(*os.File); ok {
			colors = term.IsTerminal(int(f.Fd()))
		}
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:      colors,
		DisableColors:    !colors,
		FullTimestamp:    true,
		TimestampFormat:  "15:04:05",
		QuoteEmptyFields: true,
	})
	return log, nil
}
