package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"rollcall/internal/ingest"
	"rollcall/internal/settings"
)

const FileName = "rollcall.yml"

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Config models rollcall.yml.
type Config struct {
	Storage struct {
		Backend string `yaml:"backend" json:"backend"`
	} `yaml:"storage" json:"storage"`
	Ingest struct {
		Delimiter      string   `yaml:"delimiter" json:"delimiter"`
		HeaderKeywords []string `yaml:"header_keywords" json:"header_keywords"`
	} `yaml:"ingest" json:"ingest"`
	Report struct {
		Header []string `yaml:"header" json:"header"`
		Logo   string   `yaml:"logo,omitempty" json:"logo,omitempty"`
	} `yaml:"report" json:"report"`
	Settings struct {
		FontSize int `yaml:"font_size" json:"font_size"`
	} `yaml:"settings" json:"settings"`
	Server struct {
		Addr string `yaml:"addr" json:"addr"`
	} `yaml:"server" json:"server"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendFile, BackendMemory:
	default:
		return fmt.Errorf("config.storage.backend must be one of sqlite, file, memory (got %q)", c.Storage.Backend)
	}
	if _, err := c.Parser(); err != nil {
		return fmt.Errorf("config.ingest: %w", err)
	}
	for i, line := range c.Report.Header {
		if strings.TrimSpace(line) == "" {
			return fmt.Errorf("config.report.header[%d] is empty", i)
		}
	}
	if fs := c.Settings.FontSize; fs != 0 && (fs < settings.MinFontSize || fs > settings.MaxFontSize) {
		return fmt.Errorf("config.settings.font_size must be between %d and %d", settings.MinFontSize, settings.MaxFontSize)
	}
	if c.Server.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
			return fmt.Errorf("config.server.addr: %w", err)
		}
	}
	return nil
}

// Parser builds the ingestion parser described by the config.
func (c *Config) Parser() (ingest.Parser, error) {
	return ingest.New(c.Ingest.Delimiter, c.Ingest.HeaderKeywords)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// Load reads the workspace config, falling back to defaults when the file
// does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing
// from data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write stores the default config in workspace unless one already exists.
func Write(workspace string, force bool) (string, error) {
	path := Path(workspace)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("config %s already exists; use --force to overwrite", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, err
	}
	return path, os.WriteFile(path, []byte(defaultTemplate), 0o644)
}

const defaultTemplate = `storage:
  # sqlite keeps the session in .rollcall/rollcall.db and journals every change.
  # file writes .rollcall/<key>.json; memory keeps nothing across runs.
  backend: sqlite

ingest:
  delimiter: ","
  header_keywords: [name, nombre, attendee, asistente, participant, participante]

report:
  header:
    - UNIVERSIDAD NACIONAL MAYOR DE SAN MARCOS
    - Universidad del Perú. Decana de América
    - SECRETARÍA GENERAL
  # logo: https://example.org/logo.png

settings:
  font_size: 16

server:
  addr: 127.0.0.1:8080
`
