// Package config resolves settings from defaults, the user's config file and
// the environment. Command-line flags are applied on top by the caller.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/term"

	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/generator"
	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/refimage"
)

// Defaults.
const (
	DefaultModel       = generator.DefaultModel
	DefaultMetadataKey = "Description"
	DefaultPort        = "8080"
	DefaultMaxEdge     = refimage.DefaultMaxEdge
)

// Config holds every setting the CLI and server read.
type Config struct {
	APIKey           string `json:"api_key,omitempty"`
	Model            string `json:"model,omitempty"`
	MetadataKey      string `json:"metadata_key,omitempty"`
	DBPath           string `json:"db_path,omitempty"`
	Port             string `json:"port,omitempty"`
	MaxReferenceEdge int    `json:"max_reference_edge,omitempty"`
	FontPath         string `json:"font_path,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model:            DefaultModel,
		MetadataKey:      DefaultMetadataKey,
		Port:             DefaultPort,
		MaxReferenceEdge: DefaultMaxEdge,
	}
}

// Path returns ~/.config/pardal/config.json.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(dir, "pardal", "config.json"), nil
}

// Load returns defaults overlaid with the config file (if present) and the
// environment.
func Load() (*Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}
	if err := cfg.mergeEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile returns defaults overlaid with the config file only. Settings
// edited from it and saved back never pick up environment values.
func LoadFile() (*Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil
	}
	return loadFrom(path)
}

func loadFrom(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Errorf("reading %s: %w", path, err)
	}
	var file Config
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Errorf("parsing %s: %w", path, err)
	}
	c.overlay(&file)
	return nil
}

func (c *Config) mergeEnv(getenv func(string) string) error {
	env := Config{
		APIKey:      firstNonEmpty(getenv("GEMINI_API_KEY"), getenv("GOOGLE_API_KEY")),
		Model:       getenv("PARDAL_MODEL"),
		MetadataKey: getenv("PARDAL_METADATA_KEY"),
		DBPath:      getenv("PARDAL_DB"),
		Port:        getenv("PORT"),
		FontPath:    getenv("PARDAL_FONT"),
	}
	if v := getenv("PARDAL_MAX_REFERENCE_EDGE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return errors.Errorf("PARDAL_MAX_REFERENCE_EDGE: invalid value %q", v)
		}
		env.MaxReferenceEdge = n
	}
	c.overlay(&env)
	return nil
}

// overlay copies every non-zero field of o onto c.
func (c *Config) overlay(o *Config) {
	if o.APIKey != "" {
		c.APIKey = o.APIKey
	}
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.MetadataKey != "" {
		c.MetadataKey = o.MetadataKey
	}
	if o.DBPath != "" {
		c.DBPath = o.DBPath
	}
	if o.Port != "" {
		c.Port = o.Port
	}
	if o.MaxReferenceEdge > 0 {
		c.MaxReferenceEdge = o.MaxReferenceEdge
	}
	if o.FontPath != "" {
		c.FontPath = o.FontPath
	}
}

// Save writes the config file, creating its directory.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return saveTo(path, cfg)
}

func saveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return errors.Errorf("encoding config: %w", err)
	}
	// The file may hold an API key.
	return os.WriteFile(path, data, 0600)
}

// PromptAPIKey asks for the API key on an interactive terminal without
// echoing it. It returns "" without prompting when stdin is not a terminal.
func PromptAPIKey(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(out, "Gemini API key (leave empty for offline mode): ")
	key, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", errors.Errorf("reading API key: %w", err)
	}
	return strings.TrimSpace(string(key)), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
