// Package config manages revtrack configuration and the .revtrack
// directory structure. It handles loading, saving, and initializing the
// repository configuration, including which entity types and fields are
// tracked.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/mkalnins/revtrack/internal/registry"
)

const (
	Dir          = ".revtrack"
	ConfigFile   = "config"
	DatabaseFile = "revtrack.db"
)

// FieldSpec is the on-disk form of one tracked field.
type FieldSpec struct {
	Name     string `toml:"name"`
	Kind     string `toml:"kind,omitempty"`
	Nullable bool   `toml:"nullable,omitempty"`
}

// TypeSpec is the on-disk form of one tracked entity type.
type TypeSpec struct {
	Name   string      `toml:"name"`
	Fields []FieldSpec `toml:"fields"`
}

// Config represents the revtrack configuration.
type Config struct {
	DefaultEditor string     `toml:"default_editor,omitempty"`
	Types         []TypeSpec `toml:"types,omitempty"`

	path string // path to .revtrack directory
}

// FindRoot finds the .revtrack directory by walking up from the current
// directory.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		path := filepath.Join(dir, Dir)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a revtrack repository (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .revtrack directory.
func Load() (*Config, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return LoadFrom(root)
}

// LoadFrom loads the configuration from a specific .revtrack directory.
func LoadFrom(root string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(root, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = root
	return &cfg, nil
}

// Save saves the configuration to disk.
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0644)
}

// Path returns the path to the .revtrack directory.
func (c *Config) Path() string {
	return c.path
}

// DatabasePath returns the path to the SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// SetType records or replaces the tracked-field set for an entity type.
func (c *Config) SetType(spec TypeSpec) {
	for i, t := range c.Types {
		if t.Name == spec.Name {
			c.Types[i] = spec
			return
		}
	}
	c.Types = append(c.Types, spec)
}

// Registry builds the field registry from the configured type specs.
func (c *Config) Registry() (*registry.Registry, error) {
	reg := registry.New()
	for _, t := range c.Types {
		fields := make([]registry.Field, 0, len(t.Fields))
		for _, f := range t.Fields {
			kind, err := registry.ParseKind(f.Kind)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", t.Name, err)
			}
			fields = append(fields, registry.Field{Name: f.Name, Kind: kind, Nullable: f.Nullable})
		}
		if err := reg.Register(t.Name, fields...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Initialize creates a new .revtrack directory with initial configuration.
func Initialize() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return InitializeAt(cwd)
}

// InitializeAt creates a new .revtrack directory under the given directory.
func InitializeAt(dir string) (*Config, error) {
	root := filepath.Join(dir, Dir)
	if _, err := os.Stat(root); err == nil {
		return nil, fmt.Errorf("already a revtrack repository: %s", root)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", root, err)
	}

	cfg := &Config{path: root}
	if err := cfg.Save(); err != nil {
		return nil, err
	}
	return cfg, nil
}
