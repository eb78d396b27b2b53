// Package config persists the CLI's settings in a JSON .p6schemarc file.
// Values may be overridden with P6SCHEMA_* environment variables, which are
// also read from a .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/tordrt/p6schema/internal/debug"
)

var AppFs = afero.NewOsFs()

const (
	FileName = ".p6schemarc"

	KeyDefaultSchema = "default_schema"
	KeySchemaDir     = "schema_dir"

	DefaultSchemaDir = "./schemas"

	envPrefix = "P6SCHEMA"
)

// Config holds the resolved settings
type Config struct {
	DefaultSchema string
	SchemaDir     string

	file string
}

// Load reads the config file from the working directory, falling back to the
// home directory
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to find home directory: %w", err)
	}
	return LoadFrom(".", home)
}

// LoadFrom reads the first .p6schemarc found in dirs. When none exists, writes
// go to the last directory.
func LoadFrom(dirs ...string) (*Config, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no config directories given")
	}
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetDefault(KeySchemaDir, DefaultSchemaDir)

	cfg := &Config{file: filepath.Join(dirs[len(dirs)-1], FileName)}
	if path, ok := find(dirs); ok {
		cfg.file = path
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		debug.Debug("config loaded", "path", path)
	}

	schemaDir, err := homedir.Expand(v.GetString(KeySchemaDir))
	if err != nil {
		return nil, fmt.Errorf("failed to expand schema directory: %w", err)
	}
	cfg.DefaultSchema = v.GetString(KeyDefaultSchema)
	cfg.SchemaDir = schemaDir
	return cfg, nil
}

func find(dirs []string) (string, bool) {
	for _, dir := range dirs {
		path := filepath.Join(dir, FileName)
		if ok, _ := afero.Exists(AppFs, path); ok {
			return path, true
		}
	}
	return "", false
}

// loadDotEnv sets variables from path that are not already in the environment
func loadDotEnv(path string) error {
	f, err := AppFs.Open(path)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for k, val := range vars {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, val); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	return nil
}

// Path returns the config file in use, or the one the next write creates
func (c *Config) Path() string {
	return c.file
}

// Settings returns what the config file itself holds, ignoring environment
// overrides and defaults
func (c *Config) Settings() (map[string]any, error) {
	v, err := c.fileViper()
	if err != nil {
		return nil, err
	}
	return v.AllSettings(), nil
}

// SetDefault persists spec as the default schema
func (c *Config) SetDefault(spec string) error {
	v, err := c.fileViper()
	if err != nil {
		return err
	}
	v.Set(KeyDefaultSchema, spec)
	if err := v.WriteConfigAs(c.file); err != nil {
		return fmt.Errorf("failed to write config %s: %w", c.file, err)
	}
	c.DefaultSchema = spec
	return nil
}

// ClearDefault removes the persisted default schema and reports whether one
// was set. An emptied config file is removed.
func (c *Config) ClearDefault() (bool, error) {
	v, err := c.fileViper()
	if err != nil {
		return false, err
	}
	settings := v.AllSettings()
	if _, ok := settings[KeyDefaultSchema]; !ok {
		return false, nil
	}
	delete(settings, KeyDefaultSchema)
	c.DefaultSchema = ""

	if len(settings) == 0 {
		if err := AppFs.Remove(c.file); err != nil {
			return false, fmt.Errorf("failed to remove config %s: %w", c.file, err)
		}
		return true, nil
	}

	w := newFileViper()
	for k, val := range settings {
		w.Set(k, val)
	}
	if err := w.WriteConfigAs(c.file); err != nil {
		return false, fmt.Errorf("failed to write config %s: %w", c.file, err)
	}
	return true, nil
}

func newFileViper() *viper.Viper {
	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigType("json")
	return v
}

// fileViper reads only the config file. Environment overrides and defaults
// are not included.
func (c *Config) fileViper() (*viper.Viper, error) {
	v := newFileViper()
	exists, err := afero.Exists(AppFs, c.file)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config %s: %w", c.file, err)
	}
	if !exists {
		return v, nil
	}
	v.SetConfigFile(c.file)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", c.file, err)
	}
	return v, nil
}
