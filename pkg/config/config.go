package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// Config holds all verba settings loaded from the TOML config file.
type Config struct {
	// DatabasePath is the SQLite database holding the transcript table.
	DatabasePath string `toml:"database_path"`
	// StaticDir overrides the embedded web UI assets when set.
	StaticDir string `toml:"static_dir,omitempty"`
	Audio     Audio  `toml:"audio"`
}

// Audio holds tunables for the bulk audio archiver. Both values can be
// changed at runtime via the config watcher in serve.
type Audio struct {
	// FetchTimeout bounds each individual audio download.
	FetchTimeout Duration `toml:"fetch_timeout"`
	// Concurrency is the number of parallel audio downloads.
	Concurrency int `toml:"concurrency"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() (*Config, error) {
	dbPath, err := GetDefaultDBPath()
	if err != nil {
		return nil, fmt.Errorf("getting default database path: %w", err)
	}
	return &Config{
		DatabasePath: dbPath,
		Audio: Audio{
			FetchTimeout: Duration{5 * time.Second},
			Concurrency:  4,
		},
	}, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.DatabasePath == "" {
		dbPath, err := GetDefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("getting default database path: %w", err)
		}
		config.DatabasePath = dbPath
	}

	if config.Audio.FetchTimeout.Duration == 0 {
		config.Audio.FetchTimeout = Duration{5 * time.Second}
	}

	if config.Audio.Concurrency <= 0 {
		config.Audio.Concurrency = 4
	}

	return &config, nil
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented sample config, substituting the
// default database path.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	dbPath := c.DatabasePath
	if dbPath == "" {
		var err error
		dbPath, err = GetDefaultDBPath()
		if err != nil {
			return fmt.Errorf("getting default database path: %w", err)
		}
	}

	template := fmt.Sprintf(configTemplate, dbPath)
	return os.WriteFile(configPath, []byte(template), 0644)
}

// GetDefaultStorageDir returns the default data directory for the database.
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	verbaDir := filepath.Join(dataDir, "verba")

	if err := os.MkdirAll(verbaDir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", verbaDir, err)
	}

	return verbaDir, nil
}

// GetDefaultDBPath returns the default database path in the user's data directory.
func GetDefaultDBPath() (string, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(storageDir, "verba.db"), nil
}

// GetConfigDir returns the configuration directory for verba.
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	verbaConfigDir := filepath.Join(configDir, "verba")

	if err := os.MkdirAll(verbaConfigDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", verbaConfigDir, err)
	}

	return verbaConfigDir, nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
