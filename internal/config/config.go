package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "DIGEST_FEED_CONFIG"
	storageDriverEnv  = "DIGEST_STORAGE_DRIVER"
	storageDirEnv     = "DIGEST_STORAGE_DIR"
	databaseDSNEnv    = "DIGEST_DATABASE_DSN"
	logLevelEnv       = "DIGEST_LOG_LEVEL"
	categoryPolicyEnv = "DIGEST_CATEGORY_POLICY"
)

// Storage drivers understood by the application.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Storage StorageConfig `yaml:"storage"`
	Import  ImportConfig  `yaml:"import"`
}

// LoggingConfig selects the minimum slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig picks the digest archive backend.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Dir    string `yaml:"dir"`
	DSN    string `yaml:"dsn"`
}

// ImportConfig controls how incoming digest documents are treated.
type ImportConfig struct {
	// CategoryPolicy is "fallback" or "reject".
	CategoryPolicy string `yaml:"categoryPolicy"`
	// SnippetLength caps plain-text snippets in overviews, in runes.
	SnippetLength int `yaml:"snippetLength"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load with an explicit path; an empty path means defaults only.
// A missing or malformed file is logged and ignored.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// LoadRequired is LoadFile for a path the user asked for: a file that cannot
// be read or parsed is an error instead of a silent fallback.
func LoadRequired(path string) (Config, error) {
	fileCfg, err := readFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := mergeConfig(defaultConfig(), fileCfg)
	cfg.applyEnvOverrides()
	return cfg, nil
}

func readFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(storageDriverEnv); v != "" {
		c.Storage.Driver = v
	}

	if v := os.Getenv(storageDirEnv); v != "" {
		c.Storage.Dir = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(categoryPolicyEnv); v != "" {
		c.Import.CategoryPolicy = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Storage.Driver != "" {
		base.Storage.Driver = override.Storage.Driver
	}
	if override.Storage.Dir != "" {
		base.Storage.Dir = override.Storage.Dir
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}

	if override.Import.CategoryPolicy != "" {
		base.Import.CategoryPolicy = override.Import.CategoryPolicy
	}
	if override.Import.SnippetLength > 0 {
		base.Import.SnippetLength = override.Import.SnippetLength
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Storage: StorageConfig{
			Driver: DriverFile,
			Dir:    "data/digests",
			DSN:    "file:data/digests.db",
		},
		Import: ImportConfig{
			CategoryPolicy: "fallback",
			SnippetLength:  120,
		},
	}
}
