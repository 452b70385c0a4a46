// Package config loads tool configuration from an optional YAML file
// with environment variable overrides. Environment always wins so
// container deployments can skip the file entirely.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StorageConfig selects and parameterizes the record store backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// S3Config parameterizes the S3 blob driver.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// BlobConfig selects and parameterizes the artifact payload store.
type BlobConfig struct {
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// LogConfig controls CLI log output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// Config is the root configuration document.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Blob    BlobConfig    `yaml:"blob"`
	Log     LogConfig     `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{Driver: "sqlite", SQLitePath: "simcore.db"},
		Blob:    BlobConfig{Driver: "fs", FSRoot: "./blobdata"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path (when non-empty and present) over the
// defaults, then applies environment overrides. A missing explicit path
// is an error; a missing default path is not.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if path == "" {
		path = os.Getenv("SIMCORE_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = "simcore.yaml"
	}
	raw, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// defaults only
	default:
		return Config{}, err
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Storage.Driver, "SIMCORE_STORAGE_DRIVER")
	setString(&c.Storage.SQLitePath, "SIMCORE_SQLITE_PATH")
	setString(&c.Storage.PostgresDSN, "SIMCORE_POSTGRES_DSN")
	setString(&c.Blob.Driver, "SIMCORE_BLOB_DRIVER")
	setString(&c.Blob.FSRoot, "SIMCORE_BLOB_FS_ROOT")
	setString(&c.Blob.S3.Bucket, "SIMCORE_BLOB_S3_BUCKET")
	setString(&c.Blob.S3.Region, "SIMCORE_BLOB_S3_REGION")
	setString(&c.Blob.S3.Endpoint, "SIMCORE_BLOB_S3_ENDPOINT")
	if v := os.Getenv("SIMCORE_BLOB_S3_PATH_STYLE"); v != "" {
		c.Blob.S3.PathStyle = strings.EqualFold(v, "true")
	}
	setString(&c.Log.Level, "SIMCORE_LOG_LEVEL")
	setString(&c.Log.Format, "SIMCORE_LOG_FORMAT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "fs", "s3", "memory":
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("postgres storage requires a DSN")
	}
	if c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("s3 blob driver requires a bucket")
	}
	return nil
}
