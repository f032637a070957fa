// Package config resolves runtime settings from defaults, an optional YAML
// file and TRADECORE_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Blob drivers.
const (
	BlobFilesystem = "fs"
	BlobS3         = "s3"
	BlobMemory     = "memory"
)

// Config is the full runtime configuration.
type Config struct {
	Storage Storage `yaml:"storage"`
	Blob    Blob    `yaml:"blob"`
	Game    Game    `yaml:"game"`
	// CatalogDir overrides the embedded catalog with a directory of JSON files.
	CatalogDir string `yaml:"catalog_dir"`
	// CommandRate is the per-player command budget per second; zero disables it.
	CommandRate  float64 `yaml:"command_rate"`
	CommandBurst int     `yaml:"command_burst"`
}

// Storage selects the snapshot store.
type Storage struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Blob selects where finished games are archived. An empty driver disables
// archiving.
type Blob struct {
	Driver string `yaml:"driver"`
	FSRoot string `yaml:"fs_root"`
	S3     S3     `yaml:"s3"`
}

// S3 configures the S3 or MinIO archive backend.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Game holds defaults for newly created games.
type Game struct {
	EndRound        int `yaml:"end_round"`
	TechSpreadDelay int `yaml:"tech_spread_delay"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: Storage{
			Driver:      StorageSQLite,
			SQLitePath:  "tradecore.db",
			PostgresDSN: "postgres://localhost/tradecore?sslmode=disable",
		},
		Blob: Blob{
			FSRoot: "archive",
			S3:     S3{Region: "us-east-1"},
		},
		Game:         Game{EndRound: 6},
		CommandBurst: 5,
	}
}

// Load builds the configuration from defaults, the YAML file named by path
// (or by TRADECORE_CONFIG when path is empty) and the environment.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path == "" {
		path, _ = lookup("TRADECORE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator supplied config path
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("TRADECORE_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("TRADECORE_SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("TRADECORE_POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	str("TRADECORE_BLOB_DRIVER", &cfg.Blob.Driver)
	str("TRADECORE_BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("TRADECORE_BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("TRADECORE_BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("TRADECORE_BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	str("TRADECORE_CATALOG_DIR", &cfg.CatalogDir)
	if v, ok := lookup("TRADECORE_BLOB_S3_PATH_STYLE"); ok && v != "" {
		cfg.Blob.S3.PathStyle = strings.EqualFold(v, "true")
	}
	if v, ok := lookup("TRADECORE_END_ROUND"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRADECORE_END_ROUND: %w", err)
		}
		cfg.Game.EndRound = n
	}
	if v, ok := lookup("TRADECORE_COMMAND_RATE"); ok && v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRADECORE_COMMAND_RATE: %w", err)
		}
		cfg.CommandRate = r
	}
	return nil
}

// Validate rejects unknown drivers and out-of-range values.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite, StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case "", BlobFilesystem, BlobMemory:
	case BlobS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 blob driver requires a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	if c.Game.EndRound < 1 {
		errs = append(errs, fmt.Errorf("end round must be positive, got %d", c.Game.EndRound))
	}
	if c.Game.TechSpreadDelay < 0 {
		errs = append(errs, fmt.Errorf("tech spread delay must not be negative, got %d", c.Game.TechSpreadDelay))
	}
	if c.CommandRate < 0 {
		errs = append(errs, fmt.Errorf("command rate must not be negative, got %g", c.CommandRate))
	}
	return errors.Join(errs...)
}
