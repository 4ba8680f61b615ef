package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/coverline-io/coverline/internal/core/contextdef"
)

// Config represents the top-level application config plus the loaded taxonomy.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Taxonomy    TaxonomyConfig    `koanf:"taxonomy"`
	Resolution  ResolutionConfig  `koanf:"resolution"`
	Maintenance MaintenanceConfig `koanf:"maintenance"`

	// Contexts is populated by Load after parsing taxonomy files.
	Contexts contextdef.Repository `koanf:"-"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	Type         string `koanf:"type"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type TaxonomyConfig struct {
	ConfigDir         string `koanf:"config_dir"`
	RequireDimensions bool   `koanf:"require_dimensions"`
}

type ResolutionConfig struct {
	MaxCombinations    int `koanf:"max_combinations"`
	SignatureCacheSize int `koanf:"signature_cache_size"`
}

type MaintenanceConfig struct {
	Enabled       bool   `koanf:"enabled"`
	SweepInterval string `koanf:"sweep_interval"` // parsed and validated on startup
	BatchSize     int    `koanf:"batch_size"`
}

func (c MaintenanceConfig) Interval() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil {
		return 0
	}
	return d
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if c.Database.Type != "" && c.Database.Type != "postgres" && c.Database.Type != "memory" {
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}
	if c.Database.Type != "memory" {
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	}

	if strings.TrimSpace(c.Taxonomy.ConfigDir) == "" {
		return fmt.Errorf("taxonomy.config_dir is required")
	}
	if _, err := os.Stat(c.Taxonomy.ConfigDir); err != nil && c.Taxonomy.RequireDimensions {
		return fmt.Errorf("taxonomy.config_dir %q is not accessible: %w", c.Taxonomy.ConfigDir, err)
	}

	if c.Resolution.MaxCombinations < 0 {
		return fmt.Errorf("resolution.max_combinations must be >= 0")
	}
	if c.Resolution.SignatureCacheSize <= 0 {
		return fmt.Errorf("resolution.signature_cache_size must be > 0")
	}

	if c.Maintenance.Enabled {
		interval, err := time.ParseDuration(c.Maintenance.SweepInterval)
		if err != nil {
			return fmt.Errorf("invalid maintenance.sweep_interval %q: %w", c.Maintenance.SweepInterval, err)
		}
		if interval <= 0 {
			return fmt.Errorf("maintenance.sweep_interval must be > 0")
		}
		if c.Maintenance.BatchSize <= 0 {
			return fmt.Errorf("maintenance.batch_size must be > 0")
		}
	}

	return nil
}

// Load parses config from file + env, validates it, then loads the taxonomy.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                     8080,
		"server.host":                     "0.0.0.0",
		"server.max_body_size_mb":         1,
		"server.mode":                     "release",
		"database.type":                   "postgres",
		"database.dsn":                    "",
		"database.max_open_conns":         25,
		"database.max_idle_conns":         25,
		"database.auto_migrate":           true,
		"taxonomy.config_dir":             "./config/taxonomy",
		"taxonomy.require_dimensions":     true,
		"resolution.max_combinations":     0,
		"resolution.signature_cache_size": 1024,
		"maintenance.enabled":             true,
		"maintenance.sweep_interval":      "10m",
		"maintenance.batch_size":          500,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("COVERLINE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "COVERLINE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := contextdef.NewFileSystemRepository(cfg.Taxonomy.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	if cfg.Taxonomy.RequireDimensions && repo.Len() == 0 {
		return nil, fmt.Errorf("no taxonomy dimensions found in %q", cfg.Taxonomy.ConfigDir)
	}
	cfg.Contexts = repo

	return &cfg, nil
}
