package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration. Zero values are filled from
// defaults; a YAML file and then environment variables override them.
type Config struct {
	ListenAddr string `yaml:"listen_addr"` // newline-delimited TCP protocol
	HTTPAddr   string `yaml:"http_addr"`   // websocket transport + health/status

	DataDir   string `yaml:"data_dir"`
	WorldSeed int64  `yaml:"world_seed"`
	TickHz    int    `yaml:"tick_hz"`

	FlushSeconds  int `yaml:"flush_seconds"`  // dirty-account flush interval
	BackupMinutes int `yaml:"backup_minutes"` // compressed backup interval, 0 disables
	BackupKeep    int `yaml:"backup_keep"`    // backups retained after pruning

	Storage StorageConfig `yaml:"storage"`
}

// StorageConfig selects the account-store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // json, sqlite or postgres
	DSN     string `yaml:"dsn"`     // postgres connection string
}

func defaults() Config {
	return Config{
		ListenAddr:    ":5555",
		HTTPAddr:      ":8080",
		DataDir:       ".",
		WorldSeed:     1337,
		TickHz:        20,
		FlushSeconds:  5,
		BackupMinutes: 30,
		BackupKeep:    10,
		Storage: StorageConfig{
			Backend: "json",
			DSN:     "host=localhost user=embervale password=embervale dbname=embervale sslmode=disable",
		},
	}
}

// Load reads the config file (optional), then applies environment
// overrides. An empty path yields defaults plus env.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: %w", err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.ListenAddr = ":" + port
	}
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		c.HTTPAddr = addr
	}
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if backend := os.Getenv("DB_TYPE"); backend != "" {
		c.Storage.Backend = backend
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Storage.DSN = dsn
	}
	if seed := os.Getenv("WORLD_SEED"); seed != "" {
		if v, err := strconv.ParseInt(seed, 10, 64); err == nil {
			c.WorldSeed = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "json", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.TickHz <= 0 {
		return fmt.Errorf("config: tick_hz must be positive, got %d", c.TickHz)
	}
	if c.FlushSeconds <= 0 {
		return fmt.Errorf("config: flush_seconds must be positive, got %d", c.FlushSeconds)
	}
	return nil
}
