package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/storage"
)

const (
	DefaultZoom        = 17
	DefaultTileURL     = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
	DefaultSQLitePath  = "mapty.db"
)

type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
	Map       MapConfig       `yaml:"map" envPrefix:"MAP_"`
	Tailscale TailscaleConfig `yaml:"tailscale" envPrefix:"TAILSCALE_"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

type StorageConfig struct {
	// Driver is one of sqlite, postgres or memory.
	Driver   string         `yaml:"driver" env:"DRIVER"`
	SQLite   SQLiteConfig   `yaml:"sqlite" envPrefix:"SQLITE_"`
	Postgres PostgresConfig `yaml:"postgres" envPrefix:"POSTGRES_"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

type PostgresConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Name     string `yaml:"name" env:"NAME"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
}

type MapConfig struct {
	Zoom        int    `yaml:"zoom" env:"ZOOM"`
	TileURL     string `yaml:"tile_url" env:"TILE_URL"`
	Attribution string `yaml:"attribution" env:"ATTRIBUTION"`
	// Position stands in for the device location. Without it the map stays
	// unavailable and only the workout list is served.
	Position *PositionConfig `yaml:"position" envPrefix:"POSITION_"`
}

type PositionConfig struct {
	Lat float64 `yaml:"lat" env:"LAT"`
	Lng float64 `yaml:"lng" env:"LNG"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Hostname string `yaml:"hostname" env:"HOSTNAME"`
	StateDir string `yaml:"state_dir" env:"STATE_DIR"`
}

// DSN returns a PostgreSQL connection string.
func (d PostgresConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Options converts the storage section for storage.Open.
func (s StorageConfig) Options() storage.Options {
	opts := storage.Options{
		Driver:         s.Driver,
		SQLitePath:     s.SQLite.Path,
		MigrationsPath: "migrations",
	}
	if s.Driver == storage.DriverPostgres {
		opts.PostgresDSN = s.Postgres.DSN()
	}
	return opts
}

// Coordinates returns the configured position, or nil when none is set.
func (m MapConfig) Coordinates() *models.Coordinates {
	if m.Position == nil {
		return nil
	}
	return &models.Coordinates{Lat: m.Position.Lat, Lng: m.Position.Lng}
}

// Default returns a config that serves on :8080 with a local SQLite file.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: 8080},
		Storage: StorageConfig{Driver: storage.DriverSQLite, SQLite: SQLiteConfig{Path: DefaultSQLitePath}},
		Map: MapConfig{
			Zoom:        DefaultZoom,
			TileURL:     DefaultTileURL,
			Attribution: DefaultAttribution,
		},
	}
}

// Load reads config from a YAML file on top of Default, then applies
// environment variable overrides. Env vars use the prefix MAPTY_ and
// underscore-separated paths:
//
//	MAPTY_SERVER_HOST, MAPTY_SERVER_PORT,
//	MAPTY_STORAGE_DRIVER, MAPTY_STORAGE_SQLITE_PATH,
//	MAPTY_STORAGE_POSTGRES_HOST, MAPTY_STORAGE_POSTGRES_PORT, ...,
//	MAPTY_MAP_ZOOM, MAPTY_MAP_TILE_URL, MAPTY_MAP_POSITION_LAT, MAPTY_MAP_POSITION_LNG,
//	MAPTY_TAILSCALE_ENABLED, MAPTY_TAILSCALE_HOSTNAME, MAPTY_TAILSCALE_STATE_DIR
//
// A missing file is not an error; defaults and env vars still apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	hasPosition := cfg.Map.Position != nil
	if cfg.Map.Position == nil {
		cfg.Map.Position = &PositionConfig{}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "MAPTY_"}); err != nil {
		return err
	}
	_, lat := os.LookupEnv("MAPTY_MAP_POSITION_LAT")
	_, lng := os.LookupEnv("MAPTY_MAP_POSITION_LNG")
	if !hasPosition && !lat && !lng {
		cfg.Map.Position = nil
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	switch c.Storage.Driver {
	case "", storage.DriverSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required")
		}
	case storage.DriverPostgres:
		p := c.Storage.Postgres
		if p.Host == "" {
			return fmt.Errorf("storage.postgres.host is required")
		}
		if p.Port == 0 {
			return fmt.Errorf("storage.postgres.port is required")
		}
		if p.Name == "" {
			return fmt.Errorf("storage.postgres.name is required")
		}
		if p.User == "" {
			return fmt.Errorf("storage.postgres.user is required")
		}
	case storage.DriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not one of sqlite, postgres, memory", c.Storage.Driver)
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > 22 {
		return fmt.Errorf("map.zoom must be between 0 and 22, got %d", c.Map.Zoom)
	}
	if c.Map.TileURL == "" {
		return fmt.Errorf("map.tile_url is required")
	}
	if p := c.Map.Position; p != nil {
		if math.Abs(p.Lat) > 90 || math.Abs(p.Lng) > 180 {
			return fmt.Errorf("map.position (%v, %v) is out of range", p.Lat, p.Lng)
		}
	}
	return nil
}
