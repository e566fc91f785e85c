package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	ERP       ERPConfig       `mapstructure:"erp"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	RawGood   RawGoodConfig   `mapstructure:"raw_good"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	Debug       bool          `mapstructure:"debug"`
}

type ERPConfig struct {
	Driver       string        `mapstructure:"driver"`
	DSN          string        `mapstructure:"dsn"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	// CSVDir, when set, replaces the live database with exported CSV files
	CSVDir string `mapstructure:"csv_dir"`
}

type ReconcileConfig struct {
	LeaseTTL        time.Duration `mapstructure:"lease_ttl"`
	Interval        time.Duration `mapstructure:"interval"`
	ResolverWorkers int           `mapstructure:"resolver_workers"`
}

type RawGoodConfig struct {
	Pattern        string   `mapstructure:"pattern"`
	Prefixes       []string `mapstructure:"prefixes"`
	UnitsOfMeasure []string `mapstructure:"units_of_measure"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads .env (if present), then config.yaml from ./configs or the
// working directory, then WIRECUT_* environment overrides
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./configs", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("WIRECUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "wirecut.db")
	v.SetDefault("database.busy_timeout", 5*time.Second)
	v.SetDefault("database.debug", false)

	v.SetDefault("erp.driver", "mysql")
	v.SetDefault("erp.dsn", "")
	v.SetDefault("erp.query_timeout", 30*time.Second)
	v.SetDefault("erp.csv_dir", "")

	v.SetDefault("reconcile.lease_ttl", 10*time.Minute)
	v.SetDefault("reconcile.interval", 0)
	v.SetDefault("reconcile.resolver_workers", 4)

	v.SetDefault("raw_good.pattern", `^\d{5}$`)
	v.SetDefault("raw_good.prefixes", []string{})
	v.SetDefault("raw_good.units_of_measure", []string{})

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate rejects settings the services cannot start with
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Reconcile.LeaseTTL <= 0 {
		return fmt.Errorf("reconcile.lease_ttl must be positive, got %s", c.Reconcile.LeaseTTL)
	}
	if c.Reconcile.Interval < 0 {
		return fmt.Errorf("reconcile.interval cannot be negative, got %s", c.Reconcile.Interval)
	}
	if c.RawGood.Pattern == "" && len(c.RawGood.Prefixes) == 0 {
		return fmt.Errorf("raw_good needs a pattern or at least one prefix")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

// UsesCSV reports whether the ERP snapshot comes from exported files
func (c *Config) UsesCSV() bool {
	return c.ERP.CSVDir != ""
}
