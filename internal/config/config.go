// Package config loads importer configuration from defaults, an optional
// importer.yaml and environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime settings.
type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
	}
	Data struct {
		Dir string
	}
	Parser struct {
		Strategy string
	}
	Server struct {
		Addr string
	}
	Log struct {
		Level string
	}
}

// Load reads configuration. Environment variables override file values,
// with dots replaced by underscores (e.g. DATABASE_HOST).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("importer")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "orders")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxconns", 20)
	v.SetDefault("data.dir", "./data")
	v.SetDefault("parser.strategy", "space")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// DSN builds the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}
