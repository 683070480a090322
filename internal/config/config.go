// Package config loads all service settings from the environment.
// Every setting is optional and carries a default; there are no CLI
// flags beyond process start and stop.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/jbweber/homelab/croft/internal/store"
)

// Config holds all configuration for the croft service. Values come
// from CROFT_* environment variables (CROFT_LISTEN_PORT,
// CROFT_STORE_DRIVER, CROFT_STORE_POSTGRES_HOST, ...).
type Config struct {
	ListenHost string
	ListenPort int
	HTTPAddr   string // empty disables the HTTP inventory API
	AuthSecret string
	LogLevel   string
	Store      StoreConfig
}

// StoreConfig selects and configures the durable store backend.
type StoreConfig struct {
	Driver   string // "sqlite" or "postgres"
	Path     string // sqlite database path
	Postgres store.PostgresConfig
}

// Load reads configuration from the environment, falling back to
// defaults for anything unset.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("CROFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_host", "0.0.0.0")
	v.SetDefault("listen_port", 8888)
	v.SetDefault("http_addr", "")
	v.SetDefault("auth_secret", "secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "~/croft/data/croft.db")
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "postgres")
	v.SetDefault("store.postgres.password", "postgres")
	v.SetDefault("store.postgres.database", "vmdb")
	v.SetDefault("store.postgres.sslmode", "disable")

	return &Config{
		ListenHost: v.GetString("listen_host"),
		ListenPort: v.GetInt("listen_port"),
		HTTPAddr:   v.GetString("http_addr"),
		AuthSecret: v.GetString("auth_secret"),
		LogLevel:   v.GetString("log_level"),
		Store: StoreConfig{
			Driver: v.GetString("store.driver"),
			Path:   v.GetString("store.path"),
			Postgres: store.PostgresConfig{
				Host:     v.GetString("store.postgres.host"),
				Port:     v.GetInt("store.postgres.port"),
				User:     v.GetString("store.postgres.user"),
				Password: v.GetString("store.postgres.password"),
				Database: v.GetString("store.postgres.database"),
				SSLMode:  v.GetString("store.postgres.sslmode"),
			},
		},
	}
}

// ListenAddr returns the host:port the TCP listener binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.ListenPort))
}

// OpenStore opens the configured durable store backend.
func (c *Config) OpenStore() (store.Store, error) {
	switch c.Store.Driver {
	case "sqlite":
		return store.OpenSQLite(expandPath(c.Store.Path))
	case "postgres":
		return store.OpenPostgres(c.Store.Postgres)
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
}

// expandPath expands ~ to the home directory.
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Return original path if we can't get home dir
		return path
	}

	return filepath.Join(homeDir, path[2:])
}
