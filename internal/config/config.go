// Package config handles loading and validating streamrpc server
// configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level configuration for a streamrpc server process.
type Config struct {
	Server ServerConfig `koanf:"server"`
	Debug  DebugConfig  `koanf:"debug"`
}

// ServerConfig holds the RPC listener's settings.
type ServerConfig struct {
	// ListenAddr is the UDP address the QUIC listener binds, e.g. ":8443".
	ListenAddr string `koanf:"listen_addr"`
	// CertFile and KeyFile locate a PEM certificate/key pair. Both empty
	// means generate and use a throwaway self-signed dev certificate
	// (quictransport.NewDevServerTLSConfig) — never appropriate beyond
	// local development.
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
	// StreamPoolSize is a client stream pool size; Load requires it to be
	// positive. The server binary does not pass it to any component.
	StreamPoolSize int `koanf:"stream_pool_size"`
	// MaxMessageSize is a per-message size limit in bytes. It is loaded but
	// not read by any component: framing always enforces
	// framing.MaxMessageSize.
	MaxMessageSize  uint32        `koanf:"max_message_size"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DebugConfig holds the optional HTTP health/stats surface's settings.
type DebugConfig struct {
	Enabled    bool   `koanf:"enabled"`
	ListenAddr string `koanf:"listen_addr"`
}

// defaults mirrors what a zero-value Config would lack for a usable dev
// server — loaded before the file and environment layers so either can
// override it.
func defaults() map[string]any {
	return map[string]any{
		"server.listen_addr":      ":8443",
		"server.stream_pool_size": 32,
		"server.shutdown_timeout": "5s",
		"debug.enabled":           true,
		"debug.listen_addr":       ":8080",
	}
}

// Load reads configuration from a YAML file, layers STREAMRPC_-prefixed
// environment variable overrides on top, and returns a fully populated
// Config.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Nested keys use a double underscore so single underscores inside a
	// key name (stream_pool_size) survive: STREAMRPC_SERVER__STREAM_POOL_SIZE
	// -> server.stream_pool_size.
	if err := k.Load(env.Provider("STREAMRPC_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "STREAMRPC_")),
			"__", ".",
		)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.Server.StreamPoolSize <= 0 {
		return fmt.Errorf("server.stream_pool_size must be positive")
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return fmt.Errorf("server.cert_file and server.key_file must both be set or both be empty")
	}
	return nil
}
