// Package config reads the strand.yaml project file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/aretw0/strand/pkg/adapters/process"
	"gopkg.in/yaml.v3"
)

// FileName is the project file looked up in the unit directory.
const FileName = "strand.yaml"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the project configuration. Zero values mean "use the default".
type Config struct {
	LogLevel     string      `yaml:"log_level"`
	Debug        bool        `yaml:"debug"`
	CollectEvery *int        `yaml:"collect_every"`
	Store        StoreConfig `yaml:"store"`
	OTLPEndpoint string      `yaml:"otlp_endpoint"`
	HTTPPort     int         `yaml:"http_port"`
	// Processes are the commands units may run with the exec call.
	Processes []process.ProcessConfig `yaml:"processes"`
}

// StoreConfig selects where run reports are kept.
type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
	// EncryptionKey is a base64 AES-256 key sealing reports at rest.
	// STRAND_ENCRYPTION_KEY is used when it is empty.
	EncryptionKey string `yaml:"encryption_key"`
	// Redact lists patterns masked in report output before saving.
	Redact []string `yaml:"redact"`
}

// EncryptionKeyEnv names the environment fallback for StoreConfig.EncryptionKey.
const EncryptionKeyEnv = "STRAND_ENCRYPTION_KEY"

// Key decodes the encryption key. A nil key means reports are stored in clear.
func (s StoreConfig) Key() ([]byte, error) {
	encoded := s.EncryptionKey
	if encoded == "" {
		encoded = os.Getenv(EncryptionKeyEnv)
	}
	if encoded == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("store.encryption_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LogLevel: "info",
		Store:    StoreConfig{Backend: StoreMemory},
		HTTPPort: 8080,
	}
}

// Load reads dir/strand.yaml over the defaults. A missing file is not an error.
func Load(dir string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerated fields and ranges.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case "", StoreMemory, StoreFile:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if _, err := c.Store.Key(); err != nil {
		errs = append(errs, err)
	}
	for _, p := range c.Store.Redact {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("store.redact %q: %w", p, err))
		}
	}
	if c.CollectEvery != nil && *c.CollectEvery < 0 {
		errs = append(errs, fmt.Errorf("collect_every must not be negative, got %d", *c.CollectEvery))
	}
	seen := make(map[string]bool, len(c.Processes))
	for i, p := range c.Processes {
		switch {
		case p.Name == "":
			errs = append(errs, fmt.Errorf("processes[%d]: missing name", i))
		case p.Command == "":
			errs = append(errs, fmt.Errorf("processes[%d] %s: missing command", i, p.Name))
		case seen[p.Name]:
			errs = append(errs, fmt.Errorf("processes[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http_port out of range: %d", c.HTTPPort))
	}
	return errors.Join(errs...)
}
