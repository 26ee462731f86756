package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INSURANCE_"

const devSessionSecret = "dev-secret-change-me-0123456789abcdef"

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config holds the portal configuration.
type Config struct {
	Env      string         `yaml:"env"`
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Session  SessionConfig  `yaml:"session"`
	Storage  StorageConfig  `yaml:"storage"`
	Payments PaymentsConfig `yaml:"payments"`
	Quote    QuoteConfig    `yaml:"quote"`
	Activity ActivityConfig `yaml:"activity"`
	Chart    ChartConfig    `yaml:"chart"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
}

// APIConfig points at the remote insurance API. Mock serves an in-process
// fake instead.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Key            string        `yaml:"key"`
	Timeout        time.Duration `yaml:"timeout"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	VerifySessions bool          `yaml:"verify_sessions"`
	Mock           bool          `yaml:"mock"`
}

type SessionConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type PaymentsConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type QuoteConfig struct {
	PersistDraft bool `yaml:"persist_draft"`
}

type ActivityConfig struct {
	Enabled bool   `yaml:"enabled"`
	Channel string `yaml:"channel"`
}

type ChartConfig struct {
	Theme    string        `yaml:"theme"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Env:     "dev",
		Server:  ServerConfig{Address: ":8080"},
		API:     APIConfig{Timeout: 10 * time.Second, RetryAttempts: 3},
		Session: SessionConfig{TTL: 12 * time.Hour},
		Storage: StorageConfig{Driver: StorageMemory, Path: "data/portal.db"},
		Chart:   ChartConfig{CacheTTL: time.Minute},
	}
}

// Load reads .env when present, then the YAML file at path (optional), then
// INSURANCE_* environment overrides, and validates the result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, target *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*target = strings.TrimSpace(v)
		}
	}
	str("ENV", &c.Env)
	str("ADDRESS", &c.Server.Address)
	str("API_BASE_URL", &c.API.BaseURL)
	str("API_KEY", &c.API.Key)
	str("SESSION_SECRET", &c.Session.Secret)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("STORAGE_PATH", &c.Storage.Path)
	str("PAYMENT_ENDPOINT", &c.Payments.Endpoint)
	str("ACTIVITY_CHANNEL", &c.Activity.Channel)
	str("CHART_THEME", &c.Chart.Theme)

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	collect(envDuration(lookup, "API_TIMEOUT", &c.API.Timeout))
	collect(envDuration(lookup, "SESSION_TTL", &c.Session.TTL))
	collect(envDuration(lookup, "CHART_CACHE_TTL", &c.Chart.CacheTTL))
	collect(envInt(lookup, "API_RETRY_ATTEMPTS", &c.API.RetryAttempts))
	collect(envBool(lookup, "API_VERIFY_SESSIONS", &c.API.VerifySessions))
	collect(envBool(lookup, "API_MOCK", &c.API.Mock))
	collect(envBool(lookup, "QUOTE_PERSIST_DRAFT", &c.Quote.PersistDraft))
	collect(envBool(lookup, "ACTIVITY_ENABLED", &c.Activity.Enabled))
	return errors.Join(errs...)
}

func (c *Config) finalize() error {
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = StorageMemory
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.Path == "" {
			return errors.New("config: storage path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.API.BaseURL == "" {
		c.API.Mock = true
	}
	if c.Session.Secret == "" {
		if c.Env != "dev" {
			return errors.New("config: INSURANCE_SESSION_SECRET is required outside dev")
		}
		c.Session.Secret = devSessionSecret
	}
	if len(c.Session.Secret) < 32 {
		return errors.New("config: session secret must be at least 32 bytes")
	}
	if c.API.RetryAttempts < 1 {
		c.API.RetryAttempts = 1
	}
	return nil
}

// String renders the configuration with secrets masked.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Env: %s, Address: %s, API: %s (mock=%t, key=%s), Session: *** (masked) ***, Storage: %s %s}",
		c.Env, c.Server.Address, c.API.BaseURL, c.API.Mock, mask(c.API.Key), c.Storage.Driver, c.Storage.Path,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

func envDuration(lookup lookupFunc, key string, target *time.Duration) error {
	v, ok := lookup(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("config: invalid duration for %s%s: %w", EnvPrefix, key, err)
	}
	*target = d
	return nil
}

func envInt(lookup lookupFunc, key string, target *int) error {
	v, ok := lookup(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("config: invalid integer for %s%s: %w", EnvPrefix, key, err)
	}
	*target = n
	return nil
}

func envBool(lookup lookupFunc, key string, target *bool) error {
	v, ok := lookup(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("config: invalid boolean for %s%s: %w", EnvPrefix, key, err)
	}
	*target = b
	return nil
}
