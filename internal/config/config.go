package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/sentinel/internal/domain"
	domimg "github.com/kailas-cloud/sentinel/internal/domain/image"
)

// Config holds the sentinel API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Identity IdentityConfig `yaml:"identity"`
	Images   ImagesConfig   `yaml:"images"`
	Auth     AuthConfig     `yaml:"auth"`
	Detector DetectorConfig `yaml:"detector"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	Principals map[string]string `yaml:"principals"` // bearer token -> principal
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxImageBytes   int64 `yaml:"max_image_bytes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, sqlite, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	SQLitePath       string   `yaml:"sqlite_path"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IdentityConfig selects where the owner of a call comes from.
type IdentityConfig struct {
	Mode string `yaml:"mode"` // principal (default) | asserted
}

// ImagesConfig holds image store policy.
type ImagesConfig struct {
	OnDuplicate string `yaml:"on_duplicate"` // reject (default) | overwrite
}

// DetectorConfig holds the remote detection endpoint settings.
type DetectorConfig struct {
	URL                   string       `yaml:"url"`
	Host                  string       `yaml:"host"`
	UserAgent             string       `yaml:"user_agent"`
	TimeoutSec            int          `yaml:"timeout_sec"`
	ExpectedResponseBytes uint64       `yaml:"expected_response_bytes"`
	Cost                  CostConfig   `yaml:"cost"`
	InlineCost            CostConfig   `yaml:"inline_cost"` // content supplied with the call
	Budget                BudgetConfig `yaml:"budget"`
}

// CostConfig holds the outcall cost model constants.
type CostConfig struct {
	Base       uint64 `yaml:"base"`
	PerByteIn  uint64 `yaml:"per_byte_in"`
	PerByteOut uint64 `yaml:"per_byte_out"`
}

// BudgetConfig holds detection cost budget settings.
type BudgetConfig struct {
	DailyLimit   int64  `yaml:"daily_limit"`   // 0 = unlimited
	MonthlyLimit int64  `yaml:"monthly_limit"` // 0 = unlimited
	Action       string `yaml:"action"`        // "reject" | "warn" (default)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxImageBytes <= 0 {
		c.HTTP.MaxImageBytes = 10 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "sentinel.db"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "sentinel:"
	}
	if c.Identity.Mode == "" {
		c.Identity.Mode = "principal"
	}
	if c.Images.OnDuplicate == "" {
		c.Images.OnDuplicate = "reject"
	}
	if c.Detector.URL == "" {
		c.Detector.URL = "https://icp-api.shootify.io/api/v1/utils/icp-proxy/"
	}
	if c.Detector.Host == "" {
		c.Detector.Host = "icp-api.shootify.io:443"
	}
	if c.Detector.UserAgent == "" {
		c.Detector.UserAgent = "demo_HTTP_POST_canister"
	}
	if c.Detector.TimeoutSec <= 0 {
		c.Detector.TimeoutSec = 30
	}
	if c.Detector.ExpectedResponseBytes == 0 {
		c.Detector.ExpectedResponseBytes = 20_000_000
	}
	if c.Detector.Cost.Base == 0 {
		c.Detector.Cost.Base = 20_000_000_000
	}
	if c.Detector.Cost.PerByteIn == 0 {
		c.Detector.Cost.PerByteIn = 200
	}
	if c.Detector.Cost.PerByteOut == 0 {
		c.Detector.Cost.PerByteOut = 200
	}
	if c.Detector.InlineCost.Base == 0 {
		c.Detector.InlineCost.Base = 20_000_000_000
	}
	if c.Detector.InlineCost.PerByteIn == 0 {
		c.Detector.InlineCost.PerByteIn = 400
	}
	if c.Detector.InlineCost.PerByteOut == 0 {
		c.Detector.InlineCost.PerByteOut = 400
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey", "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("database.driver must be one of valkey, redis, sqlite, memory, got %q", c.Database.Driver)
	}
	if _, err := domain.ParseTrustMode(c.Identity.Mode); err != nil {
		return fmt.Errorf("identity.mode: %w", err)
	}
	if c.Identity.Mode == string(domain.TrustPrincipal) && len(c.Auth.Principals) == 0 {
		return fmt.Errorf("auth.principals is required when identity.mode is %q", domain.TrustPrincipal)
	}
	if _, err := domimg.ParsePolicy(c.Images.OnDuplicate); err != nil {
		return fmt.Errorf("images.on_duplicate: %w", err)
	}
	if c.Detector.URL == "" {
		return fmt.Errorf("detector.url is required")
	}
	if c.Detector.Budget.DailyLimit < 0 || c.Detector.Budget.MonthlyLimit < 0 {
		return fmt.Errorf("detector.budget limits must not be negative")
	}
	switch c.Detector.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"detector.budget.action must be \"warn\" or \"reject\", got %q",
			c.Detector.Budget.Action,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
