package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "CREDKEYS_"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	// Context is the application context every credential is bound to.
	Context    []byte
	Log        LogConfig
	Derivation DerivationConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type DerivationConfig struct {
	Concurrency int
	Timeout     time.Duration
	RateLimit   RateLimitConfig
}

type RateLimitConfig struct {
	RPS     float64
	Burst   int
	IdleTTL time.Duration
}

func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Derivation: DerivationConfig{
			Concurrency: 2,
			Timeout:     30 * time.Second,
			RateLimit: RateLimitConfig{
				RPS:     0.2,
				Burst:   5,
				IdleTTL: 15 * time.Minute,
			},
		},
	}
}

// FileConfig is the YAML shape. Zero and nil fields leave defaults untouched.
type FileConfig struct {
	Context         string               `yaml:"context"`
	ContextEncoding string               `yaml:"contextEncoding"`
	Log             FileLogConfig        `yaml:"log"`
	Derivation      FileDerivationConfig `yaml:"derivation"`
}

type FileLogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type FileDerivationConfig struct {
	Concurrency int                 `yaml:"concurrency"`
	Timeout     time.Duration       `yaml:"timeout"`
	RateLimit   FileRateLimitConfig `yaml:"rateLimit"`
}

type FileRateLimitConfig struct {
	RPS     *float64      `yaml:"rps"`
	Burst   int           `yaml:"burst"`
	IdleTTL time.Duration `yaml:"idleTTL"`
}

// Load reads configPath, or the first default location that exists when
// configPath is empty, and applies environment overrides on top. An explicit
// path that cannot be read is an error; missing default files are not.
func Load(configPath string) (Config, error) {
	cfg := Default()

	candidates := []string{"configs/credkeys.yaml", "credkeys.yaml"}
	if configPath != "" {
		candidates = []string{configPath}
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if configPath != "" {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
			continue
		}
		var parsed FileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
		if err := Merge(&cfg, parsed); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		break
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Merge(dst *Config, src FileConfig) error {
	if src.Context != "" {
		ctx, err := decodeContext(src.Context, src.ContextEncoding)
		if err != nil {
			return err
		}
		dst.Context = ctx
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
	if src.Log.Format != "" {
		dst.Log.Format = src.Log.Format
	}
	if src.Derivation.Concurrency != 0 {
		dst.Derivation.Concurrency = src.Derivation.Concurrency
	}
	if src.Derivation.Timeout != 0 {
		dst.Derivation.Timeout = src.Derivation.Timeout
	}
	if src.Derivation.RateLimit.RPS != nil {
		dst.Derivation.RateLimit.RPS = *src.Derivation.RateLimit.RPS
	}
	if src.Derivation.RateLimit.Burst != 0 {
		dst.Derivation.RateLimit.Burst = src.Derivation.RateLimit.Burst
	}
	if src.Derivation.RateLimit.IdleTTL != 0 {
		dst.Derivation.RateLimit.IdleTTL = src.Derivation.RateLimit.IdleTTL
	}
	return nil
}

// ApplyEnvOverrides applies CREDKEYS_* variables. Set but unparsable values
// are rejected rather than ignored.
func ApplyEnvOverrides(cfg *Config) error {
	if v, ok := lookupEnv("CONTEXT"); ok {
		cfg.Context = []byte(v)
	}
	if v, ok := lookupEnv("CONTEXT_HEX"); ok {
		ctx, err := decodeContext(v, "hex")
		if err != nil {
			return err
		}
		cfg.Context = ctx
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookupEnv("LOG_FORMAT"); ok {
		cfg.Log.Format = v
	}
	if v, ok := lookupEnv("CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("CONCURRENCY", err)
		}
		cfg.Derivation.Concurrency = n
	}
	if v, ok := lookupEnv("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError("TIMEOUT", err)
		}
		cfg.Derivation.Timeout = d
	}
	if v, ok := lookupEnv("RATE_RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError("RATE_RPS", err)
		}
		cfg.Derivation.RateLimit.RPS = f
	}
	if v, ok := lookupEnv("RATE_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("RATE_BURST", err)
		}
		cfg.Derivation.RateLimit.Burst = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.Derivation.Concurrency < 1 {
		return fmt.Errorf("%w: derivation concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.Derivation.Timeout < 0 {
		return fmt.Errorf("%w: derivation timeout must not be negative", ErrInvalidConfig)
	}
	if c.Derivation.RateLimit.RPS < 0 || c.Derivation.RateLimit.Burst < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

func decodeContext(value, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "text":
		return []byte(value), nil
	case "hex":
		b, err := hex.DecodeString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%w: context is not hex: %v", ErrInvalidConfig, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: context encoding %q", ErrInvalidConfig, encoding)
	}
}

func lookupEnv(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(envPrefix + name))
	return v, v != ""
}

func envError(name string, err error) error {
	return fmt.Errorf("%w: %s%s: %v", ErrInvalidConfig, envPrefix, name, err)
}
