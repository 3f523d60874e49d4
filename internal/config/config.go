package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/Reflector/internal/origin"
)

const envPrefix = "REFLECTOR"

type ICE struct {
	StunURLs       []string `mapstructure:"stun_urls"`
	TurnURLs       []string `mapstructure:"turn_urls"`
	TurnUsername   string   `mapstructure:"turn_username"`
	TurnCredential string   `mapstructure:"turn_credential"`
}

type Config struct {
	Mode            string        `mapstructure:"mode"`
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	ReadLimit       int64         `mapstructure:"read_limit"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	SendQueue       int           `mapstructure:"send_queue"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateInterval    time.Duration `mapstructure:"rate_interval"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	MetricsEnabled  bool          `mapstructure:"metrics_enabled"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	ICE             ICE           `mapstructure:"ice"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 0)
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("send_queue", 64)
	v.SetDefault("rate_limit", 0)
	v.SetDefault("rate_interval", "1s")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("shutdown_timeout", "5s")
	v.SetDefault("ice.stun_urls", []string{})
	v.SetDefault("ice.turn_urls", []string{})
	v.SetDefault("ice.turn_username", "")
	v.SetDefault("ice.turn_credential", "")
}

// Load reads config/config.<CONFIG_ENV>.yaml (CONFIG_ENV defaults to dev),
// applies REFLECTOR_* environment overrides and validates the result. A
// missing file is not an error.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.Mode {
	case "release", "debug", "test":
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.ReadLimit < 0 {
		errs = append(errs, errors.New("read_limit must not be negative"))
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("write_timeout must be positive"))
	}
	if c.SendQueue <= 0 {
		errs = append(errs, errors.New("send_queue must be positive"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate_limit must not be negative"))
	}
	if c.RateLimit > 0 && c.RateInterval <= 0 {
		errs = append(errs, errors.New("rate_interval must be positive when rate_limit is set"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	for _, o := range c.AllowedOrigins {
		if strings.TrimSpace(o) == origin.Wildcard {
			continue
		}
		if _, ok := origin.Normalize(o); !ok {
			errs = append(errs, fmt.Errorf("allowed_origins: invalid origin %q", o))
		}
	}
	if _, err := c.ICEServers(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Level maps log_level to a zerolog level. The npm-style names of older
// deployments (silly, verbose) are accepted too.
func (c *Config) Level() (zerolog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch name {
	case "silly":
		return zerolog.TraceLevel, nil
	case "verbose":
		return zerolog.DebugLevel, nil
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log_level: %w", err)
	}
	if lvl == zerolog.NoLevel {
		return zerolog.InfoLevel, nil
	}
	return lvl, nil
}
