// Package config resolves bridge process configuration from environment
// variables, with CLI flags taking precedence when explicitly set.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full set of options the process recognizes. These are the
// only recognized options (spec §6).
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port int `mapstructure:"port"`

	// AwaitTimeout bounds how long a submitter's await(commandId, timeout)
	// may block before the ingress layer reports a timeout (spec §5, default ~180s).
	AwaitTimeout time.Duration `mapstructure:"timeout"`

	// PollTimeout bounds the default long-poll wait for /1c/poll when the
	// caller does not supply its own ?timeout=.
	PollTimeout time.Duration `mapstructure:"poll_timeout"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// Debug enables verbose logging (debug level with source locations). It
	// does not enable any hot-reload.
	Debug bool `mapstructure:"debug"`

	// HealthDetail gates whether /health includes per-channel listings.
	HealthDetail bool `mapstructure:"health_detail"`
}

// Defaults mirror the spec's stated defaults (~180s await timeout). PollTimeout
// defaults to 0 (non-blocking /1c/poll) to keep the 1C UI responsive; do not
// change this default without checking spec §5's long-poll discussion.
func defaults() Config {
	return Config{
		Port:         8787,
		AwaitTimeout: 180 * time.Second,
		PollTimeout:  0,
		LogLevel:     "info",
		Debug:        false,
		HealthDetail: false,
	}
}

// Overrides carries CLI-flag values that, when explicitly set, win over the
// environment. A nil pointer field means "flag not set, defer to env/default".
type Overrides struct {
	Port         *int
	AwaitTimeout *time.Duration
	PollTimeout  *time.Duration
	LogLevel     *string
	Debug        *bool
	HealthDetail *bool
}

// Load builds a Config from PORT, TIMEOUT, POLL_TIMEOUT, LOG_LEVEL, DEBUG and
// HEALTH_DETAIL, then applies any explicit CLI overrides. It validates the
// result before returning.
func Load(ov Overrides) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	d := defaults()
	v.SetDefault("port", d.Port)
	v.SetDefault("timeout", d.AwaitTimeout.Seconds())
	v.SetDefault("poll_timeout", d.PollTimeout.Seconds())
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("health_detail", d.HealthDetail)

	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("timeout", "TIMEOUT")
	_ = v.BindEnv("poll_timeout", "POLL_TIMEOUT")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("debug", "DEBUG")
	_ = v.BindEnv("health_detail", "HEALTH_DETAIL")

	// TIMEOUT and POLL_TIMEOUT are seconds, not Go duration strings (the
	// original proxy reads them as float(os.getenv(...))). v.GetDuration
	// would parse a bare "180" as 180ns, so these two go through
	// GetFloat64 and get scaled by hand.
	cfg := Config{
		Port:         v.GetInt("port"),
		AwaitTimeout: time.Duration(v.GetFloat64("timeout") * float64(time.Second)),
		PollTimeout:  time.Duration(v.GetFloat64("poll_timeout") * float64(time.Second)),
		LogLevel:     v.GetString("log_level"),
		Debug:        v.GetBool("debug"),
		HealthDetail: v.GetBool("health_detail"),
	}

	if ov.Port != nil {
		cfg.Port = *ov.Port
	}
	if ov.AwaitTimeout != nil {
		cfg.AwaitTimeout = *ov.AwaitTimeout
	}
	if ov.PollTimeout != nil {
		cfg.PollTimeout = *ov.PollTimeout
	}
	if ov.LogLevel != nil {
		cfg.LogLevel = *ov.LogLevel
	}
	if ov.Debug != nil {
		cfg.Debug = *ov.Debug
	}
	if ov.HealthDetail != nil {
		cfg.HealthDetail = *ov.HealthDetail
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d (must be 1-65535)", c.Port)
	}
	if c.AwaitTimeout <= 0 {
		return fmt.Errorf("invalid timeout %s (must be > 0)", c.AwaitTimeout)
	}
	if c.PollTimeout < 0 {
		return fmt.Errorf("invalid poll_timeout %s (must be >= 0; 0 means non-blocking)", c.PollTimeout)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (want debug|info|warn|error)", c.LogLevel)
	}
	return nil
}
