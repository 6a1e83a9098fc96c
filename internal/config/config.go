// Package config loads the bridge's optional TOML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the tunables the spec leaves to the embedding environment:
// a full pipe name that replaces the derived one, the three protocol timeouts (spec §4.1, §4.6,
// §5), the max concurrent clients, and the log level.
type Config struct {
	PipeNameOverride string `toml:"pipe_name"`
	ReadTimeout      string `toml:"read_timeout"`
	WriteTimeout     string `toml:"write_timeout"`
	CallTimeout      string `toml:"call_timeout"`
	MaxClients       int    `toml:"max_clients"`
	LogLevel         string `toml:"log_level"`
}

// Resolved is Config with durations parsed and defaults applied.
type Resolved struct {
	PipeNameOverride string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	CallTimeout      time.Duration
	MaxClients       int
	LogLevel         string
}

// Defaults mirror the fixed constants of spec §4.1/§4.6/§5.
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultCallTimeout  = 5 * time.Second
	DefaultMaxClients   = 0 // 0 == unlimited, per spec §4.1 "unlimited client instances"
)

// configPathEnvVar overrides the config file location; unlike the
// teacher's multi-level XDG search (this is a library embedded in a host
// process, not a user-facing CLI with a home directory convention of its
// own) a single override variable is all that's warranted.
const configPathEnvVar = "GWBRIDGE_CONFIG"

// Load reads the config file named by GWBRIDGE_CONFIG, if set, or returns
// defaults unchanged if the variable is unset or the file does not exist
// -- same tolerate-absence contract as the teacher's config.Load.
func Load() (*Resolved, error) {
	path := os.Getenv(configPathEnvVar)
	if path == "" {
		return defaultResolved(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads and parses a config file at an explicit path.
func LoadFrom(path string) (*Resolved, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultResolved(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return resolve(&cfg)
}

func defaultResolved() *Resolved {
	return &Resolved{
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		CallTimeout:  DefaultCallTimeout,
		MaxClients:   DefaultMaxClients,
		LogLevel:     "info",
	}
}

func resolve(cfg *Config) (*Resolved, error) {
	r := defaultResolved()
	r.PipeNameOverride = cfg.PipeNameOverride
	r.MaxClients = cfg.MaxClients

	if cfg.LogLevel != "" {
		r.LogLevel = cfg.LogLevel
	}

	var err error
	if r.ReadTimeout, err = parseDurationOr(cfg.ReadTimeout, DefaultReadTimeout); err != nil {
		return nil, fmt.Errorf("read_timeout: %w", err)
	}
	if r.WriteTimeout, err = parseDurationOr(cfg.WriteTimeout, DefaultWriteTimeout); err != nil {
		return nil, fmt.Errorf("write_timeout: %w", err)
	}
	if r.CallTimeout, err = parseDurationOr(cfg.CallTimeout, DefaultCallTimeout); err != nil {
		return nil, fmt.Errorf("call_timeout: %w", err)
	}
	return r, nil
}

func parseDurationOr(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}
