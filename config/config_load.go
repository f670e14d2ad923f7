package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables that override file and default values.
const (
	EnvBannedIpsFile   = "BANNED_IPS_FILE"
	EnvCacheTTLSecs    = "CACHE_TTL_SECS"
	EnvRefreshInterval = "REFRESH_INTERVAL_SECS"
	EnvMissingPolicy   = "MISSING_POLICY"
	EnvHost            = "HOST"
	EnvPort            = "PORT"
	EnvLogFile         = "LOG_FILE"
	EnvLogDir          = "LOG_DIR"
	EnvLogRotation     = "LOG_ROTATION"
	EnvLogMaxFiles     = "LOG_MAX_FILES"
	EnvLogLevel        = "LOG_LEVEL"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration: defaults, then the TOML file when path is
// not empty, then environment overrides. The result is validated.
func Load(path string, lookup LookupFunc) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefaultConfig()
	} else {
		var err error
		cfg, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes a TOML file over the default configuration. Unknown keys
// are rejected so that typos do not silently fall back to defaults.
func LoadFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", ErrInvalidConfig, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
	}
	cfg.Source = path
	return cfg, nil
}

// ApplyEnv overrides cfg with the values of the environment variables that
// are set. Unparseable values are an error, not a silent default.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
		}
		*dst = n
		return nil
	}
	seconds := func(key string, dst *Duration) error {
		var n int
		set := false
		if v, ok := lookup(key); ok && v != "" {
			set = true
		}
		if err := integer(key, &n); err != nil {
			return err
		}
		if set {
			dst.Duration = time.Duration(n) * time.Second
		}
		return nil
	}

	str(EnvBannedIpsFile, &cfg.Blocklist.File)
	if err := seconds(EnvCacheTTLSecs, &cfg.Blocklist.CacheTTL); err != nil {
		return err
	}
	if err := seconds(EnvRefreshInterval, &cfg.Blocklist.RefreshInterval); err != nil {
		return err
	}
	str(EnvMissingPolicy, &cfg.Blocklist.MissingPolicy)

	str(EnvHost, &cfg.Server.Host)
	if err := integer(EnvPort, &cfg.Server.Port); err != nil {
		return err
	}

	str(EnvLogFile, &cfg.Log.File)
	str(EnvLogDir, &cfg.Log.Dir)
	str(EnvLogRotation, &cfg.Log.Rotation)
	cfg.Log.Rotation = strings.ToLower(cfg.Log.Rotation)
	if err := integer(EnvLogMaxFiles, &cfg.Log.MaxFiles); err != nil {
		return err
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		if err := cfg.Log.Level.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, EnvLogLevel, v, err)
		}
	}
	return nil
}
