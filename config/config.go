package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// ErrInvalidConfig is wrapped by every validation and loading error.
var ErrInvalidConfig = errors.New("invalid config")

// Policies applied when the blocklist file disappears after a successful load.
const (
	MissingPolicyKeep  = "keep"
	MissingPolicyEmpty = "empty"
)

// Log rotation policies for the file sink.
const (
	RotationHourly = "hourly"
	RotationDaily  = "daily"
	RotationSize   = "size"
	RotationNever  = "never"
)

type Config struct {
	// Source is the file the config was loaded from, empty for defaults.
	Source string `toml:"-"`

	Blocklist Blocklist `toml:"blocklist"`
	Server    Server    `toml:"server"`
	Log       Log       `toml:"log"`
	Metrics   Metrics   `toml:"metrics"`
	Stats     Stats     `toml:"stats"`
}

type Blocklist struct {
	// File is the path of the banned IPs file, one IP per line.
	File string `toml:"file"`

	// CacheTTL is the age after which a request triggers a lazy refresh.
	CacheTTL Duration `toml:"cache_ttl"`

	// RefreshInterval is the cadence of the background refresh.
	// Zero means CacheTTL.
	RefreshInterval Duration `toml:"refresh_interval"`

	// RefreshTimeout bounds a single read of the file and the time a request
	// waits for an in-flight refresh.
	RefreshTimeout Duration `toml:"refresh_timeout"`

	// MissingPolicy is "keep" or "empty".
	MissingPolicy string `toml:"missing_policy"`

	// WatchFile forces a refresh when the file changes on disk.
	WatchFile bool `toml:"watch_file"`

	// FailClosed blocks requests whose client IP cannot be determined.
	FailClosed bool `toml:"fail_closed"`
}

type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// Addr is derived from Host and Port by Validate.
	Addr string `toml:"-"`

	ShutdownGracefulTimeout Duration `toml:"shutdown_graceful_timeout"`
	ReadTimeout             Duration `toml:"read_timeout"`
	ReadHeaderTimeout       Duration `toml:"read_header_timeout"`
	WriteTimeout            Duration `toml:"write_timeout"`
	IdleTimeout             Duration `toml:"idle_timeout"`

	// MaxConnections caps simultaneous connections. Zero disables the cap.
	MaxConnections int `toml:"max_connections"`

	ClientIp ClientIp `toml:"client_ip"`
}

// ClientIp lists the headers consulted to find the client IP, in precedence
// order, before falling back to the peer address.
type ClientIp struct {
	TrustedHeaders  []string `toml:"trusted_headers"`
	ForwardedHeader string   `toml:"forwarded_header"`
}

type Log struct {
	Level LogLevel `toml:"level"`

	// Console also writes records to stdout.
	Console bool `toml:"console"`

	Dir      string `toml:"dir"`
	File     string `toml:"file"`
	Rotation string `toml:"rotation"`
	MaxFiles int    `toml:"max_files"`

	// MaxSizeMB is used by the "size" rotation.
	MaxSizeMB int `toml:"max_size_mb"`

	Request LogRequest `toml:"request"`
}

type LogRequest struct {
	Activated bool             `toml:"activated"`
	Limits    LogRequestLimits `toml:"limits"`
}

type LogRequestLimits struct {
	URILength       int `toml:"uri_length"`
	UserAgentLength int `toml:"user_agent_length"`
	RefererLength   int `toml:"referer_length"`
	RemoteIPLength  int `toml:"remote_ip_length"`
}

type Metrics struct {
	Enabled    bool     `toml:"enabled"`
	Endpoint   string   `toml:"endpoint"`
	AllowedIPs []string `toml:"allowed_ips"`
}

// Stats configures the blocked IPs top-k tracker.
type Stats struct {
	Enabled    bool   `toml:"enabled"`
	Endpoint   string `toml:"endpoint"`
	K          int    `toml:"k"`
	WindowSize int    `toml:"window_size"`
	Width      int    `toml:"width"`
	Depth      int    `toml:"depth"`
	TickSize   uint64 `toml:"tick_size"`
}

// EffectiveRefreshInterval returns RefreshInterval or CacheTTL when unset.
func (b Blocklist) EffectiveRefreshInterval() time.Duration {
	if b.RefreshInterval.Duration > 0 {
		return b.RefreshInterval.Duration
	}
	return b.CacheTTL.Duration
}

// Duration wraps time.Duration for text (TOML, env) decoding.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LogLevel wraps slog.Level for text decoding. Accepts debug, info, warn,
// warning and error, case insensitive.
type LogLevel struct {
	slog.Level
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	if s == "warning" {
		s = "warn"
	}
	if s == "" {
		return fmt.Errorf("empty log level")
	}
	return l.Level.UnmarshalText([]byte(s))
}

func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(l.Level.String()), nil
}

// Provider gives concurrent access to the loaded configuration.
type Provider struct {
	value atomic.Pointer[Config]
}

// NewProvider panics on a nil config.
func NewProvider(cfg *Config) *Provider {
	if cfg == nil {
		panic("config: provider needs a non nil config")
	}
	p := &Provider{}
	p.value.Store(cfg)
	return p
}

func (p *Provider) Get() *Config {
	return p.value.Load()
}

func (p *Provider) Update(cfg *Config) {
	p.value.Store(cfg)
}
