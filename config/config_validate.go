package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

func Validate(cfg *Config) error {
	if err := validateBlocklist(&cfg.Blocklist); err != nil {
		return fmt.Errorf("%w: blocklist: %w", ErrInvalidConfig, err)
	}
	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("%w: server: %w", ErrInvalidConfig, err)
	}
	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("%w: log: %w", ErrInvalidConfig, err)
	}
	if err := validateEndpoints(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func validateBlocklist(b *Blocklist) error {
	if strings.TrimSpace(b.File) == "" {
		return fmt.Errorf("file cannot be empty")
	}
	if b.CacheTTL.Duration <= 0 {
		return fmt.Errorf("cache_ttl must be positive, got %s", b.CacheTTL)
	}
	if b.RefreshInterval.Duration < 0 {
		return fmt.Errorf("refresh_interval cannot be negative, got %s", b.RefreshInterval)
	}
	if b.RefreshTimeout.Duration <= 0 {
		return fmt.Errorf("refresh_timeout must be positive, got %s", b.RefreshTimeout)
	}
	switch b.MissingPolicy {
	case MissingPolicyKeep, MissingPolicyEmpty:
	case "":
		b.MissingPolicy = MissingPolicyKeep
	default:
		return fmt.Errorf("missing_policy must be %q or %q, got %q", MissingPolicyKeep, MissingPolicyEmpty, b.MissingPolicy)
	}
	return nil
}

// validateServer checks the listen host and port and builds Addr from them.
// An empty host listens on all interfaces.
func validateServer(server *Server) error {
	if server.Port <= 0 || server.Port > 65535 {
		return fmt.Errorf("port must be in 1-65535, got %d", server.Port)
	}
	host := strings.TrimSpace(server.Host)
	if strings.ContainsAny(host, " /") {
		return fmt.Errorf("invalid host %q", server.Host)
	}
	server.Addr = net.JoinHostPort(host, strconv.Itoa(server.Port))

	if server.ShutdownGracefulTimeout.Duration <= 0 {
		return fmt.Errorf("shutdown_graceful_timeout must be positive")
	}
	if server.MaxConnections < 0 {
		return fmt.Errorf("max_connections cannot be negative, got %d", server.MaxConnections)
	}
	for _, h := range server.ClientIp.TrustedHeaders {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("client_ip.trusted_headers cannot contain empty names")
		}
	}
	return nil
}

func validateLog(l *Log) error {
	switch l.Rotation {
	case RotationHourly, RotationDaily, RotationNever:
	case RotationSize:
		if l.MaxSizeMB <= 0 {
			return fmt.Errorf("max_size_mb must be positive for size rotation, got %d", l.MaxSizeMB)
		}
	default:
		return fmt.Errorf("rotation must be one of hourly, daily, size, never, got %q", l.Rotation)
	}
	if strings.TrimSpace(l.File) == "" {
		return fmt.Errorf("file cannot be empty")
	}
	if l.MaxFiles < 0 {
		return fmt.Errorf("max_files cannot be negative, got %d", l.MaxFiles)
	}
	return nil
}

func validateEndpoints(cfg *Config) error {
	seen := map[string]string{"/health": "health"}
	check := func(name, endpoint string) error {
		if !strings.HasPrefix(endpoint, "/") {
			return fmt.Errorf("%s endpoint must start with '/', got %q", name, endpoint)
		}
		if other, ok := seen[endpoint]; ok {
			return fmt.Errorf("%s endpoint %q already used by %s", name, endpoint, other)
		}
		seen[endpoint] = name
		return nil
	}
	if cfg.Metrics.Enabled {
		if err := check("metrics", cfg.Metrics.Endpoint); err != nil {
			return err
		}
	}
	if cfg.Stats.Enabled {
		if err := check("stats", cfg.Stats.Endpoint); err != nil {
			return err
		}
		if cfg.Stats.K <= 0 || cfg.Stats.WindowSize <= 0 || cfg.Stats.Width <= 0 || cfg.Stats.Depth <= 0 {
			return fmt.Errorf("stats k, window_size, width and depth must be positive")
		}
	}
	return nil
}
