package config

import (
	"log/slog"
	"time"
)

// NewDefaultConfig creates a new Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Blocklist: Blocklist{
			File:            "./banned-ips.txt",
			CacheTTL:        Duration{Duration: 5 * time.Second},
			RefreshInterval: Duration{},
			RefreshTimeout:  Duration{Duration: 2 * time.Second},
			MissingPolicy:   MissingPolicyKeep,
			WatchFile:       false,
			FailClosed:      false,
		},
		Server: Server{
			Host:                    "0.0.0.0",
			Port:                    8199,
			ShutdownGracefulTimeout: Duration{Duration: 15 * time.Second},
			ReadTimeout:             Duration{Duration: 2 * time.Second},
			ReadHeaderTimeout:       Duration{Duration: 2 * time.Second},
			WriteTimeout:            Duration{Duration: 3 * time.Second},
			IdleTimeout:             Duration{Duration: 1 * time.Minute},
			MaxConnections:          0,
			ClientIp: ClientIp{
				TrustedHeaders:  []string{"CF-Connecting-IP"},
				ForwardedHeader: "X-Forwarded-For",
			},
		},
		Log: Log{
			Level:     LogLevel{Level: slog.LevelInfo},
			Console:   true,
			Dir:       ".",
			File:      "gatekeeper.log",
			Rotation:  RotationDaily,
			MaxFiles:  7,
			MaxSizeMB: 100,
			Request: LogRequest{
				Activated: false,
				Limits: LogRequestLimits{
					URILength:       512, // Minimum: 64
					UserAgentLength: 256, // Minimum: 32
					RefererLength:   512, // Minimum: 64
					RemoteIPLength:  64,  // Minimum: 15
				},
			},
		},
		Metrics: Metrics{
			Enabled:    true,
			Endpoint:   "/metrics",
			AllowedIPs: []string{"127.0.0.1", "::1"}, // Only exact IPs allowed, no CIDR ranges
		},
		Stats: Stats{
			Enabled:    true,
			Endpoint:   "/stats",
			K:          10,
			WindowSize: 60,
			Width:      1024,
			Depth:      3,
			TickSize:   100,
		},
	}
}
