package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caasmo/gatekeeper"
	"github.com/caasmo/gatekeeper/config"
	"github.com/caasmo/gatekeeper/log"
)

var (
	ErrInvalidFlag = errors.New("invalid flag provided")
	ErrLoadConfig  = errors.New("failed to load config")
	ErrCreateLog   = errors.New("failed to create log sink")
	ErrSetup       = errors.New("failed to set up gatekeeper")
	ErrWriteOutput = errors.New("failed to write output")
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses the flags, loads the configuration and serves until a shutdown
// signal. The server ends the process itself, so run only returns on startup
// errors or after -dump-config.
func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("gatekeeper", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to a TOML config file. Defaults and environment variables apply without it")
	dumpConfig := fs.Bool("dump-config", false, "Print the effective configuration as TOML and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: gatekeeper [-config file] [-dump-config]\n\n")
		fmt.Fprintf(stderr, "Forward-auth gate answering 403 for client IPs listed in the blocklist file.\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return fmt.Errorf("%w: unexpected arguments %v", ErrInvalidFlag, fs.Args())
	}

	cfg, err := config.Load(*configPath, os.LookupEnv)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if *dumpConfig {
		if err := toml.NewEncoder(stdout).Encode(cfg); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}
		return nil
	}

	provider := config.NewProvider(cfg)
	out, err := log.New(provider, stdout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateLog, err)
	}
	logger := out.Logger

	opts := []gatekeeper.Option{
		gatekeeper.WithConfigReload(func() error {
			return config.Reload(*configPath, os.LookupEnv, provider, logger)
		}),
	}
	if out.Rotator != nil {
		opts = append(opts, gatekeeper.WithDaemon(out.Rotator))
	}

	g, err := gatekeeper.New(provider, logger, opts...)
	if err != nil {
		out.Sink.Close()
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}

	logger.Info("gatekeeper starting",
		"config", cfg.Source,
		"blocklist", cfg.Blocklist.File,
		"cache_ttl", cfg.Blocklist.CacheTTL.Duration,
		"missing_policy", cfg.Blocklist.MissingPolicy,
		"log_file", log.Path(cfg.Log),
	)

	g.Server.Run()
	return nil
}
