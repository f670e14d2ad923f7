package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/caasmo/gatekeeper/config"
	phuslog "github.com/phuslu/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Output is the process logger and the sink behind it.
type Output struct {
	Logger *slog.Logger

	// Sink is the log file writer. Close it last on shutdown.
	Sink io.WriteCloser

	// Rotator rotates Sink on a schedule. Nil for size and never rotation.
	Rotator *Rotator
}

// Path returns the log file path: File when absolute, otherwise File in Dir.
func Path(cfg config.Log) string {
	if filepath.IsAbs(cfg.File) {
		return cfg.File
	}
	return filepath.Join(cfg.Dir, cfg.File)
}

// HandlerOptions returns the slog options shared by all handlers.
func HandlerOptions(level slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{Level: level}
}

// New builds the JSON logger writing to the rotating file and, when
// Log.Console is set, to console as well. The level follows the provider's
// current configuration. It fails when the log directory cannot be created or
// written.
func New(provider *config.Provider, console io.Writer) (*Output, error) {
	cfg := provider.Get().Log
	path := Path(cfg)
	if err := probe(filepath.Dir(path)); err != nil {
		return nil, err
	}

	sink, rotatable, err := newSink(cfg, path)
	if err != nil {
		return nil, err
	}

	var w io.Writer = sink
	if cfg.Console && console != nil {
		w = io.MultiWriter(console, sink)
	}
	handler := phuslog.SlogNewJSONHandler(w, HandlerOptions(slog.LevelDebug))
	logger := slog.New(NewLevelHandler(provider, handler))

	out := &Output{Logger: logger, Sink: sink}
	if rotatable != nil {
		rotator, err := NewRotator(rotatable, cfg.Rotation, logger)
		if err != nil {
			sink.Close()
			return nil, err
		}
		out.Rotator = rotator
	}
	return out, nil
}

// newSink returns the writer for the rotation policy, and the same writer as
// a Rotatable when rotation is scheduled.
func newSink(cfg config.Log, path string) (io.WriteCloser, Rotatable, error) {
	switch cfg.Rotation {
	case config.RotationSize:
		return &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxFiles,
			LocalTime:  true,
		}, nil, nil

	case config.RotationHourly, config.RotationDaily:
		fw := &phuslog.FileWriter{
			Filename:     path,
			FileMode:     0o644,
			MaxBackups:   cfg.MaxFiles,
			TimeFormat:   timeFormat(cfg.Rotation),
			LocalTime:    true,
			EnsureFolder: true,
		}
		return fw, fw, nil

	case config.RotationNever:
		return &phuslog.FileWriter{
			Filename:     path,
			FileMode:     0o644,
			LocalTime:    true,
			EnsureFolder: true,
		}, nil, nil

	default:
		return nil, nil, fmt.Errorf("log: unknown rotation %q", cfg.Rotation)
	}
}

func timeFormat(rotation string) string {
	if rotation == config.RotationHourly {
		return "2006-01-02T15"
	}
	return "2006-01-02"
}

// probe creates dir and checks a file can be created in it.
func probe(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("log: cannot create log directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".gatekeeper-probe-*")
	if err != nil {
		return fmt.Errorf("log: log directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
