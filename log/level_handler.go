package log

import (
	"context"
	"log/slog"

	"github.com/caasmo/gatekeeper/config"
)

// LevelHandler filters records by the level of the current configuration,
// so a reload changes the level without rebuilding the logger.
type LevelHandler struct {
	configProvider *config.Provider
	next           slog.Handler
}

// NewLevelHandler panics if any parameter is nil.
func NewLevelHandler(configProvider *config.Provider, next slog.Handler) *LevelHandler {
	if configProvider == nil {
		panic("levelhandler: configProvider cannot be nil")
	}
	if next == nil {
		panic("levelhandler: next cannot be nil")
	}
	return &LevelHandler{configProvider: configProvider, next: next}
}

// Enabled implements the slog.Handler interface.
// It consults the config provider to get the current logging level.
func (h *LevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.configProvider.Get().Log.Level.Level && h.next.Enabled(ctx, level)
}

func (h *LevelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.next.Handle(ctx, r)
}

func (h *LevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelHandler{configProvider: h.configProvider, next: h.next.WithAttrs(attrs)}
}

func (h *LevelHandler) WithGroup(name string) slog.Handler {
	return &LevelHandler{configProvider: h.configProvider, next: h.next.WithGroup(name)}
}
