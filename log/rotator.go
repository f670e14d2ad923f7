package log

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/caasmo/gatekeeper/config"
	"github.com/go-co-op/gocron"
)

// Rotatable is a sink that can switch to a new file.
type Rotatable interface {
	Rotate() error
}

// Rotator rotates the log file at the top of every hour or every midnight.
type Rotator struct {
	name      string
	target    Rotatable
	scheduler *gocron.Scheduler
	logger    *slog.Logger
}

func NewRotator(target Rotatable, rotation string, logger *slog.Logger) (*Rotator, error) {
	if target == nil {
		return nil, fmt.Errorf("rotator: target cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Rotator{
		name:      "LogRotator",
		target:    target,
		scheduler: gocron.NewScheduler(time.Local),
		logger:    logger.With("daemon_component", "LogRotator"),
	}

	var err error
	switch rotation {
	case config.RotationHourly:
		_, err = r.scheduler.Cron("0 * * * *").Do(r.rotate)
	case config.RotationDaily:
		_, err = r.scheduler.Every(1).Day().At("00:00").Do(r.rotate)
	default:
		err = fmt.Errorf("rotation %q has no schedule", rotation)
	}
	if err != nil {
		return nil, fmt.Errorf("rotator: %w", err)
	}
	return r, nil
}

func (r *Rotator) rotate() {
	if err := r.target.Rotate(); err != nil {
		r.logger.Error("log rotation failed", "error", err)
		return
	}
	r.logger.Info("log file rotated")
}

// Name returns the constant name of this daemon type.
func (r *Rotator) Name() string {
	return r.name
}

func (r *Rotator) Start() error {
	r.scheduler.StartAsync()
	return nil
}

// Stop waits for a running rotation, bounded by ctx.
func (r *Rotator) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextRun is the time of the next scheduled rotation.
func (r *Rotator) NextRun() time.Time {
	_, next := r.scheduler.NextRun()
	return next
}
