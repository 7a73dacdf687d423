package workers

import (
	"context"
	"log/slog"
	"time"
)

type Sweeper interface {
	Sweep() int
	Window() time.Duration
}

// LivenessWorker expires memberships that stopped heartbeating. Sweeping once
// per window bounds detection to two windows after the last heartbeat.
type LivenessWorker struct {
	log     *slog.Logger
	sweeper Sweeper
}

func NewLivenessWorker(log *slog.Logger, sweeper Sweeper) *LivenessWorker {
	return &LivenessWorker{log: log, sweeper: sweeper}
}

func (w *LivenessWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.sweeper.Window())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping liveness sweep")
			return nil
		case <-ticker.C:
			if expired := w.sweeper.Sweep(); expired > 0 {
				w.log.Info("memberships expired", "count", expired)
			}
		}
	}
}
