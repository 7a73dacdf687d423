package workers

import (
	"chatrooms/contract"
	"chatrooms/domain"
	"chatrooms/errors"
	"context"
	"log/slog"
	"time"
)

const flushTimeout = 2 * time.Second

type PresenceSource interface {
	Changed() <-chan struct{}
	Pending() []domain.Presence
}

// PresenceWriter persists presence transitions outside of the tracker lock.
// Transitions are coalesced per identity, so a slow store only ever sees the
// latest state.
type PresenceWriter struct {
	log    *slog.Logger
	source PresenceSource
	stores []contract.PresenceStore
}

func NewPresenceWriter(log *slog.Logger, source PresenceSource, stores ...contract.PresenceStore) *PresenceWriter {
	return &PresenceWriter{log: log, source: source, stores: stores}
}

func (w *PresenceWriter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// Last flush so that a clean shutdown leaves stores up to date.
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
			w.flush(flushCtx)
			cancel()
			return nil
		case <-w.source.Changed():
			w.flush(ctx)
		}
	}
}

func (w *PresenceWriter) flush(ctx context.Context) {
	for _, p := range w.source.Pending() {
		for _, store := range w.stores {
			err := store.SetPresence(ctx, p)
			switch {
			case err == nil:
			case errors.Is(err, errors.ErrNotFound):
				w.log.Debug("presence of identity without profile", "identity", p.Identity)
			default:
				w.log.Error("unable to persist presence", "identity", p.Identity, "online", p.Online, "error", err)
			}
		}
	}
}
