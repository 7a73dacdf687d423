package storage

import (
	"chatrooms/errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 10 * time.Millisecond
)

// retrier runs badger read-write transactions and retries the ones that fail
// for transient reasons. Once attempts are exhausted the caller gets
// ErrServiceUnavailable.
type retrier struct {
	db       *badger.DB
	log      *slog.Logger
	attempts int
	backoff  time.Duration
}

func newRetrier(db *badger.DB, log *slog.Logger) retrier {
	return retrier{db: db, log: log, attempts: defaultAttempts, backoff: defaultBackoff}
}

func (r retrier) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			wait := r.backoff << (attempt - 1)
			r.log.Debug("retrying storage transaction", "attempt", attempt+1, "wait", wait, "error", err)
			time.Sleep(wait)
		}
		err = r.db.Update(fn)
		if err == nil || !isTransient(err) {
			return err
		}
	}
	r.log.Warn("storage transaction abandoned", "attempts", r.attempts, "error", err)
	return fmt.Errorf("%w: %w: %w", errors.ErrServiceUnavailable, errors.ErrTransientStorage, err)
}

func isTransient(err error) bool {
	return errors.Is(err, badger.ErrConflict) || errors.Is(err, badger.ErrBlockedWrites)
}
