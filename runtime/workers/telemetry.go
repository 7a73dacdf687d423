package workers

import (
	"chatrooms/domain/event"
	"context"
	"log/slog"
	"sync/atomic"
)

// TelemetryWorker owns the telemetry queue. Producers call Emit, which never
// blocks: when the queue is full the event is counted as lost and dropped.
type TelemetryWorker struct {
	log           *slog.Logger
	telemetryChan chan event.Event
	handlers      []event.Handler
	lost          atomic.Uint64
}

func NewTelemetryWorker(log *slog.Logger, bufferSize int, handlers ...event.Handler) *TelemetryWorker {
	return &TelemetryWorker{
		log:           log,
		telemetryChan: make(chan event.Event, bufferSize),
		handlers:      handlers,
	}
}

func (w *TelemetryWorker) Emit(e event.Event) {
	select {
	case w.telemetryChan <- e:
	default:
		w.lost.Add(1)
	}
}

// Lost is the number of events dropped because the queue was full.
func (w *TelemetryWorker) Lost() uint64 {
	return w.lost.Load()
}

// Usage reports the queue length and capacity.
func (w *TelemetryWorker) Usage() (length, capacity int) {
	return len(w.telemetryChan), cap(w.telemetryChan)
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case evt := <-w.telemetryChan:
			w.handle(evt)
		}
	}
}

func (w *TelemetryWorker) handle(e event.Event) {
	for _, h := range w.handlers {
		h.Handle(e)
	}
}
