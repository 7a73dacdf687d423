// Package runtime handles message fan-out and the background workers of the
// server. It orchestrates the system without containing business logic.
package runtime

import (
	"chatrooms/contract"
	"chatrooms/domain"
	"chatrooms/domain/event"
	"chatrooms/moderation"
	"chatrooms/runtime/presence"
	"chatrooms/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

var _ contract.IOrchestrator = (*Orchestrator)(nil)

type OrchestratorConfig struct {
	RestartInterval      time.Duration
	MetricInterval       time.Duration
	TelemetryBufferSize  int
	LatencyThreshold     time.Duration
	LowCapacityThreshold int
}

// Orchestrator owns the telemetry pipeline and supervises the background
// workers: telemetry, liveness sweep, presence writer and health monitoring.
type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	supervisor     contract.ISupervisor
	telemetry      *workers.TelemetryWorker
	counter        *event.Counter
	metricInterval time.Duration
	hub            *Hub
	tracker        *presence.Tracker
	stores         []contract.PresenceStore
	extra          []contract.Worker
	cancel         context.CancelFunc
	done           chan struct{}
	stopped        bool
}

func NewOrchestrator(log *slog.Logger, cfg OrchestratorConfig) *Orchestrator {
	counter := event.NewCounter()
	telemetry := workers.NewTelemetryWorker(log, cfg.TelemetryBufferSize,
		event.NewMessageAppendedHandler(log, counter),
		event.NewLatencyHandler(log, cfg.LatencyThreshold),
		event.NewCensoredHandler(log, counter),
		event.NewSubscriberDroppedHandler(log, counter),
		event.NewPresenceChangedHandler(log),
		event.NewChannelCapacityHandler(log, cfg.LowCapacityThreshold),
		event.NewUsageHandler(log),
		event.NewWorkerRestartedAfterPanicHandler(log, counter),
	)
	return &Orchestrator{
		log:            log,
		supervisor:     workers.NewSupervisor(log, telemetry, cfg.RestartInterval),
		telemetry:      telemetry,
		counter:        counter,
		metricInterval: cfg.MetricInterval,
	}
}

// Emitter is handed to every component producing telemetry.
func (o *Orchestrator) Emitter() contract.Emitter {
	return o.telemetry
}

// Counters is a snapshot of the events counted so far.
func (o *Orchestrator) Counters() map[event.Type]uint64 {
	return o.counter.Snapshot()
}

// Attach registers the hub and tracker whose workers the orchestrator runs.
// Presence transitions are written to every store, in order.
func (o *Orchestrator) Attach(hub *Hub, tracker *presence.Tracker, stores ...contract.PresenceStore) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hub = hub
	o.tracker = tracker
	o.stores = append(o.stores, stores...)
}

// Add registers extra workers, supervised like the built-in ones.
func (o *Orchestrator) Add(worker ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extra = append(o.extra, worker...)
}

// Start registers every worker and blocks until they all stopped. Starting
// after Stop returns immediately.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return nil
	}
	if o.hub == nil || o.tracker == nil {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator started without hub or tracker")
	}
	o.supervisor.Add(
		o.telemetry,
		workers.NewLivenessWorker(o.log, o.tracker),
		workers.NewPresenceWriter(o.log, o.tracker, o.stores...),
		workers.NewHealthMonitoringWorker(o.log, o.telemetry, o.metricInterval, o.hubStats,
			workers.NamedQueue{Name: "telemetry", Usage: o.telemetry.Usage}),
	)
	o.supervisor.Add(o.extra...)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	o.cancel, o.done = cancel, done
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	cancel()
	close(done)
	return nil
}

func (o *Orchestrator) hubStats() event.HubStats {
	s := o.hub.Stats()
	return event.HubStats{Rooms: s.Rooms, Subscriptions: s.Subscriptions}
}

// Stop closes every live subscription, so that streaming handlers return, then
// stops the workers and waits for them. The presence writer flushes on its way out.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.mu.Lock()
	o.stopped = true
	hub, cancel, done := o.hub, o.cancel, o.done
	o.mu.Unlock()

	if hub != nil {
		hub.Close()
	}
	if cancel != nil {
		cancel()
	}
	o.supervisor.Stop()
	if done != nil {
		<-done
	}
	o.log.Debug("Orchestrator stopped", "lost_events", o.telemetry.Lost())
}

// LinkPresence keeps hub and tracker consistent: a dropped subscriber leaves
// the room, and a membership forced to Absent closes its subscriptions.
// Closing runs under the member lock shared with the chat service, so a
// stream opened concurrently is either closed here or backed by a new Join.
func LinkPresence(hub *Hub, tracker *presence.Tracker, locks *MemberLocks) {
	hub.OnDrop(tracker.Evict)
	tracker.OnAbsent(func(identity string, room domain.RoomID) {
		unlock := locks.Lock(identity, room)
		defer unlock()
		hub.UnsubscribeMember(identity, room)
	})
}

// PrepareModeration loads the embedded dictionaries and builds the moderator.
func PrepareModeration(log *slog.Logger, charReplacement rune) (*moderation.Moderator, error) {
	data, err := DefaultCensoredLoader().LoadAll("censored")
	if err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))
	return moderation.NewModerator(data.Words, charReplacement, log)
}
