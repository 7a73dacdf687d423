package workers

import (
	"chatrooms/contract"
	"chatrooms/domain/event"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// NamedQueue exposes the fill level of a bounded queue.
type NamedQueue struct {
	Name  string
	Usage func() (length, capacity int)
}

// HealthMonitoringWorker samples the process, the hub and the internal queues
// every metric interval and reports them as telemetry.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	emitter        contract.Emitter
	metricInterval time.Duration
	hubStats       func() event.HubStats
	queues         []NamedQueue
}

func NewHealthMonitoringWorker(
	log *slog.Logger,
	emitter contract.Emitter,
	metricInterval time.Duration,
	hubStats func() event.HubStats,
	queues ...NamedQueue,
) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		emitter:        emitter,
		metricInterval: metricInterval,
		hubStats:       hubStats,
		queues:         queues,
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

func (w *HealthMonitoringWorker) sample(p *process.Process) {
	if usage, err := selfStats(p); err != nil {
		w.log.Debug("Failed to collect self stats", "error", err)
	} else {
		w.emitter.Emit(event.New(event.ProcessUsageType, usage))
	}
	if w.hubStats != nil {
		w.emitter.Emit(event.New(event.HubStatsType, w.hubStats()))
	}
	for _, q := range w.queues {
		length, capacity := q.Usage()
		w.emitter.Emit(event.New(event.ChannelCapacityType, event.ChannelCapacity{
			ChannelName: q.Name,
			Capacity:    capacity,
			Length:      length,
		}))
	}
}

func selfStats(p *process.Process) (event.ProcessUsage, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return event.ProcessUsage{}, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return event.ProcessUsage{}, err
	}
	return event.ProcessUsage{PID: p.Pid, Cpu: cpu, Ram: memInfo.RSS}, nil
}
