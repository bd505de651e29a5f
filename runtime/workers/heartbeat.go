package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chatd/runtime"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker periodically logs process health (CPU, RSS) together
// with the number of live chat sessions. Purely observational.
type HeartbeatWorker struct {
	log      *slog.Logger
	registry *runtime.SessionRegistry
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, registry *runtime.SessionRegistry, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, registry: registry, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Error("Failed to read cpu usage", "err", err)
				continue
			}
			mem, err := p.MemoryInfo()
			if err != nil {
				w.log.Error("Failed to read memory usage", "err", err)
				continue
			}

			w.log.Info("Heartbeat",
				"active_sessions", len(w.registry.ListActive()),
				"cpu_percent", cpu,
				"rss_mb", mem.RSS>>20,
			)
		}
	}
}
