package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Counter is anything reporting a live size, typically a connection registry.
type Counter interface {
	Len() int
}

// Reporter periodically logs process health and live connection counts.
type Reporter struct {
	log      *slog.Logger
	interval time.Duration
	counters map[string]Counter
	proc     *process.Process
	started  time.Time
}

func NewReporter(log *slog.Logger, interval time.Duration, counters map[string]Counter) *Reporter {
	return &Reporter{log: log, interval: interval, counters: counters, started: time.Now()}
}

func (w *Reporter) Run(ctx context.Context) error {
	if w.proc == nil {
		proc, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			return err
		}
		w.proc = proc
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report()
			return nil
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *Reporter) report() {
	attrs := []any{
		"uptime", time.Since(w.started).Round(time.Second).String(),
		"goroutines", runtime.NumGoroutine(),
	}
	if cpu, err := w.proc.CPUPercent(); err == nil {
		attrs = append(attrs, "cpu_percent", cpu)
	} else {
		w.log.Debug("Error while finding process cpu usage", "error", err)
	}
	if mem, err := w.proc.MemoryInfo(); err == nil {
		attrs = append(attrs, "rss_mb", mem.RSS/1024/1024)
	} else {
		w.log.Debug("Error while finding process ram usage", "error", err)
	}
	for name, counter := range w.counters {
		attrs = append(attrs, name, counter.Len())
	}
	w.log.Info("Health report", attrs...)
}
