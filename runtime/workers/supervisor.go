package workers

import (
	"context"
	"fmt"
	"log/slog"
	"messenger/contract"
	"messenger/errors"
	"sync"
	"time"
)

const defaultRestartDelay = 200 * time.Millisecond

// Supervisor runs long-lived workers (event fan-out, reporter) each in its
// own goroutine. A worker that panics or fails is restarted after a delay.
// A worker returning nil is done and stays stopped.
// Run blocks until every worker is done or the context is canceled.
type Supervisor struct {
	mu           sync.Mutex
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	log          *slog.Logger
	restartDelay time.Duration
	workers      []contract.Worker
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{log: log, restartDelay: defaultRestartDelay}
}

func (s *Supervisor) WithRestartDelay(delay time.Duration) *Supervisor {
	s.restartDelay = delay
	return s
}

func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs one worker under supervision until ctx is done.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	log := s.log.With("worker", contract.GetWorkerName(worker))

	go func() {
		defer s.wg.Done()
		for ctx.Err() == nil {
			err := runOnce(ctx, worker)
			switch {
			case err == nil:
				log.Info("Worker finished")
				return
			case ctx.Err() != nil:
				log.Info("Worker stopped (context canceled)")
				return
			}

			log.Warn("Worker crashed, restarting", "error", err, "delay", s.restartDelay)
			select {
			case <-ctx.Done():
			case <-time.After(s.restartDelay):
			}
		}
		log.Info("Worker stopped")
	}()
}

// runOnce turns a panic into ErrWorkerPanic.
func runOnce(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

// Stop cancels every worker. Run returns once they are all gone.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
