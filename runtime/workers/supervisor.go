//go:generate go run go.uber.org/mock/mockgen -source=supervisor.go -destination=../../mocks/mock_worker.go -package=mocks
package workers

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"chatd/errors"
)

// Worker is a background task supervised for the process lifetime.
// A worker does not protect itself; the supervisor does.
type Worker interface {
	Run(ctx context.Context) error
}

// workerName retrieves the worker's type name for logging, avoiding
// manual naming in the Worker interface.
func workerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Supervisor runs each registered worker in its own goroutine, recovers
// panics, restarts crashed workers after a delay, and stops everything
// when the parent context is canceled. A failure in one worker never
// stops the supervisor itself.
type Supervisor struct {
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	log             *slog.Logger
	restartInterval time.Duration
	workers         []Worker
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	return &Supervisor{log: log, restartInterval: restartInterval}
}

func (s *Supervisor) Add(worker ...Worker) *Supervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start launches every registered worker under a cancellation scope tied
// to ctx. It returns immediately; Stop blocks until all workers exit.
func (s *Supervisor) Start(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, worker := range s.workers {
		s.startWorker(supervisedCtx, worker)
	}
}

func (s *Supervisor) startWorker(ctx context.Context, worker Worker) {
	s.wg.Add(1)
	name := workerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info("Stopping worker", "name", name)
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = errors.ErrWorkerPanic
					}
				}()
				return worker.Run(ctx)
			}()

			if err == nil {
				// Terminated cleanly, never restart.
				s.log.Info("Worker finished", "name", name)
				return
			}
			if ctx.Err() != nil {
				s.log.Info("Worker stopped (context canceled)", "name", name)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", name, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartInterval):
			}
		}
	}()
}

// Stop cancels all workers and waits for their goroutines to finish.
func (s *Supervisor) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
