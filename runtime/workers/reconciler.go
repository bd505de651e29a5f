package workers

import (
	"context"
	"log/slog"
	"time"

	"chatd/repositories"
	"chatd/runtime"
)

// ReconcilerWorker repairs drift between the directory's persisted
// logged-in flags and the sessions actually held in this process, then
// sweeps mailbox broadcasts that lost their last readable recipient. It
// runs on an interval and immediately whenever a handler terminates, so a
// crashed connection's flag is cleared without waiting for the next tick.
type ReconcilerWorker struct {
	log       *slog.Logger
	registry  *runtime.SessionRegistry
	directory repositories.IUserDirectory
	mailbox   repositories.IMailboxStore
	interval  time.Duration
	trigger   <-chan struct{}
}

func NewReconcilerWorker(
	log *slog.Logger,
	registry *runtime.SessionRegistry,
	directory repositories.IUserDirectory,
	mailbox repositories.IMailboxStore,
	interval time.Duration,
	trigger <-chan struct{},
) *ReconcilerWorker {
	return &ReconcilerWorker{
		log:       log,
		registry:  registry,
		directory: directory,
		mailbox:   mailbox,
		interval:  interval,
		trigger:   trigger,
	}
}

func (w *ReconcilerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.trigger:
		}

		corrected, err := w.registry.Reconcile(w.directory)
		if err != nil {
			w.log.Error("Reconciliation failed", "err", err)
			continue
		}
		if corrected > 0 {
			w.log.Info("Reconciled logged-in flags", "corrected", corrected)
		}

		swept, err := w.mailbox.Sweep()
		if err != nil {
			w.log.Error("Mailbox sweep failed", "err", err)
			continue
		}
		if swept > 0 {
			w.log.Info("Swept undrainable broadcasts", "deleted", swept)
		}
	}
}
