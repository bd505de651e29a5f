package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chatd/domain"
	"chatd/mocks"
	"chatd/runtime"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestReconciler_TriggerRepairsAndSweeps(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	directory := mocks.NewMockIUserDirectory(ctrl)
	mailbox := mocks.NewMockIMailboxStore(ctrl)
	registry := runtime.NewSessionRegistry()

	// alice is persisted logged-in but holds no session (crashed handler).
	directory.EXPECT().List().Return([]domain.UserRecord{
		{Login: "alice", LoggedIn: true},
	}, nil)
	directory.EXPECT().SetLoggedIn("alice", false).Return(nil)

	swept := make(chan struct{})
	mailbox.EXPECT().Sweep().DoAndReturn(func() (int, error) {
		close(swept)
		return 1, nil
	})

	trigger := make(chan struct{}, 1)
	trigger <- struct{}{}
	worker := NewReconcilerWorker(slog.Default(), registry, directory, mailbox, time.Hour, trigger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	select {
	case <-swept:
	case <-time.After(time.Second):
		req.Fail("reconciler never ran on the handler-exit trigger")
	}

	cancel()
	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		req.Fail("reconciler did not stop on cancel")
	}
}
