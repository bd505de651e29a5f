package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"chatd/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSupervisor_RestartOnPanic(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	workerMock := mocks.NewMockWorker(ctrl)

	var calls atomic.Int32
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			calls.Add(1)
			panic("boom")
		}).
		AnyTimes()

	sup := NewSupervisor(slog.Default(), 10*time.Millisecond)
	sup.Add(workerMock)

	ctx, cancel := context.WithCancel(context.Background())
	sup.Start(ctx)

	// Waiting for panics and restarts
	time.Sleep(200 * time.Millisecond)
	cancel()
	sup.Stop()

	req.GreaterOrEqual(calls.Load(), int32(2))
}

func TestSupervisor_CleanExitNeverRestarts(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	workerMock := mocks.NewMockWorker(ctrl)

	ran := make(chan struct{})
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			close(ran)
			return nil
		}).
		Times(1)

	sup := NewSupervisor(slog.Default(), 10*time.Millisecond)
	sup.Add(workerMock)
	sup.Start(context.Background())

	select {
	case <-ran:
	case <-time.After(500 * time.Millisecond):
		req.Fail("worker never ran")
	}

	done := make(chan struct{})
	go func() {
		sup.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("supervisor should have stopped after worker success")
	}
}

func TestSupervisor_StopCancelsRunningWorkers(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	workerMock := mocks.NewMockWorker(ctrl)

	started := make(chan struct{})
	workerMock.EXPECT().
		Run(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}).
		Times(1)

	sup := NewSupervisor(slog.Default(), 10*time.Millisecond)
	sup.Add(workerMock)
	sup.Start(context.Background())

	select {
	case <-started:
	case <-time.After(500 * time.Millisecond):
		req.Fail("worker never started")
	}

	done := make(chan struct{})
	go func() {
		sup.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("supervisor should have canceled and joined its workers")
	}
}
