package worker

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/returns-service/internal/events"
)

type blockingRunner struct {
	events.Dispatcher
	started chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context) error {
	close(r.started)
	<-ctx.Done()
	return nil
}

func TestStartNotificationWorkerWithoutRunner(t *testing.T) {
	done := StartNotificationWorker(context.Background(), nil, events.NewInMemoryDispatcher(), zap.NewNop())

	select {
	case <-done:
	default:
		t.Fatal("expected worker to finish immediately for synchronous dispatcher")
	}
}

func TestStartNotificationWorkerRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &blockingRunner{Dispatcher: events.NewInMemoryDispatcher(), started: make(chan struct{})}

	done := StartNotificationWorker(ctx, nil, runner, zap.NewNop())

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("runner was not started")
	}
	select {
	case <-done:
		t.Fatal("worker stopped before cancellation")
	default:
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
