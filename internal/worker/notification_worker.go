package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/returns-service/internal/events"
	"github.com/spec-kit/returns-service/internal/service"
)

// StartNotificationWorker registers notification handlers and, for queue
// backed dispatchers, starts the consumer loop. The returned channel is
// closed once the loop has stopped.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, dispatcher events.Dispatcher, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}

	runner, ok := dispatcher.(events.Runner)
	if !ok {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		if err := runner.Run(ctx); err != nil {
			logger.Error("notification worker stopped", zap.Error(err))
			return
		}
		logger.Info("notification worker stopped")
	}()
	return done
}
