package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "fieldtrack/internal/delivery/context"
	"fieldtrack/internal/domain/service"
)

// publishEvent stamps and publishes a change event. The store stays the source of
// truth, so a failed publish is logged and otherwise ignored.
func publishEvent(ctx context.Context, notifier service.ChangeNotifier, logger *slog.Logger, event *service.ChangeEvent, now time.Time) {
	event.EmittedAt = now
	if event.RequestID == "" {
		event.RequestID = deliverycontext.RequestIDFrom(ctx)
	}

	if err := notifier.Publish(ctx, event); err != nil {
		deliverycontext.Logger(ctx, logger).Warn("Failed to publish change event",
			slog.String("type", event.Type),
			slog.Any("error", err),
		)
	}
}
