package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/integrity-watch/report-service/internal/events"
	"github.com/integrity-watch/report-service/internal/realtime"
	"github.com/integrity-watch/report-service/internal/service"
)

// Subscribers lists the components reacting to domain events. Nil members are skipped.
type Subscribers struct {
	Dispatcher    events.Dispatcher
	Notifications *service.NotificationService
	Hub           *realtime.Hub
	Analytics     *service.AnalyticsService
	Logger        *zap.Logger
}

// Start registers event handlers.
func Start(s Subscribers) {
	if s.Dispatcher == nil {
		return
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if s.Notifications != nil {
		s.Notifications.RegisterHandlers()
	}
	if s.Hub != nil {
		s.Hub.RegisterHandlers(s.Dispatcher)
	}
	if s.Analytics != nil {
		events.SubscribeMany(s.Dispatcher, invalidateAnalytics(s.Analytics, logger), events.ReportEventTypes...)
	}
}

// invalidateAnalytics drops cached aggregates whenever a report changes.
func invalidateAnalytics(analytics *service.AnalyticsService, logger *zap.Logger) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		if err := analytics.Invalidate(ctx); err != nil {
			logger.Warn("invalidate analytics cache",
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
		return nil
	}
}
