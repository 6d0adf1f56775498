package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// ActivityService writes the structured activity log for committed mutations.
type ActivityService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewActivityService creates the service. metrics may be nil.
func NewActivityService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *ActivityService {
	return &ActivityService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

var activityMessages = map[events.EventType]string{
	events.EventTicketCreated:       "ticket created",
	events.EventTicketUpdated:       "ticket updated",
	events.EventTicketStatusChanged: "ticket status changed",
	events.EventTicketAssigned:      "ticket assigned",
	events.EventUserCreated:         "user created",
	events.EventUserUpdated:         "user updated",
	events.EventUserActiveToggled:   "user active toggled",
	events.EventReferenceReloaded:   "reference data reloaded",
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for eventType := range activityMessages {
		a.dispatcher.Subscribe(eventType, a.handle)
	}
}

func (a *ActivityService) handle(_ context.Context, event events.Event) error {
	a.metrics.RecordEvent(string(event.Type))
	a.logger.Info(activityMessages[event.Type],
		zap.String("event_id", event.ID),
		zap.Int64("actor_id", event.ActorID),
		zap.Int64("entity_id", event.EntityID),
		zap.Any("payload", event.Payload))
	return nil
}
