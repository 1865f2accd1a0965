package realtime

import (
	"context"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/events"
)

// Route lists the rooms an event is delivered to.
func Route(event events.Event) []string {
	var rooms []string
	add := func(room string) { rooms = append(rooms, room) }
	reporter := func() {
		if event.Audience.ReporterID != "" {
			add(UserRoom(event.Audience.ReporterID))
		}
	}
	assignee := func() {
		if event.Audience.AssigneeID != "" {
			add(UserRoom(event.Audience.AssigneeID))
		}
	}

	switch event.Type {
	case events.EventReportCreated:
		add(RoleRoom(domain.RoleAdmin))
		add(RoleRoom(domain.RolePolice))
		if event.Audience.State != "" {
			add(LocationRoom(event.Audience.State))
		}
	case events.EventReportUpdated, events.EventReportEvidenceAdded:
		add(ReportRoom(event.ReportID))
		add(RoleRoom(domain.RoleAdmin))
	case events.EventReportStatusUpdated:
		add(ReportRoom(event.ReportID))
		reporter()
		assignee()
		add(RoleRoom(domain.RoleAdmin))
	case events.EventReportAssigned:
		assignee()
		reporter()
		add(ReportRoom(event.ReportID))
		add(RoleRoom(domain.RoleAdmin))
	case events.EventReportMessageAdded:
		add(ReportRoom(event.ReportID))
		reporter()
		assignee()
	case events.EventReportDeleted:
		add(RoleRoom(domain.RoleAdmin))
		add(ReportRoom(event.ReportID))
	}
	return rooms
}

// RegisterHandlers forwards report events from the dispatcher to sockets.
func (h *Hub) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	events.SubscribeMany(dispatcher, h.handleEvent, events.ReportEventTypes...)
}

func (h *Hub) handleEvent(_ context.Context, event events.Event) error {
	if rooms := Route(event); len(rooms) > 0 {
		// A deleted report can no longer be authorized against, so its room is told unconditionally.
		h.emit(rooms, string(event.Type), event.Payload, event.Type != events.EventReportDeleted)
	}
	return nil
}
