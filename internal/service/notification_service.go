package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/integrity-watch/report-service/internal/config"
	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/events"
	"github.com/integrity-watch/report-service/internal/notify"
	"github.com/integrity-watch/report-service/internal/repository"
)

const mailTimeout = 15 * time.Second

// NotificationService emails users about account and report events.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	reports    repository.ReportRepository
	mailer     notify.Mailer
	composer   *notify.Composer
	logger     *zap.Logger
	resetTTL   time.Duration
	verifyTTL  time.Duration
	// run executes a delivery; deliveries leave the request path by default.
	run func(func())
}

// NotificationDependencies bundles collaborators for notifications.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	UserRepo   repository.UserRepository
	ReportRepo repository.ReportRepository
	Mailer     notify.Mailer
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(cfg config.Config, deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		users:      deps.UserRepo,
		reports:    deps.ReportRepo,
		mailer:     deps.Mailer,
		composer:   notify.NewComposer(cfg.App.PublicURL),
		logger:     logger,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
		verifyTTL:  time.Duration(cfg.Auth.EmailVerificationTTLHours) * time.Hour,
		run:        func(f func()) { go f() },
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.mailer == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
	n.dispatcher.Subscribe(events.EventReportStatusUpdated, n.handleReportStatusUpdated)
	n.dispatcher.Subscribe(events.EventReportAssigned, n.handleReportAssigned)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		return nil
	}
	n.deliver(ctx, event, n.composer.VerifyEmail(payload.Name, payload.Email, payload.VerificationToken, n.verifyTTL))
	return nil
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return nil
	}
	n.deliver(ctx, event, n.composer.PasswordReset(payload.Name, payload.Email, payload.Token, n.resetTTL))
	return nil
}

// handleReportStatusUpdated tells the reporter; anonymous reports have no one to tell.
func (n *NotificationService) handleReportStatusUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReportStatusPayload)
	if !ok || event.Audience.ReporterID == "" || event.Audience.ReporterID == event.ActorID {
		return nil
	}
	reporter, err := n.lookupUser(ctx, event.Audience.ReporterID)
	if err != nil {
		return err
	}
	report, err := n.loadReport(ctx, event.ReportID)
	if err != nil {
		return err
	}
	n.deliver(ctx, event, n.composer.StatusChanged(reporter.Name, reporter.Email, report.TrackingCode, string(payload.NewStatus)))
	return nil
}

func (n *NotificationService) handleReportAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReportAssignedPayload)
	if !ok {
		return nil
	}
	officer, err := n.lookupUser(ctx, payload.OfficerID)
	if err != nil {
		return err
	}
	report, err := n.loadReport(ctx, event.ReportID)
	if err != nil {
		return err
	}
	n.deliver(ctx, event, n.composer.CaseAssigned(officer.Name, officer.Email, report.TrackingCode, report.Title))
	return nil
}

func (n *NotificationService) lookupUser(ctx context.Context, hex string) (*domain.User, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, err
	}
	return n.users.GetByID(ctx, id)
}

func (n *NotificationService) loadReport(ctx context.Context, hex string) (*domain.Report, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, err
	}
	return n.reports.GetByID(ctx, id)
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, msg notify.Message) {
	// the request context ends with the response; keep its values but not its deadline
	base := context.WithoutCancel(ctx)
	n.run(func() {
		sendCtx, cancel := context.WithTimeout(base, mailTimeout)
		defer cancel()
		if err := n.mailer.Send(sendCtx, msg); err != nil {
			n.logger.Error("send email",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.String("to", msg.ToAddress),
				zap.Error(err))
			return
		}
		n.logger.Debug("email sent",
			zap.String("event_type", string(event.Type)),
			zap.String("to", msg.ToAddress))
	})
}
