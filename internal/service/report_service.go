package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/events"
	"github.com/integrity-watch/report-service/internal/observability"
	"github.com/integrity-watch/report-service/internal/repository"
	"github.com/integrity-watch/report-service/internal/storage"
	apperrors "github.com/integrity-watch/report-service/pkg/util/errorutil"
)

const (
	titleMin       = 10
	titleMax       = 200
	descriptionMin = 20
	descriptionMax = 5000
	contentMax     = 2000
	trackingPrefix = "RPT-"
)

// ReportService coordinates report workflows.
type ReportService struct {
	reports    repository.ReportRepository
	users      repository.UserRepository
	evidence   storage.EvidenceStore
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	ReportRepo repository.ReportRepository
	UserRepo   repository.UserRepository
	Evidence   storage.EvidenceStore
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// CreateReportInput describes a new submission.
type CreateReportInput struct {
	Title           string
	Description     string
	Category        domain.ReportCategory
	Priority        domain.ReportPriority
	IsAnonymous     bool
	Location        domain.ReportLocation
	IncidentDate    *time.Time
	EstimatedAmount *float64
	InvolvedParties []string
}

// UpdateReportInput patches editable fields; nil leaves a field untouched.
type UpdateReportInput struct {
	Title           *string
	Description     *string
	Category        *domain.ReportCategory
	Priority        *domain.ReportPriority
	Location        *domain.ReportLocation
	IncidentDate    *time.Time
	EstimatedAmount *float64
	InvolvedParties []string
}

// ReportQuery holds listing filters as supplied by callers.
type ReportQuery struct {
	Statuses   []domain.ReportStatus
	Category   domain.ReportCategory
	Priority   domain.ReportPriority
	Search     string
	State      string
	City       string
	AssignedTo *primitive.ObjectID
	From       *time.Time
	Before     *time.Time
	Sort       repository.ReportSort
	Page       int
	Limit      int
}

// ReportPage is one page of reports.
type ReportPage struct {
	Items []domain.Report
	Total int64
	Page  int
	Limit int
}

// PublicStatusChange is a history entry without the acting user.
type PublicStatusChange struct {
	Status    domain.ReportStatus `json:"status"`
	Comment   string              `json:"comment,omitempty"`
	ChangedAt time.Time           `json:"changedAt"`
}

// TrackedReport is the anonymous-safe view served by tracking code.
type TrackedReport struct {
	TrackingCode  string                `json:"trackingCode"`
	Title         string                `json:"title"`
	Category      domain.ReportCategory `json:"category"`
	Status        domain.ReportStatus   `json:"status"`
	StatusHistory []PublicStatusChange  `json:"statusHistory"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// ReportStats counts a citizen's reports.
type ReportStats struct {
	Total    int64                         `json:"total"`
	ByStatus map[domain.ReportStatus]int64 `json:"byStatus"`
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports:    deps.ReportRepo,
		users:      deps.UserRepo,
		evidence:   deps.Evidence,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Create files a report. actor is nil for unauthenticated submissions; an anonymous report
// never records who filed it.
func (s *ReportService) Create(ctx context.Context, actor *domain.User, in CreateReportInput, files []*multipart.FileHeader) (*domain.Report, error) {
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if err := validateContent(in.Title, in.Description, in.Category, in.Priority); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Location.Address) == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"location.address": "address is required"})
	}

	anonymous := actor == nil || in.IsAnonymous
	var reporter *primitive.ObjectID
	if !anonymous {
		id := actor.ID
		reporter = &id
	}

	evidence, err := s.saveEvidence(ctx, files, reporter)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	report := &domain.Report{
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		Category:        in.Category,
		Status:          domain.ReportStatusPending,
		Priority:        in.Priority,
		IsAnonymous:     anonymous,
		Reporter:        reporter,
		Location:        trimReportLocation(in.Location),
		IncidentDate:    in.IncidentDate,
		EstimatedAmount: in.EstimatedAmount,
		InvolvedParties: cleanParties(in.InvolvedParties),
		Evidence:        evidence,
		StatusHistory: []domain.StatusChange{{
			Status:    domain.ReportStatusPending,
			ChangedBy: reporter,
			Comment:   "report submitted",
			ChangedAt: now,
		}},
		CreatedAt: now,
	}

	for attempt := 0; ; attempt++ {
		report.TrackingCode = generateTrackingCode()
		err = s.reports.Create(ctx, report)
		if !errors.Is(err, repository.ErrDuplicateKey) || attempt == 2 {
			break
		}
	}
	if err != nil {
		s.discardEvidence(evidence)
		return nil, mapRepoError(err, "report")
	}

	s.metrics.ReportCreated(string(report.Category), report.IsAnonymous)
	event := events.New(events.EventReportCreated, events.ReportCreatedPayload{
		ReportID:    report.ID.Hex(),
		Title:       report.Title,
		Category:    report.Category,
		Priority:    report.Priority,
		State:       report.Location.State,
		City:        report.Location.City,
		IsAnonymous: report.IsAnonymous,
		CreatedAt:   report.CreatedAt,
	}).ForReport(report)
	if reporter != nil {
		event = event.By(reporter.Hex())
	}
	s.publish(ctx, event)
	return redact(actor, report), nil
}

// List returns the reports visible to actor.
func (s *ReportService) List(ctx context.Context, actor *domain.User, q ReportQuery) (*ReportPage, error) {
	if actor.Role == domain.RolePolice && !actor.CanActAsPolice() {
		return nil, apperrors.NewForbidden("police account awaiting verification")
	}
	for _, status := range q.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": status})
		}
	}
	if q.Category != "" && !q.Category.Valid() {
		return nil, apperrors.NewValidationError("invalid category filter", map[string]any{"category": q.Category})
	}
	if q.Priority != "" && !q.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority filter", map[string]any{"priority": q.Priority})
	}
	switch q.Sort {
	case "", repository.SortNewest, repository.SortOldest, repository.SortPriority:
	default:
		return nil, apperrors.NewValidationError("invalid sort", map[string]any{"sort": q.Sort})
	}

	page, limit := normalizePage(q.Page, q.Limit)
	filter := repository.ReportFilter{
		Statuses:      q.Statuses,
		Category:      q.Category,
		Priority:      q.Priority,
		Search:        q.Search,
		State:         q.State,
		City:          q.City,
		CreatedFrom:   q.From,
		CreatedBefore: q.Before,
		Sort:          q.Sort,
		Limit:         limit,
		Offset:        (page - 1) * limit,
	}
	if actor.Role == domain.RoleAdmin {
		filter.AssignedTo = q.AssignedTo
	}
	scopeFilter(actor, &filter)

	items, total, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range items {
		redact(actor, &items[i])
	}
	return &ReportPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Get returns one report and counts the view.
func (s *ReportService) Get(ctx context.Context, actor *domain.User, id primitive.ObjectID) (*domain.Report, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanViewReport(actor, report) {
		return nil, apperrors.NewForbidden("you do not have access to this report")
	}
	viewer := actor.ID
	if err := s.reports.RecordView(ctx, id, &viewer); err != nil {
		s.logger.Warn("record report view", zap.String("report_id", id.Hex()), zap.Error(err))
	} else {
		report.Views++
	}
	return redact(actor, report), nil
}

// CanFollowReport reports whether user may subscribe to live updates of a report.
func (s *ReportService) CanFollowReport(ctx context.Context, user *domain.User, reportID string) bool {
	id, err := primitive.ObjectIDFromHex(reportID)
	if err != nil {
		return false
	}
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return false
	}
	return CanViewReport(user, report)
}

// Track serves the public status of a report by tracking code.
func (s *ReportService) Track(ctx context.Context, code string) (*TrackedReport, error) {
	report, err := s.reports.GetByTrackingCode(ctx, code)
	if err != nil {
		return nil, mapRepoError(err, "report")
	}
	if err := s.reports.RecordView(ctx, report.ID, nil); err != nil {
		s.logger.Warn("record report view", zap.String("report_id", report.ID.Hex()), zap.Error(err))
	}
	history := make([]PublicStatusChange, 0, len(report.StatusHistory))
	for _, change := range report.StatusHistory {
		history = append(history, PublicStatusChange{Status: change.Status, Comment: change.Comment, ChangedAt: change.ChangedAt})
	}
	return &TrackedReport{
		TrackingCode:  report.TrackingCode,
		Title:         report.Title,
		Category:      report.Category,
		Status:        report.Status,
		StatusHistory: history,
		CreatedAt:     report.CreatedAt,
		UpdatedAt:     report.UpdatedAt,
	}, nil
}

// Update edits report content. Reporters may edit only while the report is pending; investigators
// may also change the priority.
func (s *ReportService) Update(ctx context.Context, actor *domain.User, id primitive.ObjectID, in UpdateReportInput) (*domain.Report, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case isInvestigator(actor, report):
	case report.IsReportedBy(actor.ID):
		if report.Status != domain.ReportStatusPending {
			return nil, apperrors.NewForbidden("report can no longer be edited")
		}
		if in.Priority != nil {
			return nil, apperrors.NewForbidden("only investigators can change the priority")
		}
	default:
		return nil, apperrors.NewForbidden("you do not have access to this report")
	}

	var fields []string
	if in.Title != nil {
		report.Title = strings.TrimSpace(*in.Title)
		fields = append(fields, "title")
	}
	if in.Description != nil {
		report.Description = strings.TrimSpace(*in.Description)
		fields = append(fields, "description")
	}
	if in.Category != nil {
		report.Category = *in.Category
		fields = append(fields, "category")
	}
	if in.Priority != nil {
		report.Priority = *in.Priority
		fields = append(fields, "priority")
	}
	if in.Location != nil {
		if strings.TrimSpace(in.Location.Address) == "" {
			return nil, apperrors.NewValidationError("validation failed", map[string]any{"location.address": "address is required"})
		}
		report.Location = trimReportLocation(*in.Location)
		fields = append(fields, "location")
	}
	if in.IncidentDate != nil {
		report.IncidentDate = in.IncidentDate
		fields = append(fields, "incidentDate")
	}
	if in.EstimatedAmount != nil {
		report.EstimatedAmount = in.EstimatedAmount
		fields = append(fields, "estimatedAmount")
	}
	if in.InvolvedParties != nil {
		report.InvolvedParties = cleanParties(in.InvolvedParties)
		fields = append(fields, "involvedParties")
	}
	if len(fields) == 0 {
		return redact(actor, report), nil
	}
	if err := validateContent(report.Title, report.Description, report.Category, report.Priority); err != nil {
		return nil, err
	}
	if err := s.reports.Update(ctx, report); err != nil {
		return nil, mapRepoError(err, "report")
	}

	s.publish(ctx, events.New(events.EventReportUpdated, events.ReportUpdatedPayload{
		ReportID: report.ID.Hex(),
		Fields:   fields,
	}).ForReport(report).By(actor.ID.Hex()))
	return redact(actor, report), nil
}

// Delete removes a report and its evidence files.
func (s *ReportService) Delete(ctx context.Context, actor *domain.User, id primitive.ObjectID) error {
	report, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case actor.Role == domain.RoleAdmin:
	case report.IsReportedBy(actor.ID):
		if report.Status != domain.ReportStatusPending {
			return apperrors.NewForbidden("report can no longer be deleted")
		}
	default:
		return apperrors.NewForbidden("you do not have access to this report")
	}
	if err := s.reports.Delete(ctx, id); err != nil {
		return mapRepoError(err, "report")
	}
	s.discardEvidence(report.Evidence)
	s.publish(ctx, events.New(events.EventReportDeleted, events.ReportDeletedPayload{
		ReportID: report.ID.Hex(),
	}).ForReport(report).By(actor.ID.Hex()))
	return nil
}

// UpdateStatus moves a report forward. Resolving goes through Resolve so a Resolution is always recorded.
func (s *ReportService) UpdateStatus(ctx context.Context, actor *domain.User, id primitive.ObjectID, status domain.ReportStatus, comment string) (*domain.Report, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isInvestigator(actor, report) {
		return nil, apperrors.NewForbidden("only the assigned officer or an administrator can change the status")
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	switch {
	case status == domain.ReportStatusResolved:
		return nil, apperrors.NewValidationError("use the resolve action to resolve a report", nil)
	case status == domain.ReportStatusAssigned:
		return nil, apperrors.NewValidationError("use the assign action to assign a report", nil)
	case status == domain.ReportStatusInvestigating && report.AssignedTo == nil:
		return nil, apperrors.NewValidationError("assign an officer before starting an investigation", nil)
	}
	if !report.Status.CanTransitionTo(status) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("cannot move report from %s to %s", report.Status, status),
			map[string]any{"from": report.Status, "to": status},
		)
	}

	actorID := actor.ID
	updated, err := s.reports.Transition(ctx, id, report.Status, repository.Transition{
		Change: &domain.StatusChange{
			Status:    status,
			ChangedBy: &actorID,
			Comment:   strings.TrimSpace(comment),
			ChangedAt: s.now().UTC(),
		},
	})
	if err != nil {
		return nil, mapRepoError(err, "report")
	}

	s.metrics.StatusChanged(string(status))
	s.publish(ctx, events.New(events.EventReportStatusUpdated, events.ReportStatusPayload{
		ReportID:  updated.ID.Hex(),
		OldStatus: report.Status,
		NewStatus: updated.Status,
		Comment:   strings.TrimSpace(comment),
	}).ForReport(updated).By(actorID.Hex()))
	return redact(actor, updated), nil
}

// Assign hands a report to a police officer. Pending reports become assigned; reassignment keeps
// the current status.
func (s *ReportService) Assign(ctx context.Context, actor *domain.User, id, officerID primitive.ObjectID) (*domain.Report, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only administrators can assign reports")
	}
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status == domain.ReportStatusResolved || report.Status == domain.ReportStatusClosed {
		return nil, apperrors.NewValidationError(fmt.Sprintf("cannot assign a %s report", report.Status), nil)
	}
	officer, err := s.users.GetByID(ctx, officerID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewValidationError("officer not found", map[string]any{"officerId": officerID.Hex()})
		}
		return nil, err
	}
	if officer.Role != domain.RolePolice || !officer.CanActAsPolice() {
		return nil, apperrors.NewValidationError("reports can only be assigned to active, verified police officers",
			map[string]any{"officerId": officerID.Hex()})
	}

	now := s.now().UTC()
	actorID := actor.ID
	t := repository.Transition{AssignedTo: &officer.ID, AssignedAt: &now}
	if report.Status == domain.ReportStatusPending {
		t.Change = &domain.StatusChange{
			Status:    domain.ReportStatusAssigned,
			ChangedBy: &actorID,
			Comment:   "assigned to " + officer.Name,
			ChangedAt: now,
		}
	}
	updated, err := s.reports.Transition(ctx, id, report.Status, t)
	if err != nil {
		return nil, mapRepoError(err, "report")
	}
	if t.Change != nil {
		s.metrics.StatusChanged(string(t.Change.Status))
	}

	s.publish(ctx, events.New(events.EventReportAssigned, events.ReportAssignedPayload{
		ReportID:    updated.ID.Hex(),
		OfficerID:   officer.ID.Hex(),
		OfficerName: officer.Name,
		Status:      updated.Status,
	}).ForReport(updated).By(actorID.Hex()))
	return redact(actor, updated), nil
}

// Resolve closes the investigation with an outcome.
func (s *ReportService) Resolve(ctx context.Context, actor *domain.User, id primitive.ObjectID, outcome domain.ResolutionOutcome, summary string) (*domain.Report, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isInvestigator(actor, report) {
		return nil, apperrors.NewForbidden("only the assigned officer or an administrator can resolve the report")
	}
	if !outcome.Valid() {
		return nil, apperrors.NewValidationError("invalid outcome", map[string]any{"outcome": outcome})
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, apperrors.NewValidationError("summary is required", map[string]any{"summary": "required"})
	}
	if report.Status != domain.ReportStatusAssigned && report.Status != domain.ReportStatusInvestigating {
		return nil, apperrors.NewValidationError(fmt.Sprintf("a %s report cannot be resolved", report.Status), nil)
	}

	now := s.now().UTC()
	actorID := actor.ID
	resolution := &domain.Resolution{
		Outcome:    outcome,
		Summary:    summary,
		ResolvedBy: actorID,
		ResolvedAt: now,
	}
	updated, err := s.reports.Transition(ctx, id, report.Status, repository.Transition{
		Change: &domain.StatusChange{
			Status:    domain.ReportStatusResolved,
			ChangedBy: &actorID,
			Comment:   summary,
			ChangedAt: now,
		},
		Resolution: resolution,
	})
	if err != nil {
		return nil, mapRepoError(err, "report")
	}

	s.metrics.StatusChanged(string(domain.ReportStatusResolved))
	s.publish(ctx, events.New(events.EventReportStatusUpdated, events.ReportStatusPayload{
		ReportID:   updated.ID.Hex(),
		OldStatus:  report.Status,
		NewStatus:  updated.Status,
		Comment:    summary,
		Resolution: resolution,
	}).ForReport(updated).By(actorID.Hex()))
	return redact(actor, updated), nil
}

// AddNote records an internal investigation note.
func (s *ReportService) AddNote(ctx context.Context, actor *domain.User, id primitive.ObjectID, content string) (*domain.InvestigationNote, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isInvestigator(actor, report) {
		return nil, apperrors.NewForbidden("only the assigned officer or an administrator can add notes")
	}
	content, err = checkContent(content)
	if err != nil {
		return nil, err
	}
	note := domain.InvestigationNote{
		ID:        uuid.NewString(),
		Author:    actor.ID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.reports.AddNote(ctx, id, note); err != nil {
		return nil, mapRepoError(err, "report")
	}
	return &note, nil
}

// AddMessage posts to the reporter/investigator conversation.
func (s *ReportService) AddMessage(ctx context.Context, actor *domain.User, id primitive.ObjectID, content string) (*domain.Message, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canParticipate(actor, report) {
		return nil, apperrors.NewForbidden("you do not have access to this conversation")
	}
	content, err = checkContent(content)
	if err != nil {
		return nil, err
	}
	msg := domain.Message{
		ID:         uuid.NewString(),
		Sender:     actor.ID,
		SenderRole: actor.Role,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.reports.AddMessage(ctx, id, msg); err != nil {
		return nil, mapRepoError(err, "report")
	}
	s.publish(ctx, events.New(events.EventReportMessageAdded, events.MessageAddedPayload{
		ReportID: report.ID.Hex(),
		Message:  msg,
	}).ForReport(report).By(actor.ID.Hex()))
	return &msg, nil
}

// ListMessages returns the conversation in posting order.
func (s *ReportService) ListMessages(ctx context.Context, actor *domain.User, id primitive.ObjectID) ([]domain.Message, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canParticipate(actor, report) {
		return nil, apperrors.NewForbidden("you do not have access to this conversation")
	}
	return report.Messages, nil
}

// AddEvidence attaches more files. Reporters may add evidence until the investigation starts.
func (s *ReportService) AddEvidence(ctx context.Context, actor *domain.User, id primitive.ObjectID, files []*multipart.FileHeader) ([]domain.Evidence, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case isInvestigator(actor, report):
	case report.IsReportedBy(actor.ID):
		if report.Status != domain.ReportStatusPending && report.Status != domain.ReportStatusAssigned {
			return nil, apperrors.NewForbidden("evidence can no longer be added to this report")
		}
	default:
		return nil, apperrors.NewForbidden("you do not have access to this report")
	}
	if len(files) == 0 {
		return nil, apperrors.NewValidationError("at least one file is required", map[string]any{"evidence": "required"})
	}

	uploader := actor.ID
	items, err := s.saveEvidence(ctx, files, &uploader)
	if err != nil {
		return nil, err
	}
	if err := s.reports.AddEvidence(ctx, id, items...); err != nil {
		s.discardEvidence(items)
		return nil, mapRepoError(err, "report")
	}
	s.publish(ctx, events.New(events.EventReportEvidenceAdded, events.EvidenceAddedPayload{
		ReportID: report.ID.Hex(),
		Evidence: items,
	}).ForReport(report).By(actor.ID.Hex()))
	return items, nil
}

// MyStats counts the caller's own reports by status.
func (s *ReportService) MyStats(ctx context.Context, actor *domain.User) (*ReportStats, error) {
	id := actor.ID
	counts, err := s.reports.CountByStatus(ctx, repository.ReportFilter{Reporter: &id})
	if err != nil {
		return nil, err
	}
	stats := &ReportStats{ByStatus: counts}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func (s *ReportService) load(ctx context.Context, id primitive.ObjectID) (*domain.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "report")
	}
	return report, nil
}

func (s *ReportService) saveEvidence(ctx context.Context, files []*multipart.FileHeader, uploader *primitive.ObjectID) ([]domain.Evidence, error) {
	if len(files) == 0 {
		return []domain.Evidence{}, nil
	}
	if s.evidence == nil {
		return nil, apperrors.NewValidationError("file uploads are not enabled", nil)
	}
	return s.evidence.Save(ctx, files, uploader)
}

func (s *ReportService) discardEvidence(items []domain.Evidence) {
	if s.evidence == nil || len(items) == 0 {
		return
	}
	if err := s.evidence.Remove(items...); err != nil {
		s.logger.Warn("discard evidence files", zap.Error(err))
	}
}

func (s *ReportService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validateContent(title, description string, category domain.ReportCategory, priority domain.ReportPriority) error {
	details := map[string]any{}
	if n := utf8.RuneCountInString(strings.TrimSpace(title)); n < titleMin || n > titleMax {
		details["title"] = fmt.Sprintf("title must be between %d and %d characters", titleMin, titleMax)
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(description)); n < descriptionMin || n > descriptionMax {
		details["description"] = fmt.Sprintf("description must be between %d and %d characters", descriptionMin, descriptionMax)
	}
	if !category.Valid() {
		details["category"] = "category must be a known report category"
	}
	if !priority.Valid() {
		details["priority"] = "priority must be one of low, medium, high or urgent"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details)
	}
	return nil
}

func checkContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperrors.NewValidationError("content is required", map[string]any{"content": "required"})
	}
	if utf8.RuneCountInString(content) > contentMax {
		return "", apperrors.NewValidationError(fmt.Sprintf("content must be at most %d characters", contentMax), nil)
	}
	return content, nil
}

func trimReportLocation(loc domain.ReportLocation) domain.ReportLocation {
	return domain.ReportLocation{
		Address:     strings.TrimSpace(loc.Address),
		City:        strings.TrimSpace(loc.City),
		State:       strings.TrimSpace(loc.State),
		Coordinates: loc.Coordinates,
	}
}

func cleanParties(parties []string) []string {
	out := make([]string, 0, len(parties))
	for _, p := range parties {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func generateTrackingCode() string {
	return trackingPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
