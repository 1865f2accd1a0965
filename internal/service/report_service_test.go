package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/events"
	"github.com/integrity-watch/report-service/internal/repository"
)

func TestCreateReportDefaults(t *testing.T) {
	f := newFixture(t)
	citizen := f.addUser(t, domain.RoleCitizen, "Lagos", false)

	report := f.submit(t, citizen, nil)

	assert.Equal(t, domain.ReportStatusPending, report.Status)
	assert.Equal(t, domain.PriorityMedium, report.Priority)
	assert.True(t, strings.HasPrefix(report.TrackingCode, "RPT-"))
	assert.Len(t, report.TrackingCode, len("RPT-")+8)
	require.NotNil(t, report.Reporter)
	assert.Equal(t, citizen.ID, *report.Reporter)
	require.Len(t, report.StatusHistory, 1)
	assert.Equal(t, domain.ReportStatusPending, report.StatusHistory[0].Status)

	created := f.recorded.ofType(events.EventReportCreated)
	require.Len(t, created, 1)
	assert.Equal(t, citizen.ID.Hex(), created[0].Audience.ReporterID)
	assert.Equal(t, "Lagos", created[0].Audience.State)
}

func TestCreateAnonymousReportHidesReporter(t *testing.T) {
	f := newFixture(t)
	citizen := f.addUser(t, domain.RoleCitizen, "", false)

	for name, actor := range map[string]*domain.User{"flagged": citizen, "unauthenticated": nil} {
		t.Run(name, func(t *testing.T) {
			report := f.submit(t, actor, func(in *CreateReportInput) { in.IsAnonymous = true })
			assert.True(t, report.IsAnonymous)
			assert.Nil(t, report.Reporter)
			assert.Nil(t, report.StatusHistory[0].ChangedBy)

			stored, err := f.store.Reports().GetByID(context.Background(), report.ID)
			require.NoError(t, err)
			assert.Nil(t, stored.Reporter)
		})
	}
	for _, e := range f.recorded.ofType(events.EventReportCreated) {
		assert.Empty(t, e.Audience.ReporterID)
		assert.Empty(t, e.ActorID)
	}
}

func TestCreateReportValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.reports.Create(context.Background(), nil, CreateReportInput{
		Title:       "short",
		Description: "too short",
		Category:    "theft",
		Location:    domain.ReportLocation{Address: "somewhere"},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = f.reports.Create(context.Background(), nil, CreateReportInput{
		Title:       "A perfectly reasonable title",
		Description: "A description that is long enough to pass.",
		Category:    domain.CategoryFraud,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestListScopesByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, domain.RoleCitizen, "", false)
	bob := f.addUser(t, domain.RoleCitizen, "", false)
	lagosOfficer := f.addUser(t, domain.RolePolice, "Lagos", true)
	admin := f.addUser(t, domain.RoleAdmin, "", true)

	f.submit(t, alice, nil)
	f.submit(t, bob, func(in *CreateReportInput) { in.Location.State = "Kano" })

	page, err := f.reports.List(ctx, alice, ReportQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	page, err = f.reports.List(ctx, lagosOfficer, ReportQuery{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, "Lagos", page.Items[0].Location.State)

	page, err = f.reports.List(ctx, admin, ReportQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	unverified := f.addUser(t, domain.RolePolice, "Lagos", false)
	_, err = f.reports.List(ctx, unverified, ReportQuery{})
	assert.Equal(t, http.StatusForbidden, statusOf(err))

	_, err = f.reports.List(ctx, admin, ReportQuery{Sort: repository.ReportSort("random")})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestGetEnforcesVisibilityAndCountsViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, domain.RoleCitizen, "", false)
	stranger := f.addUser(t, domain.RoleCitizen, "", false)
	report := f.submit(t, owner, nil)

	_, err := f.reports.Get(ctx, stranger, report.ID)
	assert.Equal(t, http.StatusForbidden, statusOf(err))

	got, err := f.reports.Get(ctx, owner, report.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Views)

	_, err = f.reports.Get(ctx, owner, primitive.NewObjectID())
	assert.Equal(t, http.StatusNotFound, statusOf(err))
}

func TestCitizenCannotEditAfterPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, domain.RoleCitizen, "", false)
	officer := f.addUser(t, domain.RolePolice, "Lagos", true)
	admin := f.addUser(t, domain.RoleAdmin, "", true)
	report := f.submit(t, owner, nil)

	title := "Updated title for the checkpoint report"
	updated, err := f.reports.Update(ctx, owner, report.ID, UpdateReportInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	require.Len(t, f.recorded.ofType(events.EventReportUpdated), 1)

	priority := domain.PriorityUrgent
	_, err = f.reports.Update(ctx, owner, report.ID, UpdateReportInput{Priority: &priority})
	assert.Equal(t, http.StatusForbidden, statusOf(err))

	_, err = f.reports.Assign(ctx, admin, report.ID, officer.ID)
	require.NoError(t, err)

	_, err = f.reports.Update(ctx, owner, report.ID, UpdateReportInput{Title: &title})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, statusOf(err))
	assert.Contains(t, err.Error(), "can no longer be edited")

	updated, err = f.reports.Update(ctx, officer, report.ID, UpdateReportInput{Priority: &priority})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityUrgent, updated.Priority)
}

// interleavedReports runs afterRead once, right after the service loads a report.
type interleavedReports struct {
	repository.ReportRepository
	afterRead func()
}

func (r *interleavedReports) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Report, error) {
	report, err := r.ReportRepository.GetByID(ctx, id)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return report, err
}

func TestCitizenEditLosesRaceWithAssign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, domain.RoleCitizen, "", false)
	admin := f.addUser(t, domain.RoleAdmin, "", true)
	officer := f.addUser(t, domain.RolePolice, "", true)
	report := f.submit(t, owner, nil)

	racing := &interleavedReports{ReportRepository: f.store.Reports()}
	racing.afterRead = func() {
		_, err := f.reports.Assign(ctx, admin, report.ID, officer.ID)
		require.NoError(t, err)
	}
	svc := NewReportService(ReportDependencies{
		ReportRepo: racing,
		UserRepo:   f.store.Users(),
		Dispatcher: f.dispatcher,
		Logger:     zaptest.NewLogger(t),
	})

	title := "Edited after assignment"
	_, err := svc.Update(ctx, owner, report.ID, UpdateReportInput{Title: &title})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	stored, err := f.store.Reports().GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusAssigned, stored.Status)
	assert.NotEqual(t, title, stored.Title)
}

func TestAssignValidatesOfficer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, domain.RoleCitizen, "", false)
	admin := f.addUser(t, domain.RoleAdmin, "", true)
	unverified := f.addUser(t, domain.RolePolice, "", false)
	officer := f.addUser(t, domain.RolePolice, "", true)
	report := f.submit(t, owner, nil)

	_, err := f.reports.Assign(ctx, owner, report.ID, officer.ID)
	assert.Equal(t, http.StatusForbidden, statusOf(err))

	_, err = f.reports.Assign(ctx, admin, report.ID, unverified.ID)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = f.reports.Assign(ctx, admin, report.ID, owner.ID)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = f.reports.Assign(ctx, admin, report.ID, primitive.NewObjectID())
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	assigned, err := f.reports.Assign(ctx, admin, report.ID, officer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusAssigned, assigned.Status)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, officer.ID, *assigned.AssignedTo)
	assert.NotNil(t, assigned.AssignedAt)

	emitted := f.recorded.ofType(events.EventReportAssigned)
	require.Len(t, emitted, 1)
	assert.Equal(t, officer.ID.Hex(), emitted[0].Audience.AssigneeID)
}

func TestStatusMovesForwardOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, domain.RoleCitizen, "", false)
	admin := f.addUser(t, domain.RoleAdmin, "", true)
	officer := f.addUser(t, domain.RolePolice, "", true)
	other := f.addUser(t, domain.RolePolice, "", true)
	report := f.submit(t, owner, nil)

	_, err := f.reports.Assign(ctx, admin, report.ID, officer.ID)
	require.NoError(t, err)

	_, err = f.reports.UpdateStatus(ctx, other, report.ID, domain.ReportStatusInvestigating, "")
	assert.Equal(t, http.StatusForbidden, statusOf(err))

	updated, err := f.reports.UpdateStatus(ctx, officer, report.ID, domain.ReportStatusInvestigating, "on it")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusInvestigating, updated.Status)
	assert.Len(t, updated.StatusHistory, 3)

	_, err = f.reports.UpdateStatus(ctx, officer, report.ID, domain.ReportStatusAssigned, "")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = f.reports.UpdateStatus(ctx, officer, report.ID, domain.ReportStatusResolved, "")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	statusEvents := f.recorded.ofType(events.EventReportStatusUpdated)
	require.Len(t, statusEvents, 1)
	payload := statusEvents[0].Payload.(events.ReportStatusPayload)
	assert.Equal(t, domain.ReportStatusAssigned, payload.OldStatus)
	assert.Equal(t, domain.ReportStatusInvestigating, payload.NewStatus)
	assert.Equal(t, owner.ID.Hex(), statusEvents[0].Audience.ReporterID)
}

func TestStatusCannotBypassAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, domain.RoleCitizen, "", false)
	admin := f.addUser(t, domain.RoleAdmin, "", true)
	report := f.submit(t, owner, nil)

	tests := []struct {
		name   string
		status domain.ReportStatus
	}{
		{name: "assigned without officer", status: domain.ReportStatusAssigned},
		{name: "investigating without officer", status: domain.ReportStatusInvestigating},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reports.UpdateStatus(ctx, admin, report.ID, tt.status, "")
			assert.Equal(t, http.StatusBadRequest, statusOf(err))
		})
	}

	stored, err := f.store.Reports().GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusPending, stored.Status)
	assert.Nil(t, stored.AssignedTo)
	assert.Empty(t, f.recorded.ofType(events.EventReportStatusUpdated))

	closed, err := f.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusClosed, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusClosed, closed.Status)
}

func TestResolveRecordsOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, domain.RoleCitizen, "", false)
	admin := f.addUser(t, domain.RoleAdmin, "", true)
	officer := f.addUser(t, domain.RolePolice, "", true)
	report := f.submit(t, owner, nil)

	_, err := f.reports.Resolve(ctx, admin, report.ID, domain.OutcomeActionTaken, "done")
	assert.Equal(t, http.StatusBadRequest, statusOf(err), "pending reports cannot be resolved")

	_, err = f.reports.Assign(ctx, admin, report.ID, officer.ID)
	require.NoError(t, err)

	_, err = f.reports.Resolve(ctx, officer, report.ID, "dropped", "done")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
	_, err = f.reports.Resolve(ctx, officer, report.ID, domain.OutcomeActionTaken, "  ")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	resolved, err := f.reports.Resolve(ctx, officer, report.ID, domain.OutcomeActionTaken, "Officers suspended")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusResolved, resolved.Status)
	require.NotNil(t, resolved.Resolution)
	assert.Equal(t, officer.ID, resolved.Resolution.ResolvedBy)

	_, err = f.reports.Resolve(ctx, officer, report.ID, domain.OutcomeActionTaken, "again")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = f.reports.Assign(ctx, admin, report.ID, officer.ID)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	closed, err := f.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusClosed, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusClosed, closed.Status)
}

func TestNotesAreHiddenFromReporter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, domain.RoleCitizen, "", false)
	admin := f.addUser(t, domain.RoleAdmin, "", true)
	report := f.submit(t, owner, nil)

	_, err := f.reports.AddNote(ctx, owner, report.ID, "let me in")
	assert.Equal(t, http.StatusForbidden, statusOf(err))

	_, err = f.reports.AddNote(ctx, admin, report.ID, "cross-check with last month's reports")
	require.NoError(t, err)

	asAdmin, err := f.reports.Get(ctx, admin, report.ID)
	require.NoError(t, err)
	assert.Len(t, asAdmin.InvestigationNotes, 1)

	asOwner, err := f.reports.Get(ctx, owner, report.ID)
	require.NoError(t, err)
	assert.Empty(t, asOwner.InvestigationNotes)
}

func TestMessagesBetweenReporterAndInvestigator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, domain.RoleCitizen, "", false)
	stranger := f.addUser(t, domain.RoleCitizen, "", false)
	admin := f.addUser(t, domain.RoleAdmin, "", true)
	report := f.submit(t, owner, nil)

	_, err := f.reports.AddMessage(ctx, owner, report.ID, "Any update?")
	require.NoError(t, err)
	_, err = f.reports.AddMessage(ctx, admin, report.ID, "We are reviewing it.")
	require.NoError(t, err)
	_, err = f.reports.AddMessage(ctx, stranger, report.ID, "hello")
	assert.Equal(t, http.StatusForbidden, statusOf(err))
	_, err = f.reports.AddMessage(ctx, owner, report.ID, strings.Repeat("x", 2001))
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	messages, err := f.reports.ListMessages(ctx, owner, report.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.RoleAdmin, messages[1].SenderRole)
	assert.Len(t, f.recorded.ofType(events.EventReportMessageAdded), 2)
}

func TestDeleteRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, domain.RoleCitizen, "", false)
	admin := f.addUser(t, domain.RoleAdmin, "", true)
	officer := f.addUser(t, domain.RolePolice, "", true)

	mine := f.submit(t, owner, nil)
	require.NoError(t, f.reports.Delete(ctx, owner, mine.ID))

	assigned := f.submit(t, owner, nil)
	_, err := f.reports.Assign(ctx, admin, assigned.ID, officer.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, statusOf(f.reports.Delete(ctx, owner, assigned.ID)))
	require.NoError(t, f.reports.Delete(ctx, admin, assigned.ID))

	_, err = f.store.Reports().GetByID(ctx, assigned.ID)
	assert.Error(t, err)
	assert.Len(t, f.recorded.ofType(events.EventReportDeleted), 2)
}

func TestTrackServesPublicView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report := f.submit(t, nil, func(in *CreateReportInput) { in.IsAnonymous = true })

	tracked, err := f.reports.Track(ctx, strings.ToLower(report.TrackingCode))
	require.NoError(t, err)
	assert.Equal(t, report.TrackingCode, tracked.TrackingCode)
	assert.Equal(t, domain.ReportStatusPending, tracked.Status)
	assert.Len(t, tracked.StatusHistory, 1)

	_, err = f.reports.Track(ctx, "RPT-00000000")
	assert.Equal(t, http.StatusNotFound, statusOf(err))
}

func TestMyStatsCountsOwnReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.addUser(t, domain.RoleCitizen, "", false)
	f.submit(t, owner, nil)
	f.submit(t, owner, nil)
	f.submit(t, owner, func(in *CreateReportInput) { in.IsAnonymous = true })

	stats, err := f.reports.MyStats(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 2, stats.ByStatus[domain.ReportStatusPending])
}

func TestCanViewReport(t *testing.T) {
	owner := primitive.NewObjectID()
	officerID := primitive.NewObjectID()
	pendingLagos := &domain.Report{Status: domain.ReportStatusPending, Reporter: &owner, Location: domain.ReportLocation{State: "Lagos"}}
	assigned := &domain.Report{Status: domain.ReportStatusAssigned, AssignedTo: &officerID}

	lagos := &domain.User{ID: officerID, Role: domain.RolePolice, IsActive: true, IsVerified: true, Location: domain.Location{State: "lagos"}}
	kano := &domain.User{ID: primitive.NewObjectID(), Role: domain.RolePolice, IsActive: true, IsVerified: true, Location: domain.Location{State: "Kano"}}
	roaming := &domain.User{ID: primitive.NewObjectID(), Role: domain.RolePolice, IsActive: true, IsVerified: true}

	assert.True(t, CanViewReport(lagos, pendingLagos))
	assert.False(t, CanViewReport(kano, pendingLagos))
	assert.True(t, CanViewReport(roaming, pendingLagos))
	assert.True(t, CanViewReport(lagos, assigned))
	assert.False(t, CanViewReport(roaming, assigned))
	assert.True(t, CanViewReport(&domain.User{ID: owner, Role: domain.RoleCitizen}, pendingLagos))
	assert.True(t, CanViewReport(&domain.User{Role: domain.RoleAdmin}, assigned))
	assert.False(t, CanViewReport(nil, assigned))
}

func TestCanFollowReport(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, domain.RoleCitizen, "", false)
	stranger := f.addUser(t, domain.RoleCitizen, "", false)
	report := f.submit(t, owner, nil)

	assert.True(t, f.reports.CanFollowReport(context.Background(), owner, report.ID.Hex()))
	assert.False(t, f.reports.CanFollowReport(context.Background(), stranger, report.ID.Hex()))
	assert.False(t, f.reports.CanFollowReport(context.Background(), owner, "not-an-id"))
}
