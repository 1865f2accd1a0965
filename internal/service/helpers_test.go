package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/integrity-watch/report-service/internal/config"
	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/events"
	"github.com/integrity-watch/report-service/internal/repository/memory"
	apperrors "github.com/integrity-watch/report-service/pkg/util/errorutil"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) ofType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store      *memory.Store
	dispatcher events.Dispatcher
	recorded   *recorder
	reports    *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	rec := &recorder{}
	events.SubscribeMany(dispatcher, rec.handle, append(events.ReportEventTypes,
		events.EventUserRegistered, events.EventPasswordResetRequested)...)

	return &fixture{
		store:      store,
		dispatcher: dispatcher,
		recorded:   rec,
		reports: NewReportService(ReportDependencies{
			ReportRepo: store.Reports(),
			UserRepo:   store.Users(),
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
	}
}

func testConfig() config.Config {
	return config.Config{Auth: config.AuthConfig{
		JWTSecret:                 "test-secret",
		AccessTokenTTLMinutes:     60,
		PasswordResetTTLMinutes:   30,
		EmailVerificationTTLHours: 24,
		BcryptCost:                4,
	}}
}

func (f *fixture) addUser(t *testing.T, role domain.Role, state string, verified bool) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:       string(role) + " " + primitive.NewObjectID().Hex()[18:],
		Email:      primitive.NewObjectID().Hex() + "@example.org",
		Role:       role,
		Location:   domain.Location{State: state},
		IsActive:   true,
		IsVerified: verified,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user
}

func (f *fixture) submit(t *testing.T, actor *domain.User, mutate func(*CreateReportInput)) *domain.Report {
	t.Helper()
	in := CreateReportInput{
		Title:       "Officials demanding bribes at checkpoint",
		Description: "Drivers are asked for cash at the toll gate every morning.",
		Category:    domain.CategoryBribery,
		Location:    domain.ReportLocation{Address: "Toll gate 3", City: "Ikeja", State: "Lagos"},
	}
	if mutate != nil {
		mutate(&in)
	}
	report, err := f.reports.Create(context.Background(), actor, in, nil)
	require.NoError(t, err)
	return report
}

func statusOf(err error) int {
	if err == nil {
		return 0
	}
	return apperrors.ToDomainError(err).HTTPStatus
}
