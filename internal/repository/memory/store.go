// Package memory provides in-process implementations of the repository interfaces.
// It backs STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/repository"
)

// Store holds every collection behind one lock so cross-collection reads stay consistent.
type Store struct {
	mu      sync.RWMutex
	users   map[primitive.ObjectID]*domain.User
	reports map[primitive.ObjectID]*domain.Report
	resets  map[string]*domain.PasswordReset
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:   make(map[primitive.ObjectID]*domain.User),
		reports: make(map[primitive.ObjectID]*domain.Report),
		resets:  make(map[string]*domain.PasswordReset),
	}
}

// Users exposes the user collection.
func (s *Store) Users() repository.UserRepository { return &userRepository{s: s} }

// Reports exposes the report collection.
func (s *Store) Reports() repository.ReportRepository { return &reportRepository{s: s} }

// PasswordResets exposes reset tokens.
func (s *Store) PasswordResets() repository.PasswordResetRepository {
	return &passwordResetRepository{s: s}
}

// Analytics aggregates over the report collection.
func (s *Store) Analytics() repository.AnalyticsRepository { return &analyticsRepository{s: s} }

// clone deep-copies through BSON so stored values behave like documents
// round-tripped through the database.
func clone[T any](in *T) *T {
	raw, err := bson.Marshal(in)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := bson.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}
