package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/integrity-watch/report-service/internal/domain"
)

type passwordResetRepository struct {
	s *Store
}

func (r *passwordResetRepository) Create(_ context.Context, reset *domain.PasswordReset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if reset.ID == "" {
		reset.ID = uuid.NewString()
	}
	reset.CreatedAt = time.Now().UTC()
	r.s.resets[reset.ID] = clone(reset)
	return nil
}

func (r *passwordResetRepository) GetByTokenHash(_ context.Context, hash string) (*domain.PasswordReset, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, reset := range r.s.resets {
		if reset.TokenHash == hash {
			return clone(reset), nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *passwordResetRepository) MarkUsed(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reset, ok := r.s.resets[id]
	if !ok || reset.UsedAt != nil {
		return mongo.ErrNoDocuments
	}
	now := time.Now().UTC()
	reset.UsedAt = &now
	return nil
}
