package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/persistence"
)

// PasswordResetRepository stores single-use reset tokens.
type PasswordResetRepository interface {
	Create(ctx context.Context, reset *domain.PasswordReset) error
	GetByTokenHash(ctx context.Context, hash string) (*domain.PasswordReset, error)
	MarkUsed(ctx context.Context, id string) error
}

type passwordResetRepository struct {
	col *mongo.Collection
}

// NewPasswordResetRepository creates repository.
func NewPasswordResetRepository(db *mongo.Database) PasswordResetRepository {
	return &passwordResetRepository{col: db.Collection(persistence.CollectionPasswordResets)}
}

func (r *passwordResetRepository) Create(ctx context.Context, reset *domain.PasswordReset) error {
	if reset.ID == "" {
		reset.ID = uuid.NewString()
	}
	reset.CreatedAt = time.Now().UTC()
	_, err := r.col.InsertOne(ctx, reset)
	return err
}

func (r *passwordResetRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.PasswordReset, error) {
	var reset domain.PasswordReset
	if err := r.col.FindOne(ctx, bson.M{"tokenHash": hash}).Decode(&reset); err != nil {
		return nil, err
	}
	return &reset, nil
}

// MarkUsed only succeeds once per token.
func (r *passwordResetRepository) MarkUsed(ctx context.Context, id string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "usedAt": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"usedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
