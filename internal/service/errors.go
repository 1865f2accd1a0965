package service

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/integrity-watch/report-service/internal/repository"
	apperrors "github.com/integrity-watch/report-service/pkg/util/errorutil"
)

// mapRepoError turns repository sentinels into client-facing errors.
func mapRepoError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrDuplicateKey):
		return apperrors.NewConflict(resource+" already exists", nil)
	case errors.Is(err, repository.ErrStatusConflict):
		return apperrors.NewConflict("report was modified by another request, reload and retry", nil)
	}
	return err
}

// ParseID converts a hex id from a path or payload.
func ParseID(raw, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperrors.NewValidationError("invalid id", map[string]any{field: raw})
	}
	return id, nil
}
