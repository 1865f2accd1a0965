package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/persistence"
)

// UserFilter captures admin search parameters.
type UserFilter struct {
	Role       *domain.Role
	IsActive   *bool
	IsVerified *bool
	State      string
	Search     string
	Limit      int
	Offset     int
}

// UserPatch names the account fields a write changes. Nil fields are left as stored, so
// concurrent writers touching different fields do not overwrite each other.
type UserPatch struct {
	Name            *string
	Phone           *string
	Location        *domain.Location
	PasswordHash    *string
	Role            *domain.Role
	IsActive        *bool
	IsVerified      *bool
	IsEmailVerified *bool
	LastLoginAt     *time.Time
	// ClearEmailVerification drops the pending verification digest.
	ClearEmailVerification bool
}

// Set returns the $set document for the patch, updatedAt included.
func (p UserPatch) Set(now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	if p.Location != nil {
		set["location"] = *p.Location
	}
	if p.PasswordHash != nil {
		set["passwordHash"] = *p.PasswordHash
	}
	if p.Role != nil {
		set["role"] = *p.Role
	}
	if p.IsActive != nil {
		set["isActive"] = *p.IsActive
	}
	if p.IsVerified != nil {
		set["isVerified"] = *p.IsVerified
	}
	if p.IsEmailVerified != nil {
		set["isEmailVerified"] = *p.IsEmailVerified
	}
	if p.LastLoginAt != nil {
		set["lastLoginAt"] = *p.LastLoginAt
	}
	return set
}

// Apply writes the patch onto an in-memory copy.
func (p UserPatch) Apply(user *domain.User, now time.Time) {
	if p.Name != nil {
		user.Name = *p.Name
	}
	if p.Phone != nil {
		user.Phone = *p.Phone
	}
	if p.Location != nil {
		user.Location = *p.Location
	}
	if p.PasswordHash != nil {
		user.PasswordHash = *p.PasswordHash
	}
	if p.Role != nil {
		user.Role = *p.Role
	}
	if p.IsActive != nil {
		user.IsActive = *p.IsActive
	}
	if p.IsVerified != nil {
		user.IsVerified = *p.IsVerified
	}
	if p.IsEmailVerified != nil {
		user.IsEmailVerified = *p.IsEmailVerified
	}
	if p.LastLoginAt != nil {
		at := *p.LastLoginAt
		user.LastLoginAt = &at
	}
	if p.ClearEmailVerification {
		user.EmailVerification = nil
	}
	user.UpdatedAt = now
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	// Patch updates only the named fields and returns the stored account.
	Patch(ctx context.Context, id primitive.ObjectID, patch UserPatch) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByVerificationHash(ctx context.Context, hash string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, int64, error)
}

type userRepository struct {
	col *mongo.Collection
}

// NewUserRepository returns a Mongo-backed implementation.
func NewUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{col: db.Collection(persistence.CollectionUsers)}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = NormalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *userRepository) Patch(ctx context.Context, id primitive.ObjectID, patch UserPatch) (*domain.User, error) {
	update := bson.M{"$set": patch.Set(time.Now().UTC())}
	if patch.ClearEmailVerification {
		update["$unset"] = bson.M{"emailVerification": ""}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user domain.User
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
}

func (r *userRepository) GetByVerificationHash(ctx context.Context, hash string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"emailVerification.hash": hash})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, int64, error) {
	query := bson.M{}
	if filter.Role != nil {
		query["role"] = *filter.Role
	}
	if filter.IsActive != nil {
		query["isActive"] = *filter.IsActive
	}
	if filter.IsVerified != nil {
		query["isVerified"] = *filter.IsVerified
	}
	if state := strings.TrimSpace(filter.State); state != "" {
		query["location.state"] = exactFold(state)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"email": pattern},
			bson.M{"badgeNumber": pattern},
		}
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	users := []domain.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func exactFold(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
