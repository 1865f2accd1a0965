package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/repository"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user.Email = repository.NormalizeEmail(user.Email)
	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateKey
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = clone(user)
	return nil
}

func (r *userRepository) Patch(_ context.Context, id primitive.ObjectID, patch repository.UserPatch) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	patch.Apply(stored, time.Now().UTC())
	return clone(stored), nil
}

func (r *userRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if user, ok := r.s.users[id]; ok {
		return clone(user), nil
	}
	return nil, mongo.ErrNoDocuments
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	email = repository.NormalizeEmail(email)
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *userRepository) GetByVerificationHash(_ context.Context, hash string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool {
		return u.EmailVerification != nil && u.EmailVerification.Hash == hash
	})
}

func (r *userRepository) find(match func(*domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if match(user) {
			return clone(user), nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *userRepository) List(_ context.Context, filter repository.UserFilter) ([]domain.User, int64, error) {
	r.s.mu.RLock()
	matched := make([]*domain.User, 0, len(r.s.users))
	for _, user := range r.s.users {
		if matchUser(user, filter) {
			matched = append(matched, clone(user))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.Hex() > matched[j].ID.Hex()
	})

	start, end := window(len(matched), filter.Limit, filter.Offset)
	users := make([]domain.User, 0, end-start)
	for _, u := range matched[start:end] {
		users = append(users, *u)
	}
	return users, int64(len(matched)), nil
}

func matchUser(user *domain.User, filter repository.UserFilter) bool {
	if filter.Role != nil && user.Role != *filter.Role {
		return false
	}
	if filter.IsActive != nil && user.IsActive != *filter.IsActive {
		return false
	}
	if filter.IsVerified != nil && user.IsVerified != *filter.IsVerified {
		return false
	}
	if state := strings.TrimSpace(filter.State); state != "" && !strings.EqualFold(user.Location.State, state) {
		return false
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		return containsFold(user.Name, search) || containsFold(user.Email, search) || containsFold(user.BadgeNumber, search)
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// window mirrors the database paging defaults.
func window(n, limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return offset, end
}
