package repository

import (
	"context"
	"fmt"

	"cryptosniper/internal/domain"
	"cryptosniper/internal/store"
)

// UserRepositoryImpl implements the UserRepository interface over the in-memory store
type UserRepositoryImpl struct {
	users *store.Collection[domain.User, *domain.User]
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(s *store.Store) domain.UserRepository {
	return &UserRepositoryImpl{users: s.Users}
}

// Create creates a new user. Username and email must both be unused.
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	created, ok := r.users.InsertUnique(*user, func(existing domain.User) bool {
		return existing.Username == user.Username || existing.Email == user.Email
	})
	if !ok {
		return fmt.Errorf("failed to create user %q: %w", user.Username, domain.ErrDuplicate)
	}

	*user = created
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepositoryImpl) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, ok := r.users.Get(id)
	if !ok {
		return nil, notFound(r.users, id)
	}
	return &user, nil
}

// GetByUsername retrieves a user by exact username
func (r *UserRepositoryImpl) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.first(func(u domain.User) bool { return u.Username == username }, "username "+username)
}

// GetByEmail retrieves a user by exact email; no case folding is applied
func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(func(u domain.User) bool { return u.Email == email }, "email "+email)
}

func (r *UserRepositoryImpl) first(pred func(domain.User) bool, what string) (*domain.User, error) {
	matches := r.users.ListWhere(pred)
	if len(matches) == 0 {
		return nil, fmt.Errorf("user with %s: %w", what, domain.ErrNotFound)
	}
	return &matches[0], nil
}
