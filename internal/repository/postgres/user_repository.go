package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"cryptosniper/internal/domain"
)

const userColumns = `id, username, email, name, phone, password_hash, api_key, api_secret, created_at`

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.Phone,
		&user.PasswordHash,
		&user.APIKey,
		&user.APISecret,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create creates a new user; id and created_at come from the database
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, email, name, phone, password_hash, api_key, api_secret)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.Name,
		user.Phone,
		user.PasswordHash,
		user.APIKey,
		user.APISecret,
	).Scan(&user.ID, &user.CreatedAt)

	return mapError(err, "failed to create user")
}

// GetByID retrieves a user by ID
func (r *UserRepositoryImpl) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "failed to get user by ID")
	}
	return user, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepositoryImpl) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, mapError(err, "failed to get user by username")
	}
	return user, nil
}

// GetByEmail retrieves a user by exact email
func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, mapError(err, "failed to get user by email")
	}
	return user, nil
}
