package domain

import (
	"context"
	"errors"
)

// Repository errors. Lookups report absence with ErrNotFound, never a nil entity.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create stores a new user and assigns its ID and CreatedAt
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername retrieves a user by exact username
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves a user by exact email
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// StrategyRepository defines the interface for strategy operations
type StrategyRepository interface {
	// Create stores a new strategy and assigns its ID and CreatedAt
	Create(ctx context.Context, strategy *Strategy) error

	// GetByID retrieves a strategy by ID
	GetByID(ctx context.Context, id int64) (*Strategy, error)

	// GetByUserID retrieves all strategies owned by a user
	GetByUserID(ctx context.Context, userID int64) ([]*Strategy, error)

	// GetDeployedByUserID retrieves the user's strategies with the deployed flag set
	GetDeployedByUserID(ctx context.Context, userID int64) ([]*Strategy, error)

	// Update merges the patch into the stored strategy
	Update(ctx context.Context, id int64, patch StrategyPatch) (*Strategy, error)

	// Delete removes a strategy
	Delete(ctx context.Context, id int64) error
}

// PositionRepository defines the interface for position operations
type PositionRepository interface {
	// Create stores a new position and assigns its ID and CreatedAt
	Create(ctx context.Context, position *Position) error

	// GetByID retrieves a position by ID
	GetByID(ctx context.Context, id int64) (*Position, error)

	// GetByUserID retrieves all positions for a user
	GetByUserID(ctx context.Context, userID int64) ([]*Position, error)

	// GetAll retrieves positions across all users
	GetAll(ctx context.Context) ([]*Position, error)

	// Update merges the patch into the stored position
	Update(ctx context.Context, id int64, patch PositionPatch) (*Position, error)

	// Delete hard-removes a position
	Delete(ctx context.Context, id int64) error
}

// PortfolioRepository defines the interface for portfolio snapshot operations
type PortfolioRepository interface {
	// CreateSnapshot appends a snapshot; the timestamp is assigned by the repository
	CreateSnapshot(ctx context.Context, snapshot *PortfolioSnapshot) error

	// GetLatest retrieves the user's most recent snapshot
	GetLatest(ctx context.Context, userID int64) (*PortfolioSnapshot, error)

	// GetHistory retrieves up to limit snapshots, newest first
	GetHistory(ctx context.Context, userID int64, limit int) ([]*PortfolioSnapshot, error)
}

// Owned is implemented by every entity carrying an owning user id
type Owned interface {
	OwnerID() int64
}
