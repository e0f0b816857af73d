package repository

import (
	"context"

	"cryptosniper/internal/domain"
	"cryptosniper/internal/store"
)

// PositionRepositoryImpl implements the PositionRepository interface over the in-memory store
type PositionRepositoryImpl struct {
	positions *store.Collection[domain.Position, *domain.Position]
}

// NewPositionRepository creates a new PositionRepository
func NewPositionRepository(s *store.Store) domain.PositionRepository {
	return &PositionRepositoryImpl{positions: s.Positions}
}

// Create creates a new position
func (r *PositionRepositoryImpl) Create(ctx context.Context, position *domain.Position) error {
	*position = r.positions.Insert(*position)
	return nil
}

// GetByID retrieves a position by ID
func (r *PositionRepositoryImpl) GetByID(ctx context.Context, id int64) (*domain.Position, error) {
	position, ok := r.positions.Get(id)
	if !ok {
		return nil, notFound(r.positions, id)
	}
	return &position, nil
}

// GetByUserID retrieves all positions for a user
func (r *PositionRepositoryImpl) GetByUserID(ctx context.Context, userID int64) ([]*domain.Position, error) {
	return toPointers(r.positions.ListWhere(func(p domain.Position) bool {
		return p.UserID == userID
	})), nil
}

// GetAll retrieves positions across all users
func (r *PositionRepositoryImpl) GetAll(ctx context.Context) ([]*domain.Position, error) {
	return toPointers(r.positions.ListWhere(nil)), nil
}

// Update merges the patch into the stored position
func (r *PositionRepositoryImpl) Update(ctx context.Context, id int64, patch domain.PositionPatch) (*domain.Position, error) {
	updated, ok := r.positions.Update(id, func(p *domain.Position) {
		p.Apply(patch)
	})
	if !ok {
		return nil, notFound(r.positions, id)
	}
	return &updated, nil
}

// Delete hard-removes a position
func (r *PositionRepositoryImpl) Delete(ctx context.Context, id int64) error {
	if !r.positions.Delete(id) {
		return notFound(r.positions, id)
	}
	return nil
}
