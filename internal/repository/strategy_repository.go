package repository

import (
	"context"
	"fmt"

	"cryptosniper/internal/domain"
	"cryptosniper/internal/store"
)

// StrategyRepositoryImpl implements the StrategyRepository interface over the in-memory store
type StrategyRepositoryImpl struct {
	strategies *store.Collection[domain.Strategy, *domain.Strategy]
	positions  *store.Collection[domain.Position, *domain.Position]
}

// NewStrategyRepository creates a new StrategyRepository
func NewStrategyRepository(s *store.Store) domain.StrategyRepository {
	return &StrategyRepositoryImpl{strategies: s.Strategies, positions: s.Positions}
}

// Create creates a new strategy
func (r *StrategyRepositoryImpl) Create(ctx context.Context, strategy *domain.Strategy) error {
	*strategy = r.strategies.Insert(*strategy)
	return nil
}

// GetByID retrieves a strategy by ID
func (r *StrategyRepositoryImpl) GetByID(ctx context.Context, id int64) (*domain.Strategy, error) {
	strategy, ok := r.strategies.Get(id)
	if !ok {
		return nil, notFound(r.strategies, id)
	}
	return &strategy, nil
}

// GetByUserID retrieves all strategies for a user
func (r *StrategyRepositoryImpl) GetByUserID(ctx context.Context, userID int64) ([]*domain.Strategy, error) {
	return toPointers(r.strategies.ListWhere(func(s domain.Strategy) bool {
		return s.UserID == userID
	})), nil
}

// GetDeployedByUserID retrieves the user's deployed strategies
func (r *StrategyRepositoryImpl) GetDeployedByUserID(ctx context.Context, userID int64) ([]*domain.Strategy, error) {
	return toPointers(r.strategies.ListWhere(func(s domain.Strategy) bool {
		return s.UserID == userID && s.IsDeployed
	})), nil
}

// Update merges the patch into the stored strategy
func (r *StrategyRepositoryImpl) Update(ctx context.Context, id int64, patch domain.StrategyPatch) (*domain.Strategy, error) {
	updated, ok := r.strategies.Update(id, func(s *domain.Strategy) {
		s.Apply(patch)
	})
	if !ok {
		return nil, notFound(r.strategies, id)
	}
	return &updated, nil
}

// Delete removes a strategy and detaches the positions that referenced it,
// matching ON DELETE SET NULL in the SQL schema
func (r *StrategyRepositoryImpl) Delete(ctx context.Context, id int64) error {
	if !r.strategies.Delete(id) {
		return notFound(r.strategies, id)
	}
	r.positions.UpdateWhere(func(p domain.Position) bool {
		return p.StrategyID != nil && *p.StrategyID == id
	}, func(p *domain.Position) {
		p.StrategyID = nil
	})
	return nil
}

func notFound[T any, P store.Entity[T]](c *store.Collection[T, P], id int64) error {
	return fmt.Errorf("%s %d: %w", c.Kind(), id, domain.ErrNotFound)
}

func toPointers[T any](items []T) []*T {
	out := make([]*T, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}
