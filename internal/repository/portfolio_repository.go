package repository

import (
	"context"
	"fmt"
	"sort"

	"cryptosniper/internal/domain"
	"cryptosniper/internal/store"
)

// PortfolioRepositoryImpl implements the PortfolioRepository interface over the in-memory store
type PortfolioRepositoryImpl struct {
	snapshots *store.Collection[domain.PortfolioSnapshot, *domain.PortfolioSnapshot]
}

// NewPortfolioRepository creates a new PortfolioRepository
func NewPortfolioRepository(s *store.Store) domain.PortfolioRepository {
	return &PortfolioRepositoryImpl{snapshots: s.Snapshots}
}

// CreateSnapshot appends a snapshot stamped with the store clock
func (r *PortfolioRepositoryImpl) CreateSnapshot(ctx context.Context, snapshot *domain.PortfolioSnapshot) error {
	*snapshot = r.snapshots.Insert(*snapshot)
	return nil
}

// GetLatest retrieves the user's most recent snapshot
func (r *PortfolioRepositoryImpl) GetLatest(ctx context.Context, userID int64) (*domain.PortfolioSnapshot, error) {
	history := r.newestFirst(userID)
	if len(history) == 0 {
		return nil, fmt.Errorf("portfolio snapshot for user %d: %w", userID, domain.ErrNotFound)
	}
	return &history[0], nil
}

// GetHistory retrieves up to limit snapshots, newest first.
// A non-positive limit falls back to DefaultHistoryLimit.
func (r *PortfolioRepositoryImpl) GetHistory(ctx context.Context, userID int64, limit int) ([]*domain.PortfolioSnapshot, error) {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}

	history := r.newestFirst(userID)
	if len(history) > limit {
		history = history[:limit]
	}
	return toPointers(history), nil
}

// newestFirst sorts at query time: timestamp descending, then id descending
func (r *PortfolioRepositoryImpl) newestFirst(userID int64) []domain.PortfolioSnapshot {
	snapshots := r.snapshots.ListWhere(func(s domain.PortfolioSnapshot) bool {
		return s.UserID == userID
	})
	sort.SliceStable(snapshots, func(i, j int) bool {
		a, b := snapshots[i], snapshots[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	})
	return snapshots
}
