package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cryptosniper/internal/domain"
)

const snapshotColumns = `id, user_id, total_value, btc_value, assets, timestamp`

// PortfolioRepositoryImpl implements the PortfolioRepository interface
type PortfolioRepositoryImpl struct {
	db DB
}

// NewPortfolioRepository creates a new PortfolioRepository
func NewPortfolioRepository(db DB) domain.PortfolioRepository {
	return &PortfolioRepositoryImpl{db: db}
}

func scanSnapshot(row pgx.Row) (*domain.PortfolioSnapshot, error) {
	s := &domain.PortfolioSnapshot{}
	var assets []byte
	err := row.Scan(&s.ID, &s.UserID, &s.TotalValue, &s.BTCValue, &assets, &s.Timestamp)
	if err != nil {
		return nil, err
	}
	if len(assets) > 0 {
		if err := json.Unmarshal(assets, &s.Assets); err != nil {
			return nil, fmt.Errorf("failed to decode assets: %w", err)
		}
	}
	return s, nil
}

// CreateSnapshot appends a snapshot; the timestamp is assigned by the database
func (r *PortfolioRepositoryImpl) CreateSnapshot(ctx context.Context, s *domain.PortfolioSnapshot) error {
	assets, err := json.Marshal(s.Assets)
	if err != nil {
		return fmt.Errorf("failed to encode assets: %w", err)
	}
	if s.Assets == nil {
		assets = []byte("{}")
	}

	query := `
		INSERT INTO portfolio_snapshots (user_id, total_value, btc_value, assets)
		VALUES ($1, $2, $3, $4::jsonb)
		RETURNING id, timestamp
	`
	err = r.db.QueryRow(ctx, query, s.UserID, s.TotalValue, s.BTCValue, string(assets)).Scan(&s.ID, &s.Timestamp)
	return mapError(err, "failed to create portfolio snapshot")
}

// GetLatest retrieves the user's most recent snapshot
func (r *PortfolioRepositoryImpl) GetLatest(ctx context.Context, userID int64) (*domain.PortfolioSnapshot, error) {
	s, err := scanSnapshot(r.db.QueryRow(ctx, `
		SELECT `+snapshotColumns+` FROM portfolio_snapshots
		WHERE user_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, userID))
	if err != nil {
		return nil, mapError(err, "failed to get latest portfolio snapshot")
	}
	return s, nil
}

// GetHistory retrieves up to limit snapshots, newest first
func (r *PortfolioRepositoryImpl) GetHistory(ctx context.Context, userID int64, limit int) ([]*domain.PortfolioSnapshot, error) {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+snapshotColumns+` FROM portfolio_snapshots
		WHERE user_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, mapError(err, "failed to query portfolio history")
	}
	return collect(rows, scanSnapshot)
}
