package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"cryptosniper/internal/domain"
)

const positionColumns = `id, user_id, strategy_id, symbol, exchange, notional_value, entry_price, mark_price,
	unrealized_pnl, unrealized_pnl_percent, realized_pnl, realized_pnl_percent,
	leverage, side, is_isolated, created_at`

// PositionRepositoryImpl implements the PositionRepository interface
type PositionRepositoryImpl struct {
	db DB
}

// NewPositionRepository creates a new PositionRepository
func NewPositionRepository(db DB) domain.PositionRepository {
	return &PositionRepositoryImpl{db: db}
}

func scanPosition(row pgx.Row) (*domain.Position, error) {
	p := &domain.Position{}
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.StrategyID,
		&p.Symbol,
		&p.Exchange,
		&p.NotionalValue,
		&p.EntryPrice,
		&p.MarkPrice,
		&p.UnrealizedPnL,
		&p.UnrealizedPnLPercent,
		&p.RealizedPnL,
		&p.RealizedPnLPercent,
		&p.Leverage,
		&p.Side,
		&p.IsIsolated,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create creates a new position
func (r *PositionRepositoryImpl) Create(ctx context.Context, p *domain.Position) error {
	query := `
		INSERT INTO positions (
			user_id, strategy_id, symbol, exchange, notional_value, entry_price, mark_price,
			unrealized_pnl, unrealized_pnl_percent, realized_pnl, realized_pnl_percent,
			leverage, side, is_isolated
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		p.UserID,
		p.StrategyID,
		p.Symbol,
		p.Exchange,
		p.NotionalValue,
		p.EntryPrice,
		p.MarkPrice,
		p.UnrealizedPnL,
		p.UnrealizedPnLPercent,
		p.RealizedPnL,
		p.RealizedPnLPercent,
		p.Leverage,
		p.Side,
		p.IsIsolated,
	).Scan(&p.ID, &p.CreatedAt)

	return mapError(err, "failed to create position")
}

// GetByID retrieves a position by ID
func (r *PositionRepositoryImpl) GetByID(ctx context.Context, id int64) (*domain.Position, error) {
	p, err := scanPosition(r.db.QueryRow(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "failed to get position by ID")
	}
	return p, nil
}

// GetByUserID retrieves all positions for a user
func (r *PositionRepositoryImpl) GetByUserID(ctx context.Context, userID int64) ([]*domain.Position, error) {
	rows, err := r.db.Query(ctx, `SELECT `+positionColumns+` FROM positions WHERE user_id = $1 ORDER BY id ASC`, userID)
	if err != nil {
		return nil, mapError(err, "failed to query positions by user ID")
	}
	return collect(rows, scanPosition)
}

// GetAll retrieves positions across all users
func (r *PositionRepositoryImpl) GetAll(ctx context.Context) ([]*domain.Position, error) {
	rows, err := r.db.Query(ctx, `SELECT `+positionColumns+` FROM positions ORDER BY id ASC`)
	if err != nil {
		return nil, mapError(err, "failed to query positions")
	}
	return collect(rows, scanPosition)
}

// Update merges the patch under a row lock, recomputing P&L in Go
func (r *PositionRepositoryImpl) Update(ctx context.Context, id int64, patch domain.PositionPatch) (*domain.Position, error) {
	var updated *domain.Position

	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		current, err := scanPosition(tx.QueryRow(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		current.Apply(patch)

		_, err = tx.Exec(ctx, `
			UPDATE positions
			SET notional_value = $1, mark_price = $2, unrealized_pnl = $3, unrealized_pnl_percent = $4,
			    realized_pnl = $5, realized_pnl_percent = $6, leverage = $7, is_isolated = $8
			WHERE id = $9
		`,
			current.NotionalValue,
			current.MarkPrice,
			current.UnrealizedPnL,
			current.UnrealizedPnLPercent,
			current.RealizedPnL,
			current.RealizedPnLPercent,
			current.Leverage,
			current.IsIsolated,
			id,
		)
		if err != nil {
			return err
		}

		updated = current
		return nil
	})
	if err != nil {
		return nil, mapError(err, "failed to update position")
	}
	return updated, nil
}

// Delete hard-removes a position
func (r *PositionRepositoryImpl) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "failed to delete position")
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "failed to delete position")
	}
	return nil
}
