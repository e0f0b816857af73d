package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"cryptosniper/internal/domain"
)

const strategyColumns = `id, user_id, name, description, type, max_drawdown, margin, config, is_deployed, created_at`

// StrategyRepositoryImpl implements the StrategyRepository interface
type StrategyRepositoryImpl struct {
	db DB
}

// NewStrategyRepository creates a new StrategyRepository
func NewStrategyRepository(db DB) domain.StrategyRepository {
	return &StrategyRepositoryImpl{db: db}
}

func scanStrategy(row pgx.Row) (*domain.Strategy, error) {
	s := &domain.Strategy{}
	var config []byte
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Name,
		&s.Description,
		&s.Type,
		&s.MaxDrawdown,
		&s.Margin,
		&config,
		&s.IsDeployed,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Config = config
	return s, nil
}

// configArg passes an empty config as SQL NULL
func configArg(s *domain.Strategy) any {
	if len(s.Config) == 0 || string(s.Config) == "null" {
		return nil
	}
	return string(s.Config)
}

// Create creates a new strategy
func (r *StrategyRepositoryImpl) Create(ctx context.Context, s *domain.Strategy) error {
	query := `
		INSERT INTO strategies (user_id, name, description, type, max_drawdown, margin, config, is_deployed)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		s.UserID,
		s.Name,
		s.Description,
		s.Type,
		s.MaxDrawdown,
		s.Margin,
		configArg(s),
		s.IsDeployed,
	).Scan(&s.ID, &s.CreatedAt)

	return mapError(err, "failed to create strategy")
}

// GetByID retrieves a strategy by ID
func (r *StrategyRepositoryImpl) GetByID(ctx context.Context, id int64) (*domain.Strategy, error) {
	s, err := scanStrategy(r.db.QueryRow(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "failed to get strategy by ID")
	}
	return s, nil
}

// GetByUserID retrieves all strategies for a user
func (r *StrategyRepositoryImpl) GetByUserID(ctx context.Context, userID int64) ([]*domain.Strategy, error) {
	rows, err := r.db.Query(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE user_id = $1 ORDER BY id ASC`, userID)
	if err != nil {
		return nil, mapError(err, "failed to query strategies by user ID")
	}
	return collect(rows, scanStrategy)
}

// GetDeployedByUserID retrieves a user's deployed strategies
func (r *StrategyRepositoryImpl) GetDeployedByUserID(ctx context.Context, userID int64) ([]*domain.Strategy, error) {
	rows, err := r.db.Query(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE user_id = $1 AND is_deployed ORDER BY id ASC`, userID)
	if err != nil {
		return nil, mapError(err, "failed to query deployed strategies")
	}
	return collect(rows, scanStrategy)
}

// Update merges the patch under a row lock so concurrent patches do not
// lose each other's fields
func (r *StrategyRepositoryImpl) Update(ctx context.Context, id int64, patch domain.StrategyPatch) (*domain.Strategy, error) {
	var updated *domain.Strategy

	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		current, err := scanStrategy(tx.QueryRow(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		current.Apply(patch)

		_, err = tx.Exec(ctx, `
			UPDATE strategies
			SET name = $1, description = $2, type = $3, max_drawdown = $4,
			    margin = $5, config = $6::jsonb, is_deployed = $7
			WHERE id = $8
		`,
			current.Name,
			current.Description,
			current.Type,
			current.MaxDrawdown,
			current.Margin,
			configArg(current),
			current.IsDeployed,
			id,
		)
		if err != nil {
			return err
		}

		updated = current
		return nil
	})
	if err != nil {
		return nil, mapError(err, "failed to update strategy")
	}
	return updated, nil
}

// Delete hard-removes a strategy
func (r *StrategyRepositoryImpl) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM strategies WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "failed to delete strategy")
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "failed to delete strategy")
	}
	return nil
}
