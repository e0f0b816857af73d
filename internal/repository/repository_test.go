package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptosniper/internal/domain"
	"cryptosniper/internal/store"
)

// steppingClock advances one minute per call
func steppingClock(start time.Time) store.Clock {
	next := start
	return func() time.Time {
		t := next
		next = next.Add(time.Minute)
		return t
	}
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func TestUserRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(store.New(nil))

	user := &domain.User{Username: "satoshi", Email: "satoshi@gmx.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	assert.Equal(t, int64(1), user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "satoshi", byID.Username)

	byName, err := repo.GetByUsername(ctx, "satoshi")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byEmail, err := repo.GetByEmail(ctx, "satoshi@gmx.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestUserRepository_LookupsAreExactMatch(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(store.New(nil))
	require.NoError(t, repo.Create(ctx, &domain.User{Username: "Alice", Email: "Alice@Example.com"}))

	_, err := repo.GetByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetByUsername(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_DuplicateUsernameOrEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(store.New(nil))
	require.NoError(t, repo.Create(ctx, &domain.User{Username: "bob", Email: "bob@x.io"}))

	err := repo.Create(ctx, &domain.User{Username: "bob", Email: "other@x.io"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	err = repo.Create(ctx, &domain.User{Username: "bobby", Email: "bob@x.io"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestUserRepository_GetByID_Missing(t *testing.T) {
	repo := NewUserRepository(store.New(nil))

	user, err := repo.GetByID(context.Background(), 42)

	assert.Nil(t, user)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Strategies
// ---------------------------------------------------------------------------

func TestStrategyRepository_DeployedFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewStrategyRepository(store.New(nil))

	require.NoError(t, repo.Create(ctx, &domain.Strategy{UserID: 1, Name: "idle"}))
	require.NoError(t, repo.Create(ctx, &domain.Strategy{UserID: 1, Name: "live", IsDeployed: true}))
	require.NoError(t, repo.Create(ctx, &domain.Strategy{UserID: 2, Name: "other", IsDeployed: true}))

	all, err := repo.GetByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	deployed, err := repo.GetDeployedByUserID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, deployed, 1)
	assert.Equal(t, "live", deployed[0].Name)
}

func TestStrategyRepository_UpdateIgnoresOwnershipInPayload(t *testing.T) {
	ctx := context.Background()
	repo := NewStrategyRepository(store.New(nil))
	s := &domain.Strategy{UserID: 1, Name: "scalper", Type: domain.StrategyTypeFutures}
	require.NoError(t, repo.Create(ctx, s))

	var patch domain.StrategyPatch
	require.NoError(t, json.Unmarshal([]byte(`{"userId":2,"id":9,"name":"scalper v2"}`), &patch))

	updated, err := repo.Update(ctx, s.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, s.ID, updated.ID)
	assert.Equal(t, int64(1), updated.UserID)
	assert.Equal(t, "scalper v2", updated.Name)
	assert.Equal(t, domain.StrategyTypeFutures, updated.Type)
	assert.Equal(t, s.CreatedAt, updated.CreatedAt)
}

func TestStrategyRepository_UpdateMissing(t *testing.T) {
	repo := NewStrategyRepository(store.New(nil))

	_, err := repo.Update(context.Background(), 3, domain.StrategyPatch{})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStrategyRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewStrategyRepository(store.New(nil))
	s := &domain.Strategy{UserID: 1, Name: "x"}
	require.NoError(t, repo.Create(ctx, s))

	require.NoError(t, repo.Delete(ctx, s.ID))
	assert.ErrorIs(t, repo.Delete(ctx, s.ID), domain.ErrNotFound)

	_, err := repo.GetByID(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStrategyRepository_DeleteDetachesPositions(t *testing.T) {
	ctx := context.Background()
	st := store.New(nil)
	strategies := NewStrategyRepository(st)
	positions := NewPositionRepository(st)

	s := &domain.Strategy{UserID: 1, Name: "grid"}
	require.NoError(t, strategies.Create(ctx, s))
	other := &domain.Strategy{UserID: 1, Name: "dca"}
	require.NoError(t, strategies.Create(ctx, other))

	linked := &domain.Position{UserID: 1, Symbol: "BTCUSDT", StrategyID: &s.ID}
	require.NoError(t, positions.Create(ctx, linked))
	unrelated := &domain.Position{UserID: 1, Symbol: "ETHUSDT", StrategyID: &other.ID}
	require.NoError(t, positions.Create(ctx, unrelated))

	require.NoError(t, strategies.Delete(ctx, s.ID))

	got, err := positions.GetByID(ctx, linked.ID)
	require.NoError(t, err)
	assert.Nil(t, got.StrategyID)

	got, err = positions.GetByID(ctx, unrelated.ID)
	require.NoError(t, err)
	require.NotNil(t, got.StrategyID)
	assert.Equal(t, other.ID, *got.StrategyID)
}

func TestStrategyRepository_NotFoundNamesKind(t *testing.T) {
	_, err := NewStrategyRepository(store.New(nil)).GetByID(context.Background(), 42)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualError(t, err, "strategy 42: not found")
}

func TestStrategyRepository_ConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewStrategyRepository(store.New(nil))
	config := `{"instruments":[{"symbol":"BTC","strike":65000,"legs":[{"side":"BUY","qty":1}]}],"startTime":"09:15","endTime":"15:20","segment":"OPTION","strategyType":"TIME_BASED"}`

	s := &domain.Strategy{UserID: 1, Name: "straddle", Config: json.RawMessage(config)}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.JSONEq(t, config, string(got.Config))
}

// ---------------------------------------------------------------------------
// Positions
// ---------------------------------------------------------------------------

func TestPositionRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewPositionRepository(store.New(nil))

	p := &domain.Position{UserID: 1, Symbol: "BTCUSDT", Exchange: "Delta", NotionalValue: 1000,
		EntryPrice: 100, Leverage: 2, Side: domain.SideLong, IsIsolated: true}
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.Create(ctx, &domain.Position{UserID: 2, Symbol: "ETHUSDT"}))

	mine, err := repo.GetByUserID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mark := 110.0
	updated, err := repo.Update(ctx, p.ID, domain.PositionPatch{MarkPrice: &mark})
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.UnrealizedPnL)
	assert.Equal(t, 20.0, updated.UnrealizedPnLPercent)

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Portfolio snapshots
// ---------------------------------------------------------------------------

func TestPortfolioRepository_LatestAndHistory(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := NewPortfolioRepository(store.New(steppingClock(start)))

	_, err := repo.GetLatest(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.CreateSnapshot(ctx, &domain.PortfolioSnapshot{UserID: 1, TotalValue: float64(i)}))
		require.NoError(t, repo.CreateSnapshot(ctx, &domain.PortfolioSnapshot{UserID: 2, TotalValue: float64(100 + i)}))
	}

	latest, err := repo.GetLatest(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, latest.TotalValue)

	history, err := repo.GetHistory(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, snap := range history {
		assert.Equal(t, int64(1), snap.UserID)
		if i > 0 {
			assert.True(t, snap.Timestamp.Before(history[i-1].Timestamp), "history must be strictly descending")
		}
	}
	assert.Equal(t, 4.0, history[0].TotalValue)
	assert.Equal(t, 2.0, history[2].TotalValue)
}

func TestPortfolioRepository_HistoryDefaultLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewPortfolioRepository(store.New(steppingClock(time.Now())))

	for i := 0; i < domain.DefaultHistoryLimit+5; i++ {
		require.NoError(t, repo.CreateSnapshot(ctx, &domain.PortfolioSnapshot{UserID: 1}))
	}

	history, err := repo.GetHistory(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, history, domain.DefaultHistoryLimit)
}

func TestPortfolioRepository_TimestampIsServerAssigned(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := NewPortfolioRepository(store.New(func() time.Time { return now }))

	snap := &domain.PortfolioSnapshot{UserID: 1, Timestamp: now.Add(-48 * time.Hour)}
	require.NoError(t, repo.CreateSnapshot(ctx, snap))

	assert.Equal(t, now, snap.Timestamp)
}

func TestPortfolioRepository_EqualTimestampsOrderedByID(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := NewPortfolioRepository(store.New(func() time.Time { return now }))

	first := &domain.PortfolioSnapshot{UserID: 1, TotalValue: 1}
	second := &domain.PortfolioSnapshot{UserID: 1, TotalValue: 2}
	require.NoError(t, repo.CreateSnapshot(ctx, first))
	require.NoError(t, repo.CreateSnapshot(ctx, second))

	latest, err := repo.GetLatest(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}
