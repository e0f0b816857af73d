package http

import (
	"github.com/labstack/echo/v4"

	"cryptosniper/internal/delivery/http/dto"
	"cryptosniper/internal/delivery/http/schema"
	"cryptosniper/internal/domain"
	apperrors "cryptosniper/internal/errors"
)

const kindStrategy = "strategy"

// StrategyHandler serves the session user's strategies
type StrategyHandler struct {
	strategyRepo domain.StrategyRepository
	validator    BodyValidator
	notifier     EventNotifier
}

// NewStrategyHandler creates a new StrategyHandler
func NewStrategyHandler(strategyRepo domain.StrategyRepository, validator BodyValidator, notifier EventNotifier) *StrategyHandler {
	return &StrategyHandler{
		strategyRepo: strategyRepo,
		validator:    validator,
		notifier:     notifier,
	}
}

// List returns every strategy the user owns
// GET /api/strategies
func (h *StrategyHandler) List(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	strategies, err := h.strategyRepo.GetByUserID(ctx, userID)
	if err != nil {
		return apperrors.NewInternalError("Failed to fetch strategies", err)
	}
	return SuccessResponse(c, nonNil(strategies))
}

// ListDeployed returns the user's deployed strategies
// GET /api/strategies/deployed
func (h *StrategyHandler) ListDeployed(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	strategies, err := h.strategyRepo.GetDeployedByUserID(ctx, userID)
	if err != nil {
		return apperrors.NewInternalError("Failed to fetch deployed strategies", err)
	}
	return SuccessResponse(c, nonNil(strategies))
}

// Get returns one strategy
// GET /api/strategies/:id
func (h *StrategyHandler) Get(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, kindStrategy)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	strategy, err := authorize(ctx, userID, id, kindStrategy, h.strategyRepo.GetByID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, strategy)
}

// Create stores a new strategy owned by the session user
// POST /api/strategies
func (h *StrategyHandler) Create(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}

	var req dto.CreateStrategyRequest
	if err := bindValidated(c, h.validator, schema.StrategyCreate, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	strategy := req.ToDomain(userID)
	if err := h.strategyRepo.Create(ctx, strategy); err != nil {
		return apperrors.NewInternalError("Failed to create strategy", err)
	}

	h.notifier.Notify(ctx, domain.EventStrategyCreated, userID, strategy.ID, strategy)
	return CreatedResponse(c, strategy)
}

// Update merges the whitelisted fields into a strategy
// PATCH /api/strategies/:id
func (h *StrategyHandler) Update(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, kindStrategy)
	if err != nil {
		return err
	}

	var patch domain.StrategyPatch
	if err := bindValidated(c, h.validator, schema.StrategyPatch, &patch); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	current, err := authorize(ctx, userID, id, kindStrategy, h.strategyRepo.GetByID)
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return SuccessResponse(c, current)
	}

	updated, err := h.strategyRepo.Update(ctx, id, patch)
	if err != nil {
		return storeError(err, kindStrategy, id, "update")
	}

	h.notifier.Notify(ctx, strategyEvent(current, updated), userID, id, updated)
	return SuccessResponse(c, updated)
}

// Delete removes a strategy
// DELETE /api/strategies/:id
func (h *StrategyHandler) Delete(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, kindStrategy)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := authorize(ctx, userID, id, kindStrategy, h.strategyRepo.GetByID); err != nil {
		return err
	}
	if err := h.strategyRepo.Delete(ctx, id); err != nil {
		return storeError(err, kindStrategy, id, "delete")
	}

	h.notifier.Notify(ctx, domain.EventStrategyDeleted, userID, id, nil)
	return MessageResponse(c, "Strategy deleted successfully")
}

// strategyEvent names the change: a flipped deploy flag wins over a plain edit
func strategyEvent(before, after *domain.Strategy) string {
	switch {
	case !before.IsDeployed && after.IsDeployed:
		return domain.EventStrategyDeployed
	case before.IsDeployed && !after.IsDeployed:
		return domain.EventStrategyUndeployed
	default:
		return domain.EventStrategyUpdated
	}
}

// nonNil keeps empty lists serialized as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
