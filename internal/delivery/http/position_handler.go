package http

import (
	"github.com/labstack/echo/v4"

	"cryptosniper/internal/delivery/http/dto"
	"cryptosniper/internal/delivery/http/schema"
	"cryptosniper/internal/domain"
	apperrors "cryptosniper/internal/errors"
)

const kindPosition = "position"

// PositionHandler serves the session user's positions
type PositionHandler struct {
	positionRepo domain.PositionRepository
	strategyRepo domain.StrategyRepository
	validator    BodyValidator
	notifier     EventNotifier
}

// NewPositionHandler creates a new PositionHandler
func NewPositionHandler(
	positionRepo domain.PositionRepository,
	strategyRepo domain.StrategyRepository,
	validator BodyValidator,
	notifier EventNotifier,
) *PositionHandler {
	return &PositionHandler{
		positionRepo: positionRepo,
		strategyRepo: strategyRepo,
		validator:    validator,
		notifier:     notifier,
	}
}

// List returns the user's positions
// GET /api/positions
func (h *PositionHandler) List(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	positions, err := h.positionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return apperrors.NewInternalError("Failed to fetch positions", err)
	}
	return SuccessResponse(c, nonNil(positions))
}

// Get returns one position
// GET /api/positions/:id
func (h *PositionHandler) Get(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, kindPosition)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	position, err := authorize(ctx, userID, id, kindPosition, h.positionRepo.GetByID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, position)
}

// Create records a position for the session user. A referenced strategy
// must belong to the same user.
// POST /api/positions
func (h *PositionHandler) Create(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}

	var req dto.CreatePositionRequest
	if err := bindValidated(c, h.validator, schema.PositionCreate, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if req.StrategyID != nil {
		if _, err := authorize(ctx, userID, *req.StrategyID, kindStrategy, h.strategyRepo.GetByID); err != nil {
			return err
		}
	}

	position := req.ToDomain(userID)
	if err := h.positionRepo.Create(ctx, position); err != nil {
		return apperrors.NewInternalError("Failed to create position", err)
	}

	h.notifier.Notify(ctx, domain.EventPositionOpened, userID, position.ID, position)
	return CreatedResponse(c, position)
}

// Update applies a price or P&L change. Setting markPrice alone recomputes
// unrealized P&L.
// PATCH /api/positions/:id
func (h *PositionHandler) Update(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, kindPosition)
	if err != nil {
		return err
	}

	var patch domain.PositionPatch
	if err := bindValidated(c, h.validator, schema.PositionPatch, &patch); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := authorize(ctx, userID, id, kindPosition, h.positionRepo.GetByID); err != nil {
		return err
	}

	updated, err := h.positionRepo.Update(ctx, id, patch)
	if err != nil {
		return storeError(err, kindPosition, id, "update")
	}

	h.notifier.Notify(ctx, domain.EventPositionUpdated, userID, id, updated)
	return SuccessResponse(c, updated)
}

// Delete hard-removes a position
// DELETE /api/positions/:id
func (h *PositionHandler) Delete(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, kindPosition)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	position, err := authorize(ctx, userID, id, kindPosition, h.positionRepo.GetByID)
	if err != nil {
		return err
	}
	if err := h.positionRepo.Delete(ctx, id); err != nil {
		return storeError(err, kindPosition, id, "delete")
	}

	h.notifier.Notify(ctx, domain.EventPositionClosed, userID, id, position)
	return MessageResponse(c, "Position deleted successfully")
}
