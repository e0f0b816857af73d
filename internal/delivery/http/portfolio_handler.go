package http

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"cryptosniper/internal/delivery/http/dto"
	"cryptosniper/internal/delivery/http/schema"
	"cryptosniper/internal/domain"
	apperrors "cryptosniper/internal/errors"
)

// PortfolioHandler serves the session user's portfolio snapshots
type PortfolioHandler struct {
	portfolioRepo domain.PortfolioRepository
	validator     BodyValidator
	notifier      EventNotifier
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(portfolioRepo domain.PortfolioRepository, validator BodyValidator, notifier EventNotifier) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioRepo: portfolioRepo,
		validator:     validator,
		notifier:      notifier,
	}
}

// GetLatest returns the most recent snapshot
// GET /api/portfolio
func (h *PortfolioHandler) GetLatest(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	snapshot, err := h.portfolioRepo.GetLatest(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return apperrors.NewNotFoundError("No portfolio data found", nil)
	}
	if err != nil {
		return apperrors.NewInternalError("Failed to fetch portfolio", err)
	}
	return SuccessResponse(c, snapshot)
}

// GetHistory returns up to ?limit snapshots, newest first
// GET /api/portfolio/history
func (h *PortfolioHandler) GetHistory(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}
	limit, err := historyLimit(c.QueryParam("limit"))
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	history, err := h.portfolioRepo.GetHistory(ctx, userID, limit)
	if err != nil {
		return apperrors.NewInternalError("Failed to fetch portfolio history", err)
	}
	return SuccessResponse(c, nonNil(history))
}

// CreateSnapshot appends a snapshot stamped with the server time
// POST /api/portfolio/snapshot
func (h *PortfolioHandler) CreateSnapshot(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}

	var req dto.CreateSnapshotRequest
	if err := bindValidated(c, h.validator, schema.SnapshotCreate, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	snapshot := req.ToDomain(userID)
	if err := h.portfolioRepo.CreateSnapshot(ctx, snapshot); err != nil {
		return apperrors.NewInternalError("Failed to create portfolio snapshot", err)
	}

	h.notifier.Notify(ctx, domain.EventPortfolioSnapshot, userID, snapshot.ID, snapshot)
	return CreatedResponse(c, snapshot)
}

// historyLimit parses ?limit: empty means the default, larger values are
// clamped to the maximum
func historyLimit(raw string) (int, error) {
	if raw == "" {
		return domain.DefaultHistoryLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, apperrors.NewValidationError("limit must be a positive integer", err).
			WithDetails(map[string]interface{}{"fields": map[string]string{"limit": "must be a positive integer"}})
	}
	if limit > domain.MaxHistoryLimit {
		limit = domain.MaxHistoryLimit
	}
	return limit, nil
}
