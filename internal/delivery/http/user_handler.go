package http

import (
	"errors"

	"github.com/labstack/echo/v4"

	"cryptosniper/internal/delivery/http/dto"
	"cryptosniper/internal/domain"
	apperrors "cryptosniper/internal/errors"
)

// UserHandler handles user-related requests
type UserHandler struct {
	userRepo domain.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo domain.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// GetMe returns the signed-in user's profile
// GET /api/user
func (h *UserHandler) GetMe(c echo.Context) error {
	userID, err := sessionUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.userRepo.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return apperrors.NewResourceNotFoundError("user", userID)
	}
	if err != nil {
		return apperrors.NewInternalError("Failed to load user", err)
	}

	return SuccessResponse(c, dto.NewUserProfile(user))
}
