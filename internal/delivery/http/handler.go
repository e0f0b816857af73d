package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"cryptosniper/internal/domain"
	apperrors "cryptosniper/internal/errors"
	"cryptosniper/internal/middleware"
)

const requestTimeout = 5 * time.Second

// BodyValidator checks a raw request body against a named schema
type BodyValidator interface {
	Validate(name string, body []byte) error
}

// EventNotifier publishes best-effort domain events
type EventNotifier interface {
	Notify(ctx context.Context, eventType string, userID, entityID int64, payload interface{})
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// sessionUser returns the authenticated user id set by the session middleware
func sessionUser(c echo.Context) (int64, error) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return 0, apperrors.NewSessionRequiredError()
	}
	return userID, nil
}

func parseID(c echo.Context, kind string) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(fmt.Sprintf("Invalid %s id", kind), err)
	}
	return id, nil
}

// bindValidated reads the body, validates it against the named schema and
// decodes it into dst
func bindValidated(c echo.Context, v BodyValidator, schemaName string, dst interface{}) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperrors.NewValidationError("Failed to read request body", err)
	}
	if err := v.Validate(schemaName, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.NewValidationError("Invalid request payload", err)
	}
	return nil
}

// authorize loads an entity and checks it belongs to userID: absent is 404,
// owned by someone else is 403.
func authorize[T domain.Owned](ctx context.Context, userID, id int64, kind string, get func(context.Context, int64) (T, error)) (T, error) {
	entity, err := get(ctx, id)
	if err != nil {
		var zero T
		if errors.Is(err, domain.ErrNotFound) {
			return zero, apperrors.NewResourceNotFoundError(kind, id)
		}
		return zero, apperrors.NewInternalError(fmt.Sprintf("Failed to load %s", kind), err)
	}
	if entity.OwnerID() != userID {
		var zero T
		return zero, apperrors.NewForbiddenResourceError(kind, id)
	}
	return entity, nil
}

// storeError converts a repository failure after authorization
func storeError(err error, kind string, id int64, action string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperrors.NewResourceNotFoundError(kind, id)
	}
	return apperrors.NewInternalError(fmt.Sprintf("Failed to %s %s", action, kind), err)
}
