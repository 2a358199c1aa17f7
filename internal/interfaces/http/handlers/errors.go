package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	apperrors "github.com/pixelmuse/pixelmuse/internal/shared/errors"
	"github.com/pixelmuse/pixelmuse/internal/shared/utils"
)

// respondError maps domain errors onto HTTP status codes. AppErrors carry
// their own code; everything unrecognized becomes a 500 without leaking
// internals.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		utils.AppErrorResponse(c, appErr)
		return
	}

	switch {
	case errors.Is(err, billing.ErrTransactionNotFound),
		errors.Is(err, subscription.ErrSubscriptionNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, billing.ErrConflictingTransition),
		errors.Is(err, billing.ErrConcurrentModification):
		utils.ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		utils.ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, subscription.ErrQuotaExceeded):
		utils.ErrorResponse(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, subscription.ErrUnknownTier),
		errors.Is(err, subscription.ErrInvalidStatusTransition):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, err.Error())
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
	}
}
