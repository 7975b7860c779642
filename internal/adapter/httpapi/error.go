package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/srsd/internal/entity"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError translates domain errors into the wire taxonomy. Anything not
// recognized is an internal error; the transaction already rolled back, so
// retrying is safe and the payload says no more than that.
func writeError(c *gin.Context, logger logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, entity.ErrCardNotFound),
		errors.Is(err, entity.ErrWordNotFound),
		errors.Is(err, entity.ErrUserWordNotFound):
		c.JSON(http.StatusNotFound, errorBody{Error: err.Error(), Kind: "not_found"})
	case errors.Is(err, entity.ErrAccessDenied):
		c.JSON(http.StatusForbidden, errorBody{Error: err.Error(), Kind: "access_denied"})
	case errors.Is(err, entity.ErrDailyLimitExceeded):
		c.JSON(http.StatusTooManyRequests, errorBody{Error: err.Error(), Kind: "daily_limit_exceeded"})
	case errors.Is(err, entity.ErrInvalidRating):
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "invalid_rating"})
	case errors.Is(err, entity.ErrInvalidScope):
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "invalid_scope"})
	default:
		logger.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error", Kind: "internal_error"})
	}
}
