package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meetdshah26/backend-chatbot/internal/apperrors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondMapped translates the service error taxonomy into HTTP statuses.
func RespondMapped(c *gin.Context, code string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		RespondError(c, http.StatusBadRequest, code, err)
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrChatNotFound):
		RespondError(c, http.StatusNotFound, code, err)
	case errors.Is(err, apperrors.ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, code, err)
	case errors.Is(err, apperrors.ErrRateLimited):
		RespondError(c, http.StatusTooManyRequests, code, err)
	default:
		RespondError(c, http.StatusInternalServerError, code, err)
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
