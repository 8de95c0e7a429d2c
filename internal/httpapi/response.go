package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/adaptd/internal/engine"
	"github.com/abhisek/adaptd/internal/knowledge"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
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

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// respondEngineError maps engine errors onto HTTP statuses.
func respondEngineError(c *gin.Context, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	respondError(c, status, code, err)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, knowledge.ErrInvalidNode):
		return http.StatusUnprocessableEntity, "invalid_node"
	case errors.Is(err, knowledge.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, knowledge.ErrConcurrentUpdate):
		return http.StatusConflict, "concurrent_update"
	case errors.Is(err, engine.ErrSnapshotsDisabled):
		return http.StatusNotImplemented, "snapshots_disabled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
