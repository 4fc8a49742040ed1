package app

import (
	"errors"
	"net/http"

	"semantic-plagiarism/internal/model"
)

// ErrorStatus maps an analysis error onto the HTTP status reported to clients.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrDependencyTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, model.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
