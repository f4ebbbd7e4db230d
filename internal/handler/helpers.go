package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/orderin/api/internal/apperr"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("", "invalid request body")
	}
	return nil
}

// writeError maps the apperr taxonomy to a status code. Anything outside it
// is logged and reported as a 500.
func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		zap.L().Error("unhandled error", zap.Error(err))
		msg = "internal server error"
	case http.StatusServiceUnavailable:
		zap.L().Warn("collaborator unavailable", zap.Error(err))
		msg = apperr.ErrTransientIO.Error()
	case http.StatusUnauthorized:
		msg = apperr.ErrAuth.Error()
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrTransientIO):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// money renders IDR amounts with two decimals.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
