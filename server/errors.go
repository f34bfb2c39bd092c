package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/logger"

	"github.com/Ashenafi-pixel/raffle-wheel/kiosk"
	"github.com/Ashenafi-pixel/raffle-wheel/spin"
	"github.com/Ashenafi-pixel/raffle-wheel/wheel"
)

// APIError is the standard error response for raffle APIs.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, code int, errMsg, codeStr string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(APIError{
		Error:   errMsg,
		Code:    codeStr,
		Message: errMsg,
	})
}

// writeRaffleError maps engine errors onto HTTP statuses.
func writeRaffleError(w http.ResponseWriter, err error) {
	var ce *wheel.ConfigurationError
	switch {
	case errors.As(err, &ce):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_tier")
	case errors.Is(err, wheel.ErrUnknownTier):
		writeError(w, http.StatusNotFound, err.Error(), "unknown_tier")
	case errors.Is(err, kiosk.ErrUnknownKiosk):
		writeError(w, http.StatusNotFound, err.Error(), "unknown_kiosk")
	case errors.Is(err, kiosk.ErrNoBranch):
		writeError(w, http.StatusBadRequest, err.Error(), "branch_required")
	case errors.Is(err, spin.ErrUnclaimedResult):
		writeError(w, http.StatusConflict, err.Error(), "unclaimed_result")
	case errors.Is(err, spin.ErrSpinInProgress):
		writeError(w, http.StatusConflict, err.Error(), "spin_in_progress")
	case errors.Is(err, spin.ErrClosed):
		writeError(w, http.StatusConflict, err.Error(), "kiosk_closed")
	default:
		logger.Errorf("raffle: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error", "internal")
	}
}
