package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/slotsync/libs/httpx"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/extcal"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

type errorResponse struct {
	Error      string   `json:"error"`
	Code       string   `json:"code"`
	Violations []string `json:"violations,omitempty"`
}

func badRequest(w http.ResponseWriter, msg string) {
	httpx.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, body := classifyError(logger, err)
	httpx.WriteJSON(w, status, body)
}

// classifyError maps lifecycle and engine errors onto HTTP statuses. A source
// fault is checked before ErrUnavailable because booking joins the two.
func classifyError(logger *slog.Logger, err error) (int, errorResponse) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: "validation failed", Code: "validation_failed", Violations: verr.Violations}
	case errors.Is(err, availability.ErrSourceUnavailable):
		logger.Warn("availability source unavailable", "err", err)
		return http.StatusServiceUnavailable, errorResponse{Error: "availability service unavailable", Code: "availability_unavailable"}
	case errors.Is(err, booking.ErrUnavailable):
		return http.StatusConflict, errorResponse{Error: "time slot unavailable", Code: "unavailable"}
	case errors.Is(err, booking.ErrNotModifiable):
		return http.StatusConflict, errorResponse{Error: "booking can no longer be modified", Code: "not_modifiable"}
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "booking not found", Code: "not_found"}
	case errors.Is(err, extcal.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorResponse{Error: "external calendar not configured", Code: "not_configured"}
	case errors.Is(err, booking.ErrInfrastructure):
		logger.Error("infrastructure failure", "err", err)
		return http.StatusServiceUnavailable, errorResponse{Error: "service unavailable", Code: "infrastructure"}
	default:
		logger.Error("unhandled error", "err", err)
		return http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal"}
	}
}
