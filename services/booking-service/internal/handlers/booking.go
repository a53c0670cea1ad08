package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotsync/libs/httpx"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

// Bookings is the booking lifecycle as the HTTP layer sees it.
type Bookings interface {
	Create(ctx context.Context, in booking.CreateInput) (booking.Outcome, error)
	Update(ctx context.Context, in booking.UpdateInput) (booking.Outcome, error)
	Cancel(ctx context.Context, id, reason string) (booking.Outcome, error)
	Complete(ctx context.Context, id string) (model.Booking, error)
	Delete(ctx context.Context, id string) (booking.Outcome, error)
	Get(ctx context.Context, id string) (model.Booking, error)
	List(ctx context.Context, ownerID string, limit int) ([]model.Booking, error)
}

type BookingHandler struct {
	bookings Bookings
	logger   *slog.Logger
}

func NewBookingHandler(bookings Bookings, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, logger: logger}
}

type createBookingRequest struct {
	OwnerID       string `json:"owner_id"`
	ProviderID    string `json:"provider_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Location      string `json:"location"`
	AttendeeEmail string `json:"attendee_email"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

type updateBookingRequest struct {
	ID            string  `json:"id"`
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Location      *string `json:"location"`
	AttendeeEmail *string `json:"attendee_email"`
	StartTime     *string `json:"start_time"`
	EndTime       *string `json:"end_time"`
}

type cancelBookingRequest struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type idRequest struct {
	ID string `json:"id"`
}

type bookingResponse struct {
	ID                 string `json:"id"`
	OwnerID            string `json:"owner_id"`
	ProviderID         string `json:"provider_id,omitempty"`
	Title              string `json:"title"`
	Description        string `json:"description,omitempty"`
	Location           string `json:"location,omitempty"`
	AttendeeEmail      string `json:"attendee_email,omitempty"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	Status             string `json:"status"`
	ExternalEventID    string `json:"external_event_id,omitempty"`
	SyncStatus         string `json:"sync_status"`
	SyncError          string `json:"sync_error,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	CancelledAt        string `json:"cancelled_at,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
	UpdatedAt          string `json:"updated_at,omitempty"`
	SyncWarning        string `json:"sync_warning,omitempty"`
}

func toResponse(b model.Booking) bookingResponse {
	resp := bookingResponse{
		ID:                 b.ID,
		OwnerID:            b.OwnerID,
		ProviderID:         b.ProviderID,
		Title:              b.Title,
		Description:        b.Description,
		Location:           b.Location,
		AttendeeEmail:      b.AttendeeEmail,
		StartTime:          b.Interval.Start.UTC().Format(time.RFC3339),
		EndTime:            b.Interval.End.UTC().Format(time.RFC3339),
		Status:             string(b.Status),
		ExternalEventID:    b.ExternalEventID,
		SyncStatus:         string(b.SyncStatus),
		SyncError:          b.SyncError,
		CancellationReason: b.CancellationReason,
	}
	if b.CancelledAt != nil {
		resp.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	if !b.CreatedAt.IsZero() {
		resp.CreatedAt = b.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !b.UpdatedAt.IsZero() {
		resp.UpdatedAt = b.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func outcomeResponse(out booking.Outcome) bookingResponse {
	resp := toResponse(out.Booking)
	if out.SyncErr != nil {
		resp.SyncWarning = "external calendar sync failed"
	}
	return resp
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodPost) {
		return
	}
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		badRequest(w, "invalid start_time")
		return
	}
	endTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndTime))
	if err != nil {
		badRequest(w, "invalid end_time")
		return
	}

	out, err := h.bookings.Create(r.Context(), booking.CreateInput{
		OwnerID:       req.OwnerID,
		ProviderID:    req.ProviderID,
		Title:         req.Title,
		Description:   req.Description,
		Location:      req.Location,
		AttendeeEmail: req.AttendeeEmail,
		Start:         startTime,
		End:           endTime,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, outcomeResponse(out))
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodPost) {
		return
	}
	var req updateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		badRequest(w, "id is required")
		return
	}
	in := booking.UpdateInput{
		ID:            req.ID,
		Title:         req.Title,
		Description:   req.Description,
		Location:      req.Location,
		AttendeeEmail: req.AttendeeEmail,
	}
	var ok bool
	if in.Start, ok = parseOptionalTime(req.StartTime); !ok {
		badRequest(w, "invalid start_time")
		return
	}
	if in.End, ok = parseOptionalTime(req.EndTime); !ok {
		badRequest(w, "invalid end_time")
		return
	}

	out, err := h.bookings.Update(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, outcomeResponse(out))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodPost) {
		return
	}
	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		badRequest(w, "id is required")
		return
	}
	out, err := h.bookings.Cancel(r.Context(), req.ID, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, outcomeResponse(out))
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeID(w, r)
	if !ok {
		return
	}
	b, err := h.bookings.Complete(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(b))
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeID(w, r)
	if !ok {
		return
	}
	out, err := h.bookings.Delete(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, outcomeResponse(out))
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		badRequest(w, "id is required")
		return
	}
	b, err := h.bookings.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(b))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodGet) {
		return
	}
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if ownerID == "" {
		badRequest(w, "owner_id is required")
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	list, err := h.bookings.List(r.Context(), ownerID, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]bookingResponse, 0, len(list))
	for _, b := range list {
		items = append(items, toResponse(b))
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) decodeID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if !httpx.AllowMethod(w, r, http.MethodPost) {
		return "", false
	}
	var req idRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return "", false
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		badRequest(w, "id is required")
		return "", false
	}
	return req.ID, true
}

func parseOptionalTime(raw *string) (*time.Time, bool) {
	if raw == nil {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		return nil, false
	}
	return &t, true
}
