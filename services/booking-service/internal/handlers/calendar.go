package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotsync/libs/httpx"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/exchange"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/ical"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
)

const maxImportBytes = 1 << 20

type CalendarExchange interface {
	ExportBookings(ctx context.Context, ownerID string) (ical.EncodeResult, error)
	ExportExternal(ctx context.Context, window interval.Interval) (ical.EncodeResult, error)
	Import(ctx context.Context, ownerID, providerID, text string) (exchange.ImportResult, error)
}

type CalendarHandler struct {
	exchange CalendarExchange
	logger   *slog.Logger
}

func NewCalendarHandler(ex CalendarExchange, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{exchange: ex, logger: logger}
}

type importResponse struct {
	Created []bookingResponse     `json:"created"`
	Skipped []exchange.ImportSkip `json:"skipped"`
}

type importErrorResponse struct {
	errorResponse
	importResponse
}

func (h *CalendarHandler) ExportBookings(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodGet) {
		return
	}
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if ownerID == "" {
		badRequest(w, "owner_id is required")
		return
	}
	res, err := h.exchange.ExportBookings(r.Context(), ownerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeCalendar(w, res)
}

// ExportExternal accepts either start/end (RFC 3339) or a single date.
func (h *CalendarHandler) ExportExternal(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodGet) {
		return
	}
	window, err := windowFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := h.exchange.ExportExternal(r.Context(), window)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeCalendar(w, res)
}

func (h *CalendarHandler) Import(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodPost) {
		return
	}
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner_id"))
	if ownerID == "" {
		badRequest(w, "owner_id is required")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		badRequest(w, "calendar body too large or unreadable")
		return
	}
	res, err := h.exchange.Import(r.Context(), ownerID, strings.TrimSpace(r.URL.Query().Get("provider_id")), string(body))
	if err != nil {
		// Bookings created before the fault exist, so report them with the error.
		status, errBody := classifyError(h.logger, err)
		httpx.WriteJSON(w, status, importErrorResponse{errorResponse: errBody, importResponse: toImportResponse(res)})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toImportResponse(res))
}

func toImportResponse(res exchange.ImportResult) importResponse {
	resp := importResponse{
		Created: make([]bookingResponse, 0, len(res.Created)),
		Skipped: res.Skipped,
	}
	if resp.Skipped == nil {
		resp.Skipped = []exchange.ImportSkip{}
	}
	for _, b := range res.Created {
		resp.Created = append(resp.Created, toResponse(b))
	}
	return resp
}

func writeCalendar(w http.ResponseWriter, res ical.EncodeResult) {
	w.Header().Set("Content-Type", ical.ContentType)
	w.Header().Set("X-Skipped-Events", strconv.Itoa(len(res.Skipped)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.Text)
}

func windowFromQuery(r *http.Request) (interval.Interval, error) {
	q := r.URL.Query()
	if d := strings.TrimSpace(q.Get("date")); d != "" {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			return interval.Interval{}, errors.New("invalid date")
		}
		return interval.Interval{Start: day, End: day.AddDate(0, 0, 1)}, nil
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(q.Get("start")))
	if err != nil {
		return interval.Interval{}, errors.New("invalid start")
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(q.Get("end")))
	if err != nil {
		return interval.Interval{}, errors.New("invalid end")
	}
	iv, err := interval.New(start, end)
	if err != nil {
		return interval.Interval{}, errors.New("end must be after start")
	}
	return iv, nil
}
