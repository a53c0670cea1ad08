package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotsync/libs/httpx"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/scheduling"
)

type SlotGenerator interface {
	GenerateSlots(ctx context.Context, req availability.SlotRequest) ([]model.Slot, error)
}

type SlotHandler struct {
	slots      SlotGenerator
	scheduling scheduling.Provider
	logger     *slog.Logger
}

func NewSlotHandler(slots SlotGenerator, schedulingProvider scheduling.Provider, logger *slog.Logger) *SlotHandler {
	return &SlotHandler{slots: slots, scheduling: schedulingProvider, logger: logger}
}

type slotItem struct {
	StartTime      string `json:"start"`
	EndTime        string `json:"end"`
	FormattedLabel string `json:"formatted_label"`
	Available      bool   `json:"available"`
}

// Slots lists the free windows of one day. Working hours and slot length
// come from the scheduling provider unless the query overrides them.
func (h *SlotHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if !httpx.AllowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	dateStr := strings.TrimSpace(q.Get("date"))
	if dateStr == "" {
		badRequest(w, "date is required")
		return
	}
	providerID := strings.TrimSpace(q.Get("provider_id"))

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		badRequest(w, "invalid date")
		return
	}
	cfg, err := h.scheduling.GetAvailabilityConfig(r.Context(), providerID, date)
	if err != nil {
		h.logger.Error("availability config fetch failed", "err", err)
		httpx.WriteJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "availability service unavailable", Code: "availability_unavailable"})
		return
	}
	if !cfg.IsWorking {
		httpx.WriteJSON(w, http.StatusOK, []slotItem{})
		return
	}
	loc := cfg.Location
	if name := strings.TrimSpace(q.Get("timezone")); name != "" {
		if loc, err = time.LoadLocation(name); err != nil {
			badRequest(w, "invalid timezone")
			return
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	day, _ := time.ParseInLocation("2006-01-02", dateStr, loc)

	req := availability.SlotRequest{
		Day:         day,
		SlotMinutes: cfg.SlotMinutes,
		WorkStart:   cfg.WorkStart,
		WorkEnd:     cfg.WorkEnd,
		Scope:       availability.Scope{ProviderID: providerID},
	}
	if v := strings.TrimSpace(q.Get("slot_minutes")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, "invalid slot_minutes")
			return
		}
		req.SlotMinutes = n
	}
	if v := strings.TrimSpace(q.Get("workday_start")); v != "" {
		req.WorkStart = v
	}
	if v := strings.TrimSpace(q.Get("workday_end")); v != "" {
		req.WorkEnd = v
	}

	slots, err := h.slots.GenerateSlots(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			StartTime:      s.Interval.Start.UTC().Format(time.RFC3339),
			EndTime:        s.Interval.End.UTC().Format(time.RFC3339),
			FormattedLabel: s.Label,
			Available:      s.Available,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}
