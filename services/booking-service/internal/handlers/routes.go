package handlers

import "net/http"

// Register mounts the public API on mux.
func Register(mux *http.ServeMux, b *BookingHandler, s *SlotHandler, c *CalendarHandler) {
	mux.HandleFunc("/api/v1/slots", s.Slots)
	mux.HandleFunc("/api/v1/bookings", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			b.Create(w, r)
			return
		}
		b.List(w, r)
	})
	mux.HandleFunc("/api/v1/bookings/get", b.Get)
	mux.HandleFunc("/api/v1/bookings/update", b.Update)
	mux.HandleFunc("/api/v1/bookings/cancel", b.Cancel)
	mux.HandleFunc("/api/v1/bookings/complete", b.Complete)
	mux.HandleFunc("/api/v1/bookings/delete", b.Delete)
	mux.HandleFunc("/api/v1/calendar/export.ics", c.ExportBookings)
	mux.HandleFunc("/api/v1/calendar/external.ics", c.ExportExternal)
	mux.HandleFunc("/api/v1/calendar/import", c.Import)
}
