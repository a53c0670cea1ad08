package model

import "github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"

// Slot is a candidate booking window; it is never persisted.
type Slot struct {
	Interval  interval.Interval
	Available bool
	Label     string
}
