package model

import (
	"time"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// Terminal statuses never change again; their interval is frozen too.
func (s BookingStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type SyncStatus string

const (
	SyncNone   SyncStatus = "none"
	SyncSynced SyncStatus = "synced"
	SyncFailed SyncStatus = "failed"
)

type Booking struct {
	ID                 string
	OwnerID            string
	ProviderID         string
	Title              string
	Description        string
	Location           string
	AttendeeEmail      string
	Interval           interval.Interval
	Status             BookingStatus
	ExternalEventID    string
	SyncStatus         SyncStatus
	SyncError          string
	CancellationReason string
	CancelledAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Blocks reports whether the booking takes part in overlap checks.
func (b Booking) Blocks() bool {
	return b.Status != StatusCancelled
}
