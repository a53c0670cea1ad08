package model

import (
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
)

type EventStatus string

const (
	EventTentative EventStatus = "tentative"
	EventConfirmed EventStatus = "confirmed"
	EventCancelled EventStatus = "cancelled"
)

// ParseEventStatus is case-insensitive; anything unknown is confirmed.
func ParseEventStatus(raw string) EventStatus {
	switch EventStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case EventTentative:
		return EventTentative
	case EventCancelled:
		return EventCancelled
	default:
		return EventConfirmed
	}
}

func (s EventStatus) Token() string {
	return strings.ToUpper(string(ParseEventStatus(string(s))))
}

type Classification string

const (
	ClassPublic       Classification = "public"
	ClassPrivate      Classification = "private"
	ClassConfidential Classification = "confidential"
)

// ParseClassification is case-insensitive; anything unknown is public.
func ParseClassification(raw string) Classification {
	switch Classification(strings.ToLower(strings.TrimSpace(raw))) {
	case ClassPrivate:
		return ClassPrivate
	case ClassConfidential:
		return ClassConfidential
	default:
		return ClassPublic
	}
}

func (c Classification) Token() string {
	return strings.ToUpper(string(ParseClassification(string(c))))
}

type Attendee struct {
	Email               string
	Name                string
	ParticipationStatus string
}

type Organizer struct {
	Email string
	Name  string
}

type Reminder struct {
	MinutesBefore int
}

// EventRecord is the calendar entry shared by the iCal codec and the
// external calendar gateway. Start and End are optional because decoded
// input may carry unparseable timestamps.
type EventRecord struct {
	UID            string
	Title          string
	Description    string
	Start          mo.Option[time.Time]
	End            mo.Option[time.Time]
	Location       string
	Attendees      []Attendee
	Organizer      *Organizer
	Status         EventStatus
	Classification Classification
	RecurrenceRule string
	Reminders      []Reminder
}

func NewEventRecord(uid, title string, iv interval.Interval) EventRecord {
	return EventRecord{
		UID:            uid,
		Title:          title,
		Start:          mo.Some(iv.Start),
		End:            mo.Some(iv.End),
		Status:         EventConfirmed,
		Classification: ClassPublic,
	}
}

// Interval projects Start/End; records with a missing or inverted range
// cannot take part in scheduling.
func (r EventRecord) Interval() (interval.Interval, error) {
	start, okStart := r.Start.Get()
	end, okEnd := r.End.Get()
	if !okStart || !okEnd {
		return interval.Interval{}, interval.ErrInvalidInterval
	}
	return interval.New(start, end)
}

func (r EventRecord) AttendeeEmails() []string {
	out := make([]string, 0, len(r.Attendees))
	for _, a := range r.Attendees {
		if a.Email != "" {
			out = append(out, a.Email)
		}
	}
	return out
}
