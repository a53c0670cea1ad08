package ical

import (
	"strings"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

// uidNamespace seeds UIDs derived for records that arrive without one, so
// repeated exports of the same record carry the same UID.
var uidNamespace = uuid.MustParse("6f1d7a52-3c1e-4d7b-9a59-1f0f5f7f2c11")

type SkippedRecord struct {
	Index  int
	UID    string
	Reason string
}

type EncodeResult struct {
	Text    string
	Skipped []SkippedRecord
}

// Encode renders records as one VCALENDAR. Malformed records are skipped,
// logged and reported; the remaining records are still encoded.
func (c *Codec) Encode(records []model.EventRecord) EncodeResult {
	var w lineWriter
	w.prop("BEGIN", componentCalendar)
	w.prop("VERSION", "2.0")
	w.prop("PRODID", c.prodID)
	w.prop("CALSCALE", "GREGORIAN")
	w.prop("METHOD", "PUBLISH")

	stamp := formatDateTime(c.clock.Now())
	var skipped []SkippedRecord
	for i, rec := range records {
		iv, reason := validateRecord(rec)
		if reason != "" {
			c.logger.Warn("ical record skipped", "index", i, "uid", rec.UID, "reason", reason)
			skipped = append(skipped, SkippedRecord{Index: i, UID: rec.UID, Reason: reason})
			continue
		}
		writeEvent(&w, rec, iv, stamp)
	}

	w.prop("END", componentCalendar)
	return EncodeResult{Text: w.String(), Skipped: skipped}
}

func validateRecord(rec model.EventRecord) (interval.Interval, string) {
	if strings.TrimSpace(rec.Title) == "" {
		return interval.Interval{}, "missing title"
	}
	if rec.Start.IsAbsent() {
		return interval.Interval{}, "missing start"
	}
	if rec.End.IsAbsent() {
		return interval.Interval{}, "missing end"
	}
	iv, err := rec.Interval()
	if err != nil {
		return interval.Interval{}, "end must be after start"
	}
	if rule := recurrenceRule(rec.RecurrenceRule); rule != "" {
		if _, err := rrule.StrToROption(rule); err != nil {
			return interval.Interval{}, "invalid recurrence rule: " + err.Error()
		}
	}
	return iv, ""
}

func writeEvent(w *lineWriter, rec model.EventRecord, iv interval.Interval, stamp string) {
	uid := rec.UID
	if uid == "" {
		uid = uuid.NewSHA1(uidNamespace, []byte(rec.Title+"|"+formatDateTime(iv.Start))).String()
	}

	w.prop("BEGIN", componentEvent)
	w.prop("UID", escapeText(uid))
	w.prop("DTSTAMP", stamp)
	w.prop("DTSTART", formatDateTime(iv.Start))
	w.prop("DTEND", formatDateTime(iv.End))
	w.prop("SUMMARY", escapeText(rec.Title))
	if rec.Description != "" {
		w.prop("DESCRIPTION", escapeText(rec.Description))
	}
	if rec.Location != "" {
		w.prop("LOCATION", escapeText(rec.Location))
	}
	if org := rec.Organizer; org != nil && org.Email != "" {
		w.prop("ORGANIZER"+nameParam(org.Name), "mailto:"+org.Email)
	}
	for _, a := range rec.Attendees {
		if a.Email == "" {
			continue
		}
		token := "ATTENDEE" + nameParam(a.Name)
		if a.ParticipationStatus != "" {
			token += ";PARTSTAT=" + strings.ToUpper(quoteParam(a.ParticipationStatus))
		}
		w.prop(token, "mailto:"+a.Email)
	}
	w.prop("STATUS", rec.Status.Token())
	w.prop("CLASS", rec.Classification.Token())
	if rule := recurrenceRule(rec.RecurrenceRule); rule != "" {
		w.prop("RRULE", rule)
	}
	for _, r := range rec.Reminders {
		if r.MinutesBefore < 0 {
			continue
		}
		w.prop("BEGIN", componentAlarm)
		w.prop("ACTION", "DISPLAY")
		w.prop("DESCRIPTION", escapeText(rec.Title))
		w.prop("TRIGGER", formatTrigger(r.MinutesBefore))
		w.prop("END", componentAlarm)
	}
	w.prop("END", componentEvent)
}

func nameParam(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return ";CN=" + quoteParam(name)
}

func recurrenceRule(raw string) string {
	rule := strings.TrimSpace(raw)
	if len(rule) >= len("RRULE:") && strings.EqualFold(rule[:len("RRULE:")], "RRULE:") {
		rule = rule[len("RRULE:"):]
	}
	return rule
}

type lineWriter struct {
	b strings.Builder
}

func (w *lineWriter) prop(token, value string) {
	for _, line := range fold(token + ":" + value) {
		w.b.WriteString(line)
		w.b.WriteString("\r\n")
	}
}

func (w *lineWriter) String() string {
	return w.b.String()
}
