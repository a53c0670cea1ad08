package extcal

import (
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"

	icalcodec "github.com/md-rashed-zaman/slotsync/services/booking-service/internal/ical"
	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

func toCalendar(rec model.EventRecord, prodID string, now time.Time) *ical.Calendar {
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, rec.UID)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	if start, ok := rec.Start.Get(); ok {
		ev.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	}
	if end, ok := rec.End.Get(); ok {
		ev.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
	}
	ev.Props.SetText(ical.PropSummary, rec.Title)
	if rec.Description != "" {
		ev.Props.SetText(ical.PropDescription, rec.Description)
	}
	if rec.Location != "" {
		ev.Props.SetText(ical.PropLocation, rec.Location)
	}
	ev.Props.SetText(ical.PropStatus, rec.Status.Token())
	ev.Props.SetText(ical.PropClass, rec.Classification.Token())
	if rec.RecurrenceRule != "" {
		prop := ical.NewProp(ical.PropRecurrenceRule)
		prop.Value = rec.RecurrenceRule
		ev.Props.Set(prop)
	}
	if org := rec.Organizer; org != nil && org.Email != "" {
		prop := ical.NewProp(ical.PropOrganizer)
		prop.Value = "mailto:" + org.Email
		if org.Name != "" {
			prop.Params.Set(ical.ParamCommonName, org.Name)
		}
		ev.Props.Set(prop)
	}
	for _, a := range rec.Attendees {
		if a.Email == "" {
			continue
		}
		prop := ical.NewProp(ical.PropAttendee)
		prop.Value = "mailto:" + a.Email
		if a.Name != "" {
			prop.Params.Set(ical.ParamCommonName, a.Name)
		}
		if a.ParticipationStatus != "" {
			prop.Params.Set(ical.ParamParticipationStatus, strings.ToUpper(a.ParticipationStatus))
		}
		ev.Props.Add(prop)
	}
	for _, r := range rec.Reminders {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, rec.Title)
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = "-PT" + strconv.Itoa(r.MinutesBefore) + "M"
		alarm.Props.Set(trigger)
		ev.Children = append(ev.Children, alarm)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Children = append(cal.Children, ev.Component)
	return cal
}

func fromEvent(ev ical.Event) model.EventRecord {
	rec := model.EventRecord{
		Status:         model.EventConfirmed,
		Classification: model.ClassPublic,
	}
	rec.UID, _ = ev.Props.Text(ical.PropUID)
	rec.Title, _ = ev.Props.Text(ical.PropSummary)
	rec.Description, _ = ev.Props.Text(ical.PropDescription)
	rec.Location, _ = ev.Props.Text(ical.PropLocation)
	if start, err := ev.DateTimeStart(time.UTC); err == nil && !start.IsZero() {
		rec.Start = mo.Some(start.UTC())
	}
	if end, err := ev.DateTimeEnd(time.UTC); err == nil && !end.IsZero() {
		rec.End = mo.Some(end.UTC())
	}
	if p := ev.Props.Get(ical.PropStatus); p != nil {
		rec.Status = model.ParseEventStatus(p.Value)
	}
	if p := ev.Props.Get(ical.PropClass); p != nil {
		rec.Classification = model.ParseClassification(p.Value)
	}
	if p := ev.Props.Get(ical.PropRecurrenceRule); p != nil {
		rec.RecurrenceRule = p.Value
	}
	if p := ev.Props.Get(ical.PropOrganizer); p != nil {
		rec.Organizer = &model.Organizer{
			Email: mailAddress(p.Value),
			Name:  p.Params.Get(ical.ParamCommonName),
		}
	}
	for _, p := range ev.Props.Values(ical.PropAttendee) {
		a := model.Attendee{
			Email:               mailAddress(p.Value),
			Name:                p.Params.Get(ical.ParamCommonName),
			ParticipationStatus: strings.ToLower(p.Params.Get(ical.ParamParticipationStatus)),
		}
		if a.Email != "" || a.Name != "" {
			rec.Attendees = append(rec.Attendees, a)
		}
	}
	for _, child := range ev.Children {
		if child.Name != ical.CompAlarm {
			continue
		}
		if p := child.Props.Get(ical.PropTrigger); p != nil {
			if mins, ok := icalcodec.ReminderMinutes(p.Value); ok {
				rec.Reminders = append(rec.Reminders, model.Reminder{MinutesBefore: mins})
			}
		}
	}
	return rec
}

func mailAddress(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		return v[7:]
	}
	return ""
}
