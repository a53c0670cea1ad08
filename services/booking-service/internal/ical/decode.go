package ical

import (
	"regexp"
	"strings"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

var (
	mailtoPattern   = regexp.MustCompile(`(?i)mailto:([^\s;:,"<>]+@[^\s;:,"<>]+)`)
	cnPattern       = regexp.MustCompile(`(?i)(?:^|;)CN=(?:"([^"]*)"|([^;:]*))`)
	partstatPattern = regexp.MustCompile(`(?i)(?:^|;)PARTSTAT=([A-Za-z-]+)`)
)

type decodeState int

const (
	outsideEvent decodeState = iota
	insideEvent
)

// DecodeRaw runs the line state machine and returns one property multimap
// per closed VEVENT block. Empty blocks, unterminated blocks and lines
// outside any VEVENT are dropped. A BEGIN:VEVENT seen while a block is
// still open discards the open block.
func DecodeRaw(text string) []*Properties {
	var (
		out     []*Properties
		current *Properties
		state   = outsideEvent
		// depth of components nested inside the open VEVENT
		nested []string
	)
	for _, line := range unfold(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		prop, ok := splitContentLine(line)
		if !ok {
			continue
		}
		value := strings.ToUpper(strings.TrimSpace(prop.Value))

		switch state {
		case outsideEvent:
			if prop.Name == "BEGIN" && value == componentEvent {
				current = newProperties()
				nested = nested[:0]
				state = insideEvent
			}
		case insideEvent:
			switch {
			case prop.Name == "BEGIN" && value == componentEvent:
				current = newProperties()
				nested = nested[:0]
			case prop.Name == "BEGIN":
				nested = append(nested, value)
			case prop.Name == "END" && len(nested) > 0:
				if nested[len(nested)-1] == value {
					nested = nested[:len(nested)-1]
				}
			case prop.Name == "END" && value == componentEvent:
				if !current.Empty() {
					out = append(out, current)
				}
				current = nil
				state = outsideEvent
			case prop.Name == "END":
			case len(nested) > 0:
				if nested[len(nested)-1] == componentAlarm && prop.Name == "TRIGGER" {
					current.addAlarmTrigger(prop.Value)
				}
			default:
				current.add(prop)
			}
		}
	}
	return out
}

// Decode parses iCalendar text into records. Properties the record does not
// model are ignored; unparseable timestamps leave Start or End absent.
func (c *Codec) Decode(text string) []model.EventRecord {
	raws := DecodeRaw(text)
	records := make([]model.EventRecord, 0, len(raws))
	for _, props := range raws {
		records = append(records, assemble(props))
	}
	c.logger.Debug("ical decoded", "records", len(records))
	return records
}

func assemble(p *Properties) model.EventRecord {
	rec := model.EventRecord{
		Title:          UntitledEvent,
		Status:         model.EventConfirmed,
		Classification: model.ClassPublic,
	}
	if v, ok := p.First("UID"); ok {
		rec.UID = unescapeText(strings.TrimSpace(v.Value))
	}
	if v, ok := p.First("SUMMARY"); ok {
		if title := unescapeText(v.Value); strings.TrimSpace(title) != "" {
			rec.Title = title
		}
	}
	if v, ok := p.First("DESCRIPTION"); ok {
		rec.Description = unescapeText(v.Value)
	}
	if v, ok := p.First("LOCATION"); ok {
		rec.Location = unescapeText(v.Value)
	}
	if v, ok := p.First("DTSTART"); ok {
		rec.Start = parseDateTime(v.Value)
	}
	if v, ok := p.First("DTEND"); ok {
		rec.End = parseDateTime(v.Value)
	}
	if v, ok := p.First("STATUS"); ok {
		rec.Status = model.ParseEventStatus(v.Value)
	}
	if v, ok := p.First("CLASS"); ok {
		rec.Classification = model.ParseClassification(v.Value)
	}
	if v, ok := p.First("RRULE"); ok {
		rec.RecurrenceRule = v.Value
	}
	if v, ok := p.First("ORGANIZER"); ok {
		email, name, _ := extractParty(v)
		if email != "" || name != "" {
			rec.Organizer = &model.Organizer{Email: email, Name: name}
		}
	}
	for _, key := range p.Keys() {
		if !strings.HasPrefix(key, "ATTENDEE") || strings.HasSuffix(key, paramsSuffix) {
			continue
		}
		prop, ok := p.resolve(key)
		if !ok {
			continue
		}
		email, name, partstat := extractParty(prop)
		if email == "" && name == "" && partstat == "" {
			continue
		}
		rec.Attendees = append(rec.Attendees, model.Attendee{
			Email:               email,
			Name:                name,
			ParticipationStatus: partstat,
		})
	}
	for _, trigger := range p.AlarmTriggers() {
		if minutes, ok := parseTrigger(trigger); ok {
			rec.Reminders = append(rec.Reminders, model.Reminder{MinutesBefore: minutes})
		}
	}
	return rec
}

func extractParty(prop RawProperty) (email, name, partstat string) {
	// The value names the party; params such as SENT-BY may carry other
	// addresses and are only a fallback.
	if m := mailtoPattern.FindStringSubmatch(prop.Value); m != nil {
		email = m[1]
	} else if m := mailtoPattern.FindStringSubmatch(prop.Params); m != nil {
		email = m[1]
	}
	if m := cnPattern.FindStringSubmatch(";" + prop.Params); m != nil {
		name = strings.TrimSpace(m[1] + m[2])
	}
	if m := partstatPattern.FindStringSubmatch(";" + prop.Params); m != nil {
		partstat = strings.ToLower(m[1])
	}
	return email, name, partstat
}
