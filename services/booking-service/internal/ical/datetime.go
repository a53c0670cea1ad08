package ical

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

const (
	layoutDate     = "20060102"
	layoutUTC      = "20060102T150405Z"
	layoutFloating = "20060102T150405"
)

// Layouts tried when a value is not in one of the iCalendar forms.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"20060102T1504Z",
}

// parseDateTime understands date-only, UTC and floating iCalendar values.
// Floating and date-only values are read as UTC. Anything unparseable yields
// None instead of an error.
func parseDateTime(raw string) mo.Option[time.Time] {
	v := strings.TrimSpace(raw)
	var (
		t   time.Time
		err error
	)
	switch {
	case len(v) == len(layoutDate):
		t, err = time.ParseInLocation(layoutDate, v, time.UTC)
	case len(v) == len(layoutUTC) && (v[len(v)-1] == 'Z' || v[len(v)-1] == 'z'):
		t, err = time.Parse(layoutUTC, strings.ToUpper(v))
	case len(v) == len(layoutFloating):
		t, err = time.ParseInLocation(layoutFloating, v, time.UTC)
	default:
		err = fmt.Errorf("not an iCalendar date-time")
	}
	if err == nil {
		return mo.Some(t.UTC())
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return mo.Some(t.UTC())
		}
	}
	return mo.None[time.Time]()
}

func formatDateTime(t time.Time) string {
	return t.UTC().Format(layoutUTC)
}

var durationPattern = regexp.MustCompile(`^([+-])?P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseTrigger converts a relative VALARM trigger ("-PT15M", "-P1D") into
// minutes before the event start. Absolute or post-start triggers are not
// reminders and report false.
func parseTrigger(raw string) (int, bool) {
	m := durationPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(raw)))
	if m == nil || raw == "" {
		return 0, false
	}
	total := 0
	units := []int{7 * 24 * 60, 24 * 60, 60, 1}
	for i, mult := range units {
		if m[i+2] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+2])
		if err != nil {
			return 0, false
		}
		total += n * mult
	}
	if m[6] != "" {
		secs, err := strconv.Atoi(m[6])
		if err != nil {
			return 0, false
		}
		total += secs / 60
	}
	if m[1] != "-" && total != 0 {
		return 0, false
	}
	return total, true
}

func formatTrigger(minutesBefore int) string {
	return "-PT" + strconv.Itoa(minutesBefore) + "M"
}

// ReminderMinutes reads a VALARM TRIGGER value as minutes before start.
func ReminderMinutes(trigger string) (int, bool) {
	return parseTrigger(trigger)
}
