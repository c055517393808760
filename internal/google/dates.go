package google

import (
	"strings"
	"time"
)

var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

// ParseNaturalDate resolves phrases like "tomorrow", "next friday", or
// "this weekend" relative to now. Returns the zero time when the
// phrase is not recognized.
func ParseNaturalDate(text string, now time.Time) time.Time {
	text = strings.ToLower(strings.TrimSpace(text))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch text {
	case "today", "now", "tonight":
		return today
	case "tomorrow":
		return today.AddDate(0, 0, 1)
	case "day after tomorrow", "the day after tomorrow":
		return today.AddDate(0, 0, 2)
	case "next week":
		return today.AddDate(0, 0, daysUntil(now, time.Monday, true))
	case "this weekend":
		return today.AddDate(0, 0, daysUntil(now, time.Saturday, false))
	case "next weekend":
		return today.AddDate(0, 0, daysUntil(now, time.Saturday, false)+7)
	case "next month":
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first.AddDate(0, 1, 0)
	}

	if rest, ok := strings.CutPrefix(text, "next "); ok {
		if wd, known := weekdayNames[rest]; known {
			return today.AddDate(0, 0, daysUntil(now, wd, true))
		}
	}
	if wd, ok := weekdayNames[text]; ok {
		return today.AddDate(0, 0, daysUntil(now, wd, false))
	}

	// Fall back to common date layouts.
	for _, layout := range []string{"2006-01-02", "January 2", "Jan 2"} {
		if t, err := time.Parse(layout, text); err == nil {
			if t.Year() == 0 {
				t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
				if t.Before(today) {
					t = t.AddDate(1, 0, 0)
				}
			}
			return t
		}
	}

	return time.Time{}
}

// daysUntil counts days from now to the next occurrence of wd. With
// skipToday set, an occurrence today counts as a full week out.
func daysUntil(now time.Time, wd time.Weekday, skipToday bool) int {
	days := (int(wd) - int(now.Weekday()) + 7) % 7
	if days == 0 && skipToday {
		days = 7
	}
	return days
}
