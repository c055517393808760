package coach

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/nholloway/solace-agent/internal/google"
)

var calendarKeywords = []string{"calendar", "schedule", "appointment", "meeting", "event"}

var taskKeywords = []string{"task", "todo", "to-do", "to do", "reminder"}

var createVerbs = []string{"add", "create", "make", "set"}

// taskTitlePrefixes extract a task title without an LLM round trip.
// Checked in order; the first prefix found wins.
var taskTitlePrefixes = []string{"add task ", "create task ", "remind me to ", "i need to "}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// wantsCalendar reports whether the user is asking about their calendar.
func wantsCalendar(text string) bool {
	return containsAny(strings.ToLower(text), calendarKeywords)
}

// wantsTasks reports whether the user is asking about tasks or reminders.
func wantsTasks(text string) bool {
	return containsAny(strings.ToLower(text), taskKeywords)
}

// wantsTaskCreation reports whether a task mention includes a creation
// verb, meaning the user wants a new task rather than a listing.
func wantsTaskCreation(text string) bool {
	lower := strings.ToLower(text)
	return containsAny(lower, taskKeywords) && containsAny(lower, createVerbs)
}

// extractTaskTitle pulls a task title out of the user's message. Returns
// "" when no known phrasing is present.
func extractTaskTitle(text string) string {
	lower := strings.ToLower(text)
	for _, prefix := range taskTitlePrefixes {
		if idx := strings.Index(lower, prefix); idx >= 0 {
			title := strings.TrimSpace(text[idx+len(prefix):])
			title = strings.TrimRight(title, ".!?")
			if title == "" {
				return ""
			}
			r, size := utf8.DecodeRuneInString(title)
			return string(unicode.ToUpper(r)) + title[size:]
		}
	}
	return ""
}

var duePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:due|by)\s+(.*?)(?:\.|\?|$)`),
	regexp.MustCompile(`(?i)(?:complete|finish)\s+by\s+(.*?)(?:\.|\?|$)`),
}

// timeReferences are scanned when no "due ..."/"by ..." phrase names a
// date. Multi-word phrases come first so "next friday" is not read as
// a bare "friday".
var timeReferences = []string{
	"day after tomorrow", "tomorrow", "tonight", "this evening",
	"next week", "next weekend", "this weekend",
	"next monday", "next tuesday", "next wednesday", "next thursday",
	"next friday", "next saturday", "next sunday",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// extractDueDate finds a due date in the user's message: an explicit
// "due friday" / "by tomorrow" phrase first, otherwise any recognized
// time reference anywhere in the text. Returns nil when neither parses.
func extractDueDate(text string, now time.Time) *time.Time {
	for _, re := range duePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if t := google.ParseNaturalDate(m[1], now); !t.IsZero() {
				return &t
			}
		}
	}

	lower := strings.ToLower(text)
	for _, ref := range timeReferences {
		if strings.Contains(lower, ref) {
			if t := google.ParseNaturalDate(ref, now); !t.IsZero() {
				return &t
			}
		}
	}
	return nil
}
