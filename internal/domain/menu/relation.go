package menu

import (
	"time"
)

// DateLayout is the wire and comparison format of menu dates.
const DateLayout = "2006-01-02"

// InvalidDate is shown in place of a date that cannot be parsed.
const InvalidDate = "Invalid date"

// Relation is a menu date's position relative to the reference dates.
type Relation string

const (
	RelationToday    Relation = "today"
	RelationTomorrow Relation = "tomorrow"
	RelationOther    Relation = "other"
)

// ReferenceDates are the local calendar dates a session classifies against.
// They are computed once and passed explicitly, never read from a global.
type ReferenceDates struct {
	Today    string
	Tomorrow string
}

// NewReferenceDates derives today/tomorrow from the calendar date of now
// in now's own location. No UTC conversion takes place.
// POST: Today and Tomorrow are YYYY-MM-DD
func NewReferenceDates(now time.Time) ReferenceDates {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return ReferenceDates{
		Today:    today.Format(DateLayout),
		Tomorrow: today.AddDate(0, 0, 1).Format(DateLayout),
	}
}

// Classify compares date against the reference dates by exact string equality.
// Malformed dates are always RelationOther.
func Classify(date string, refs ReferenceDates) Relation {
	if !isDateKey(date) {
		return RelationOther
	}
	switch date {
	case refs.Today:
		return RelationToday
	case refs.Tomorrow:
		return RelationTomorrow
	}
	return RelationOther
}

// DateKey extracts the YYYY-MM-DD prefix of a wire date such as
// "2024-06-01" or "2024-06-01T00:00:00.000Z". The prefix is taken verbatim.
// Returns "" when no valid key is present.
func DateKey(s string) string {
	if len(s) < len(DateLayout) {
		return ""
	}
	key := s[:len(DateLayout)]
	if len(s) > len(DateLayout) && s[len(DateLayout)] != 'T' && s[len(DateLayout)] != ' ' {
		return ""
	}
	if !isDateKey(key) {
		return ""
	}
	return key
}

// FormatDisplayDate renders a date key as "Monday, June 1, 2024".
func FormatDisplayDate(date string) string {
	t, err := time.Parse(DateLayout, DateKey(date))
	if err != nil {
		return InvalidDate
	}
	return t.Format("Monday, January 2, 2006")
}

func isDateKey(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
