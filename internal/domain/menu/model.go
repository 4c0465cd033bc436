package menu

import (
	"encoding/json"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MealType names one of the four meal sections of a daily menu.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Snacks    MealType = "snacks"
	Dinner    MealType = "dinner"
)

// MealTypes lists the meal sections in display order.
var MealTypes = []MealType{Breakfast, Lunch, Snacks, Dinner}

var titleCaser = cases.Title(language.English)

// Valid reports whether m is one of the four known meal types.
func (m MealType) Valid() bool {
	switch m {
	case Breakfast, Lunch, Snacks, Dinner:
		return true
	}
	return false
}

// Label returns the capitalised display name, e.g. "Breakfast".
func (m MealType) Label() string {
	return titleCaser.String(string(m))
}

// WireRecord is a menu as the backend sends it. Meal fields are kept raw
// because the backend returns either an array or a comma-delimited string.
type WireRecord struct {
	ID        string          `json:"_id"`
	Date      string          `json:"date"`
	Breakfast json.RawMessage `json:"breakfast"`
	Lunch     json.RawMessage `json:"lunch"`
	Snacks    json.RawMessage `json:"snacks"`
	Dinner    json.RawMessage `json:"dinner"`
}

// Record is the display-ready form of one calendar day's menu.
// IsToday and IsTomorrow are derived and never sent back to the backend.
type Record struct {
	ID         string   `json:"id"`
	Date       string   `json:"date"`
	Breakfast  []string `json:"breakfast"`
	Lunch      []string `json:"lunch"`
	Snacks     []string `json:"snacks"`
	Dinner     []string `json:"dinner"`
	IsToday    bool     `json:"isToday"`
	IsTomorrow bool     `json:"isTomorrow"`
}

// Items returns the item list for the given meal, or nil for an unknown meal.
func (r Record) Items(m MealType) []string {
	switch m {
	case Breakfast:
		return r.Breakfast
	case Lunch:
		return r.Lunch
	case Snacks:
		return r.Snacks
	case Dinner:
		return r.Dinner
	}
	return nil
}

// DateLabel returns "Today", "Tomorrow" or "" for the record's relation.
func (r Record) DateLabel() string {
	switch {
	case r.IsToday:
		return "Today"
	case r.IsTomorrow:
		return "Tomorrow"
	}
	return ""
}

// DisplayDate formats the record date for headings.
func (r Record) DisplayDate() string {
	return FormatDisplayDate(r.Date)
}

// Payload is the wire body for create (with date) and update (without).
type Payload struct {
	Date      string `json:"date,omitempty"`
	Breakfast string `json:"breakfast"`
	Lunch     string `json:"lunch"`
	Snacks    string `json:"snacks"`
	Dinner    string `json:"dinner"`
}

// FromWire normalises and classifies a single wire record.
// PRE: none; malformed meal fields degrade to empty lists
// POST: every meal list is non-nil
func FromWire(w WireRecord, refs ReferenceDates) Record {
	key := DateKey(w.Date)
	date := key
	if date == "" {
		date = w.Date
	}
	rel := Classify(date, refs)
	return Record{
		ID:         w.ID,
		Date:       date,
		Breakfast:  NormalizeRaw(w.Breakfast),
		Lunch:      NormalizeRaw(w.Lunch),
		Snacks:     NormalizeRaw(w.Snacks),
		Dinner:     NormalizeRaw(w.Dinner),
		IsToday:    rel == RelationToday,
		IsTomorrow: rel == RelationTomorrow,
	}
}

// Present converts a fetched list into display records, preserving order.
func Present(records []WireRecord, refs ReferenceDates) []Record {
	out := make([]Record, 0, len(records))
	for _, w := range records {
		out = append(out, FromWire(w, refs))
	}
	return out
}

// Reclassify recomputes IsToday/IsTomorrow against new reference dates.
// The input slice is not modified.
func Reclassify(records []Record, refs ReferenceDates) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		rel := Classify(r.Date, refs)
		r.IsToday = rel == RelationToday
		r.IsTomorrow = rel == RelationTomorrow
		out[i] = r
	}
	return out
}
