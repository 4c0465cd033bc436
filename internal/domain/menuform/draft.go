package menuform

import (
	"cumeal/internal/domain/menu"
)

// FieldDate is the only scalar field of a draft.
const FieldDate = "date"

// Draft is the editable state behind the create/edit form.
// Every operation returns a new Draft; the receiver is never modified.
// INVARIANT: every meal slice is non-nil
type Draft struct {
	Date      string   `json:"date"`
	Breakfast []string `json:"breakfast"`
	Lunch     []string `json:"lunch"`
	Snacks    []string `json:"snacks"`
	Dinner    []string `json:"dinner"`
}

// New returns a fresh draft dated referenceDate with all four meals empty.
func New(referenceDate string) Draft {
	return Draft{
		Date:      referenceDate,
		Breakfast: []string{},
		Lunch:     []string{},
		Snacks:    []string{},
		Dinner:    []string{},
	}
}

// Items returns the item list of the given meal, or nil for an unknown meal.
func (d Draft) Items(m menu.MealType) []string {
	switch m {
	case menu.Breakfast:
		return d.Breakfast
	case menu.Lunch:
		return d.Lunch
	case menu.Snacks:
		return d.Snacks
	case menu.Dinner:
		return d.Dinner
	}
	return nil
}

// clone deep-copies every slice so callers can mutate the result freely.
func (d Draft) clone() Draft {
	return Draft{
		Date:      d.Date,
		Breakfast: copyItems(d.Breakfast),
		Lunch:     copyItems(d.Lunch),
		Snacks:    copyItems(d.Snacks),
		Dinner:    copyItems(d.Dinner),
	}
}

func (d *Draft) setItems(m menu.MealType, items []string) {
	switch m {
	case menu.Breakfast:
		d.Breakfast = items
	case menu.Lunch:
		d.Lunch = items
	case menu.Snacks:
		d.Snacks = items
	case menu.Dinner:
		d.Dinner = items
	}
}

func copyItems(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	return out
}
