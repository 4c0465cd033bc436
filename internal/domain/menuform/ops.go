package menuform

import (
	"strings"

	"cumeal/internal/domain/menu"
)

// SetField updates a scalar field. Only "date" is scalar; other names leave
// the draft unchanged.
func (d Draft) SetField(name, value string) Draft {
	out := d.clone()
	if name == FieldDate {
		out.Date = value
	}
	return out
}

// AddMealItem appends an empty item to the given meal.
// POST: len(result.Items(m)) == len(d.Items(m)) + 1 for a known meal
func (d Draft) AddMealItem(m menu.MealType) Draft {
	out := d.clone()
	if !m.Valid() {
		return out
	}
	out.setItems(m, append(out.Items(m), ""))
	return out
}

// SetMealItem replaces the item at index. Out-of-range indexes leave the draft unchanged.
func (d Draft) SetMealItem(m menu.MealType, index int, value string) Draft {
	out := d.clone()
	items := out.Items(m)
	if index < 0 || index >= len(items) {
		return out
	}
	items[index] = value
	return out
}

// RemoveMealItem removes the item at index, preserving the order of the rest.
// Out-of-range indexes leave the draft unchanged.
func (d Draft) RemoveMealItem(m menu.MealType, index int) Draft {
	out := d.clone()
	items := out.Items(m)
	if index < 0 || index >= len(items) {
		return out
	}
	kept := make([]string, 0, len(items)-1)
	kept = append(kept, items[:index]...)
	kept = append(kept, items[index+1:]...)
	out.setItems(m, kept)
	return out
}

// Reset returns the initial draft for referenceDate.
func (d Draft) Reset(referenceDate string) Draft {
	return New(referenceDate)
}

// HydrateFrom builds a draft from an existing record. A nil record yields
// the initial draft for referenceDate; a record without a date keeps referenceDate.
// POST: meal lists are copies; editing the draft never touches the record
func HydrateFrom(record *menu.Record, referenceDate string) Draft {
	if record == nil {
		return New(referenceDate)
	}
	date := record.Date
	if date == "" {
		date = referenceDate
	}
	return Draft{
		Date:      date,
		Breakfast: copyItems(nonNil(record.Breakfast)),
		Lunch:     copyItems(nonNil(record.Lunch)),
		Snacks:    copyItems(nonNil(record.Snacks)),
		Dinner:    copyItems(nonNil(record.Dinner)),
	}
}

// FromItems builds a draft from whole item lists keyed by meal in one step.
// Missing meals are empty and unknown meals are ignored.
// POST: meal lists are copies of the given slices
func FromItems(date string, items map[menu.MealType][]string) Draft {
	return Draft{
		Date:      date,
		Breakfast: copyItems(items[menu.Breakfast]),
		Lunch:     copyItems(items[menu.Lunch]),
		Snacks:    copyItems(items[menu.Snacks]),
		Dinner:    copyItems(items[menu.Dinner]),
	}
}

// ToSubmissionPayload cleans the draft into the backend wire body.
// Blank items are dropped and the rest joined by ", ". The date is included
// only when includeDate is true (create); updates never send it.
func (d Draft) ToSubmissionPayload(includeDate bool) menu.Payload {
	p := menu.Payload{
		Breakfast: menu.Join(d.Breakfast),
		Lunch:     menu.Join(d.Lunch),
		Snacks:    menu.Join(d.Snacks),
		Dinner:    menu.Join(d.Dinner),
	}
	if includeDate {
		p.Date = d.Date
	}
	return p
}

// HasDate reports whether the draft carries a non-blank date.
func (d Draft) HasDate() bool {
	return strings.TrimSpace(d.Date) != ""
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
