// Package export renders menus into downloadable formats.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"cumeal/internal/domain/menu"
)

const (
	productID   = "-//Cumeal//Admin Menu Feed//EN"
	calendarTag = "Cumeal menus"
	uidDomain   = "cumeal"
)

// ErrNothingToExport is returned when no menu has a usable date.
var ErrNothingToExport = errors.New("no menus to export")

// CalendarFeed renders menus as an iCalendar document with one all-day
// event per dated menu. Menus whose date does not parse are skipped.
// POST: events are ordered by date
func CalendarFeed(menus []menu.Record, now time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText("X-WR-CALNAME", calendarTag)

	stamp := ical.NewProp(ical.PropDateTimeStamp)
	stamp.SetDateTime(now.UTC())

	for _, m := range datedMenus(menus) {
		day, _ := time.Parse(menu.DateLayout, m.Date)

		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, fmt.Sprintf("menu-%s@%s", uidOf(m), uidDomain))
		event.Props.Set(stamp)
		event.Props.SetText(ical.PropSummary, "Menu: "+day.Format("Monday"))
		event.Props.SetText(ical.PropDescription, Describe(m))

		start := ical.NewProp(ical.PropDateTimeStart)
		start.SetDate(day)
		event.Props.Set(start)
		end := ical.NewProp(ical.PropDateTimeEnd)
		end.SetDate(day.AddDate(0, 0, 1))
		event.Props.Set(end)

		cal.Children = append(cal.Children, event.Component)
	}
	if len(cal.Children) == 0 {
		return nil, ErrNothingToExport
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// Describe lists each meal on its own line, "No items" for an empty meal.
func Describe(m menu.Record) string {
	lines := make([]string, 0, len(menu.MealTypes))
	for _, mt := range menu.MealTypes {
		lines = append(lines, mt.Label()+": "+mealLine(m.Items(mt)))
	}
	return strings.Join(lines, "\n")
}

func mealLine(items []string) string {
	kept := menu.Clean(items)
	if len(kept) == 0 {
		return "No items"
	}
	return strings.Join(kept, ", ")
}

func uidOf(m menu.Record) string {
	if m.ID != "" {
		return m.ID
	}
	return m.Date
}

// datedMenus returns the menus with a valid date key, sorted by date.
func datedMenus(menus []menu.Record) []menu.Record {
	out := make([]menu.Record, 0, len(menus))
	for _, m := range menus {
		if _, err := time.Parse(menu.DateLayout, m.Date); err == nil {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
