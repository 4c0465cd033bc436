package web

import (
	"errors"
	"net/http"
	"strconv"

	"cumeal/internal/adapters/export"
	"cumeal/internal/application/menuview"
	"cumeal/internal/application/orchestrators"
	"cumeal/internal/domain/menu"
)

// handleCalendarFeed downloads every menu as iCalendar (GET /menus/calendar.ics)
// POST: controller list state is untouched
func handleCalendarFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ar, ok := beginAdmin(w, r)
	if !ok {
		return
	}

	raw, err := api.ListAll(ar.ctx)
	if err != nil {
		if !ar.sessionLost(w, r, err) {
			http.Error(w, menuview.Message(err), http.StatusBadGateway)
		}
		return
	}
	menus := menu.Present(raw, ar.ctrl.ReferenceDates())
	body, err := export.CalendarFeed(menus, timeNow())
	if errors.Is(err, export.ErrNothingToExport) {
		http.Error(w, "No menus to export", http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	orchestrators.ExecuteRecordExport(ar.ctx, orchestrators.ExportInput{Format: "ics", Menus: len(menus)}, stores.Audit, timeNow())
	sendDownload(w, "text/calendar; charset=utf-8", "cumeal-menus.ics", body)
}

// handleWeekPDF downloads the current week as a printable sheet (GET /menus/week.pdf)
func handleWeekPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ar, ok := beginAdmin(w, r)
	if !ok {
		return
	}

	raw, err := api.ListWeek(ar.ctx)
	if err != nil {
		if !ar.sessionLost(w, r, err) {
			http.Error(w, menuview.Message(err), http.StatusBadGateway)
		}
		return
	}
	menus := menu.Present(raw, ar.ctrl.ReferenceDates())
	body, err := export.WeekSheet("Cumeal weekly menu", menus, timeNow().In(location))
	if err != nil {
		internalError(w, err)
		return
	}

	orchestrators.ExecuteRecordExport(ar.ctx, orchestrators.ExportInput{Format: "pdf", Menus: len(menus)}, stores.Audit, timeNow())
	sendDownload(w, "application/pdf", "cumeal-week-"+ar.ctrl.ReferenceDates().Today+".pdf", body)
}

func sendDownload(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Write(body)
}
