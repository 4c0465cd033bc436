package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cumeal/internal/adapters/backend"
	"cumeal/internal/application/listutil"
	"cumeal/internal/application/menuview"
	"cumeal/internal/application/projections"
	"cumeal/internal/domain/menu"
	"cumeal/internal/domain/menuform"
)

// MsgBusy is shown when a second change arrives while one is still running.
const MsgBusy = "Another change is still in progress. Please wait a moment."

// menuJSON is the /menus answer for non-HTML clients.
type menuJSON struct {
	View  menuview.View `json:"view"`
	Menus []menu.Record `json:"menus"`
	Error string        `json:"error,omitempty"`
}

// formMeal is one meal section of the create/edit form.
type formMeal struct {
	Type  menu.MealType
	Label string
	Items []string
}

// handleMenus lists the week's or all menus (GET /menus?view=week|all)
// PRE: authenticated session
// POST: controller list reloaded; HTML or JSON rendered from its snapshot
func handleMenus(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ar, ok := beginAdmin(w, r)
	if !ok {
		return
	}

	var err error
	if r.URL.Query().Get("view") == string(menuview.ViewAll) {
		err = ar.ctrl.LoadAll(ar.ctx)
	} else {
		err = ar.ctrl.LoadWeek(ar.ctx)
	}
	if err != nil && ar.sessionLost(w, r, err) {
		return
	}

	status := http.StatusOK
	switch {
	case errors.Is(err, menuview.ErrBusy):
		status = http.StatusConflict
	case err != nil:
		status = http.StatusBadGateway
	}

	if !isHTMLRequest(r) {
		snap := ar.ctrl.Snapshot()
		if snap.Menus == nil {
			snap.Menus = []menu.Record{}
		}
		writeJSON(w, status, menuJSON{View: snap.ListView, Menus: snap.Menus, Error: snap.Error})
		return
	}
	renderMenus(w, r, ar, status, err)
}

// renderMenus draws the list page from the controller snapshot.
func renderMenus(w http.ResponseWriter, r *http.Request, ar adminRequest, status int, err error) {
	snap := ar.ctrl.Snapshot()
	data := map[string]any{
		"Title":    "Menus",
		"ListView": string(snap.ListView),
		"Today":    snap.Refs.Today,
		"Error":    snap.Error,
		"Menus":    snap.Menus,
	}
	if errors.Is(err, menuview.ErrBusy) && snap.Error == "" {
		data["Error"] = MsgBusy
	}
	if snap.ListView == menuview.ViewAll {
		params := listutil.Parse(r.URL.Query(), projections.MenuSortColumns, "date", listutil.Desc)
		list := projections.QueryMenuList(snap.Menus, params)
		data["Menus"] = list.Menus
		data["List"] = list
		data["PerPageOptions"] = listutil.PerPageOptions
	}
	renderTemplateStatus(w, r, status, "menus.html", data)
}

// handleMenuDay shows the menu for one date (GET /menus/day?date=YYYY-MM-DD)
func handleMenuDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ar, ok := beginAdmin(w, r)
	if !ok {
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = ar.ctrl.ReferenceDates().Today
	}
	data := map[string]any{"Title": "Menu by date", "Date": date}

	rec, err := ar.ctrl.LoadDay(ar.ctx, date)
	status := http.StatusOK
	switch {
	case err == nil:
		data["Menu"] = rec
	case ar.sessionLost(w, r, err):
		return
	case backend.IsNotFound(err):
		data["NotFound"] = true
		status = http.StatusNotFound
	default:
		data["Error"] = menuview.Message(err)
		status = http.StatusBadGateway
	}

	if !isHTMLRequest(r) {
		writeJSON(w, status, data)
		return
	}
	renderTemplateStatus(w, r, status, "menu_day.html", data)
}

// handleMenuNew handles GET (blank form) and POST (form actions) for /menus/new
// PRE: authenticated session
// POST: action=submit creates the menu and redirects to the week view
func handleMenuNew(w http.ResponseWriter, r *http.Request) {
	ar, ok := beginAdmin(w, r)
	if !ok {
		return
	}

	if r.Method == "GET" {
		ar.ctrl.BeginCreate()
		renderMenuForm(w, r, ar, http.StatusOK, nil)
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		draft, submit := applyFormAction(draftFromForm(r, r.PostFormValue("date")), r.PostFormValue("action"))
		if !submit {
			ar.ctrl.EditDraft(draft)
			renderMenuForm(w, r, ar, http.StatusOK, nil)
			return
		}

		err := ar.ctrl.SubmitCreate(ar.ctx, draft)
		if err == nil {
			http.Redirect(w, r, "/menus?view=week", http.StatusSeeOther)
			return
		}
		if ar.sessionLost(w, r, err) {
			return
		}
		renderMenuForm(w, r, ar, mutationStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleMenuEdit handles GET (hydrated form) and POST (form actions) for /menus/edit
// PRE: authenticated session; id names a menu the backend knows
// POST: action=submit updates the menu without its date and redirects to the week view
func handleMenuEdit(w http.ResponseWriter, r *http.Request) {
	ar, ok := beginAdmin(w, r)
	if !ok {
		return
	}

	if r.Method == "GET" {
		id := r.URL.Query().Get("id")
		if !selectForEdit(w, r, ar, id) {
			return
		}
		renderMenuForm(w, r, ar, http.StatusOK, nil)
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		id := r.PostFormValue("id")
		if snap := ar.ctrl.Snapshot(); id != "" && (snap.Selected == nil || snap.Selected.ID != id) {
			if !selectForEdit(w, r, ar, id) {
				return
			}
		}

		// The date is read-only while editing.
		date := ar.ctrl.Snapshot().Draft.Date
		draft, submit := applyFormAction(draftFromForm(r, date), r.PostFormValue("action"))
		if !submit {
			ar.ctrl.EditDraft(draft)
			renderMenuForm(w, r, ar, http.StatusOK, nil)
			return
		}

		err := ar.ctrl.SubmitUpdate(ar.ctx, draft)
		if err == nil {
			http.Redirect(w, r, "/menus?view=week", http.StatusSeeOther)
			return
		}
		if ar.sessionLost(w, r, err) {
			return
		}
		renderMenuForm(w, r, ar, mutationStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// selectForEdit puts the controller in edit mode for id, loading all menus
// when id is not in the current list. It answers the request itself on failure.
func selectForEdit(w http.ResponseWriter, r *http.Request, ar adminRequest, id string) bool {
	if _, ok := findMenu(w, r, ar, id); !ok {
		return false
	}
	if err := ar.ctrl.SelectForEditByID(id); err != nil {
		http.NotFound(w, r)
		return false
	}
	return true
}

// findMenu resolves id from the loaded list, falling back to the full list.
// It answers the request itself on failure.
func findMenu(w http.ResponseWriter, r *http.Request, ar adminRequest, id string) (menu.Record, bool) {
	if id == "" {
		http.Error(w, menuview.MsgIDRequired, http.StatusBadRequest)
		return menu.Record{}, false
	}
	if rec, ok := ar.ctrl.Find(id); ok {
		return rec, true
	}
	if err := ar.ctrl.LoadAll(ar.ctx); err != nil {
		if ar.sessionLost(w, r, err) {
			return menu.Record{}, false
		}
		renderMenus(w, r, ar, mutationStatus(err), err)
		return menu.Record{}, false
	}
	if rec, ok := ar.ctrl.Find(id); ok {
		return rec, true
	}
	http.NotFound(w, r)
	return menu.Record{}, false
}

func renderMenuForm(w http.ResponseWriter, r *http.Request, ar adminRequest, status int, err error) {
	snap := ar.ctrl.Snapshot()
	data := map[string]any{
		"Draft": snap.Draft,
		"Meals": formMeals(snap.Draft),
		"Error": snap.Error,
	}
	if errors.Is(err, menuview.ErrBusy) && snap.Error == "" {
		data["Error"] = MsgBusy
	}
	if snap.View == menuview.ViewEdit && snap.Selected != nil {
		data["Title"] = "Edit Menu"
		data["Editing"] = true
		data["Action"] = "/menus/edit"
		data["ID"] = snap.Selected.ID
	} else {
		data["Title"] = "Create New Menu"
		data["Action"] = "/menus/new"
	}
	renderTemplateStatus(w, r, status, "menu_form.html", data)
}

func formMeals(d menuform.Draft) []formMeal {
	out := make([]formMeal, 0, len(menu.MealTypes))
	for _, mt := range menu.MealTypes {
		out = append(out, formMeal{Type: mt, Label: mt.Label(), Items: d.Items(mt)})
	}
	return out
}

// draftFromForm rebuilds a draft from the posted item fields, one field per item.
func draftFromForm(r *http.Request, date string) menuform.Draft {
	items := make(map[menu.MealType][]string, len(menu.MealTypes))
	for _, mt := range menu.MealTypes {
		items[mt] = r.PostForm[string(mt)]
	}
	return menuform.FromItems(strings.TrimSpace(date), items)
}

// applyFormAction applies "add:<meal>" or "remove:<meal>:<index>" to d.
// Any other action is a submit.
func applyFormAction(d menuform.Draft, action string) (menuform.Draft, bool) {
	kind, rest, _ := strings.Cut(action, ":")
	switch kind {
	case "add":
		return d.AddMealItem(menu.MealType(rest)), false
	case "remove":
		meal, idx, _ := strings.Cut(rest, ":")
		i, err := strconv.Atoi(idx)
		if err != nil {
			return d, false
		}
		return d.RemoveMealItem(menu.MealType(meal), i), false
	}
	return d, true
}

func mutationStatus(err error) int {
	switch {
	case errors.Is(err, menuview.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, menuview.ErrBusy):
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

// handleMenuCancel leaves the form (POST /menus/cancel)
func handleMenuCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ar, ok := beginAdmin(w, r)
	if !ok {
		return
	}
	ar.ctrl.Cancel()
	http.Redirect(w, r, "/menus?view=week", http.StatusSeeOther)
}

// handleMenuDelete handles GET (confirmation page) and POST (delete) for /menus/delete
// POST: without confirm=yes nothing is deleted
func handleMenuDelete(w http.ResponseWriter, r *http.Request) {
	ar, ok := beginAdmin(w, r)
	if !ok {
		return
	}

	if r.Method == "GET" {
		rec, ok := findMenu(w, r, ar, r.URL.Query().Get("id"))
		if !ok {
			return
		}
		renderTemplate(w, r, "menu_delete.html", map[string]any{
			"Title":    "Delete Menu",
			"Menu":     rec,
			"ListView": string(ar.ctrl.Snapshot().ListView),
		})
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		err := ar.ctrl.RequestDelete(ar.ctx, r.PostFormValue("id"), r.PostFormValue("confirm") == "yes")
		back := "/menus?view=" + url.QueryEscape(string(ar.ctrl.Snapshot().ListView))
		switch {
		case err == nil, errors.Is(err, menuview.ErrNotConfirmed):
			http.Redirect(w, r, back, http.StatusSeeOther)
		case ar.sessionLost(w, r, err):
		default:
			renderMenus(w, r, ar, mutationStatus(err), err)
		}
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleDismissError clears the error banner (POST /menus/dismiss-error)
func handleDismissError(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ar, ok := beginAdmin(w, r)
	if !ok {
		return
	}
	ar.ctrl.DismissError()
	renderMenus(w, r, ar, http.StatusOK, nil)
}
