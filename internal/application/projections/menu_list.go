package projections

import (
	"slices"
	"strings"

	"cumeal/internal/application/listutil"
	"cumeal/internal/domain/menu"
)

// MenuSortColumns are the columns the menu list may be sorted by.
var MenuSortColumns = []string{"date"}

// MenuListResult is one page of the loaded menu list.
type MenuListResult struct {
	Menus  []menu.Record
	Page   listutil.PageInfo
	Params listutil.Params
}

// QueryMenuList filters, sorts and pages menus already loaded by the controller.
// Search matches the date or any meal item, case-insensitively.
// PRE: menus is the controller's current list
// POST: len(Menus) <= Params.PerPage; menus is not modified
func QueryMenuList(menus []menu.Record, params listutil.Params) MenuListResult {
	filtered := make([]menu.Record, 0, len(menus))
	needle := strings.ToLower(params.Search)
	for _, m := range menus {
		if needle == "" || menuMatches(m, needle) {
			filtered = append(filtered, m)
		}
	}

	if params.Sort == "date" {
		slices.SortStableFunc(filtered, func(a, b menu.Record) int {
			c := strings.Compare(menu.DateKey(a.Date), menu.DateKey(b.Date))
			if params.Dir == listutil.Desc {
				return -c
			}
			return c
		})
	}

	info := listutil.NewPageInfo(params.Page, params.PerPage, len(filtered))
	return MenuListResult{
		Menus:  listutil.Page(filtered, info),
		Page:   info,
		Params: params,
	}
}

func menuMatches(m menu.Record, needle string) bool {
	if strings.Contains(strings.ToLower(m.Date), needle) {
		return true
	}
	for _, mt := range menu.MealTypes {
		for _, item := range m.Items(mt) {
			if strings.Contains(strings.ToLower(item), needle) {
				return true
			}
		}
	}
	return false
}

// PageURL is the all-menus link for page, keeping search and sort.
func (r MenuListResult) PageURL(page int) string {
	v := r.Params.Query(page)
	v.Set("view", "all")
	return "/menus?" + v.Encode()
}
