package listutil

import (
	"net/url"
	"reflect"
	"testing"
)

var sortCols = []string{"date"}

func TestParse_Defaults(t *testing.T) {
	p := Parse(url.Values{}, sortCols, "date", Desc)
	want := Params{Page: 1, PerPage: DefaultPerPage, Sort: "date", Dir: Desc}
	if p != want {
		t.Errorf("Parse = %+v, want %+v", p, want)
	}
}

func TestParse_Values(t *testing.T) {
	q := url.Values{"page": {"3"}, "per_page": {"28"}, "sort": {"date"}, "dir": {"asc"}, "q": {"  paneer "}}
	p := Parse(q, sortCols, "date", Desc)
	want := Params{Page: 3, PerPage: 28, Sort: "date", Dir: Asc, Search: "paneer"}
	if p != want {
		t.Errorf("Parse = %+v, want %+v", p, want)
	}
}

func TestParse_Invalid(t *testing.T) {
	q := url.Values{"page": {"-2"}, "per_page": {"13"}, "sort": {"id; drop"}, "dir": {"sideways"}}
	p := Parse(q, sortCols, "date", Desc)
	if p.Page != 1 || p.PerPage != DefaultPerPage || p.Sort != "date" || p.Dir != Desc {
		t.Errorf("Parse = %+v", p)
	}
}

func TestParams_Query(t *testing.T) {
	p := Params{Page: 1, PerPage: 7, Sort: "date", Dir: Asc, Search: "dal"}
	got := p.Query(4).Encode()
	if got != "dir=asc&page=4&per_page=7&q=dal&sort=date" {
		t.Errorf("Query = %q", got)
	}
}

func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name                            string
		page, perPage, total            int
		wantPage, wantPages, start, end int
	}{
		{"empty", 1, 7, 0, 1, 1, 0, 0},
		{"first of three", 1, 7, 20, 1, 3, 1, 7},
		{"last partial", 3, 7, 20, 3, 3, 15, 20},
		{"page clamped", 9, 7, 20, 3, 3, 15, 20},
		{"zero per page", 1, 0, 5, 1, 1, 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPageInfo(tt.page, tt.perPage, tt.total)
			if p.Page != tt.wantPage || p.TotalPages != tt.wantPages {
				t.Errorf("page/pages = %d/%d, want %d/%d", p.Page, p.TotalPages, tt.wantPage, tt.wantPages)
			}
			if p.StartRow() != tt.start || p.EndRow() != tt.end {
				t.Errorf("rows = %d-%d, want %d-%d", p.StartRow(), p.EndRow(), tt.start, tt.end)
			}
		})
	}
}

func TestPageNumbers(t *testing.T) {
	tests := []struct {
		page, pages int
		want        []int
	}{
		{1, 1, []int{1}},
		{1, 10, []int{1, 2, 3, 4, 5}},
		{5, 10, []int{3, 4, 5, 6, 7}},
		{10, 10, []int{6, 7, 8, 9, 10}},
		{2, 3, []int{1, 2, 3}},
	}
	for _, tt := range tests {
		p := PageInfo{Page: tt.page, PerPage: 1, Total: tt.pages, TotalPages: tt.pages}
		if got := p.PageNumbers(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("PageNumbers(%d of %d) = %v, want %v", tt.page, tt.pages, got, tt.want)
		}
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	if got := Page(items, NewPageInfo(2, 2, len(items))); !reflect.DeepEqual(got, []int{3, 4}) {
		t.Errorf("page 2 = %v", got)
	}
	if got := Page(items, NewPageInfo(3, 2, len(items))); !reflect.DeepEqual(got, []int{5}) {
		t.Errorf("page 3 = %v", got)
	}
	if got := Page([]int{}, NewPageInfo(1, 2, 0)); len(got) != 0 {
		t.Errorf("empty = %v", got)
	}
	info := NewPageInfo(2, 2, 5)
	if !info.HasPrev() || !info.HasNext() || !info.ShowPagination() {
		t.Errorf("info flags = %+v", info)
	}
}
