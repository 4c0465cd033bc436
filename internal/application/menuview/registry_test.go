package menuview

import (
	"context"
	"testing"
	"time"

	"cumeal/internal/domain/menu"
)

func TestRegistry_GetAndDrop(t *testing.T) {
	r := NewRegistry(&fakeAPI{}, refs, nil)
	now := time.Now()
	a := r.Get("tok-a", now)
	if r.Get("tok-a", now) != a {
		t.Error("Get should return the same controller for a token")
	}
	if r.Get("tok-b", now) == a {
		t.Error("different tokens must get different controllers")
	}
	r.Drop("tok-a")
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

type fakeCredentials struct{ token string }

func (f *fakeCredentials) AccessToken() string                     { return f.token }
func (f *fakeCredentials) Refresh(context.Context) (string, error) { return f.token, nil }
func (f *fakeCredentials) EnsureFresh(context.Context) error       { return nil }
func (f *fakeCredentials) Expired() bool                           { return false }

func TestRegistry_CredentialsSharedPerSession(t *testing.T) {
	r := NewRegistry(&fakeAPI{}, refs, nil)
	now := time.Now()
	built := 0
	create := func() Credentials {
		built++
		return &fakeCredentials{token: "at"}
	}

	a := r.Credentials("tok-a", now, create)
	if r.Credentials("tok-a", now, create) != a {
		t.Error("same token should share credentials")
	}
	if r.Credentials("tok-b", now, create) == a {
		t.Error("different tokens should not share credentials")
	}
	if built != 2 {
		t.Errorf("built = %d, want 2", built)
	}

	ctrl := r.Get("tok-a", now)
	r.Drop("tok-a")
	if r.Credentials("tok-a", now, create) == a || r.Get("tok-a", now) == ctrl {
		t.Error("Drop should forget credentials and controller")
	}
}

func TestRegistry_Sweep(t *testing.T) {
	r := NewRegistry(&fakeAPI{}, refs, nil)
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	r.Get("old", base)
	r.Get("new", base.Add(2*time.Hour))

	if n := r.Sweep(base.Add(3*time.Hour), 2*time.Hour); n != 1 {
		t.Errorf("Sweep = %d, want 1", n)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRolloverWatcher_PushesNewDates(t *testing.T) {
	api := &fakeAPI{week: sampleWeek()}
	r := NewRegistry(api, refs, nil)
	c := r.Get("tok", time.Now())
	if err := c.LoadWeek(context.Background()); err != nil {
		t.Fatalf("LoadWeek: %v", err)
	}

	loc := time.FixedZone("IST", 5*3600+1800)
	w := NewRolloverWatcher(r, loc, 0)
	var pushed menu.ReferenceDates
	w.OnRollover = func(_ context.Context, refs menu.ReferenceDates) { pushed = refs }

	// Same day: nothing happens.
	w.now = func() time.Time { return time.Date(2024, 6, 1, 23, 0, 0, 0, loc) }
	if w.Check(context.Background()) {
		t.Error("no rollover expected on the same day")
	}

	// Just past midnight local time.
	w.now = func() time.Time { return time.Date(2024, 6, 2, 0, 1, 0, 0, loc) }
	if !w.Check(context.Background()) {
		t.Fatal("rollover expected")
	}
	if pushed.Today != "2024-06-02" || pushed.Tomorrow != "2024-06-03" {
		t.Errorf("pushed = %+v", pushed)
	}
	s := c.Snapshot()
	if s.Refs.Today != "2024-06-02" || !s.Menus[1].IsToday {
		t.Errorf("controller not reclassified: %+v", s)
	}
	if r.Get("fresh", time.Now()).ReferenceDates().Today != "2024-06-02" {
		t.Error("new controllers should start with the new dates")
	}
}

func TestRolloverWatcher_StartStop(t *testing.T) {
	r := NewRegistry(&fakeAPI{}, menu.ReferenceDates{Today: "1999-01-01"}, nil)
	w := NewRolloverWatcher(r, time.UTC, time.Hour)
	fired := make(chan struct{}, 1)
	w.OnRollover = func(context.Context, menu.ReferenceDates) {
		select {
		case fired <- struct{}{}:
		default:
		}
	}
	stop := make(chan struct{})
	w.Start(5*time.Millisecond, stop)
	defer close(stop)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never fired")
	}
}
