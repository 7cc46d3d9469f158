package journal

import (
	"testing"
	"time"
)

func TestJournalEvictsOldest(t *testing.T) {
	j := New(3)
	for _, m := range []string{"a", "b", "c", "d"} {
		j.Record("info", m)
	}
	if j.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", j.Len())
	}
	got := j.Query(Filter{})
	want := []string{"d", "c", "b"}
	for i, e := range got {
		if e.Message != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], e.Message)
		}
	}
}

func TestJournalQueryFilters(t *testing.T) {
	j := New(10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := base
	j.now = func() time.Time { tick = tick.Add(time.Second); return tick }

	j.Record("info", "one")
	j.Record("error", "two")
	j.Record("error", "three")
	j.Record("success", "four")

	if got := j.Query(Filter{Level: "error"}); len(got) != 2 || got[0].Message != "three" {
		t.Errorf("level filter: unexpected %+v", got)
	}
	if got := j.Query(Filter{Since: base.Add(3 * time.Second)}); len(got) != 2 {
		t.Errorf("since filter: expected 2, got %d", len(got))
	}
	if got := j.Query(Filter{Limit: 1}); len(got) != 1 || got[0].Message != "four" {
		t.Errorf("limit: unexpected %+v", got)
	}
}

func TestJournalAssignsIDs(t *testing.T) {
	j := New(0)
	a := j.Record("info", "x")
	b := j.Record("info", "x")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
	if a.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
}
