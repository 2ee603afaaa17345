package calendar

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWindowPhases(t *testing.T) {
	w := Window("Chinese New Year 2026", date(2026, 2, 17))

	if !w.Start.Equal(date(2026, 2, 7)) {
		t.Errorf("start = %v, want 2026-02-07", w.Start)
	}
	if !w.End.Equal(date(2026, 3, 3)) {
		t.Errorf("end = %v, want 2026-03-03", w.End)
	}
	if !w.FullRecovery.Equal(date(2026, 3, 10)) {
		t.Errorf("full recovery = %v, want 2026-03-10", w.FullRecovery)
	}
}

func TestNextClosureLooksForward(t *testing.T) {
	c := NewCNY()

	w, ok := c.NextClosure(date(2025, 8, 23))
	if !ok {
		t.Fatal("expected a closure window")
	}
	if !w.ClosureDate.Equal(date(2026, 2, 17)) {
		t.Errorf("closure = %v, want CNY 2026", w.ClosureDate)
	}
}

func TestNextClosureStaysOnCurrentWindowUntilRecovered(t *testing.T) {
	c := NewCNY()

	tests := []struct {
		name string
		ref  time.Time
		want time.Time
	}{
		{"inside the closure", date(2026, 2, 20), date(2026, 2, 17)},
		{"after reopen, before recovery", date(2026, 3, 5), date(2026, 2, 17)},
		{"on the recovery date", date(2026, 3, 10), date(2026, 2, 17)},
		{"day after recovery", date(2026, 3, 11), date(2027, 2, 6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := c.NextClosure(tt.ref)
			if !ok {
				t.Fatal("expected a closure window")
			}
			if !w.ClosureDate.Equal(tt.want) {
				t.Errorf("closure = %v, want %v", w.ClosureDate, tt.want)
			}
		})
	}
}

// The returned window never lies wholly in the past: either it starts after
// the reference date, or the reference date sits inside a window that has
// not fully recovered.
func TestNextClosureNeverPast(t *testing.T) {
	c := NewCNY()

	for ref := date(2024, 1, 1); ref.Before(date(2030, 1, 1)); ref = ref.AddDate(0, 0, 17) {
		w, ok := c.NextClosure(ref)
		if !ok {
			t.Fatalf("no window at %v", ref)
		}
		if w.Start.After(ref) {
			continue
		}
		if !w.FullRecovery.Before(ref) {
			continue
		}
		t.Fatalf("window %v..%v is wholly past reference %v", w.Start, w.FullRecovery, ref)
	}
}

func TestAddClosure(t *testing.T) {
	c := NewCNY()
	c.AddClosure("Golden Week 2025", date(2025, 10, 1))

	w, ok := c.NextClosure(date(2025, 8, 23))
	if !ok {
		t.Fatal("expected a closure window")
	}
	if w.Name != "Golden Week 2025" {
		t.Errorf("closure = %q, the added October closure comes before CNY 2026", w.Name)
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closures.csv")
	content := "date,name\n2025-10-01,Golden Week 2025\n2026-10-01,Golden Week 2026\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewCNY()
	added, err := c.LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}

	w, ok := c.NextClosure(date(2025, 9, 1))
	if !ok || w.Name != "Golden Week 2025" {
		t.Errorf("next closure = %+v", w)
	}
}
