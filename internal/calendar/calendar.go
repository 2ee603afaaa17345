// internal/calendar/calendar.go
package calendar

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mwidjaja/procura/internal/domain"
)

// Phases of a factory closure, in days relative to the closure date.
// Factories wind down before the holiday, stay shut through it, and need
// another week after reopening before output is reliable again.
const (
	WindDownDays     = 10
	ReopenLagDays    = 14
	FullRecoveryDays = 21
)

// Service reports upcoming factory closures that ordering must plan around.
type Service interface {
	NextClosure(ref time.Time) (domain.ClosureWindow, bool)
}

// closure is one scheduled factory shutdown.
type closure struct {
	name string
	date time.Time
}

// CNYCalendar is a Service backed by a table of closure dates. It ships
// with the Chinese New Year dates the supply chain runs on; extra closures
// can be added programmatically or loaded from a CSV.
type CNYCalendar struct {
	mu       sync.RWMutex
	closures []closure
}

// cnyDates are the first days of Chinese New Year. Extend the table before
// 2031 orders are planned.
var cnyDates = map[int]string{
	2024: "2024-02-10",
	2025: "2025-01-29",
	2026: "2026-02-17",
	2027: "2027-02-06",
	2028: "2028-01-26",
	2029: "2029-02-13",
	2030: "2030-02-03",
}

// NewCNY builds a calendar preloaded with the known Chinese New Year dates.
func NewCNY() *CNYCalendar {
	c := &CNYCalendar{}
	for year, iso := range cnyDates {
		d, err := time.Parse("2006-01-02", iso)
		if err != nil {
			continue
		}
		c.closures = append(c.closures, closure{
			name: fmt.Sprintf("Chinese New Year %d", year),
			date: d,
		})
	}
	c.sortLocked()

	return c
}

// AddClosure registers an additional closure date.
func (c *CNYCalendar) AddClosure(name string, date time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closures = append(c.closures, closure{name: name, date: day(date)})
	c.sortLocked()
}

// LoadCSV adds closures from a file with "date,name" rows. A header row is
// skipped when present. Returns the number of closures added.
func (c *CNYCalendar) LoadCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open closures file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	added := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return added, fmt.Errorf("failed to read closures file: %w", err)
		}
		if len(row) == 0 {
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(row[0]))
		if err != nil {
			// header or junk row
			continue
		}
		name := "factory closure"
		if len(row) > 1 && strings.TrimSpace(row[1]) != "" {
			name = strings.TrimSpace(row[1])
		}
		c.AddClosure(name, date)
		added++
	}

	return added, nil
}

// NextClosure returns the closure window that matters for orders placed on
// the reference date. While a closure has not fully recovered it is still
// the relevant one; only after its recovery date passes does the calendar
// look to the next occurrence.
func (c *CNYCalendar) NextClosure(ref time.Time) (domain.ClosureWindow, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	refDay := day(ref)
	for _, cl := range c.closures {
		if recovery := cl.date.AddDate(0, 0, FullRecoveryDays); recovery.Before(refDay) {
			continue
		}

		return Window(cl.name, cl.date), true
	}

	return domain.ClosureWindow{}, false
}

// Window expands a closure date into its full window: wind-down start,
// reopen date and full production recovery.
func Window(name string, closureDate time.Time) domain.ClosureWindow {
	d := day(closureDate)

	return domain.ClosureWindow{
		Name:         name,
		ClosureDate:  d,
		Start:        d.AddDate(0, 0, -WindDownDays),
		End:          d.AddDate(0, 0, ReopenLagDays),
		FullRecovery: d.AddDate(0, 0, FullRecoveryDays),
	}
}

func (c *CNYCalendar) sortLocked() {
	sort.Slice(c.closures, func(i, j int) bool { return c.closures[i].date.Before(c.closures[j].date) })
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
