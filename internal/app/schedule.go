package app

import (
	"fmt"
	"sort"
	"time"

	"trivia-service/internal/domain"
)

// DailyWindow is a prize round that opens every day at Offset past local midnight.
type DailyWindow struct {
	Offset time.Duration
	Length time.Duration
}

// ParseDailyWindow parses a "15:04" start and a Go duration.
func ParseDailyWindow(start, length string) (DailyWindow, error) {
	t, err := time.Parse("15:04", start)
	if err != nil {
		return DailyWindow{}, fmt.Errorf("parse window start %q: %w", start, err)
	}
	d, err := time.ParseDuration(length)
	if err != nil {
		return DailyWindow{}, fmt.Errorf("parse window duration %q: %w", length, err)
	}
	if d <= 0 {
		return DailyWindow{}, fmt.Errorf("window duration %q must be positive", length)
	}
	offset := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
	return DailyWindow{Offset: offset, Length: d}, nil
}

// RoundSchedule answers which prize window is open at a given instant.
type RoundSchedule struct {
	loc     *time.Location
	windows []DailyWindow
}

func NewRoundSchedule(loc *time.Location, windows []DailyWindow) *RoundSchedule {
	if loc == nil {
		loc = time.UTC
	}
	sorted := append([]DailyWindow(nil), windows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	return &RoundSchedule{loc: loc, windows: sorted}
}

// Location is the zone calendar days and windows are computed in.
func (s *RoundSchedule) Location() *time.Location {
	return s.loc
}

// occurrences lists windows starting on the two days before now through today, by start.
func (s *RoundSchedule) occurrences(now time.Time) []domain.RoundWindow {
	local := now.In(s.loc)
	y, m, d := local.Date()
	out := make([]domain.RoundWindow, 0, 3*len(s.windows))
	for back := 2; back >= 0; back-- {
		midnight := time.Date(y, m, d-back, 0, 0, 0, 0, s.loc)
		for _, w := range s.windows {
			start := midnight.Add(w.Offset)
			out = append(out, domain.RoundWindow{Start: start, End: start.Add(w.Length)})
		}
	}
	return out
}

// Active returns the window containing now.
func (s *RoundSchedule) Active(now time.Time) (domain.RoundWindow, bool) {
	for _, w := range s.occurrences(now) {
		if w.Contains(now) {
			return w, true
		}
	}
	return domain.RoundWindow{}, false
}

// IsPrizeRound reports whether answers at now earn prize points.
func (s *RoundSchedule) IsPrizeRound(now time.Time) bool {
	_, ok := s.Active(now)
	return ok
}

// LastCompleted returns the most recent window that ended at or before now.
func (s *RoundSchedule) LastCompleted(now time.Time) (domain.RoundWindow, bool) {
	var best domain.RoundWindow
	found := false
	for _, w := range s.occurrences(now) {
		if w.End.After(now) {
			continue
		}
		if !found || w.End.After(best.End) {
			best, found = w, true
		}
	}
	return best, found
}
