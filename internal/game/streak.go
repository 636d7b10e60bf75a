package game

import (
	"time"

	"trivia-service/internal/domain"
)

// UpdateStreak computes the next streak from the last played calendar date.
// Dates are compared by year/month/day in the location of today, so wall-clock
// distance is irrelevant. A nil lastPlayed means a first play.
func UpdateStreak(lastPlayed *time.Time, today time.Time, currentStreak int) domain.StreakResult {
	day := CalendarDay(today, today.Location())
	if currentStreak < 0 {
		currentStreak = 0
	}
	if lastPlayed == nil {
		return domain.StreakResult{Streak: 1, Today: day}
	}

	diff := DaysBetween(CalendarDay(*lastPlayed, today.Location()), day)
	switch {
	case diff < 0:
		return domain.StreakResult{Streak: currentStreak, Today: day, Skewed: true}
	case diff == 0:
		return domain.StreakResult{Streak: max(currentStreak, 1), Today: day}
	case diff == 1:
		return domain.StreakResult{Streak: currentStreak + 1, Today: day}
	default:
		return domain.StreakResult{Streak: 1, StreakBroken: currentStreak > 0, Today: day}
	}
}

// CalendarDay truncates t to midnight of its date as observed in loc.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	// UTC midnights sidestep DST-shortened days.
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
