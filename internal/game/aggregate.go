package game

import (
	"sort"
	"time"

	"trivia-service/internal/domain"
)

type roundTally struct {
	userID  string
	points  int
	correct int
	total   int
}

// Aggregate ranks users by their attempts inside [windowStart, windowEnd).
// Ordering is round points desc, correct answers desc, total attempts asc,
// then user id asc so reruns are stable. Users without points are dropped.
// topN <= 0 returns every ranked user. attempts is never modified.
func Aggregate(attempts []domain.AnswerAttempt, windowStart, windowEnd time.Time, topN int) []domain.RankedResult {
	window := domain.RoundWindow{Start: windowStart, End: windowEnd}
	byUser := make(map[string]*roundTally)
	for _, a := range attempts {
		if !window.Contains(a.AttemptedAt) {
			continue
		}
		t, ok := byUser[a.UserID]
		if !ok {
			t = &roundTally{userID: a.UserID}
			byUser[a.UserID] = t
		}
		t.total++
		if a.IsCorrect {
			t.correct++
			t.points += a.PointsAwarded
		}
	}

	tallies := make([]*roundTally, 0, len(byUser))
	for _, t := range byUser {
		if t.points > 0 {
			tallies = append(tallies, t)
		}
	}

	sort.Slice(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.points != b.points {
			return a.points > b.points
		}
		if a.correct != b.correct {
			return a.correct > b.correct
		}
		if a.total != b.total {
			return a.total < b.total
		}
		return a.userID < b.userID
	})

	if topN > 0 && len(tallies) > topN {
		tallies = tallies[:topN]
	}

	out := make([]domain.RankedResult, len(tallies))
	for i, t := range tallies {
		out[i] = domain.RankedResult{
			Rank:          i + 1,
			UserID:        t.userID,
			RoundPoints:   t.points,
			CorrectCount:  t.correct,
			TotalAttempts: t.total,
		}
	}
	return out
}
