package app

import (
	"context"

	"trivia-service/internal/domain"
	"trivia-service/internal/game"
)

// Standings returns the weekly leaderboard with each entry's tier.
func Standings(ctx context.Context, board Leaderboard, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	entries, err := board.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Tier = game.Classify(entries[i].WeeklyPoints).Key
	}
	return entries, nil
}
