package redis

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-service/internal/domain"
)

const (
	leaderboardKey        = "leaderboard:weekly"
	leaderboardHistoryKey = "leaderboard:history:"
)

// Leaderboard ranks weekly points in a sorted set.
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

func (l *Leaderboard) AddPoints(ctx context.Context, userID string, points int) error {
	return l.client.ZIncrBy(ctx, leaderboardKey, float64(points), userID).Err()
}

func (l *Leaderboard) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	rows, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, z := range rows {
		id, _ := z.Member.(string)
		entries = append(entries, domain.LeaderboardEntry{UserID: id, WeeklyPoints: int(z.Score)})
	}
	// Redis orders equal scores by member descending; present them ascending.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].WeeklyPoints != entries[j].WeeklyPoints {
			return entries[i].WeeklyPoints > entries[j].WeeklyPoints
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Archive renames the weekly set to leaderboard:history:<label>. An empty
// board has no key and nothing to rename.
func (l *Leaderboard) Archive(ctx context.Context, label string) error {
	n, err := l.client.Exists(ctx, leaderboardKey).Result()
	if err != nil || n == 0 {
		return err
	}
	return l.client.Rename(ctx, leaderboardKey, leaderboardHistoryKey+label).Err()
}

// SettlementLedger marks payout keys with SETNX so only one instance pays.
type SettlementLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSettlementLedger keeps marks for ttl; zero keeps them forever.
func NewSettlementLedger(client *redis.Client, ttl time.Duration) *SettlementLedger {
	return &SettlementLedger{client: client, ttl: ttl}
}

func (l *SettlementLedger) MarkSettled(ctx context.Context, key string) (bool, error) {
	return l.client.SetNX(ctx, "settled:"+key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
}
