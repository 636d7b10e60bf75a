package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trivia-service/internal/domain"
)

// AttemptStore keeps answer attempts in memory in insertion order.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts []domain.AnswerAttempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{}
}

func (s *AttemptStore) CreateAttempt(_ context.Context, attempt domain.AnswerAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *AttemptStore) ListAttempts(_ context.Context, start, end time.Time) ([]domain.AnswerAttempt, error) {
	window := domain.RoundWindow{Start: start, End: end}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AnswerAttempt, 0)
	for _, a := range s.attempts {
		if window.Contains(a.AttemptedAt) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AttemptedAt.Before(out[j].AttemptedAt) })
	return out, nil
}

// Leaderboard is an in-memory weekly leaderboard.
type Leaderboard struct {
	mu      sync.RWMutex
	points  map[string]int
	history map[string]map[string]int
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{points: make(map[string]int), history: make(map[string]map[string]int)}
}

func (l *Leaderboard) AddPoints(_ context.Context, userID string, points int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.points[userID] += points
	return nil
}

func (l *Leaderboard) Top(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	l.mu.RLock()
	entries := make([]domain.LeaderboardEntry, 0, len(l.points))
	for id, p := range l.points {
		entries = append(entries, domain.LeaderboardEntry{UserID: id, WeeklyPoints: p})
	}
	l.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].WeeklyPoints != entries[j].WeeklyPoints {
			return entries[i].WeeklyPoints > entries[j].WeeklyPoints
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (l *Leaderboard) Archive(_ context.Context, label string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history[label] = l.points
	l.points = make(map[string]int)
	return nil
}

// Archived returns the points stored under label by Archive.
func (l *Leaderboard) Archived(label string) map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]int, len(l.history[label]))
	for id, p := range l.history[label] {
		out[id] = p
	}
	return out
}

// SettlementLedger records settled keys for the life of the process.
type SettlementLedger struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewSettlementLedger() *SettlementLedger {
	return &SettlementLedger{keys: make(map[string]struct{})}
}

func (l *SettlementLedger) MarkSettled(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.keys[key]; ok {
		return false, nil
	}
	l.keys[key] = struct{}{}
	return true, nil
}
