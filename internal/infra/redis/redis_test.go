package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, client := newClient(t)
	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader([]domain.QuestionMeta{sampleQuestion()}),
	}
	repo := NewQuestionRepository(client, loader, time.Minute)

	q, err := repo.GetQuestion(context.Background(), "q1")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("question:q1") {
		t.Fatalf("expected question hash cached")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuestion(context.Background(), "q1")
	if err != nil {
		t.Fatalf("get cached question: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached != q {
		t.Fatalf("cached question mismatch: %+v != %+v", cached, q)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := repo.GetQuestion(context.Background(), "q1"); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

func TestQuestionRepositoryRandomUsesCategoryIndex(t *testing.T) {
	_, client := newClient(t)
	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader([]domain.QuestionMeta{sampleQuestion()}),
	}
	repo := NewQuestionRepository(client, loader, time.Minute)
	ctx := context.Background()

	if _, err := repo.RandomQuestion(ctx, "SPORTS"); err != nil {
		t.Fatalf("random question: %v", err)
	}
	members, err := client.SMembers(ctx, "questions:category:SPORTS").Result()
	if err != nil || len(members) != 1 || members[0] != "q1" {
		t.Fatalf("expected category index [q1], got %v (%v)", members, err)
	}

	q, err := repo.RandomQuestion(ctx, "SPORTS")
	if err != nil || q.ID != "q1" {
		t.Fatalf("expected cached q1, got %+v (%v)", q, err)
	}

	if _, err := repo.RandomQuestion(ctx, "MUSIC"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestUserStoreOptimisticWrites(t *testing.T) {
	mr, client := newClient(t)
	store := NewUserStore(client)
	ctx := context.Background()

	if _, err := store.GetUser(ctx, "u1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	created, err := store.SaveUser(ctx, domain.UserScoringState{
		TelegramID:         "u1",
		AP:                 12,
		Streak:             3,
		LastPlayedDate:     &day,
		SubscriptionStatus: domain.SubscriptionSubscriber,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1, got %d", created.Version)
	}
	if !mr.Exists("user:u1") {
		t.Fatalf("expected user key")
	}

	stale := created
	created.PP = 40
	if _, err := store.SaveUser(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := store.SaveUser(ctx, stale); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	got, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PP != 40 || got.Version != 2 || !got.IsSubscriber() {
		t.Fatalf("unexpected user %+v", got)
	}
	if got.LastPlayedDate == nil || !got.LastPlayedDate.Equal(day) {
		t.Fatalf("last played not round-tripped: %v", got.LastPlayedDate)
	}
}

func TestUserStoreListByMinStreak(t *testing.T) {
	_, client := newClient(t)
	store := NewUserStore(client)
	ctx := context.Background()
	for id, streak := range map[string]int{"a": 2, "b": 7, "c": 31} {
		if _, err := store.SaveUser(ctx, domain.UserScoringState{TelegramID: id, Streak: streak}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	users, err := store.ListByMinStreak(ctx, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || users[0].TelegramID != "b" || users[1].TelegramID != "c" {
		t.Fatalf("unexpected users %+v", users)
	}

	none, err := store.ListByMinStreak(ctx, 100)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no users, got %+v (%v)", none, err)
	}
}

func TestLeaderboardTop(t *testing.T) {
	_, client := newClient(t)
	board := NewLeaderboard(client)
	ctx := context.Background()
	for _, p := range []struct {
		id     string
		points int
	}{{"u1", 50}, {"u2", 80}, {"u1", 40}, {"u3", 90}} {
		if err := board.AddPoints(ctx, p.id, p.points); err != nil {
			t.Fatalf("add points: %v", err)
		}
	}

	top, err := board.Top(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].UserID != "u1" || top[0].Rank != 1 || top[0].WeeklyPoints != 90 {
		t.Fatalf("unexpected first entry %+v", top[0])
	}
	if top[1].UserID != "u3" || top[1].Rank != 2 {
		t.Fatalf("unexpected second entry %+v", top[1])
	}

	all, err := board.Top(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all 3 entries, got %d (%v)", len(all), err)
	}
}

func TestLeaderboardArchiveRenamesWeek(t *testing.T) {
	mr, client := newClient(t)
	board := NewLeaderboard(client)
	ctx := context.Background()

	if err := board.Archive(ctx, "2024-W46"); err != nil {
		t.Fatalf("archive empty board: %v", err)
	}
	if err := board.AddPoints(ctx, "u1", 120); err != nil {
		t.Fatalf("add points: %v", err)
	}
	if err := board.Archive(ctx, "2024-W47"); err != nil {
		t.Fatalf("archive: %v", err)
	}

	if mr.Exists(leaderboardKey) {
		t.Fatalf("expected weekly board cleared")
	}
	score, err := mr.ZScore("leaderboard:history:2024-W47", "u1")
	if err != nil || score != 120 {
		t.Fatalf("expected archived score 120, got %v (%v)", score, err)
	}
	top, err := board.Top(ctx, 0)
	if err != nil || len(top) != 0 {
		t.Fatalf("expected empty board after archive, got %+v (%v)", top, err)
	}
}

func TestSettlementLedgerSetNX(t *testing.T) {
	mr, client := newClient(t)
	ledger := NewSettlementLedger(client, time.Hour)
	ctx := context.Background()

	first, err := ledger.MarkSettled(ctx, "round:x")
	if err != nil || !first {
		t.Fatalf("expected first mark, got %v (%v)", first, err)
	}
	second, err := ledger.MarkSettled(ctx, "round:x")
	if err != nil || second {
		t.Fatalf("expected duplicate mark refused, got %v (%v)", second, err)
	}
	if ttl := mr.TTL("settled:round:x"); ttl != time.Hour {
		t.Fatalf("expected ttl 1h, got %v", ttl)
	}
}

type countingLoader struct {
	memory.QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestion(ctx context.Context, questionID string) (domain.QuestionMeta, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestion(ctx, questionID)
}

func sampleQuestion() domain.QuestionMeta {
	return domain.QuestionMeta{ID: "q1", Category: "SPORTS", Difficulty: 2, CorrectOptionIndex: 1, OptionCount: 4}
}
