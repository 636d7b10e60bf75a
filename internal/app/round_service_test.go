package app_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
	"trivia-service/internal/game"
	"trivia-service/internal/infra/memory"
)

func newRoundService(t *testing.T, users *memory.UserStore, attempts *memory.AttemptStore, notifier app.Notifier) *app.RoundService {
	t.Helper()
	cfg := app.RoundConfig{TopN: 3, Prizes: []int{1000, 750, 500}, DrawMinStreak: 7, DrawWinners: 5}
	return app.NewRoundService(attempts, users, memory.NewSettlementLedger(), notifier,
		game.NewSelector(rand.NewSource(1)), cfg, quietLogger())
}

func recordAttempt(t *testing.T, store *memory.AttemptStore, user string, at time.Time, correct bool, points int) {
	t.Helper()
	require.NoError(t, store.CreateAttempt(context.Background(), domain.AnswerAttempt{
		ID:            user + at.Format(time.RFC3339Nano),
		UserID:        user,
		IsCorrect:     correct,
		PointsAwarded: points,
		PointType:     domain.PointTypePP,
		AttemptedAt:   at,
	}))
}

func TestSettle_PaysPrizesOnce(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	attempts := memory.NewAttemptStore()
	hub := app.NewHub()
	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := users.SaveUser(ctx, domain.UserScoringState{TelegramID: id, PP: 5})
		require.NoError(t, err)
	}
	window := domain.RoundWindow{Start: prizeStart, End: prizeStart.Add(time.Hour)}
	recordAttempt(t, attempts, "a", prizeStart.Add(time.Minute), true, 30)
	recordAttempt(t, attempts, "b", prizeStart.Add(2*time.Minute), true, 50)
	recordAttempt(t, attempts, "c", prizeStart.Add(3*time.Minute), true, 20)
	recordAttempt(t, attempts, "d", prizeStart.Add(4*time.Minute), true, 10)
	recordAttempt(t, attempts, "d", window.End, true, 500)

	events, cancel := hub.Subscribe()
	defer cancel()

	svc := newRoundService(t, users, attempts, hub)
	settlement, err := svc.Settle(ctx, window)
	require.NoError(t, err)
	require.Len(t, settlement.Winners, 3)
	assert.Equal(t, "b", settlement.Winners[0].UserID)
	assert.Equal(t, 1000, settlement.Winners[0].PrizePoints)
	assert.Equal(t, "a", settlement.Winners[1].UserID)
	assert.Equal(t, "c", settlement.Winners[2].UserID)
	assert.Equal(t, 500, settlement.Winners[2].PrizePoints)

	b, err := users.GetUser(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1005, b.PP)
	d, err := users.GetUser(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 5, d.PP)

	select {
	case ev := <-events:
		assert.Equal(t, domain.EventRoundSettled, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected settlement event")
	}

	_, err = svc.Settle(ctx, window)
	assert.ErrorIs(t, err, domain.ErrRoundAlreadySettled)
	b, _ = users.GetUser(ctx, "b")
	assert.Equal(t, 1005, b.PP)
}

func TestPreview_DoesNotPay(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	attempts := memory.NewAttemptStore()
	_, err := users.SaveUser(ctx, domain.UserScoringState{TelegramID: "a"})
	require.NoError(t, err)
	recordAttempt(t, attempts, "a", prizeStart.Add(time.Minute), true, 30)

	svc := newRoundService(t, users, attempts, nil)
	window := domain.RoundWindow{Start: prizeStart, End: prizeStart.Add(time.Hour)}
	for i := 0; i < 2; i++ {
		ranked, err := svc.Preview(ctx, window)
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, 30, ranked[0].RoundPoints)
	}
	a, _ := users.GetUser(ctx, "a")
	assert.Equal(t, 0, a.PP)

	_, err = svc.Settle(ctx, window)
	require.NoError(t, err)
}

func TestRunStreakDraw_OncePerWeek(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	for id, streak := range map[string]int{"short": 3, "week": 8, "month": 40} {
		_, err := users.SaveUser(ctx, domain.UserScoringState{TelegramID: id, Streak: streak})
		require.NoError(t, err)
	}
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	svc := newRoundService(t, users, memory.NewAttemptStore(), nil).WithClock(func() time.Time { return now })

	result, err := svc.RunStreakDraw(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Entries)
	require.Len(t, result.Winners, 2)
	ids := []string{result.Winners[0].UserID, result.Winners[1].UserID}
	assert.ElementsMatch(t, []string{"week", "month"}, ids)

	now = now.Add(48 * time.Hour)
	_, err = svc.RunStreakDraw(ctx)
	assert.ErrorIs(t, err, app.ErrDrawAlreadyRun)

	now = now.Add(7 * 24 * time.Hour)
	_, err = svc.RunStreakDraw(ctx)
	assert.NoError(t, err)
}

func TestRunStreakDraw_NoEntries(t *testing.T) {
	svc := newRoundService(t, memory.NewUserStore(), memory.NewAttemptStore(), nil)
	result, err := svc.RunStreakDraw(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Entries)
	assert.Empty(t, result.Winners)
}

var errStoreDown = errors.New("store unavailable")

// flakyAttempts fails the next failures ListAttempts calls.
type flakyAttempts struct {
	*memory.AttemptStore
	failures int
}

func (f *flakyAttempts) ListAttempts(ctx context.Context, start, end time.Time) ([]domain.AnswerAttempt, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errStoreDown
	}
	return f.AttemptStore.ListAttempts(ctx, start, end)
}

// flakyUsers fails the next failures ListByMinStreak calls.
type flakyUsers struct {
	*memory.UserStore
	failures int
}

func (f *flakyUsers) ListByMinStreak(ctx context.Context, minStreak int) ([]domain.UserScoringState, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errStoreDown
	}
	return f.UserStore.ListByMinStreak(ctx, minStreak)
}

func TestSettle_FailedReadCanBeRetried(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	attempts := &flakyAttempts{AttemptStore: memory.NewAttemptStore(), failures: 1}
	window := domain.RoundWindow{Start: prizeStart, End: prizeStart.Add(time.Hour)}
	recordAttempt(t, attempts.AttemptStore, "a", prizeStart.Add(time.Minute), true, 30)

	cfg := app.RoundConfig{TopN: 3, Prizes: []int{1000}}
	svc := app.NewRoundService(attempts, users, memory.NewSettlementLedger(), nil, nil, cfg, quietLogger())

	_, err := svc.Settle(ctx, window)
	require.ErrorIs(t, err, errStoreDown)

	settlement, err := svc.Settle(ctx, window)
	require.NoError(t, err)
	require.Len(t, settlement.Winners, 1)
	a, err := users.GetUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1000, a.PP)

	_, err = svc.Settle(ctx, window)
	assert.ErrorIs(t, err, domain.ErrRoundAlreadySettled)
}

func TestRunStreakDraw_FailedReadCanBeRetried(t *testing.T) {
	ctx := context.Background()
	users := &flakyUsers{UserStore: memory.NewUserStore(), failures: 1}
	_, err := users.SaveUser(ctx, domain.UserScoringState{TelegramID: "week", Streak: 9})
	require.NoError(t, err)

	cfg := app.RoundConfig{DrawMinStreak: 7, DrawWinners: 1}
	svc := app.NewRoundService(memory.NewAttemptStore(), users, memory.NewSettlementLedger(), nil,
		game.NewSelector(rand.NewSource(1)), cfg, quietLogger())

	_, err = svc.RunStreakDraw(ctx)
	require.ErrorIs(t, err, errStoreDown)

	result, err := svc.RunStreakDraw(ctx)
	require.NoError(t, err)
	require.Len(t, result.Winners, 1)
	assert.Equal(t, "week", result.Winners[0].UserID)
}

func TestResetWeek_ArchivesBoardAndClearsPoints(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	board := memory.NewLeaderboard()
	hub := app.NewHub()
	for id, points := range map[string]int{"gold": 1600, "silver": 150, "idle": 0} {
		_, err := users.SaveUser(ctx, domain.UserScoringState{TelegramID: id, WeeklyPoints: points, Streak: 4})
		require.NoError(t, err)
		if points > 0 {
			require.NoError(t, board.AddPoints(ctx, id, points))
		}
	}

	events, cancel := hub.Subscribe()
	defer cancel()

	// Monday of 2024-W48 closes 2024-W47.
	now := time.Date(2024, 11, 25, 0, 5, 0, 0, time.UTC)
	svc := newRoundService(t, users, memory.NewAttemptStore(), hub).
		WithLeaderboard(board).
		WithClock(func() time.Time { return now })

	result, err := svc.ResetWeek(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-W47", result.Week)
	assert.Equal(t, 2, result.UsersReset)
	require.Len(t, result.Standings, 2)
	assert.Equal(t, "gold", result.Standings[0].UserID)

	for _, id := range []string{"gold", "silver", "idle"} {
		u, err := users.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, u.WeeklyPoints, id)
		assert.Equal(t, 4, u.Streak, id)
	}
	top, err := board.Top(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, top)
	assert.Equal(t, map[string]int{"gold": 1600, "silver": 150}, board.Archived("2024-W47"))

	select {
	case ev := <-events:
		assert.Equal(t, domain.EventWeekReset, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected week reset event")
	}

	now = now.Add(72 * time.Hour)
	_, err = svc.ResetWeek(ctx)
	assert.ErrorIs(t, err, app.ErrWeekAlreadyReset)
}

func TestResetWeek_FailedReadCanBeRetried(t *testing.T) {
	ctx := context.Background()
	users := &flakyUsers{UserStore: memory.NewUserStore(), failures: 1}
	_, err := users.SaveUser(ctx, domain.UserScoringState{TelegramID: "u1", WeeklyPoints: 40})
	require.NoError(t, err)

	svc := app.NewRoundService(memory.NewAttemptStore(), users, memory.NewSettlementLedger(), nil, nil, app.RoundConfig{}, quietLogger())

	_, err = svc.ResetWeek(ctx)
	require.ErrorIs(t, err, errStoreDown)

	result, err := svc.ResetWeek(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.UsersReset)
}
