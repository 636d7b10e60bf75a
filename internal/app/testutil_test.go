package app_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
)

var prizeStart = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSchedule() *app.RoundSchedule {
	return app.NewRoundSchedule(time.UTC, []app.DailyWindow{{Offset: 9 * time.Hour, Length: time.Hour}})
}

func testQuestions() *memory.QuestionRepository {
	return memory.NewQuestionRepository(memory.NewStaticQuestionLoader([]domain.QuestionMeta{
		{ID: "sports-1", Category: "SPORTS", Difficulty: 2, CorrectOptionIndex: 1, OptionCount: 4},
		{ID: "general-1", Category: "GENERAL", Difficulty: 1, CorrectOptionIndex: 0, OptionCount: 3},
	}), time.Minute)
}

type fixture struct {
	users    *memory.UserStore
	attempts *memory.AttemptStore
	board    *memory.Leaderboard
	hub      *app.Hub
	now      time.Time
	service  *app.AnswerService
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		users:    memory.NewUserStore(),
		attempts: memory.NewAttemptStore(),
		board:    memory.NewLeaderboard(),
		hub:      app.NewHub(),
		now:      now,
	}
	f.service = app.NewAnswerService(app.AnswerDeps{
		Users:       f.users,
		Questions:   testQuestions(),
		Attempts:    f.attempts,
		Leaderboard: f.board,
		Notifier:    f.hub,
		Schedule:    testSchedule(),
		Now:         func() time.Time { return f.now },
		Log:         quietLogger(),
	})
	return f
}

func (f *fixture) seed(user domain.UserScoringState) {
	if _, err := f.users.SaveUser(context.Background(), user); err != nil {
		panic(err)
	}
}

// conflictingUsers fails the first n saves with a version conflict.
type conflictingUsers struct {
	*memory.UserStore
	remaining int
	saves     int
}

func (c *conflictingUsers) SaveUser(ctx context.Context, user domain.UserScoringState) (domain.UserScoringState, error) {
	c.saves++
	if c.remaining > 0 {
		c.remaining--
		return domain.UserScoringState{}, domain.ErrVersionConflict
	}
	return c.UserStore.SaveUser(ctx, user)
}
