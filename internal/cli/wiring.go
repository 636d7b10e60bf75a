package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"trivia-service/internal/app"
	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/game"
	"trivia-service/internal/infra/memory"
	pgstore "trivia-service/internal/infra/postgres"
	redisstore "trivia-service/internal/infra/redis"
)

// components is the object graph shared by every subcommand.
type components struct {
	log      *slog.Logger
	hub      *app.Hub
	schedule *app.RoundSchedule
	board    app.Leaderboard
	answers  *app.AnswerService
	rounds   *app.RoundService
	picker   *app.QuestionPicker
	durable  bool
	closers  []func()
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func buildComponents(ctx context.Context, cfg config.Config, logger *slog.Logger) (*components, error) {
	c := &components{log: logger, hub: app.NewHub()}

	schedule, err := buildSchedule(cfg.Rounds)
	if err != nil {
		return nil, err
	}
	c.schedule = schedule

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		c.closers = append(c.closers, func() { _ = redisClient.Close() })
	}
	ledgerTTL := config.TTLDuration(cfg.Redis.TTL, 0)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, pool.Close)
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	var attempts app.AttemptRepository = memory.NewAttemptStore()
	if pool != nil {
		loader = pgstore.NewQuestionLoader(pool)
		attempts = pgstore.NewAttemptStore(pool)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var (
		questions app.QuestionRepository
		users     app.UserRepository
		ledger    app.SettlementLedger
	)
	if redisClient != nil {
		questions = redisstore.NewQuestionRepository(redisClient, loader, questionTTL)
		users = redisstore.NewUserStore(redisClient)
		c.board = redisstore.NewLeaderboard(redisClient)
		ledger = redisstore.NewSettlementLedger(redisClient, ledgerTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
		users = memory.NewUserStore()
		c.board = memory.NewLeaderboard()
		ledger = memory.NewSettlementLedger()
	}
	c.durable = redisClient != nil && pool != nil

	engine := game.NewEngine(cfg.Scoring.Rules())
	selector := game.NewSelector(nil)
	notifier := app.MultiNotifier{c.hub, app.LogNotifier{Log: logger}}

	c.answers = app.NewAnswerService(app.AnswerDeps{
		Users:       users,
		Questions:   questions,
		Attempts:    attempts,
		Leaderboard: c.board,
		Notifier:    notifier,
		Engine:      engine,
		Schedule:    schedule,
		Log:         logger,
	})
	c.rounds = app.NewRoundService(attempts, users, ledger, notifier, selector, app.RoundConfig{
		TopN:          cfg.Rounds.TopN,
		Prizes:        cfg.Rounds.Prizes,
		DrawMinStreak: cfg.Draw.MinStreak,
		DrawWinners:   cfg.Draw.Winners,
	}, logger).WithLeaderboard(c.board)
	c.picker = app.NewQuestionPicker(questions, engine, selector, cfg.Scoring.AllCategories())
	return c, nil
}

func buildSchedule(rounds config.Rounds) (*app.RoundSchedule, error) {
	loc, err := time.LoadLocation(rounds.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", rounds.Timezone, err)
	}
	windows := make([]app.DailyWindow, 0, len(rounds.Windows))
	for _, w := range rounds.Windows {
		dw, err := app.ParseDailyWindow(w.Start, w.Duration)
		if err != nil {
			return nil, err
		}
		windows = append(windows, dw)
	}
	return app.NewRoundSchedule(loc, windows), nil
}

// sampleQuestions seeds the in-memory loader when Postgres is not configured.
func sampleQuestions() []domain.QuestionMeta {
	return []domain.QuestionMeta{
		{ID: "culture-1", Category: "CULTURE", Difficulty: 1, CorrectOptionIndex: 2, OptionCount: 4},
		{ID: "sports-1", Category: "SPORTS", Difficulty: 2, CorrectOptionIndex: 0, OptionCount: 4},
		{ID: "food-1", Category: "FOOD", Difficulty: 1, CorrectOptionIndex: 1, OptionCount: 3},
		{ID: "general-1", Category: "GENERAL", Difficulty: 1, CorrectOptionIndex: 3, OptionCount: 4},
		{ID: "science-1", Category: "SCIENCE", Difficulty: 3, CorrectOptionIndex: 1, OptionCount: 4},
	}
}
