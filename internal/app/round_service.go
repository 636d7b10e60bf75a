package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trivia-service/internal/domain"
	"trivia-service/internal/game"
)

var (
	// ErrDrawAlreadyRun is returned when the weekly streak draw already happened.
	ErrDrawAlreadyRun = errors.New("streak draw already run this week")
	// ErrWeekAlreadyReset is returned when the previous week was already closed.
	ErrWeekAlreadyReset = errors.New("week already reset")
)

// weeklyHistorySize is how many standings a week reset reports.
const weeklyHistorySize = 10

// RoundConfig holds payout settings.
type RoundConfig struct {
	TopN          int
	Prizes        []int
	DrawMinStreak int
	DrawWinners   int
}

// RoundService settles prize windows and runs streak draws.
type RoundService struct {
	attempts AttemptRepository
	users    UserRepository
	ledger   SettlementLedger
	board    Leaderboard
	notifier Notifier
	selector *game.Selector
	cfg      RoundConfig
	now      func() time.Time
	log      *slog.Logger
}

func NewRoundService(attempts AttemptRepository, users UserRepository, ledger SettlementLedger, notifier Notifier, selector *game.Selector, cfg RoundConfig, log *slog.Logger) *RoundService {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	if selector == nil {
		selector = game.NewSelector(nil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &RoundService{
		attempts: attempts,
		users:    users,
		ledger:   ledger,
		notifier: notifier,
		selector: selector,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// WithLeaderboard lets ResetWeek archive the weekly board.
func (s *RoundService) WithLeaderboard(board Leaderboard) *RoundService {
	s.board = board
	return s
}

// WithClock swaps the clock, for deterministic tests.
func (s *RoundService) WithClock(now func() time.Time) *RoundService {
	s.now = now
	return s
}

// Preview ranks a window without paying anyone. It is safe to call repeatedly.
func (s *RoundService) Preview(ctx context.Context, window domain.RoundWindow) ([]domain.RankedResult, error) {
	attempts, err := s.attempts.ListAttempts(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return game.Aggregate(attempts, window.Start, window.End, s.cfg.TopN), nil
}

// Settle pays the prize table to the window's top performers once. The ranking
// is computed before the window is marked, so a failed read can be retried;
// once marked, a failure part-way never pays a winner twice.
func (s *RoundService) Settle(ctx context.Context, window domain.RoundWindow) (domain.RoundSettlement, error) {
	ranked, err := s.Preview(ctx, window)
	if err != nil {
		return domain.RoundSettlement{}, err
	}

	first, err := s.ledger.MarkSettled(ctx, "round:"+window.Key())
	if err != nil {
		return domain.RoundSettlement{}, fmt.Errorf("mark round settled: %w", err)
	}
	if !first {
		return domain.RoundSettlement{}, domain.ErrRoundAlreadySettled
	}
	s.log.InfoContext(ctx, "settling round", "start", window.Start, "end", window.End, "ranked", len(ranked))

	settlement := domain.RoundSettlement{Window: window, Winners: make([]domain.PrizeAward, 0, len(ranked))}
	for i, r := range ranked {
		prize := 0
		if i < len(s.cfg.Prizes) {
			prize = s.cfg.Prizes[i]
		}
		if prize > 0 {
			if err := s.creditPrize(ctx, r.UserID, prize); err != nil {
				s.log.ErrorContext(ctx, "prize credit failed", "user", r.UserID, "rank", r.Rank, "err", err)
				continue
			}
		}
		settlement.Winners = append(settlement.Winners, domain.PrizeAward{RankedResult: r, PrizePoints: prize})
	}

	s.notifier.Publish(ctx, domain.Event{Type: domain.EventRoundSettled, Payload: settlement, At: s.now()})
	return settlement, nil
}

func (s *RoundService) creditPrize(ctx context.Context, userID string, prize int) error {
	var err error
	for try := 0; try < maxSaveRetries; try++ {
		var user domain.UserScoringState
		user, err = s.users.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		user.PP += prize
		if _, err = s.users.SaveUser(ctx, user); !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
	}
	return err
}

// RunStreakDraw picks DrawWinners users among those with at least
// DrawMinStreak days, weighted by streak length, once per ISO week.
func (s *RoundService) RunStreakDraw(ctx context.Context) (domain.DrawResult, error) {
	now := s.now()
	users, err := s.users.ListByMinStreak(ctx, s.cfg.DrawMinStreak)
	if err != nil {
		return domain.DrawResult{}, fmt.Errorf("list draw entries: %w", err)
	}

	first, err := s.ledger.MarkSettled(ctx, "draw:"+isoWeek(now))
	if err != nil {
		return domain.DrawResult{}, fmt.Errorf("mark draw: %w", err)
	}
	if !first {
		return domain.DrawResult{}, ErrDrawAlreadyRun
	}

	entries := make([]domain.DrawEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, domain.DrawEntry{UserID: u.TelegramID, Streak: u.Streak})
	}

	result := domain.DrawResult{
		DrawnAt: now,
		Entries: len(entries),
		Winners: game.SelectWeighted(s.selector, entries, s.cfg.DrawWinners),
	}
	s.log.InfoContext(ctx, "streak draw completed", "entries", result.Entries, "winners", len(result.Winners))
	s.notifier.Publish(ctx, domain.Event{Type: domain.EventDrawCompleted, Payload: result, At: now})
	return result, nil
}

// ResetWeek closes the ISO week before now: the weekly board is archived under
// that week's label and every user's weekly points go back to zero. Each week
// is closed once.
func (s *RoundService) ResetWeek(ctx context.Context) (domain.WeeklyReset, error) {
	now := s.now()
	week := isoWeek(now.AddDate(0, 0, -7))

	var standings []domain.LeaderboardEntry
	if s.board != nil {
		top, err := Standings(ctx, s.board, weeklyHistorySize)
		if err != nil {
			return domain.WeeklyReset{}, fmt.Errorf("read weekly board: %w", err)
		}
		standings = top
	}
	// Every saved user carries a streak >= 0, so this lists them all.
	users, err := s.users.ListByMinStreak(ctx, 0)
	if err != nil {
		return domain.WeeklyReset{}, fmt.Errorf("list users: %w", err)
	}

	first, err := s.ledger.MarkSettled(ctx, "week:"+week)
	if err != nil {
		return domain.WeeklyReset{}, fmt.Errorf("mark week reset: %w", err)
	}
	if !first {
		return domain.WeeklyReset{}, ErrWeekAlreadyReset
	}

	if s.board != nil {
		if err := s.board.Archive(ctx, week); err != nil {
			return domain.WeeklyReset{}, fmt.Errorf("archive weekly board: %w", err)
		}
	}

	result := domain.WeeklyReset{Week: week, ResetAt: now, Standings: standings}
	for _, u := range users {
		if u.WeeklyPoints == 0 {
			continue
		}
		if err := s.clearWeeklyPoints(ctx, u.TelegramID); err != nil {
			s.log.ErrorContext(ctx, "weekly reset failed for user", "user", u.TelegramID, "err", err)
			continue
		}
		result.UsersReset++
	}

	s.log.InfoContext(ctx, "week reset", "week", week, "users", result.UsersReset)
	s.notifier.Publish(ctx, domain.Event{Type: domain.EventWeekReset, Payload: result, At: now})
	return result, nil
}

func (s *RoundService) clearWeeklyPoints(ctx context.Context, userID string) error {
	var err error
	for try := 0; try < maxSaveRetries; try++ {
		var user domain.UserScoringState
		user, err = s.users.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		user.WeeklyPoints = 0
		if _, err = s.users.SaveUser(ctx, user); !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
	}
	return err
}

func isoWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
