package app

import (
	"context"
	"time"

	"trivia-service/internal/domain"
)

// UserRepository persists user scoring state (in-memory, Redis, etc).
type UserRepository interface {
	// GetUser returns domain.ErrUserNotFound for unknown ids.
	GetUser(ctx context.Context, id string) (domain.UserScoringState, error)
	// SaveUser stores user only if the stored version still equals user.Version
	// (0 = must not exist yet) and returns the record with its bumped version.
	// A lost race yields domain.ErrVersionConflict.
	SaveUser(ctx context.Context, user domain.UserScoringState) (domain.UserScoringState, error)
	// ListByMinStreak returns users whose streak is at least minStreak.
	ListByMinStreak(ctx context.Context, minStreak int) ([]domain.UserScoringState, error)
}

// AttemptRepository stores immutable answer attempts.
type AttemptRepository interface {
	CreateAttempt(ctx context.Context, attempt domain.AnswerAttempt) error
	// ListAttempts returns attempts with attemptedAt in [start, end).
	ListAttempts(ctx context.Context, start, end time.Time) ([]domain.AnswerAttempt, error)
}

// QuestionRepository loads question metadata (from cache/backing store).
type QuestionRepository interface {
	GetQuestion(ctx context.Context, questionID string) (domain.QuestionMeta, error)
	// RandomQuestion returns domain.ErrQuestionNotFound when the category is empty.
	RandomQuestion(ctx context.Context, category domain.Category) (domain.QuestionMeta, error)
}

// Leaderboard tracks weekly points for ordering.
type Leaderboard interface {
	AddPoints(ctx context.Context, userID string, points int) error
	// Top returns entries ordered by weekly points with Rank filled in.
	Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	// Archive moves the current standings under label and starts an empty board.
	Archive(ctx context.Context, label string) error
}

// SettlementLedger remembers which payouts already ran.
type SettlementLedger interface {
	// MarkSettled returns true the first time key is marked.
	MarkSettled(ctx context.Context, key string) (bool, error)
}

// Notifier is the outbound sink for events; it must not block.
type Notifier interface {
	Publish(ctx context.Context, event domain.Event)
}
