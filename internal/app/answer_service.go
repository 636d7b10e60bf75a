package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trivia-service/internal/domain"
	"trivia-service/internal/game"
)

const maxSaveRetries = 3

// AnswerDeps wires the collaborators of AnswerService. Leaderboard and
// Notifier are optional.
type AnswerDeps struct {
	Users       UserRepository
	Questions   QuestionRepository
	Attempts    AttemptRepository
	Leaderboard Leaderboard
	Notifier    Notifier
	Engine      *game.Engine
	Schedule    *RoundSchedule
	Now         func() time.Time
	NewID       func() string
	Log         *slog.Logger
}

// AnswerService scores inbound answers and persists the results.
type AnswerService struct {
	users     UserRepository
	questions QuestionRepository
	attempts  AttemptRepository
	board     Leaderboard
	notifier  Notifier
	engine    *game.Engine
	schedule  *RoundSchedule
	now       func() time.Time
	newID     func() string
	log       *slog.Logger
}

func NewAnswerService(deps AnswerDeps) *AnswerService {
	s := &AnswerService{
		users:     deps.Users,
		questions: deps.Questions,
		attempts:  deps.Attempts,
		board:     deps.Leaderboard,
		notifier:  deps.Notifier,
		engine:    deps.Engine,
		schedule:  deps.Schedule,
		now:       deps.Now,
		newID:     deps.NewID,
		log:       deps.Log,
	}
	if s.notifier == nil {
		s.notifier = discardNotifier{}
	}
	if s.engine == nil {
		s.engine = game.NewEngine(game.DefaultRules())
	}
	if s.schedule == nil {
		s.schedule = NewRoundSchedule(time.UTC, nil)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// MaxAttempts is how many tries a user gets per question in the given mode.
func MaxAttempts(user domain.UserScoringState, isPrizeRound bool) int {
	if isPrizeRound && user.IsSubscriber() {
		return 2
	}
	return 1
}

// SubmitAnswer scores a submission, updates the user's streak and balances,
// and records the attempt. The streak is advanced before scoring so bonuses
// always see the post-update streak.
func (s *AnswerService) SubmitAnswer(ctx context.Context, sub domain.AnswerSubmission) (domain.AnswerOutcome, error) {
	question, err := s.questions.GetQuestion(ctx, sub.QuestionID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	if sub.SelectedOption < 0 || (question.OptionCount > 0 && sub.SelectedOption >= question.OptionCount) {
		return domain.AnswerOutcome{}, domain.ErrInvalidOption
	}

	attemptNumber := sub.AttemptNumber
	if attemptNumber < 1 {
		if attemptNumber < 0 {
			s.log.WarnContext(ctx, "attempt number out of range, treating as first", "user", sub.UserID, "attempt", attemptNumber)
		}
		attemptNumber = 1
	}
	if sub.ResponseTimeSeconds < 0 {
		s.log.WarnContext(ctx, "negative response time", "user", sub.UserID, "question", sub.QuestionID, "seconds", sub.ResponseTimeSeconds)
	}

	now := s.now()
	isPrize := s.schedule.IsPrizeRound(now)
	today := now.In(s.schedule.Location())
	isCorrect := sub.SelectedOption == question.CorrectOptionIndex

	var (
		before  domain.UserScoringState
		saved   domain.UserScoringState
		points  domain.PointResult
		streak  domain.StreakResult
		lastErr error
	)
	for try := 0; try < maxSaveRetries; try++ {
		before, err = s.loadUser(ctx, sub.UserID)
		if err != nil {
			return domain.AnswerOutcome{}, err
		}
		if attemptNumber > MaxAttempts(before, isPrize) {
			return domain.AnswerOutcome{}, domain.ErrAttemptNotAllowed
		}

		next := before
		streak = game.UpdateStreak(before.LastPlayedDate, today, before.Streak)
		if streak.Skewed {
			s.log.WarnContext(ctx, "answer dated before last play, streak untouched", "user", sub.UserID, "lastPlayed", before.LastPlayedDate)
		} else {
			day := streak.Today
			next.Streak = streak.Streak
			next.LastPlayedDate = &day
		}

		points = s.engine.CalculatePoints(next, question, isCorrect, sub.ResponseTimeSeconds, attemptNumber, isPrize)
		next.AP += points.AP
		next.PP += points.PP
		next.WeeklyPoints += points.Total

		saved, lastErr = s.users.SaveUser(ctx, next)
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, domain.ErrVersionConflict) {
			return domain.AnswerOutcome{}, fmt.Errorf("save user %s: %w", sub.UserID, lastErr)
		}
		s.log.DebugContext(ctx, "user write conflict, retrying", "user", sub.UserID, "try", try+1)
	}
	if lastErr != nil {
		return domain.AnswerOutcome{}, fmt.Errorf("save user %s: %w", sub.UserID, lastErr)
	}
	if streak.StreakBroken {
		s.log.InfoContext(ctx, "streak broken", "user", sub.UserID)
	}

	attempt := domain.AnswerAttempt{
		ID:                  s.newID(),
		UserID:              sub.UserID,
		QuestionID:          question.ID,
		SelectedOption:      sub.SelectedOption,
		IsCorrect:           isCorrect,
		ResponseTimeSeconds: sub.ResponseTimeSeconds,
		PointsAwarded:       points.Total,
		PointType:           points.PointType,
		AttemptNumber:       attemptNumber,
		AttemptedAt:         now,
	}
	// The user save above is the commit point; a failed insert keeps the credit.
	if err := s.attempts.CreateAttempt(ctx, attempt); err != nil {
		return domain.AnswerOutcome{}, fmt.Errorf("record attempt: %w", err)
	}

	if s.board != nil && points.Total > 0 {
		if err := s.board.AddPoints(ctx, sub.UserID, points.Total); err != nil {
			// The user record stays authoritative; the board catches up on the next answer.
			s.log.ErrorContext(ctx, "leaderboard update failed", "user", sub.UserID, "err", err)
		}
	}

	previousTier := game.Classify(before.WeeklyPoints)
	currentTier := game.Classify(saved.WeeklyPoints)
	tierUp := game.IsTierUp(previousTier, currentTier)
	if tierUp {
		s.notifier.Publish(ctx, domain.Event{
			Type:    domain.EventTierUp,
			Payload: domain.TierChange{UserID: sub.UserID, Previous: previousTier, Current: currentTier},
			At:      now,
		})
	}

	s.log.DebugContext(ctx, "answer scored",
		"user", sub.UserID, "question", question.ID, "correct", isCorrect,
		"points", points.Total, "type", points.PointType, "streak", saved.Streak)

	return domain.AnswerOutcome{
		Attempt:      attempt,
		Points:       points,
		Streak:       streak,
		User:         saved,
		Tier:         currentTier,
		TierUp:       tierUp,
		IsPrizeRound: isPrize,
	}, nil
}

func (s *AnswerService) loadUser(ctx context.Context, id string) (domain.UserScoringState, error) {
	user, err := s.users.GetUser(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.UserScoringState{TelegramID: id, SubscriptionStatus: domain.SubscriptionFree}, nil
	}
	if err != nil {
		return domain.UserScoringState{}, fmt.Errorf("load user %s: %w", id, err)
	}
	return user, nil
}
