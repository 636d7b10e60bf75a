package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-service/internal/domain"
)

// AttemptStore appends answer attempts to the answer_attempts table.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) CreateAttempt(ctx context.Context, a domain.AnswerAttempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO answer_attempts
			(id, user_id, question_id, selected_option, is_correct, response_time_seconds,
			 points_awarded, point_type, attempt_number, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.UserID, a.QuestionID, a.SelectedOption, a.IsCorrect, a.ResponseTimeSeconds,
		a.PointsAwarded, string(a.PointType), a.AttemptNumber, a.AttemptedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// ListAttempts returns attempts in [start, end) ordered by time.
func (s *AttemptStore) ListAttempts(ctx context.Context, start, end time.Time) ([]domain.AnswerAttempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, question_id, selected_option, is_correct, response_time_seconds,
		       points_awarded, point_type, attempt_number, attempted_at
		FROM answer_attempts
		WHERE attempted_at >= $1 AND attempted_at < $2
		ORDER BY attempted_at, id`,
		start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AnswerAttempt, 0)
	for rows.Next() {
		var (
			a         domain.AnswerAttempt
			pointType string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.SelectedOption, &a.IsCorrect,
			&a.ResponseTimeSeconds, &a.PointsAwarded, &pointType, &a.AttemptNumber, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.PointType = domain.PointType(pointType)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}
