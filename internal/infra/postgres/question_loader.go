package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-service/internal/domain"
)

const questionColumns = `id, category, difficulty, correct_option_index, jsonb_array_length(options)`

// QuestionLoader loads question metadata from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestion(ctx context.Context, questionID string) (domain.QuestionMeta, error) {
	row := l.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, questionID)
	q, err := scanQuestion(row)
	if err != nil {
		return domain.QuestionMeta{}, fmt.Errorf("load question %s: %w", questionID, err)
	}
	return q, nil
}

// RandomQuestion picks any question in the category.
func (l *QuestionLoader) RandomQuestion(ctx context.Context, category domain.Category) (domain.QuestionMeta, error) {
	row := l.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE category=$1 ORDER BY random() LIMIT 1`,
		string(category))
	q, err := scanQuestion(row)
	if err != nil {
		return domain.QuestionMeta{}, fmt.Errorf("random question in %s: %w", category, err)
	}
	return q, nil
}

func scanQuestion(row pgx.Row) (domain.QuestionMeta, error) {
	var (
		q        domain.QuestionMeta
		category string
	)
	err := row.Scan(&q.ID, &category, &q.Difficulty, &q.CorrectOptionIndex, &q.OptionCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionMeta{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.QuestionMeta{}, err
	}
	q.Category = domain.Category(category)
	return q, nil
}
