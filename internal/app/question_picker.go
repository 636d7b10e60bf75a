package app

import (
	"context"
	"errors"

	"trivia-service/internal/domain"
	"trivia-service/internal/game"
)

// QuestionPicker serves the next question, favoring themed categories.
type QuestionPicker struct {
	questions QuestionRepository
	selector  *game.Selector
	weights   []game.CategoryWeight
}

func NewQuestionPicker(questions QuestionRepository, engine *game.Engine, selector *game.Selector, categories []domain.Category) *QuestionPicker {
	if selector == nil {
		selector = game.NewSelector(nil)
	}
	return &QuestionPicker{
		questions: questions,
		selector:  selector,
		weights:   engine.CategoryWeights(categories),
	}
}

// Next draws categories in weighted order until one yields a question.
func (p *QuestionPicker) Next(ctx context.Context) (domain.QuestionMeta, error) {
	for _, category := range game.DrawOrder(p.selector, p.weights) {
		q, err := p.questions.RandomQuestion(ctx, category)
		if errors.Is(err, domain.ErrQuestionNotFound) {
			continue
		}
		if err != nil {
			return domain.QuestionMeta{}, err
		}
		return q, nil
	}
	return domain.QuestionMeta{}, domain.ErrNoQuestions
}
