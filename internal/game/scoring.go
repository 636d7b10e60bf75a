package game

import (
	"math"
	"strings"

	"trivia-service/internal/domain"
)

const (
	categoryMultiplier     = 1.2
	fastSpeedMultiplier    = 1.5
	mediumSpeedMultiplier  = 1.2
	longStreakMultiplier   = 1.3
	weekStreakMultiplier   = 1.1
	subscriptionMultiplier = 1.25

	fastAnswerSeconds   = 10.0
	mediumAnswerSeconds = 20.0
	longStreakDays      = 30
	weekStreakDays      = 7
)

// ModeBase holds base points for a correct answer per round mode.
type ModeBase struct {
	Continuous int `yaml:"continuous"`
	Prize      int `yaml:"prize"`
}

// BaseTable holds base points per subscription status.
type BaseTable struct {
	Free       ModeBase `yaml:"free"`
	Subscriber ModeBase `yaml:"subscriber"`
}

// Rules is the scoring rule set used by Engine.
type Rules struct {
	Base                    BaseTable
	SecondAttemptMultiplier float64
	ThemedCategories        []domain.Category
}

// DefaultRules returns the canonical constants: 8/10 for free players, 8/15 for subscribers.
func DefaultRules() Rules {
	return Rules{
		Base: BaseTable{
			Free:       ModeBase{Continuous: 8, Prize: 10},
			Subscriber: ModeBase{Continuous: 8, Prize: 15},
		},
		SecondAttemptMultiplier: 0.8,
		ThemedCategories:        DefaultThemedCategories(),
	}
}

// DefaultThemedCategories lists the Ghana-themed categories that earn the category bonus.
func DefaultThemedCategories() []domain.Category {
	return []domain.Category{
		"CULTURE", "SPORTS", "MUSIC", "HISTORY", "POLITICS",
		"GEOGRAPHY", "FOOD", "ENTERTAINMENT", "LANGUAGE", "CURRENT_AFFAIRS",
	}
}

// Engine computes points for answers. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	base          BaseTable
	secondAttempt float64
	themed        map[domain.Category]struct{}
}

// NewEngine builds an engine from rules.
func NewEngine(rules Rules) *Engine {
	themed := make(map[domain.Category]struct{}, len(rules.ThemedCategories))
	for _, c := range rules.ThemedCategories {
		themed[normalizeCategory(c)] = struct{}{}
	}
	second := rules.SecondAttemptMultiplier
	if second <= 0 || math.IsNaN(second) || math.IsInf(second, 0) {
		second = 1
	}
	return &Engine{base: rules.Base, secondAttempt: second, themed: themed}
}

// IsThemed reports whether the category earns the themed bonus.
func (e *Engine) IsThemed(c domain.Category) bool {
	_, ok := e.themed[normalizeCategory(c)]
	return ok
}

// BasePoints returns the base constant for a subscription status and mode.
// Unknown statuses use the free table.
func (e *Engine) BasePoints(status domain.SubscriptionStatus, isPrizeRound bool) int {
	table := e.base.Free
	if status == domain.SubscriptionSubscriber {
		table = e.base.Subscriber
	}
	if isPrizeRound {
		return table.Prize
	}
	return table.Continuous
}

// CalculatePoints scores one answer. Every multiplicative stage is rounded to
// the nearest integer (half away from zero) before the next stage runs, and the
// breakdown records the integer delta each stage added.
func (e *Engine) CalculatePoints(user domain.UserScoringState, question domain.QuestionMeta, isCorrect bool, responseTimeSeconds float64, attemptNumber int, isPrizeRound bool) domain.PointResult {
	pointType := domain.PointTypeAP
	if isPrizeRound {
		pointType = domain.PointTypePP
	}
	if !isCorrect {
		return domain.PointResult{PointType: pointType}
	}

	points := e.BasePoints(user.SubscriptionStatus, isPrizeRound)
	if isPrizeRound && attemptNumber == 2 && user.IsSubscriber() {
		points = applyMultiplier(points, e.secondAttempt)
	}

	var b domain.Breakdown
	b.Base = points

	if e.IsThemed(question.Category) {
		next := applyMultiplier(points, categoryMultiplier)
		b.CategoryBonus = next - points
		points = next
	}

	next := applyMultiplier(points, SpeedMultiplier(responseTimeSeconds))
	b.SpeedBonus = next - points
	points = next

	next = applyMultiplier(points, StreakMultiplier(user.Streak))
	b.StreakBonus = next - points
	points = next

	if user.IsSubscriber() {
		next = applyMultiplier(points, subscriptionMultiplier)
		b.SubscriptionBonus = next - points
		points = next
	}

	if points < 0 {
		points = 0
	}

	result := domain.PointResult{Total: points, PointType: pointType, Breakdown: b}
	if isPrizeRound {
		result.PP = points
	} else {
		result.AP = points
	}
	return result
}

// SpeedMultiplier maps response latency to the speed factor. Negative or
// non-finite latencies get no bonus.
func SpeedMultiplier(responseTimeSeconds float64) float64 {
	switch {
	case responseTimeSeconds < 0 || math.IsNaN(responseTimeSeconds):
		return 1
	case responseTimeSeconds < fastAnswerSeconds:
		return fastSpeedMultiplier
	case responseTimeSeconds < mediumAnswerSeconds:
		return mediumSpeedMultiplier
	default:
		return 1
	}
}

// StreakMultiplier maps a streak to its factor; the higher threshold wins.
func StreakMultiplier(streak int) float64 {
	switch {
	case streak >= longStreakDays:
		return longStreakMultiplier
	case streak >= weekStreakDays:
		return weekStreakMultiplier
	default:
		return 1
	}
}

func applyMultiplier(points int, factor float64) int {
	return int(math.Round(float64(points) * factor))
}

func normalizeCategory(c domain.Category) domain.Category {
	return domain.Category(strings.ToUpper(strings.TrimSpace(string(c))))
}
