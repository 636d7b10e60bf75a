package domain

import "time"

// SubscriptionStatus is the billing state of a player.
type SubscriptionStatus string

const (
	SubscriptionFree       SubscriptionStatus = "free"
	SubscriptionSubscriber SubscriptionStatus = "subscriber"
)

// PointType selects which balance an answer credits.
type PointType string

const (
	PointTypeAP PointType = "ap"
	PointTypePP PointType = "pp"
)

// Category is a question category. Unknown values simply receive no bonus.
type Category string

// UserScoringState is the part of a user record the scoring core reads and writes.
type UserScoringState struct {
	TelegramID         string             `json:"telegramId"`
	AP                 int                `json:"ap"`
	PP                 int                `json:"pp"`
	WeeklyPoints       int                `json:"weeklyPoints"`
	Streak             int                `json:"streak"`
	LastPlayedDate     *time.Time         `json:"lastPlayedDate,omitempty"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	// Version is bumped on every successful write; 0 means the record does not exist yet.
	Version int64 `json:"version"`
}

// IsSubscriber reports whether subscriber bonuses apply.
func (u UserScoringState) IsSubscriber() bool {
	return u.SubscriptionStatus == SubscriptionSubscriber
}

// QuestionMeta is the question data relevant to scoring.
type QuestionMeta struct {
	ID                 string   `json:"id"`
	Category           Category `json:"category"`
	Difficulty         int      `json:"difficulty"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	OptionCount        int      `json:"optionCount"`
}

// AnswerAttempt is written once per submitted answer and never mutated.
type AnswerAttempt struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"userId"`
	QuestionID          string    `json:"questionId"`
	SelectedOption      int       `json:"selectedOption"`
	IsCorrect           bool      `json:"isCorrect"`
	ResponseTimeSeconds float64   `json:"responseTimeSeconds"`
	PointsAwarded       int       `json:"pointsAwarded"`
	PointType           PointType `json:"pointType"`
	AttemptNumber       int       `json:"attemptNumber"`
	AttemptedAt         time.Time `json:"attemptedAt"`
}

// Breakdown exposes how each stage contributed to the awarded points. It is
// presentational; Total on PointResult is authoritative.
type Breakdown struct {
	Base              int `json:"base"`
	CategoryBonus     int `json:"categoryBonus"`
	SpeedBonus        int `json:"speedBonus"`
	StreakBonus       int `json:"streakBonus"`
	SubscriptionBonus int `json:"subscriptionBonus"`
}

// PointResult is the outcome of scoring a single answer. Only one of AP and PP is non-zero.
type PointResult struct {
	Total     int       `json:"total"`
	AP        int       `json:"ap"`
	PP        int       `json:"pp"`
	PointType PointType `json:"pointType"`
	Breakdown Breakdown `json:"breakdown"`
}

// StreakResult is the next streak state.
type StreakResult struct {
	Streak       int       `json:"streak"`
	StreakBroken bool      `json:"streakBroken"`
	Today        time.Time `json:"today"`
	// Skewed is set when today precedes the last played date; the streak is left untouched.
	Skewed bool `json:"skewed,omitempty"`
}

// TierKey identifies a competitive tier.
type TierKey string

const (
	TierBronze  TierKey = "BRONZE"
	TierSilver  TierKey = "SILVER"
	TierGold    TierKey = "GOLD"
	TierDiamond TierKey = "DIAMOND"
	TierElite   TierKey = "ELITE"
)

// Tier is a band over weekly points. Max is -1 for the open-ended top band.
type Tier struct {
	Key  TierKey `json:"key"`
	Name string  `json:"name"`
	Min  int     `json:"min"`
	Max  int     `json:"max"`
}

// Contains reports whether points fall inside the band.
func (t Tier) Contains(points int) bool {
	if points < t.Min {
		return false
	}
	return t.Max < 0 || points <= t.Max
}

// RankedResult is one row of a settled round.
type RankedResult struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"userId"`
	RoundPoints   int    `json:"roundPoints"`
	CorrectCount  int    `json:"correctCount"`
	TotalAttempts int    `json:"totalAttempts"`
}

// RoundWindow is a half-open time interval [Start, End).
type RoundWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies in [Start, End).
func (w RoundWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Key is a stable identifier for ledgers.
func (w RoundWindow) Key() string {
	return w.Start.UTC().Format(time.RFC3339) + "/" + w.End.UTC().Format(time.RFC3339)
}

// LeaderboardEntry is a weekly leaderboard row.
type LeaderboardEntry struct {
	Rank         int     `json:"rank"`
	UserID       string  `json:"userId"`
	WeeklyPoints int     `json:"weeklyPoints"`
	Tier         TierKey `json:"tier"`
}

// AnswerSubmission is an inbound answer event.
type AnswerSubmission struct {
	UserID              string  `json:"userId"`
	QuestionID          string  `json:"questionId"`
	SelectedOption      int     `json:"selectedOption"`
	ResponseTimeSeconds float64 `json:"responseTimeSeconds"`
	AttemptNumber       int     `json:"attemptNumber"`
}

// AnswerOutcome summarizes a processed answer for the caller.
type AnswerOutcome struct {
	Attempt      AnswerAttempt    `json:"attempt"`
	Points       PointResult      `json:"points"`
	Streak       StreakResult     `json:"streak"`
	User         UserScoringState `json:"user"`
	Tier         Tier             `json:"tier"`
	TierUp       bool             `json:"tierUp"`
	IsPrizeRound bool             `json:"isPrizeRound"`
}

// TierChange is published when a user moves to a higher tier.
type TierChange struct {
	UserID   string `json:"userId"`
	Previous Tier   `json:"previous"`
	Current  Tier   `json:"current"`
}

// PrizeAward is a ranked winner paid at settlement.
type PrizeAward struct {
	RankedResult
	PrizePoints int `json:"prizePoints"`
}

// RoundSettlement is published once a prize window has been paid.
type RoundSettlement struct {
	Window  RoundWindow  `json:"window"`
	Winners []PrizeAward `json:"winners"`
}

// DrawEntry is a lottery ticket weighted by streak length.
type DrawEntry struct {
	UserID string `json:"userId"`
	Streak int    `json:"streak"`
}

// Weight implements game.Weighted.
func (e DrawEntry) Weight() float64 {
	return float64(e.Streak)
}

// DrawResult lists winners in draw order.
type DrawResult struct {
	DrawnAt time.Time   `json:"drawnAt"`
	Entries int         `json:"entries"`
	Winners []DrawEntry `json:"winners"`
}

// WeeklyReset reports the close of an ISO week, labelled like "2024-W47".
type WeeklyReset struct {
	Week       string             `json:"week"`
	ResetAt    time.Time          `json:"resetAt"`
	UsersReset int                `json:"usersReset"`
	Standings  []LeaderboardEntry `json:"standings"`
}

// EventType names the payloads pushed to subscribers.
type EventType string

const (
	EventTierUp        EventType = "tier_up"
	EventRoundSettled  EventType = "round_settled"
	EventDrawCompleted EventType = "draw_completed"
	EventWeekReset     EventType = "week_reset"
)

// Event is a notification for the outbound sink.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}
