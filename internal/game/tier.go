package game

import "trivia-service/internal/domain"

var tiers = []domain.Tier{
	{Key: domain.TierBronze, Name: "Bronze", Min: 0, Max: 99},
	{Key: domain.TierSilver, Name: "Silver", Min: 100, Max: 299},
	{Key: domain.TierGold, Name: "Gold", Min: 300, Max: 749},
	{Key: domain.TierDiamond, Name: "Diamond", Min: 750, Max: 1999},
	{Key: domain.TierElite, Name: "Elite Ghana Champion", Min: 2000, Max: -1},
}

// Tiers returns the tier bands in ascending order.
func Tiers() []domain.Tier {
	out := make([]domain.Tier, len(tiers))
	copy(out, tiers)
	return out
}

// Classify maps weekly points to a tier. Negative points classify as Bronze.
func Classify(weeklyPoints int) domain.Tier {
	for _, t := range tiers {
		if t.Contains(weeklyPoints) {
			return t
		}
	}
	return tiers[0]
}

// TierLevel is the ordinal of a tier key (Bronze=1 … Elite=5). Unknown keys rank as Bronze.
func TierLevel(key domain.TierKey) int {
	for i, t := range tiers {
		if t.Key == key {
			return i + 1
		}
	}
	return 1
}

// IsTierUp reports whether moving from previous to current is a promotion.
func IsTierUp(previous, current domain.Tier) bool {
	return TierLevel(current.Key) > TierLevel(previous.Key)
}
