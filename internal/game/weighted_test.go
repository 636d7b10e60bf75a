package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-service/internal/domain"
)

type ticket struct {
	id string
	w  float64
}

func (t ticket) Weight() float64 { return t.w }

func TestSelectWeighted_EmptyInput(t *testing.T) {
	s := NewSelector(rand.NewSource(1))
	assert.Empty(t, SelectWeighted[ticket](s, nil, 3))
	assert.Empty(t, SelectWeighted(s, []ticket{{"a", 1}}, 0))
}

func TestSelectWeighted_DistinctAndBounded(t *testing.T) {
	s := NewSelector(rand.NewSource(7))
	entries := []ticket{{"a", 5}, {"b", 1}, {"c", 3}, {"d", 2}, {"e", 8}}
	original := append([]ticket(nil), entries...)

	for k := 1; k <= len(entries); k++ {
		got := SelectWeighted(s, entries, k)
		require.Len(t, got, k)
		seen := map[string]bool{}
		for _, e := range got {
			assert.False(t, seen[e.id], "duplicate %s", e.id)
			seen[e.id] = true
			assert.Contains(t, entries, e)
		}
	}
	assert.Equal(t, original, entries)
}

func TestSelectWeighted_CountAboveLengthReturnsAll(t *testing.T) {
	s := NewSelector(rand.NewSource(3))
	entries := []ticket{{"a", 1}, {"b", 2}, {"c", 3}}
	got := SelectWeighted(s, entries, 10)
	assert.ElementsMatch(t, entries, got)
}

func TestSelectWeighted_HeavyEntryWinsMostDraws(t *testing.T) {
	s := NewSelector(rand.NewSource(42))
	entries := []ticket{{"heavy", 10}, {"light", 1}}

	const trials = 10000
	heavyFirst := 0
	for i := 0; i < trials; i++ {
		got := SelectWeighted(s, entries, 2)
		require.Len(t, got, 2)
		if got[0].id == "heavy" {
			heavyFirst++
		}
	}
	assert.Greater(t, float64(heavyFirst)/trials, 0.8)
}

func TestSelectWeighted_RemovalRenormalizes(t *testing.T) {
	s := NewSelector(rand.NewSource(11))
	entries := []ticket{{"heavy", 100}, {"x", 1}, {"y", 1}}

	const trials = 2000
	heavyInTwo := 0
	for i := 0; i < trials; i++ {
		got := SelectWeighted(s, entries, 2)
		if got[0].id == "heavy" || got[1].id == "heavy" {
			heavyInTwo++
		}
	}
	// Once heavy is gone the two light entries split the remaining draw, so heavy
	// appears in nearly every pair.
	assert.Greater(t, float64(heavyInTwo)/trials, 0.97)
}

func TestSelectWeighted_ZeroWeightsFallBackToUniform(t *testing.T) {
	s := NewSelector(rand.NewSource(5))
	entries := []ticket{{"a", 0}, {"b", -3}, {"c", 0}}
	counts := map[string]int{}
	for i := 0; i < 3000; i++ {
		got := SelectWeighted(s, entries, 1)
		require.Len(t, got, 1)
		counts[got[0].id]++
	}
	for _, id := range []string{"a", "b", "c"} {
		assert.Greater(t, counts[id], 700, id)
	}
}

func TestSelectWeighted_ZeroWeightNeverBeatsPositive(t *testing.T) {
	s := NewSelector(rand.NewSource(9))
	entries := []ticket{{"zero", 0}, {"one", 1}}
	for i := 0; i < 500; i++ {
		assert.Equal(t, "one", SelectWeighted(s, entries, 1)[0].id)
	}
}

func TestCategoryWeightsFavorThemed(t *testing.T) {
	engine := NewEngine(DefaultRules())
	weights := engine.CategoryWeights([]domain.Category{"culture", "SCIENCE", "CULTURE", "", "math"})

	require.Len(t, weights, 3)
	assert.Equal(t, CategoryWeight{Category: "CULTURE", Value: 2}, weights[0])
	assert.Equal(t, CategoryWeight{Category: "SCIENCE", Value: 1}, weights[1])
	assert.Equal(t, CategoryWeight{Category: "MATH", Value: 1}, weights[2])

	s := NewSelector(rand.NewSource(21))
	themedFirst := 0
	for i := 0; i < 4000; i++ {
		order := DrawOrder(s, weights)
		require.Len(t, order, 3)
		if order[0] == "CULTURE" {
			themedFirst++
		}
	}
	// Expected share is 2/4.
	assert.InDelta(t, 0.5, float64(themedFirst)/4000, 0.05)
}

func TestDrawEntryWeightIsStreak(t *testing.T) {
	assert.Equal(t, 12.0, domain.DrawEntry{UserID: "u", Streak: 12}.Weight())
}
