package game

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"trivia-service/internal/domain"
)

// Weighted is anything with a selection weight.
type Weighted interface {
	Weight() float64
}

// Selector wraps a random source. *rand.Rand is not safe for concurrent use,
// so draws are serialized.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSelector returns a selector over src; pass a fixed-seed source in tests.
func NewSelector(src rand.Source) *Selector {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Selector{rnd: rand.New(src)}
}

func (s *Selector) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

// SelectWeighted draws up to count entries without replacement using
// cumulative-weight roulette. After each draw the chosen entry is removed and
// the total is recomputed over the remainder. Non-positive or non-finite
// weights count as zero; when only zero-weight entries remain they are drawn
// uniformly. The input slice is not modified.
func SelectWeighted[T Weighted](s *Selector, entries []T, count int) []T {
	if len(entries) == 0 || count <= 0 {
		return []T{}
	}
	if count > len(entries) {
		count = len(entries)
	}

	remaining := make([]T, len(entries))
	copy(remaining, entries)
	picked := make([]T, 0, count)

	for len(picked) < count {
		idx := pickIndex(s, remaining)
		picked = append(picked, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return picked
}

func pickIndex[T Weighted](s *Selector, remaining []T) int {
	total := 0.0
	last := -1
	for i, e := range remaining {
		if w := weightOf(e); w > 0 {
			total += w
			last = i
		}
	}
	if total == 0 {
		return s.intn(len(remaining))
	}

	r := s.float64() * total
	running := 0.0
	for i, e := range remaining {
		w := weightOf(e)
		if w == 0 {
			continue
		}
		running += w
		if running >= r {
			return i
		}
	}
	// Float accumulation can land fractionally short of r.
	return last
}

func weightOf[T Weighted](e T) float64 {
	w := e.Weight()
	if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0
	}
	return w
}

// CategoryWeight is a category offered to the question picker.
type CategoryWeight struct {
	Category domain.Category
	Value    float64
}

// Weight implements Weighted.
func (c CategoryWeight) Weight() float64 {
	return c.Value
}

// CategoryWeights assigns weight 2 to themed categories and 1 to the rest.
// Duplicates are dropped.
func (e *Engine) CategoryWeights(categories []domain.Category) []CategoryWeight {
	seen := make(map[domain.Category]struct{}, len(categories))
	out := make([]CategoryWeight, 0, len(categories))
	for _, c := range categories {
		n := normalizeCategory(c)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		w := 1.0
		if e.IsThemed(n) {
			w = 2
		}
		out = append(out, CategoryWeight{Category: n, Value: w})
	}
	return out
}

// DrawOrder returns every category in weighted random order; callers walk it
// until they find a category that still has questions.
func DrawOrder(s *Selector, weights []CategoryWeight) []domain.Category {
	drawn := SelectWeighted(s, weights, len(weights))
	out := make([]domain.Category, len(drawn))
	for i, w := range drawn {
		out[i] = w.Category
	}
	return out
}
