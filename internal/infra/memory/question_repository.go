package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-service/internal/domain"
)

// QuestionLoader fetches question metadata from a backing store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.QuestionMeta, error)
	RandomQuestion(ctx context.Context, category domain.Category) (domain.QuestionMeta, error)
}

// QuestionRepository caches question metadata with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuestion
}

type cachedQuestion struct {
	question  domain.QuestionMeta
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestion),
	}
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, questionID string) (domain.QuestionMeta, error) {
	if q, ok := r.cached(questionID); ok {
		return q, nil
	}

	result, err, _ := r.sf.Do(questionID, func() (interface{}, error) {
		if q, ok := r.cached(questionID); ok {
			return q, nil
		}
		q, err := r.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.QuestionMeta{}, err
		}
		r.store(q)
		return q, nil
	})
	if err != nil {
		return domain.QuestionMeta{}, err
	}
	return result.(domain.QuestionMeta), nil
}

// RandomQuestion delegates to the loader and warms the cache with the result.
func (r *QuestionRepository) RandomQuestion(ctx context.Context, category domain.Category) (domain.QuestionMeta, error) {
	q, err := r.loader.RandomQuestion(ctx, category)
	if err != nil {
		return domain.QuestionMeta{}, err
	}
	r.store(q)
	return q, nil
}

func (r *QuestionRepository) cached(questionID string) (domain.QuestionMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[questionID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.QuestionMeta{}, false
	}
	return entry.question, true
}

func (r *QuestionRepository) store(q domain.QuestionMeta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[q.ID] = cachedQuestion{question: q, expiresAt: r.clock().Add(r.ttlWithJitterLocked())}
}

func (r *QuestionRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a loader backed by an in-memory slice (useful for tests/demos).
type StaticQuestionLoader struct {
	mu         sync.Mutex
	rnd        *rand.Rand
	byID       map[string]domain.QuestionMeta
	byCategory map[domain.Category][]string
}

func NewStaticQuestionLoader(questions []domain.QuestionMeta) *StaticQuestionLoader {
	l := &StaticQuestionLoader{
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		byID:       make(map[string]domain.QuestionMeta, len(questions)),
		byCategory: make(map[domain.Category][]string),
	}
	for _, q := range questions {
		l.byID[q.ID] = q
		l.byCategory[q.Category] = append(l.byCategory[q.Category], q.ID)
	}
	for _, ids := range l.byCategory {
		sort.Strings(ids)
	}
	return l
}

func (l *StaticQuestionLoader) LoadQuestion(_ context.Context, questionID string) (domain.QuestionMeta, error) {
	if q, ok := l.byID[questionID]; ok {
		return q, nil
	}
	return domain.QuestionMeta{}, domain.ErrQuestionNotFound
}

func (l *StaticQuestionLoader) RandomQuestion(_ context.Context, category domain.Category) (domain.QuestionMeta, error) {
	ids := l.byCategory[category]
	if len(ids) == 0 {
		return domain.QuestionMeta{}, domain.ErrQuestionNotFound
	}
	l.mu.Lock()
	id := ids[l.rnd.Intn(len(ids))]
	l.mu.Unlock()
	return l.byID[id], nil
}
