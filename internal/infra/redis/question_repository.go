package redis

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
)

// QuestionRepository caches question metadata in Redis (hash per question) and
// falls back to a loader on cache miss.
// Metadata is stored as: HSET question:{id} category {c} difficulty {d} correct {i} options {n}
// Cached ids are indexed per category: SADD questions:category:{c} {id}
type QuestionRepository struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, questionID string) (domain.QuestionMeta, error) {
	if q, ok := r.cached(ctx, questionID); ok {
		return q, nil
	}

	result, err, _ := r.sf.Do(questionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if q, ok := r.cached(ctx, questionID); ok {
			return q, nil
		}
		q, err := r.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.QuestionMeta{}, err
		}
		r.store(ctx, q)
		return q, nil
	})
	if err != nil {
		return domain.QuestionMeta{}, err
	}
	return result.(domain.QuestionMeta), nil
}

// RandomQuestion serves a cached question of the category when one is known
// and otherwise asks the loader.
func (r *QuestionRepository) RandomQuestion(ctx context.Context, category domain.Category) (domain.QuestionMeta, error) {
	id, err := r.client.SRandMember(ctx, r.categoryKey(category)).Result()
	if err == nil && id != "" {
		if q, ok := r.cached(ctx, id); ok {
			return q, nil
		}
		// expired hash; drop the stale index entry
		_ = r.client.SRem(ctx, r.categoryKey(category), id).Err()
	}

	q, err := r.loader.RandomQuestion(ctx, category)
	if err != nil {
		return domain.QuestionMeta{}, err
	}
	r.store(ctx, q)
	return q, nil
}

func (r *QuestionRepository) cached(ctx context.Context, questionID string) (domain.QuestionMeta, bool) {
	fields, err := r.client.HGetAll(ctx, r.questionKey(questionID)).Result()
	if err != nil || len(fields) == 0 {
		return domain.QuestionMeta{}, false
	}
	return buildQuestionFromCache(questionID, fields)
}

func (r *QuestionRepository) store(ctx context.Context, q domain.QuestionMeta) {
	key := r.questionKey(q.ID)
	ttl := r.ttlWithJitter()
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key,
		"category", string(q.Category),
		"difficulty", q.Difficulty,
		"correct", q.CorrectOptionIndex,
		"options", q.OptionCount,
	)
	pipe.SAdd(ctx, r.categoryKey(q.Category), q.ID)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func (r *QuestionRepository) questionKey(questionID string) string {
	return "question:" + questionID
}

func (r *QuestionRepository) categoryKey(category domain.Category) string {
	return "questions:category:" + string(category)
}

func buildQuestionFromCache(questionID string, fields map[string]string) (domain.QuestionMeta, bool) {
	correct, err := strconv.Atoi(fields["correct"])
	if err != nil {
		return domain.QuestionMeta{}, false
	}
	difficulty, _ := strconv.Atoi(fields["difficulty"])
	options, _ := strconv.Atoi(fields["options"])
	return domain.QuestionMeta{
		ID:                 questionID,
		Category:           domain.Category(fields["category"]),
		Difficulty:         difficulty,
		CorrectOptionIndex: correct,
		OptionCount:        options,
	}, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
