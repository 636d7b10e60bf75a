package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"trivia-service/internal/domain"
)

const streakIndexKey = "users:streak"

// UserStore keeps user scoring state as JSON under user:{id}. Writes use
// WATCH/MULTI so a concurrent update surfaces as domain.ErrVersionConflict.
// A sorted set indexes users by streak for the weekly draw.
type UserStore struct {
	client *redis.Client
}

func NewUserStore(client *redis.Client) *UserStore {
	return &UserStore{client: client}
}

func (s *UserStore) GetUser(ctx context.Context, id string) (domain.UserScoringState, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UserScoringState{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserScoringState{}, err
	}
	return decodeUser(raw)
}

func (s *UserStore) SaveUser(ctx context.Context, user domain.UserScoringState) (domain.UserScoringState, error) {
	key := s.key(user.TelegramID)
	var saved domain.UserScoringState

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		var stored int64
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			current, err := decodeUser(raw)
			if err != nil {
				return err
			}
			stored = current.Version
		}
		if stored != user.Version {
			return domain.ErrVersionConflict
		}

		next := user
		next.Version++
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, streakIndexKey, redis.Z{Score: float64(next.Streak), Member: next.TelegramID})
			return nil
		})
		if err != nil {
			return err
		}
		saved = next
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.UserScoringState{}, domain.ErrVersionConflict
	}
	if err != nil {
		return domain.UserScoringState{}, err
	}
	return saved, nil
}

func (s *UserStore) ListByMinStreak(ctx context.Context, minStreak int) ([]domain.UserScoringState, error) {
	ids, err := s.client.ZRangeByScore(ctx, streakIndexKey, &redis.ZRangeBy{
		Min: strconv.Itoa(minStreak),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.UserScoringState{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	users := make([]domain.UserScoringState, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		user, err := decodeUser([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].TelegramID < users[j].TelegramID })
	return users, nil
}

func (s *UserStore) key(id string) string {
	return "user:" + id
}

func decodeUser(raw []byte) (domain.UserScoringState, error) {
	var user domain.UserScoringState
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.UserScoringState{}, err
	}
	return user, nil
}
