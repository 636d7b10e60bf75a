package memory

import (
	"context"
	"sort"
	"sync"

	"trivia-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserRepository.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.UserScoringState
}

func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]domain.UserScoringState),
	}
}

func (s *UserStore) GetUser(_ context.Context, id string) (domain.UserScoringState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.UserScoringState{}, domain.ErrUserNotFound
	}
	return copyUser(user), nil
}

func (s *UserStore) SaveUser(_ context.Context, user domain.UserScoringState) (domain.UserScoringState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[user.TelegramID]
	switch {
	case !ok && user.Version != 0:
		return domain.UserScoringState{}, domain.ErrVersionConflict
	case ok && current.Version != user.Version:
		return domain.UserScoringState{}, domain.ErrVersionConflict
	}
	user.Version++
	stored := copyUser(user)
	s.users[user.TelegramID] = stored
	return copyUser(stored), nil
}

func (s *UserStore) ListByMinStreak(_ context.Context, minStreak int) ([]domain.UserScoringState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserScoringState, 0)
	for _, u := range s.users {
		if u.Streak >= minStreak {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	return out, nil
}

func copyUser(u domain.UserScoringState) domain.UserScoringState {
	if u.LastPlayedDate != nil {
		d := *u.LastPlayedDate
		u.LastPlayedDate = &d
	}
	return u
}
