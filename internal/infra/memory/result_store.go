package memory

import (
	"context"
	"sync"

	"lan-quiz-service/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultStore. It keeps the latest
// result per quiz.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.GameResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string]domain.GameResult),
	}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.GameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.Entries = append([]domain.LeaderboardEntry{}, result.Entries...)
	s.results[result.QuizID] = result
	return nil
}

func (s *ResultStore) LatestResult(_ context.Context, quizID string) (domain.GameResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[quizID]
	if !ok {
		return domain.GameResult{}, domain.ErrResultNotFound
	}
	return result, nil
}
