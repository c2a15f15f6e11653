package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lan-quiz-service/internal/domain"
)

const resultHistory = 20

// ResultStore keeps finished games in Redis, newest first:
//
//	LPUSH quiz:{quizID}:results {json}
//
// The list is trimmed to the last 20 games and expires with ttl.
type ResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultStore(client *redis.Client, ttl time.Duration) *ResultStore {
	return &ResultStore{client: client, ttl: ttl}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.GameResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	key := s.key(result.QuizID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, resultHistory-1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *ResultStore) LatestResult(ctx context.Context, quizID string) (domain.GameResult, error) {
	raw, err := s.client.LIndex(ctx, s.key(quizID), 0).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GameResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.GameResult{}, fmt.Errorf("load result: %w", err)
	}
	var result domain.GameResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.GameResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}

func (s *ResultStore) key(quizID string) string {
	return "quiz:" + quizID + ":results"
}
