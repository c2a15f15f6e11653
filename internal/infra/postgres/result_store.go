package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"lan-quiz-service/internal/domain"
)

type gameResultRow struct {
	bun.BaseModel `bun:"table:game_results"`

	ID         int64                     `bun:"id,pk,autoincrement"`
	QuizID     string                    `bun:"quiz_id,notnull"`
	QuizTitle  string                    `bun:"quiz_title,notnull"`
	FinishedAt time.Time                 `bun:"finished_at,notnull"`
	Entries    []domain.LeaderboardEntry `bun:"entries,type:jsonb,notnull"`
}

// ResultStore archives finished games in the game_results table.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.GameResult) error {
	row := toRow(result)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

func (s *ResultStore) LatestResult(ctx context.Context, quizID string) (domain.GameResult, error) {
	var row gameResultRow
	err := s.db.NewSelect().
		Model(&row).
		Where("quiz_id = ?", quizID).
		OrderExpr("finished_at DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GameResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.GameResult{}, fmt.Errorf("select game result: %w", err)
	}
	return fromRow(row), nil
}

func toRow(result domain.GameResult) gameResultRow {
	entries := result.Entries
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	return gameResultRow{
		QuizID:     result.QuizID,
		QuizTitle:  result.QuizTitle,
		FinishedAt: result.FinishedAt,
		Entries:    entries,
	}
}

func fromRow(row gameResultRow) domain.GameResult {
	return domain.GameResult{
		QuizID:     row.QuizID,
		QuizTitle:  row.QuizTitle,
		FinishedAt: row.FinishedAt,
		Entries:    row.Entries,
	}
}
