// Package sqlite reads and writes quizzes in the desktop quiz database layout:
// a quizzes table and a questions table whose options column holds a JSON array.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lan-quiz-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS quizzes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	createdAt TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	quizId INTEGER NOT NULL,
	text TEXT NOT NULL,
	options TEXT NOT NULL,
	correctAnswer INTEGER NOT NULL,
	FOREIGN KEY (quizId) REFERENCES quizzes (id) ON DELETE CASCADE
);
`

// createdAtLayout is fixed width so createdAt sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// QuizSummary is one row of the quizzes table.
type QuizSummary struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// Store persists quizzes in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens the database at path and creates the schema when missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_pragma=foreign_keys(1)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LoadQuiz returns a quiz with its questions in insertion order.
func (s *Store) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	id, err := strconv.ParseInt(quizID, 10, 64)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("quiz %q: %w", quizID, domain.ErrQuizNotFound)
	}

	quiz := domain.Quiz{ID: quizID}
	err = s.sqlDB.QueryRowContext(ctx, `SELECT title FROM quizzes WHERE id = ?`, id).Scan(&quiz.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, fmt.Errorf("quiz %s: %w", quizID, domain.ErrQuizNotFound)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("select quiz: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT text, options, correctAnswer FROM questions WHERE quizId = ? ORDER BY id`, id)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("select questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q       domain.Question
			options string
		)
		if err := rows.Scan(&q.Text, &options, &q.CorrectOption); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return domain.Quiz{}, fmt.Errorf("decode options for %q: %w", q.Text, err)
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("iterate questions: %w", err)
	}
	return quiz, nil
}

// SaveQuiz inserts a new quiz with its questions and returns it with the assigned id.
func (s *Store) SaveQuiz(ctx context.Context, title string, questions []domain.Question) (domain.Quiz, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO quizzes (title, createdAt) VALUES (?, ?)`, title, s.now().UTC().Format(createdAtLayout))
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("quiz id: %w", err)
	}

	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("encode options: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO questions (quizId, text, options, correctAnswer) VALUES (?, ?, ?, ?)`,
			id, q.Text, string(options), q.CorrectOption); err != nil {
			return domain.Quiz{}, fmt.Errorf("insert question: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Quiz{}, fmt.Errorf("commit: %w", err)
	}
	return domain.Quiz{ID: strconv.FormatInt(id, 10), Title: title, Questions: questions}, nil
}

// ListQuizzes returns every quiz, newest first.
func (s *Store) ListQuizzes(ctx context.Context) ([]QuizSummary, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, title, createdAt FROM quizzes ORDER BY createdAt DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("select quizzes: %w", err)
	}
	defer rows.Close()

	var out []QuizSummary
	for rows.Next() {
		var (
			id      int64
			summary QuizSummary
			created string
		)
		if err := rows.Scan(&id, &summary.Title, &created); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		summary.ID = strconv.FormatInt(id, 10)
		// rows written by the desktop app use millisecond ISO strings
		summary.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, summary)
	}
	return out, rows.Err()
}

// DeleteQuiz removes a quiz and, through the foreign key, its questions.
func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	id, err := strconv.ParseInt(quizID, 10, 64)
	if err != nil {
		return fmt.Errorf("quiz %q: %w", quizID, domain.ErrQuizNotFound)
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM quizzes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("quiz %s: %w", quizID, domain.ErrQuizNotFound)
	}
	return nil
}
