package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"lan-quiz-service/internal/domain"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "quizzes.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndLoadQuiz(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	saved, err := store.SaveQuiz(ctx, "Capitals", []domain.Question{
		{Text: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectOption: 0},
		{Text: "Capital of Spain?", Options: []string{"Lisbon", "Madrid", "Seville"}, CorrectOption: 1},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("expected an assigned id")
	}

	quiz, err := store.LoadQuiz(ctx, saved.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if quiz.Title != "Capitals" || len(quiz.Questions) != 2 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	second := quiz.Questions[1]
	if second.Text != "Capital of Spain?" || len(second.Options) != 3 || second.Options[1] != "Madrid" || second.CorrectOption != 1 {
		t.Fatalf("unexpected question %+v", second)
	}
}

func TestLoadUnknownQuiz(t *testing.T) {
	store := openTempStore(t)
	for _, id := range []string{"42", "not-a-number"} {
		if _, err := store.LoadQuiz(context.Background(), id); !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("%s: expected ErrQuizNotFound, got %v", id, err)
		}
	}
}

func TestListAndDeleteQuizzes(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	first, _ := store.SaveQuiz(ctx, "First", nil)
	second, _ := store.SaveQuiz(ctx, "Second", []domain.Question{{Text: "?", Options: []string{"a", "b"}}})

	list, err := store.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	if err := store.DeleteQuiz(ctx, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteQuiz(ctx, second.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound on second delete, got %v", err)
	}
	var questions int
	if err := store.sqlDB.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&questions); err != nil {
		t.Fatalf("count questions: %v", err)
	}
	if questions != 0 {
		t.Fatalf("expected questions removed with their quiz, got %d", questions)
	}
	if _, err := store.LoadQuiz(ctx, first.ID); err != nil {
		t.Fatalf("other quiz should remain: %v", err)
	}
}
