package postgres

import "testing"

func TestDecodeQuizUsesRowID(t *testing.T) {
	raw := []byte(`{"id":"other","title":"Capitals","questions":[{"text":"Capital of Italy?","options":["Rome","Milan"],"correctOption":0}]}`)

	quiz, err := decodeQuiz("7", raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if quiz.ID != "7" || quiz.Title != "Capitals" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if len(quiz.Questions) != 1 || quiz.Questions[0].Options[0] != "Rome" || quiz.Questions[0].CorrectOption != 0 {
		t.Fatalf("unexpected questions %+v", quiz.Questions)
	}
}

func TestDecodeQuizRejectsGarbage(t *testing.T) {
	if _, err := decodeQuiz("7", []byte("nope")); err == nil {
		t.Fatalf("expected decode error")
	}
}
