package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"lan-quiz-service/internal/app"
	"lan-quiz-service/internal/domain"
	"lan-quiz-service/internal/infra/memory"
)

type sink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *sink) Deliver(evt domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *sink) rosters() []domain.RosterPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RosterPayload
	for _, evt := range s.events {
		if evt.Type == domain.EventRosterUpdated {
			out = append(out, evt.Payload.(domain.RosterPayload))
		}
	}
	return out
}

func (s *sink) leaderboards() []domain.LeaderboardPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.LeaderboardPayload
	for _, evt := range s.events {
		if evt.Type == domain.EventLeaderboard {
			out = append(out, evt.Payload.(domain.LeaderboardPayload))
		}
	}
	return out
}

func TestLoadQuizMakesItCurrent(t *testing.T) {
	service := newTestService(t)

	if _, err := service.CurrentQuiz(); !errors.Is(err, domain.ErrNoQuizLoaded) {
		t.Fatalf("expected ErrNoQuizLoaded, got %v", err)
	}
	quiz, err := service.LoadQuiz(context.Background(), "1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if quiz.Title != "Warmup" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if current, err := service.CurrentQuiz(); err != nil || current.ID != "1" {
		t.Fatalf("expected quiz 1 current, got %+v (%v)", current, err)
	}

	snap, err := service.State()
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if snap.QuizTitle != "Warmup" || snap.Phase != domain.PhaseWaiting {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestLoadQuizRejectsBadContent(t *testing.T) {
	service := newTestService(t)

	if _, err := service.LoadQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if _, err := service.LoadQuiz(context.Background(), "broken"); !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Fatalf("expected ErrInvalidQuiz, got %v", err)
	}
	if _, err := service.CurrentQuiz(); !errors.Is(err, domain.ErrNoQuizLoaded) {
		t.Fatalf("failed loads must not change the current quiz, got %v", err)
	}
}

func TestStartGameWithoutQuizEndsEmpty(t *testing.T) {
	service := newTestService(t)
	host := &sink{}
	if _, err := service.AttachHost(host); err != nil {
		t.Fatalf("attach host: %v", err)
	}

	if err := service.StartGame(); err != nil {
		t.Fatalf("start without a quiz: %v", err)
	}
	snap, err := service.State()
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if snap.Phase != domain.PhaseGameOver {
		t.Fatalf("expected game over, got %s", snap.Phase)
	}
	boards := host.leaderboards()
	if len(boards) != 1 || !boards[0].IsGameOver || boards[0].Entries == nil || len(boards[0].Entries) != 0 {
		t.Fatalf("expected one empty final leaderboard, got %+v", boards)
	}
}

func TestJoinReportsQuizTitle(t *testing.T) {
	service := newTestService(t)
	if _, err := service.LoadQuiz(context.Background(), "1"); err != nil {
		t.Fatalf("load: %v", err)
	}

	joined, err := service.Join("s1", "Alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.ParticipantID == "" || joined.QuizTitle != "Warmup" {
		t.Fatalf("unexpected join %+v", joined)
	}
}

func TestHostSeesRosterChanges(t *testing.T) {
	service := newTestService(t)
	fallback := &sink{}
	if _, err := service.AttachHost(fallback); err != nil {
		t.Fatalf("attach fallback: %v", err)
	}

	screen := &sink{}
	detach, err := service.AttachHost(screen)
	if err != nil {
		t.Fatalf("attach host: %v", err)
	}
	if got := screen.rosters(); len(got) != 1 || len(got[0].Participants) != 0 {
		t.Fatalf("expected an empty initial roster, got %+v", got)
	}

	player := &sink{}
	service.Connect("s1", player)
	if _, err := service.Join("s1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	service.Disconnect("s1")

	rosters := screen.rosters()
	if len(rosters) != 3 {
		t.Fatalf("expected initial, join and leave rosters, got %d", len(rosters))
	}
	if len(rosters[1].Participants) != 1 || rosters[1].Participants[0].Name != "Alice" {
		t.Fatalf("unexpected roster after join %+v", rosters[1])
	}
	if len(rosters[2].Participants) != 0 {
		t.Fatalf("expected empty roster after disconnect %+v", rosters[2])
	}

	detach()
	if _, err := service.Join("s2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(screen.rosters()) != 3 {
		t.Fatalf("detached host still receives updates")
	}
	if got := fallback.rosters(); len(got) == 0 || len(got[len(got)-1].Participants) != 1 {
		t.Fatalf("previous host should be restored, got %+v", got)
	}
}

func TestStartGameWithLoadedQuiz(t *testing.T) {
	service := newTestService(t)
	if _, err := service.LoadQuiz(context.Background(), "1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := service.StartGame(); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap, _ := service.State()
	if snap.Phase != domain.PhaseCountdown || snap.TotalQuestions != 1 {
		t.Fatalf("unexpected snapshot after start %+v", snap)
	}
}

func newTestService(t *testing.T) *app.QuizService {
	t.Helper()
	clock := clockwork.NewFakeClock()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"1": {
			ID:    "1",
			Title: "Warmup",
			Questions: []domain.Question{
				{Text: "Select the right option", Options: []string{"Wrong", "Right"}, CorrectOption: 1},
			},
		},
		"broken": {
			ID:    "broken",
			Title: "Broken",
			Questions: []domain.Question{
				{Text: "Only one option", Options: []string{"Lonely"}, CorrectOption: 0},
			},
		},
	}), 5*time.Minute, memory.WithClock(clock))

	hub := app.NewHub()
	engine := app.NewEngine(hub, app.WithClock(clock))
	engine.Start()
	t.Cleanup(engine.Stop)
	return app.NewQuizService(quizRepo, engine, hub)
}
