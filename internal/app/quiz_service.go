package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"lan-quiz-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultStore keeps the final leaderboard of finished games.
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.GameResult) error
	LatestResult(ctx context.Context, quizID string) (domain.GameResult, error)
}

// ServiceOption configures a QuizService.
type ServiceOption func(*QuizService)

func WithResultStore(store ResultStore) ServiceOption {
	return func(s *QuizService) { s.results = store }
}

// SaveResultsAsync adapts a ResultStore to an engine game-over hook. Saving happens off
// the engine loop.
func SaveResultsAsync(store ResultStore, timeout time.Duration) func(domain.GameResult) {
	return func(result domain.GameResult) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := store.SaveResult(ctx, result); err != nil {
				log.Error().Err(err).Str("quiz", result.QuizID).Msg("save game result")
				return
			}
			log.Info().Str("quiz", result.QuizID).Int("entries", len(result.Entries)).Msg("game result saved")
		}()
	}
}

// QuizService contains the quiz use cases exposed to transports. It owns the notion of
// the current quiz and delegates game state to the Engine.
type QuizService struct {
	quizzes QuizRepository
	engine  *Engine
	hub     *Hub
	results ResultStore

	mu      sync.RWMutex
	current *domain.Quiz
}

func NewQuizService(quizzes QuizRepository, engine *Engine, hub *Hub, opts ...ServiceOption) *QuizService {
	s := &QuizService{quizzes: quizzes, engine: engine, hub: hub}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadQuiz fetches and validates a quiz, then makes it the current quiz for the next game.
func (s *QuizService) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.ID == "" {
		quiz.ID = quizID
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, fmt.Errorf("quiz %s: %w", quizID, err)
	}
	if err := s.engine.AssignQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}

	s.mu.Lock()
	s.current = &quiz
	s.mu.Unlock()
	log.Info().Str("quiz", quiz.ID).Str("title", quiz.Title).Int("questions", len(quiz.Questions)).Msg("quiz loaded")
	return quiz, nil
}

// CurrentQuiz returns the loaded quiz or ErrNoQuizLoaded.
func (s *QuizService) CurrentQuiz() (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Quiz{}, domain.ErrNoQuizLoaded
	}
	return *s.current, nil
}

// Connect attaches a participant transport so it receives broadcasts.
func (s *QuizService) Connect(session domain.SessionID, ch ParticipantChannel) {
	s.hub.Attach(session, ch)
}

// Disconnect removes the session's participant and detaches its transport.
func (s *QuizService) Disconnect(session domain.SessionID) {
	if err := s.engine.Leave(session); err != nil {
		log.Debug().Err(err).Str("session", string(session)).Msg("leave on disconnect")
	}
	s.hub.Detach(session)
}

// AttachHost installs ch as the host observer, sends it the current roster and returns
// a function that restores the previous host.
func (s *QuizService) AttachHost(ch HostChannel) (func(), error) {
	prev := s.hub.SwapHost(ch)
	detach := func() { s.hub.RestoreHost(ch, prev) }

	roster, err := s.Participants()
	if err != nil {
		detach()
		return nil, err
	}
	if err := ch.Deliver(domain.Event{Type: domain.EventRosterUpdated, Payload: domain.RosterPayload{Participants: roster}}); err != nil {
		log.Warn().Err(err).Msg("initial roster delivery failed")
	}
	return detach, nil
}

// Join registers a participant for session.
func (s *QuizService) Join(session domain.SessionID, displayName string) (domain.JoinedPayload, error) {
	return s.engine.Join(session, displayName)
}

// Leave removes the participant bound to session but keeps the transport attached.
func (s *QuizService) Leave(session domain.SessionID) error {
	return s.engine.Leave(session)
}

// SubmitAnswer forwards an answer to the engine.
func (s *QuizService) SubmitAnswer(session domain.SessionID, questionIndex, optionIndex int) error {
	return s.engine.SubmitAnswer(session, questionIndex, optionIndex)
}

// StartGame starts a game with the assigned questions. Without a loaded quiz the game
// ends at once with an empty leaderboard.
func (s *QuizService) StartGame() error {
	return s.engine.StartGame()
}

// Participants returns the roster in join order.
func (s *QuizService) Participants() ([]domain.RosterEntry, error) {
	participants, err := s.engine.ListParticipants()
	if err != nil {
		return nil, err
	}
	return buildRoster(participants).Participants, nil
}

// State returns a read-only view of the game.
func (s *QuizService) State() (domain.GameSnapshot, error) {
	return s.engine.Snapshot()
}

// LatestResult returns the last finished game for quizID.
func (s *QuizService) LatestResult(ctx context.Context, quizID string) (domain.GameResult, error) {
	if s.results == nil {
		return domain.GameResult{}, domain.ErrResultNotFound
	}
	return s.results.LatestResult(ctx, quizID)
}
