package app

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"lan-quiz-service/internal/domain"
)

// GameConfig holds the pacing of a game.
type GameConfig struct {
	CountdownSeconds int
	QuestionSeconds  int
	RevealDelay      time.Duration
	LeaderboardDelay time.Duration
	TickInterval     time.Duration
}

// DefaultGameConfig is a 5s countdown, 15s per question, 3s reveal and 5s leaderboard.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		CountdownSeconds: 5,
		QuestionSeconds:  15,
		RevealDelay:      3 * time.Second,
		LeaderboardDelay: 5 * time.Second,
		TickInterval:     time.Second,
	}
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithScheduler(s PhaseScheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

func WithGameConfig(cfg GameConfig) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithTransitionHook observes every phase change. It runs on the engine loop.
func WithTransitionHook(fn func(from, to domain.Phase)) Option {
	return func(e *Engine) { e.onTransition = fn }
}

// WithGameOverHook receives the final leaderboard of every finished game. It runs on the
// engine loop and must not block.
func WithGameOverHook(fn func(domain.GameResult)) Option {
	return func(e *Engine) { e.onGameOver = fn }
}

// Engine is the game state machine. All game state is owned by a single loop goroutine;
// public methods enqueue work on it and wait for the work to finish.
type Engine struct {
	cfg          GameConfig
	hub          *Hub
	clock        clockwork.Clock
	scheduler    PhaseScheduler
	registry     *Registry
	onTransition func(from, to domain.Phase)
	onGameOver   func(domain.GameResult)

	// loop-owned
	phase     domain.Phase
	index     int
	remaining int
	// playing is the quiz the current game started with; assigned is used by the next one
	playing  domain.Quiz
	assigned domain.Quiz

	lifecycle sync.Mutex
	mu        sync.Mutex
	running   bool
	events    chan func()
	quit      chan struct{}
	done      chan struct{}
}

func NewEngine(hub *Hub, opts ...Option) *Engine {
	e := &Engine{
		cfg:   DefaultGameConfig(),
		hub:   hub,
		clock: clockwork.NewRealClock(),
		phase: domain.PhaseWaiting,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.TickInterval <= 0 {
		e.cfg.TickInterval = time.Second
	}
	if e.scheduler == nil {
		e.scheduler = NewScheduler(e.clock)
	}
	e.registry = NewRegistry(e.clock, e.publishRoster)
	e.scheduler.Bind(e.post)
	return e
}

// Start launches the engine loop. Starting a running engine does nothing.
func (e *Engine) Start() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.events = make(chan func(), 64)
	e.quit = make(chan struct{})
	e.done = make(chan struct{})
	e.running = true
	go e.run(e.events, e.quit, e.done)
	log.Info().Msg("game engine started")
}

// Stop clears all participants, cancels any timer, tells the host the roster is empty and
// ends the loop. Stopping a stopped engine does nothing.
func (e *Engine) Stop() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	events, quit, done := e.events, e.quit, e.done
	e.mu.Unlock()

	_ = exec(events, quit, done, e.shutdown)
	close(quit)
	<-done
	log.Info().Msg("game engine stopped")
}

// Run starts the engine and stops it when ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.Start()
	<-ctx.Done()
	e.Stop()
	return nil
}

// Join registers a participant for session.
func (e *Engine) Join(session domain.SessionID, displayName string) (domain.JoinedPayload, error) {
	var joined domain.JoinedPayload
	err := e.do(func() {
		p := e.registry.Register(session, displayName)
		joined = domain.JoinedPayload{ParticipantID: p.ID, QuizTitle: e.assigned.Title}
		log.Info().Str("participant", p.ID).Str("name", p.Name).Str("session", string(session)).Msg("participant joined")
	})
	return joined, err
}

// Leave removes the participant bound to session; unknown sessions are ignored.
func (e *Engine) Leave(session domain.SessionID) error {
	return e.do(func() {
		if p, ok := e.registry.Unregister(session); ok {
			log.Info().Str("participant", p.ID).Str("name", p.Name).Msg("participant left")
		}
	})
}

// SubmitAnswer scores an answer for the active question. Answers for another phase,
// another question or an unknown session are dropped.
func (e *Engine) SubmitAnswer(session domain.SessionID, questionIndex, optionIndex int) error {
	return e.do(func() { e.handleAnswer(session, questionIndex, optionIndex) })
}

// AssignQuestions sets the questions used by the next StartGame.
func (e *Engine) AssignQuestions(questions []domain.Question) error {
	return e.do(func() {
		e.assigned.Questions = cloneQuestions(questions)
	})
}

// AssignQuiz sets the quiz identity, title and questions used by the next StartGame.
func (e *Engine) AssignQuiz(quiz domain.Quiz) error {
	return e.do(func() {
		e.assigned = domain.Quiz{
			ID:        quiz.ID,
			Title:     quiz.Title,
			Questions: cloneQuestions(quiz.Questions),
		}
		log.Info().Str("quiz", quiz.ID).Int("questions", len(quiz.Questions)).Msg("quiz assigned")
	})
}

// StartGame resets scores and starts a new game from any phase.
func (e *Engine) StartGame() error {
	return e.do(e.startGame)
}

// ListParticipants returns every participant in join order.
func (e *Engine) ListParticipants() ([]domain.Participant, error) {
	var out []domain.Participant
	err := e.do(func() { out = e.registry.All() })
	return out, err
}

// Phase returns the current phase.
func (e *Engine) Phase() (domain.Phase, error) {
	var phase domain.Phase
	err := e.do(func() { phase = e.phase })
	return phase, err
}

// Snapshot returns a read-only view of the game.
func (e *Engine) Snapshot() (domain.GameSnapshot, error) {
	var snap domain.GameSnapshot
	err := e.do(func() {
		quiz := e.assigned
		if e.phase != domain.PhaseWaiting {
			quiz = e.playing
		}
		snap = domain.GameSnapshot{
			Phase:          e.phase,
			QuestionIndex:  e.index,
			Remaining:      e.remaining,
			TotalQuestions: len(e.playing.Questions),
			QuizID:         quiz.ID,
			QuizTitle:      quiz.Title,
			Participants:   e.registry.Len(),
		}
	})
	return snap, err
}

func (e *Engine) startGame() {
	e.scheduler.Cancel()
	e.transition(domain.PhaseWaiting)
	e.playing = domain.Quiz{
		ID:        e.assigned.ID,
		Title:     e.assigned.Title,
		Questions: cloneQuestions(e.assigned.Questions),
	}
	e.index = 0
	e.remaining = 0
	e.registry.ResetScores()
	e.publishRoster(e.registry.All())

	if len(e.playing.Questions) == 0 {
		e.enterGameOver([]domain.LeaderboardEntry{})
		return
	}
	e.enterCountdown()
}

func (e *Engine) enterCountdown() {
	e.transition(domain.PhaseCountdown)
	e.remaining = e.cfg.CountdownSeconds
	e.hub.ToEveryone(domain.EventCountdown, domain.CountdownPayload{Seconds: e.remaining})
	e.scheduler.StartTicking(e.cfg.TickInterval, &e.remaining, e.broadcastTimer, e.enterQuestion)
}

func (e *Engine) enterQuestion() {
	if e.index >= len(e.playing.Questions) {
		e.enterGameOver(buildLeaderboard(e.registry.All()))
		return
	}
	q := e.playing.Questions[e.index]
	e.transition(domain.PhaseQuestion)
	e.remaining = e.cfg.QuestionSeconds
	e.hub.ToEveryone(domain.EventQuestion, domain.QuestionPayload{
		Index:          e.index,
		Text:           q.Text,
		Options:        append([]string(nil), q.Options...),
		TotalQuestions: len(e.playing.Questions),
	})
	e.scheduler.StartTicking(e.cfg.TickInterval, &e.remaining, e.broadcastTimer, e.enterAnswerReveal)
}

func (e *Engine) enterAnswerReveal() {
	e.transition(domain.PhaseAnswerReveal)
	e.remaining = 0
	e.hub.ToEveryone(domain.EventAnswer, domain.AnswerPayload{
		QuestionIndex:      e.index,
		CorrectOptionIndex: e.playing.Questions[e.index].CorrectOption,
	})
	e.scheduler.After(e.cfg.RevealDelay, e.enterLeaderboard)
}

func (e *Engine) enterLeaderboard() {
	e.transition(domain.PhaseLeaderboard)
	e.hub.ToEveryone(domain.EventLeaderboard, domain.LeaderboardPayload{
		Entries:    buildLeaderboard(e.registry.All()),
		IsGameOver: false,
	})
	e.scheduler.After(e.cfg.LeaderboardDelay, e.nextQuestion)
}

// nextQuestion advances to the following question. After the last one the index stays on
// it, so a finished game reports the final question's index.
func (e *Engine) nextQuestion() {
	if e.index+1 < len(e.playing.Questions) {
		e.index++
		e.enterQuestion()
		return
	}
	e.enterGameOver(buildLeaderboard(e.registry.All()))
}

func (e *Engine) enterGameOver(entries []domain.LeaderboardEntry) {
	e.scheduler.Cancel()
	e.transition(domain.PhaseGameOver)
	e.remaining = 0
	e.hub.ToEveryone(domain.EventLeaderboard, domain.LeaderboardPayload{
		Entries:    entries,
		IsGameOver: true,
	})
	if e.onGameOver != nil {
		e.onGameOver(domain.GameResult{
			QuizID:     e.playing.ID,
			QuizTitle:  e.playing.Title,
			FinishedAt: e.clock.Now(),
			Entries:    append([]domain.LeaderboardEntry{}, entries...),
		})
	}
}

func (e *Engine) handleAnswer(session domain.SessionID, questionIndex, optionIndex int) {
	if e.phase != domain.PhaseQuestion || questionIndex != e.index {
		log.Debug().Str("session", string(session)).Str("phase", string(e.phase)).Int("question", questionIndex).Msg("answer dropped")
		return
	}
	p, ok := e.registry.Lookup(session)
	if !ok {
		log.Debug().Str("session", string(session)).Msg("answer from unknown session dropped")
		return
	}

	award := ScoreAnswer(e.playing.Questions[e.index], optionIndex, e.remaining, e.cfg.QuestionSeconds)
	p.Answers = append(p.Answers, domain.AnswerRecord{
		QuestionIndex: questionIndex,
		OptionIndex:   optionIndex,
		Correct:       award.Correct,
		Elapsed:       award.Elapsed,
		Awarded:       award.Points,
	})
	p.Score += award.Points

	e.hub.ToOne(session, domain.EventAnswerResult, domain.AnswerResultPayload{
		IsCorrect:  award.Correct,
		Score:      award.Points,
		TotalScore: p.Score,
	})
	e.publishRoster(e.registry.All())
}

func (e *Engine) broadcastTimer(value int) {
	e.hub.ToEveryone(domain.EventTimerUpdate, domain.TimerUpdatePayload{Value: value})
}

func (e *Engine) publishRoster(participants []domain.Participant) {
	e.hub.ToHost(domain.EventRosterUpdated, buildRoster(participants))
}

func (e *Engine) shutdown() {
	e.scheduler.Cancel()
	e.registry.Clear()
	e.transition(domain.PhaseWaiting)
	e.index = 0
	e.remaining = 0
	e.playing = domain.Quiz{}
	e.publishRoster(nil)
}

func (e *Engine) transition(to domain.Phase) {
	from := e.phase
	if from == to {
		return
	}
	e.phase = to
	log.Info().Str("from", string(from)).Str("to", string(to)).Int("question", e.index).Msg("phase transition")
	if e.onTransition != nil {
		e.onTransition(from, to)
	}
}

func (e *Engine) run(events <-chan func(), quit, done chan struct{}) {
	defer close(done)
	for {
		select {
		case fn := <-events:
			fn()
		case <-quit:
			return
		}
	}
}

// do runs fn on the loop and waits for it.
func (e *Engine) do(fn func()) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return domain.ErrEngineStopped
	}
	events, quit, done := e.events, e.quit, e.done
	e.mu.Unlock()
	return exec(events, quit, done, fn)
}

// post queues fn on the loop without waiting. Used as the scheduler dispatch.
func (e *Engine) post(fn func()) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	events, quit := e.events, e.quit
	e.mu.Unlock()

	select {
	case events <- fn:
	case <-quit:
	}
}

func exec(events chan<- func(), quit, done <-chan struct{}, fn func()) error {
	finished := make(chan struct{})
	select {
	case events <- func() {
		defer close(finished)
		fn()
	}:
	case <-quit:
		return domain.ErrEngineStopped
	}

	select {
	case <-finished:
		return nil
	case <-done:
		select {
		case <-finished:
			return nil
		default:
			return domain.ErrEngineStopped
		}
	}
}

func cloneQuestions(in []domain.Question) []domain.Question {
	if in == nil {
		return nil
	}
	out := make([]domain.Question, len(in))
	for i, q := range in {
		out[i] = domain.Question{
			Text:          q.Text,
			Options:       append([]string(nil), q.Options...),
			CorrectOption: q.CorrectOption,
		}
	}
	return out
}
