package app

import (
	"sort"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"lan-quiz-service/internal/domain"
)

// Registry maps transport sessions to participants. It is owned by the engine loop
// and is not safe for concurrent use.
type Registry struct {
	clock     clockwork.Clock
	newID     func() string
	onChange  func([]domain.Participant)
	seq       uint64
	bySession map[domain.SessionID]*domain.Participant
}

// NewRegistry builds an empty registry. onChange, when set, receives a snapshot after
// every register and unregister.
func NewRegistry(clock clockwork.Clock, onChange func([]domain.Participant)) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		clock:     clock,
		newID:     func() string { return uuid.NewString() },
		onChange:  onChange,
		bySession: make(map[domain.SessionID]*domain.Participant),
	}
}

// Register creates a participant for session. Names are not validated or deduplicated.
// A session that registers again replaces its previous participant.
func (r *Registry) Register(session domain.SessionID, displayName string) domain.Participant {
	r.seq++
	p := &domain.Participant{
		ID:       r.newID(),
		Name:     displayName,
		JoinedAt: r.clock.Now(),
		Session:  session,
		JoinSeq:  r.seq,
	}
	r.bySession[session] = p
	r.changed()
	return *p
}

// Unregister removes the participant bound to session, if any.
func (r *Registry) Unregister(session domain.SessionID) (domain.Participant, bool) {
	p, ok := r.bySession[session]
	if !ok {
		return domain.Participant{}, false
	}
	delete(r.bySession, session)
	r.changed()
	return *p, true
}

// Lookup returns the participant bound to session.
func (r *Registry) Lookup(session domain.SessionID) (*domain.Participant, bool) {
	p, ok := r.bySession[session]
	return p, ok
}

// All returns copies of every participant in join order.
func (r *Registry) All() []domain.Participant {
	out := make([]domain.Participant, 0, len(r.bySession))
	for _, p := range r.bySession {
		cp := *p
		cp.Answers = append([]domain.AnswerRecord(nil), p.Answers...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinSeq < out[j].JoinSeq })
	return out
}

// Len reports the number of registered participants.
func (r *Registry) Len() int {
	return len(r.bySession)
}

// ResetScores zeroes every score and clears every answer history.
func (r *Registry) ResetScores() {
	for _, p := range r.bySession {
		p.Score = 0
		p.Answers = nil
	}
}

// Clear removes every participant without notifying onChange.
func (r *Registry) Clear() {
	r.bySession = make(map[domain.SessionID]*domain.Participant)
}

func (r *Registry) changed() {
	if r.onChange != nil {
		r.onChange(r.All())
	}
}
