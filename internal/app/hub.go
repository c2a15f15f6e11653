package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"lan-quiz-service/internal/domain"
)

// ParticipantChannel delivers events to one connected session.
// Deliver must not block; a slow or dead destination reports an error instead.
type ParticipantChannel interface {
	Deliver(evt domain.Event) error
}

// HostChannel delivers events to the host observer.
type HostChannel interface {
	Deliver(evt domain.Event) error
}

// Hub fans events out to connected sessions and the optional host observer.
// Every destination is independent: a failing delivery never stops the others.
type Hub struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]ParticipantChannel
	host     HostChannel
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[domain.SessionID]ParticipantChannel)}
}

// Attach registers a connected session.
func (h *Hub) Attach(session domain.SessionID, ch ParticipantChannel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[session] = ch
}

// Detach forgets a session. Unknown sessions are ignored.
func (h *Hub) Detach(session domain.SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, session)
}

// SwapHost installs ch as the host observer and returns the previous one.
func (h *Hub) SwapHost(ch HostChannel) HostChannel {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.host
	h.host = ch
	return prev
}

// RestoreHost puts prev back only if current is still the attached host.
func (h *Hub) RestoreHost(current, prev HostChannel) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.host != current {
		return false
	}
	h.host = prev
	return true
}

// ToAll delivers evt to every attached session.
func (h *Hub) ToAll(eventType domain.EventType, payload any) {
	evt := domain.Event{Type: eventType, Payload: payload}

	h.mu.RLock()
	targets := make(map[domain.SessionID]ParticipantChannel, len(h.sessions))
	for id, ch := range h.sessions {
		targets[id] = ch
	}
	h.mu.RUnlock()

	for id, ch := range targets {
		if err := ch.Deliver(evt); err != nil {
			log.Warn().Err(err).Str("session", string(id)).Str("event", string(eventType)).Msg("broadcast delivery failed")
		}
	}
}

// ToOne delivers evt to a single session; unknown sessions are ignored.
func (h *Hub) ToOne(session domain.SessionID, eventType domain.EventType, payload any) {
	h.mu.RLock()
	ch, ok := h.sessions[session]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := ch.Deliver(domain.Event{Type: eventType, Payload: payload}); err != nil {
		log.Warn().Err(err).Str("session", string(session)).Str("event", string(eventType)).Msg("unicast delivery failed")
	}
}

// ToHost delivers evt to the host observer when one is attached.
func (h *Hub) ToHost(eventType domain.EventType, payload any) {
	h.mu.RLock()
	host := h.host
	h.mu.RUnlock()
	if host == nil {
		return
	}
	if err := host.Deliver(domain.Event{Type: eventType, Payload: payload}); err != nil {
		log.Warn().Err(err).Str("event", string(eventType)).Msg("host delivery failed")
	}
}

// ToEveryone delivers evt to all sessions and then the host.
func (h *Hub) ToEveryone(eventType domain.EventType, payload any) {
	h.ToAll(eventType, payload)
	h.ToHost(eventType, payload)
}
