package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"lan-quiz-service/internal/app"
	"lan-quiz-service/internal/domain"
)

const loadTimeout = 10 * time.Second

// HostHandler serves the host socket. Only one host is attached at a time; the newest
// socket wins and the previous host comes back when it closes.
type HostHandler struct {
	service  *app.QuizService
	opts     Options
	upgrader websocket.Upgrader
}

func NewHostHandler(service *app.QuizService, opts Options) *HostHandler {
	return &HostHandler{
		service:  service,
		opts:     opts,
		upgrader: newUpgrader(),
	}
}

type loadPayload struct {
	QuizID string `json:"quizId"`
}

func (h *HostHandler) ServeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !authorized(r, h.opts.HostKey) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if _, err := h.service.State(); errors.Is(err, domain.ErrEngineStopped) {
		http.Error(w, "game engine is not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("host ws upgrade failed")
		return
	}

	client := newWSClient(conn)
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.writePump()
	}()
	defer func() {
		client.close()
		<-done
	}()

	detach, err := h.service.AttachHost(client)
	if err != nil {
		client.replyError(err.Error())
		return
	}
	defer detach()
	log.Info().Str("remote", r.RemoteAddr).Msg("host attached")
	defer log.Info().Str("remote", r.RemoteAddr).Msg("host detached")

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				client.replyError("malformed message")
				continue
			}
			return
		}
		h.dispatch(r.Context(), client, inbound)
	}
}

func (h *HostHandler) dispatch(ctx context.Context, client *wsClient, inbound inboundMessage) {
	switch inbound.Type {
	case "load":
		var payload loadPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuizID == "" {
			client.replyError("invalid load payload")
			return
		}
		ctx, cancel := context.WithTimeout(ctx, loadTimeout)
		defer cancel()
		quiz, err := h.service.LoadQuiz(ctx, payload.QuizID)
		if err != nil {
			client.replyError(err.Error())
			return
		}
		client.reply(domain.EventQuizLoaded, quizLoaded(quiz, h.opts))
	case "start":
		if err := h.service.StartGame(); err != nil {
			client.replyError(err.Error())
		}
	case "participants":
		roster, err := h.service.Participants()
		if err != nil {
			client.replyError(err.Error())
			return
		}
		client.reply(domain.EventRosterUpdated, domain.RosterPayload{Participants: roster})
	case "state":
		snap, err := h.service.State()
		if err != nil {
			client.replyError(err.Error())
			return
		}
		client.reply(domain.EventState, snap)
	default:
		client.replyError("unsupported message type")
	}
}

func quizLoaded(quiz domain.Quiz, opts Options) domain.QuizLoadedPayload {
	return domain.QuizLoadedPayload{
		QuizID:         quiz.ID,
		QuizTitle:      quiz.Title,
		TotalQuestions: len(quiz.Questions),
		JoinURL:        opts.joinURL(quiz.ID),
	}
}

// authorized accepts the key as ?key= or X-Host-Key. An empty key disables the check.
func authorized(r *http.Request, key string) bool {
	if key == "" {
		return true
	}
	got := r.URL.Query().Get("key")
	if got == "" {
		got = r.Header.Get("X-Host-Key")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1
}
