package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"lan-quiz-service/internal/app"
	"lan-quiz-service/internal/domain"
)

// WSHandler serves the participant socket.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service:  service,
		upgrader: newUpgrader(),
	}
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// participants open the join page from any LAN address
		CheckOrigin: func(r *http.Request) bool { return true },
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	Name string `json:"name"`
}

type answerPayload struct {
	QuestionIndex *int `json:"questionIndex"`
	OptionIndex   *int `json:"optionIndex"`
}

// ServeWS upgrades the request and runs the participant protocol until the socket closes.
// A name query parameter joins immediately.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, err := h.service.State(); errors.Is(err, domain.ErrEngineStopped) {
		http.Error(w, "game engine is not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	session := domain.SessionID(uuid.NewString())
	client := newWSClient(conn)
	h.service.Connect(session, client)
	log.Debug().Str("session", string(session)).Str("remote", r.RemoteAddr).Msg("participant socket connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.writePump()
	}()
	defer func() {
		h.service.Disconnect(session)
		client.close()
		<-done
		log.Debug().Str("session", string(session)).Msg("participant socket closed")
	}()

	if name := r.URL.Query().Get("name"); name != "" {
		if !h.join(client, session, name) {
			return
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				client.replyError("malformed message")
				continue
			}
			return
		}
		if !h.dispatch(client, session, inbound) {
			return
		}
	}
}

// dispatch handles one inbound frame and reports whether the socket should stay open.
func (h *WSHandler) dispatch(client *wsClient, session domain.SessionID, inbound inboundMessage) bool {
	switch inbound.Type {
	case "join":
		var payload joinPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			client.replyError("invalid join payload")
			return true
		}
		return h.join(client, session, payload.Name)
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuestionIndex == nil || payload.OptionIndex == nil {
			client.replyError("invalid answer payload")
			return true
		}
		return h.alive(client, h.service.SubmitAnswer(session, *payload.QuestionIndex, *payload.OptionIndex))
	case "leave":
		return h.alive(client, h.service.Leave(session))
	default:
		client.replyError("unsupported message type")
		return true
	}
}

func (h *WSHandler) join(client *wsClient, session domain.SessionID, name string) bool {
	joined, err := h.service.Join(session, name)
	if err != nil {
		return h.alive(client, err)
	}
	client.reply(domain.EventJoined, joined)
	return true
}

// alive turns an engine error into an error frame; a stopped engine closes the socket.
func (h *WSHandler) alive(client *wsClient, err error) bool {
	if err == nil {
		return true
	}
	client.replyError(err.Error())
	return !errors.Is(err, domain.ErrEngineStopped)
}
