package http

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"lan-quiz-service/internal/app"
	"lan-quiz-service/internal/domain"
	"lan-quiz-service/internal/infra/memory"
)

const testHostKey = "secret"

type testServer struct {
	*httptest.Server
	service *app.QuizService
	engine  *app.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuiz()), time.Minute)
	hub := app.NewHub()
	cfg := app.DefaultGameConfig()
	cfg.CountdownSeconds = 0
	// the fake clock is never advanced, so the first question stays open
	engine := app.NewEngine(hub, app.WithClock(clockwork.NewFakeClock()), app.WithGameConfig(cfg))
	engine.Start()
	service := app.NewQuizService(quizRepo, engine, hub, app.WithResultStore(memory.NewResultStore()))

	server := httptest.NewServer(NewRouter(service, Options{
		HostKey: testHostKey,
		Version: "test",
		BaseURL: func() string { return "http://192.168.1.20:3000" },
	}))
	t.Cleanup(func() {
		server.Close()
		engine.Stop()
	})
	return &testServer{Server: server, service: service, engine: engine}
}

func (s *testServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(s.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type frame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips frames until one of type want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) frame {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg frame
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg
		}
	}
}

func TestWebSocketGameFlow(t *testing.T) {
	srv := newTestServer(t)

	host := srv.dial(t, "/host/ws?key="+testHostKey)
	initial := readUntil(t, host, "rosterUpdated")
	if participants, _ := initial.Payload["participants"].([]any); len(participants) != 0 {
		t.Fatalf("expected empty initial roster, got %v", initial.Payload)
	}

	send(t, host, "load", map[string]any{"quizId": "1"})
	loaded := readUntil(t, host, "quizLoaded")
	if loaded.Payload["quizTitle"] != "Arithmetic" || loaded.Payload["joinUrl"] != "http://192.168.1.20:3000/join/1" {
		t.Fatalf("unexpected load reply %v", loaded.Payload)
	}

	player := srv.dial(t, "/ws")
	send(t, player, "join", map[string]any{"name": "Alice"})
	joined := readUntil(t, player, "joined")
	if id, _ := joined.Payload["participantId"].(string); id == "" || joined.Payload["quizTitle"] != "Arithmetic" {
		t.Fatalf("unexpected joined payload %v", joined.Payload)
	}
	roster := readUntil(t, host, "rosterUpdated")
	if participants, _ := roster.Payload["participants"].([]any); len(participants) != 1 {
		t.Fatalf("expected Alice in the roster, got %v", roster.Payload)
	}

	send(t, host, "start", nil)
	countdown := readUntil(t, player, "countdown")
	if countdown.Payload["seconds"] != float64(0) {
		t.Fatalf("unexpected countdown %v", countdown.Payload)
	}
	question := readUntil(t, player, "question")
	if question.Payload["text"] != "What is 2 + 2?" || question.Payload["totalQuestions"] != float64(1) {
		t.Fatalf("unexpected question %v", question.Payload)
	}
	readUntil(t, host, "question")

	send(t, player, "answer", map[string]any{"questionIndex": 0, "optionIndex": 1})
	result := readUntil(t, player, "answerResult")
	if result.Payload["isCorrect"] != true || result.Payload["score"] != float64(35) || result.Payload["totalScore"] != float64(35) {
		t.Fatalf("unexpected answer result %v", result.Payload)
	}
}

func TestWebSocketProtocolErrors(t *testing.T) {
	srv := newTestServer(t)
	player := srv.dial(t, "/ws?name=Bob")
	readUntil(t, player, "joined")

	send(t, player, "answer", map[string]any{"questionIndex": 0})
	if msg := readUntil(t, player, "error"); msg.Payload["message"] != "invalid answer payload" {
		t.Fatalf("unexpected error %v", msg.Payload)
	}

	send(t, player, "dance", nil)
	if msg := readUntil(t, player, "error"); msg.Payload["message"] != "unsupported message type" {
		t.Fatalf("unexpected error %v", msg.Payload)
	}

	if err := player.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readUntil(t, player, "error"); msg.Payload["message"] != "malformed message" {
		t.Fatalf("unexpected error %v", msg.Payload)
	}

	// answers outside the question phase are ignored without a reply
	send(t, player, "answer", map[string]any{"questionIndex": 0, "optionIndex": 1})
	send(t, player, "leave", nil)
	participants, err := srv.service.Participants()
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(participants) != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		participants, _ = srv.service.Participants()
	}
	if len(participants) != 0 {
		t.Fatalf("expected Bob to have left, got %+v", participants)
	}
}

func TestDisconnectRemovesParticipant(t *testing.T) {
	srv := newTestServer(t)
	player := srv.dial(t, "/ws?name=Carol")
	readUntil(t, player, "joined")

	_ = player.Close()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		participants, _ := srv.service.Participants()
		if len(participants) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("participant still registered after disconnect")
}

func TestHostSocketRequiresKey(t *testing.T) {
	srv := newTestServer(t)
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/host/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial without key to fail")
	}
	if resp == nil || resp.StatusCode != 403 {
		t.Fatalf("expected 403, got %v", resp)
	}
}

func TestSocketsRefusedWhenEngineStopped(t *testing.T) {
	srv := newTestServer(t)
	srv.engine.Stop()

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %v", resp)
	}
}

func sampleQuiz() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"1": {
			ID:    "1",
			Title: "Arithmetic",
			Questions: []domain.Question{
				{Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: 1},
			},
		},
	}
}
