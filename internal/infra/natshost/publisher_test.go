package natshost

import (
	"encoding/json"
	"errors"
	"testing"

	"lan-quiz-service/internal/domain"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs []published
	err  error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, published{subject: subject, data: data})
	return nil
}

func TestPublisherUsesEventSubject(t *testing.T) {
	conn := &fakeConn{}
	pub := NewPublisher(conn, "quiz.host")

	err := pub.Deliver(domain.Event{
		Type:    domain.EventRosterUpdated,
		Payload: domain.RosterPayload{Participants: []domain.RosterEntry{{ID: "p1", Name: "Ann"}}},
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(conn.msgs) != 1 || conn.msgs[0].subject != "quiz.host.rosterUpdated" {
		t.Fatalf("unexpected messages %+v", conn.msgs)
	}

	var envelope struct {
		Type    string `json:"type"`
		Payload struct {
			Participants []struct {
				Name string `json:"name"`
			} `json:"participants"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(conn.msgs[0].data, &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Type != "rosterUpdated" || envelope.Payload.Participants[0].Name != "Ann" {
		t.Fatalf("unexpected body %s", conn.msgs[0].data)
	}
}

func TestPublisherReportsFailures(t *testing.T) {
	pub := NewPublisher(&fakeConn{err: errors.New("nats: connection closed")}, "quiz.host")
	if err := pub.Deliver(domain.Event{Type: domain.EventCountdown}); err == nil {
		t.Fatalf("expected publish error")
	}
}
