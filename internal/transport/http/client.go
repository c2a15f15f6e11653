package http

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"lan-quiz-service/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var (
	errClientClosed   = errors.New("client closed")
	errSendBufferFull = errors.New("send buffer full")
)

// wsClient owns one websocket. Deliver never blocks: a full buffer drops the event and
// reports an error to the hub.
type wsClient struct {
	conn *websocket.Conn
	send chan domain.Event

	closeOnce sync.Once
	closed    chan struct{}
}

func newWSClient(conn *websocket.Conn) *wsClient {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &wsClient{
		conn:   conn,
		send:   make(chan domain.Event, sendBuffer),
		closed: make(chan struct{}),
	}
}

func (c *wsClient) Deliver(evt domain.Event) error {
	select {
	case <-c.closed:
		return errClientClosed
	default:
	}
	select {
	case c.send <- evt:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *wsClient) reply(eventType domain.EventType, payload any) {
	if err := c.Deliver(domain.Event{Type: eventType, Payload: payload}); err != nil {
		log.Debug().Err(err).Str("event", string(eventType)).Msg("reply dropped")
	}
}

func (c *wsClient) replyError(message string) {
	c.reply(domain.EventError, domain.ErrorPayload{Message: message})
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// writePump is the only writer on the connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case evt := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(evt); err != nil {
				log.Debug().Err(err).Msg("ws write failed")
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.closed:
			c.flush()
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// flush writes whatever is still buffered when the reader is done.
func (c *wsClient) flush() {
	for {
		select {
		case evt := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		default:
			return
		}
	}
}
