package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dshills/tasktree/internal/event"
)

const (
	writeWait   = 10 * time.Second
	eventBuffer = 64
)

// Subscriber is the receiving side of an event bus.
type Subscriber interface {
	Subscribe(eventType string, handler event.Handler) string
	Unsubscribe(id string) bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type eventMessage struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
	Time time.Time      `json:"time"`
}

// handleEvents upgrades to a websocket and forwards bus events matching
// the "type" query (default "*") until the client goes away. A client
// that falls behind loses events rather than stalling publishers.
func (s *Server) handleEvents(c *gin.Context) {
	if s.events == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event stream not enabled"})
		return
	}

	ch := make(chan eventMessage, eventBuffer)
	// Subscribe before the handshake so no event published after the
	// client connects is missed.
	id := s.events.Subscribe(c.DefaultQuery("type", "*"), func(e event.Event) {
		select {
		case ch <- eventMessage{Type: e.Type, Data: e.Data, Time: time.Now()}:
		default:
			s.logger.Debug("dropping event for slow client", "type", e.Type)
		}
	})
	if id == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus closed"})
		return
	}
	defer s.events.Unsubscribe(id)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case msg := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
