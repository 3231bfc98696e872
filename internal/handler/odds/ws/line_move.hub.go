package ws

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/krobus00/odds-tracker/internal/constant"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	subject string
}

// LineMoveHub fans line move events out to websocket clients. Clients may pass
// event_id to only receive moves of that event.
type LineMoveHub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewLineMoveHub() *LineMoveHub {
	return &LineMoveHub{clients: make(map[*client]struct{})}
}

// HandleMsg is a nats.MsgHandler for line move subjects.
func (h *LineMoveHub) HandleMsg(msg *nats.Msg) {
	h.Broadcast(msg.Subject, msg.Data)
}

func (h *LineMoveHub) Broadcast(subject string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.subject != "" && c.subject != subject {
			continue
		}

		select {
		case c.send <- payload:
		default:
			logrus.WithField("client_id", c.id).Warn("websocket client too slow, dropping line move")
		}
	}
}

func (h *LineMoveHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *LineMoveHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	if eventID := strings.TrimSpace(r.URL.Query().Get("event_id")); eventID != "" {
		c.subject = constant.GetLineMoveSubject(eventID)
	}

	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

// Close disconnects every client.
func (h *LineMoveHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}

	return nil
}

func (h *LineMoveHub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	logrus.WithFields(logrus.Fields{
		"client_id": c.id,
		"clients":   len(h.clients),
	}).Info("websocket client connected")
}

func (h *LineMoveHub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	close(c.send)
	logrus.WithFields(logrus.Fields{
		"client_id": c.id,
		"clients":   len(h.clients),
	}).Info("websocket client disconnected")
}

// readPump only handles control frames; clients do not send data.
func (h *LineMoveHub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("client_id", c.id).Warnf("websocket closed: %v", err)
			}
			return
		}
	}
}

func (h *LineMoveHub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logrus.WithField("client_id", c.id).Warnf("websocket write failed: %v", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
