package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/dsa-tracker/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the JSON frame pushed to browsers
type Message struct {
	Type     string     `json:"type"`
	Title    string     `json:"title,omitempty"`
	Message  string     `json:"message,omitempty"`
	TaskID   string     `json:"task_id,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
	SentAt   time.Time  `json:"sent_at"`
}

// Hub keeps the open browser connections of every user
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	metrics *metrics.Manager
}

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewHub creates an empty hub
func NewHub(m *metrics.Manager) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		metrics: m,
	}
}

// ServeWS upgrades the request and attaches the connection to userID until
// the browser goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}

	c := &client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	h.register(c)
	slog.Info("notification websocket connected", "user_id", userID)

	h.enqueue(c, Message{Type: "connected", Message: "Listening for reminders", SentAt: time.Now()})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writePump(c)
	}()

	h.readPump(c)
	h.unregister(c)
	wg.Wait()

	slog.Info("notification websocket disconnected", "user_id", userID)
}

// Send pushes n to every open connection of n.UserID
func (h *Hub) Send(ctx context.Context, n Notification) error {
	h.mu.RLock()
	conns := make([]*client, 0, len(h.clients[n.UserID]))
	for c := range h.clients[n.UserID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return ErrNoSubscribers
	}

	msg := Message{
		Type:     "reminder",
		Title:    n.Title,
		Message:  n.Message,
		TaskID:   n.TaskID,
		Deadline: n.Deadline,
		SentAt:   time.Now(),
	}
	for _, c := range conns {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.enqueue(c, msg)
	}
	return nil
}

// Connections returns how many connections userID has open
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Close drops every connection
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.close()
		_ = c.conn.Close()
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.metrics.WebsocketConnected(1)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		if _, present := set[c]; present {
			delete(set, c)
			h.metrics.WebsocketConnected(-1)
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
	c.close()
}

// enqueue queues msg for c, dropping it when the client is too slow
func (h *Hub) enqueue(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal notification message", "error", err)
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		slog.Warn("dropping notification for slow client", "user_id", c.userID)
	}
}

func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("invalid message format", "error", err)
			continue
		}
		if msg.Type == "ping" {
			h.enqueue(c, Message{Type: "pong", SentAt: time.Now()})
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("failed to send notification message", "error", err)
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

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}
