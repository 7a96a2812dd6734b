package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	xlogger "FinCast/pkg/logger"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
	streamBuffer     = 16
)

// UpdatesHub fans update outcomes out to websocket subscribers. Slow subscribers drop
// messages instead of blocking updates.
type UpdatesHub struct {
	logger   *xlogger.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*streamClient]struct{}
}

type streamClient struct {
	conn *websocket.Conn
	send chan models.UpdateOutcome
}

func NewUpdatesHub(logger *xlogger.Logger) *UpdatesHub {
	return &UpdatesHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*streamClient]struct{}),
	}
}

func (h *UpdatesHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/updates", h.Stream)
}

// Notify implements domrepo.UpdateNotifier.
func (h *UpdatesHub) Notify(o models.UpdateOutcome) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- o:
		default:
			h.logger.Warn("update stream subscriber lagging", xlogger.String("run_id", o.RunID))
		}
	}
}

// Subscribers returns the number of connected clients.
func (h *UpdatesHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *UpdatesHub) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	client := &streamClient{conn: conn, send: make(chan models.UpdateOutcome, streamBuffer)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("update stream subscribed", xlogger.Int("subscribers", h.Subscribers()))

	done := make(chan struct{})
	go h.readPump(client, done)
	h.writePump(client, done)

	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	_ = conn.Close()
	return nil
}

// readPump discards client frames and closes done when the peer goes away.
func (h *UpdatesHub) readPump(c *streamClient, done chan struct{}) {
	defer close(done)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *UpdatesHub) writePump(c *streamClient, done chan struct{}) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case o := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteJSON(o); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ domrepo.UpdateNotifier = (*UpdatesHub)(nil)
