// Package diag broadcasts engine diagnostics to websocket observers.
package diag

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"tileworld/internal/game"
	"tileworld/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan game.Diagnostics
}

// Hub fans diagnostics out to every connected observer. It keeps the latest
// snapshot of each session so new observers start with a full picture.
type Hub struct {
	log logrus.FieldLogger

	mu      sync.Mutex
	clients map[string]*client
	latest  map[string]game.Diagnostics
}

// NewHub returns an empty hub.
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		log:     log.WithField("component", "diag"),
		clients: make(map[string]*client),
		latest:  make(map[string]game.Diagnostics),
	}
}

var _ game.DiagnosticsSink = (*Hub)(nil)

// Publish implements game.DiagnosticsSink. Slow observers miss updates
// rather than stalling the simulation.
func (h *Hub) Publish(d game.Diagnostics) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest[d.Session] = d
	for _, c := range h.clients {
		select {
		case c.send <- d:
		default:
		}
	}
}

// Forget drops the stored snapshot of a finished session and tells the
// connected observers it stopped.
func (h *Hub) Forget(session string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.latest[session]; !ok {
		return
	}
	delete(h.latest, session)
	bye := game.Diagnostics{Session: session, State: game.StateStopped.String(), Time: time.Now()}
	for _, c := range h.clients {
		select {
		case c.send <- bye:
		default:
		}
	}
}

// Clients returns the number of connected observers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams diagnostics as JSON.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan game.Diagnostics, sendBuffer)}

	h.mu.Lock()
	sessions := make([]string, 0, len(h.latest))
	for s := range h.latest {
		sessions = append(sessions, s)
	}
	sort.Strings(sessions)
	for _, s := range sessions {
		select {
		case c.send <- h.latest[s]:
		default:
		}
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	h.log.WithField("client", c.id).Info("Observer connected")
	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
}

// readPump only watches for the close; observers send nothing.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.log.WithField("client", c.id).Info("Observer disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Debug("Observer read failed")
			}
			return
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
		case d, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(d); err != nil {
				h.log.WithError(err).Debug("Observer write failed")
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

// ListenAndServe serves the hub on addr at /diag until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/diag", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	h.log.WithField("addr", addr).Info("Diagnostics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
