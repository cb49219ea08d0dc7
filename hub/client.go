package hub

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Deadlines is the subset of configuration the connection handler needs.
// Defaults mirror the spec: 10s write deadline, 60s pong deadline, 54s ping
// period (9/10 of the pong deadline), 8KiB read cap.
type Deadlines struct {
	WriteDeadline  time.Duration
	PongDeadline   time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
}

// DefaultDeadlines returns the spec's stated defaults.
func DefaultDeadlines() Deadlines {
	return Deadlines{
		WriteDeadline:  10 * time.Second,
		PongDeadline:   60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 8192,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request to a WebSocket connection, registers a new
// client with h, and runs its read and write pumps until the connection
// closes. CORS for the upgrade itself is handled by the api package's
// middleware on the surrounding handler chain; CheckOrigin is permissive
// here because browsers don't send an Origin-restricted preflight for
// WebSocket upgrades.
func ServeWS(h *Hub, d Deadlines, sendBuffer int, logger *slog.Logger, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := h.NewClient(sendBuffer)
	h.Register(c)

	go writePump(h, c, conn, d, logger)
	readPump(h, c, conn, d, logger)
	return nil
}

// readPump reads incoming frames solely for liveness. Pong deadlines extend
// the read deadline; any read error closes the session and unregisters it.
func readPump(h *Hub, c *Client, conn *websocket.Conn, d Deadlines, logger *slog.Logger) {
	defer func() {
		h.Unregister(c)
		conn.Close()
	}()

	conn.SetReadLimit(d.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(d.PongDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(d.PongDeadline))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("websocket read error", "error", err)
			}
			return
		}
	}
}

// writePump drains the client's send queue, writing each frame as an
// individual text message, and emits periodic pings.
func writePump(h *Hub, c *Client, conn *websocket.Conn, d Deadlines, logger *slog.Logger) {
	ticker := time.NewTicker(d.PingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(d.WriteDeadline))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(d.WriteDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
