package relay

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// HandlerConfig configures the WebSocket endpoint.
type HandlerConfig struct {
	WriteTimeout    time.Duration
	ReadBufferSize  int
	WriteBufferSize int
}

// DefaultHandlerConfig returns sensible defaults.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		WriteTimeout:    5 * time.Second,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Handler upgrades HTTP requests to WebSocket connections and feeds the
// registry. The user id comes from the userId query parameter; requests
// without one are rejected before the upgrade.
type Handler struct {
	registry *Registry
	cfg      HandlerConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates the WebSocket endpoint handler.
func NewHandler(registry *Registry, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		h.logger.Warn("handshake rejected: missing userId", "remote", r.RemoteAddr)
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	t := &wsTransport{ws: ws, writeTimeout: h.cfg.WriteTimeout}
	c, err := h.registry.accept(userID, t)
	if err != nil {
		return
	}

	// Read loop runs on the handler goroutine; one goroutine per connection.
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			h.registry.disconnect(userID, c)
			return
		}
		h.registry.HandleInbound(r.Context(), userID, data)
	}
}

// wsTransport adapts a gorilla connection to the Transport interface.
type wsTransport struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func (t *wsTransport) WriteMessage(data []byte) error {
	t.ws.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return t.ws.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	t.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return t.ws.Close()
}
