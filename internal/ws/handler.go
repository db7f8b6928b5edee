package ws

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hirelane/internal/pkg/jwt"
)

type Handler struct {
	hub     *Hub
	jwt     jwt.Service
	logger  *zap.Logger
	origins map[string]struct{}
}

// NewHandler accepts any origin when allowedOrigins is empty.
func NewHandler(hub *Hub, jwtSvc jwt.Service, allowedOrigins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = struct{}{}
		}
	}
	return &Handler{hub: hub, jwt: jwtSvc, logger: logger, origins: origins}
}

// Router serves the notification socket on its own listener; fasthttp
// connections cannot be hijacked by gorilla.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/ws/notifications", h.ServeNotifications)
	return r
}

func (h *Handler) ServeNotifications(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.hub == nil {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if token == "" {
		if v := r.Header.Get("Authorization"); len(v) > 7 && strings.EqualFold(v[:7], "Bearer ") {
			token = strings.TrimSpace(v[7:])
		}
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.String("rid", middleware.GetReqID(r.Context())), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, claims.UserID)
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.origins) == 0 {
		return true
	}
	_, ok := h.origins[r.Header.Get("Origin")]
	return ok
}
