package handler

import (
	"net/http"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/websocket"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// DefaultMaxWebSocketClients caps concurrent live-update connections
const DefaultMaxWebSocketClients = 64

// WebSocketHandler upgrades browser connections that listen for ledger events.
// Clients may narrow what they receive by sending
// {"action":"subscribe","entities":[...]} after connecting.
type WebSocketHandler struct {
	hub        *websocket.Hub
	validator  websocket.TokenValidator
	origins    originPolicy
	maxClients int
	upgrader   ws.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. An allowed origin of
// "*" accepts any origin.
func NewWebSocketHandler(hub *websocket.Hub, validator websocket.TokenValidator, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:        hub,
		validator:  validator,
		origins:    newOriginPolicy(allowedOrigins),
		maxClients: DefaultMaxWebSocketClients,
	}
	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

type originPolicy struct {
	any     bool
	allowed map[string]bool
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{allowed: make(map[string]bool, len(origins))}
	for _, o := range origins {
		if o == "*" {
			p.any = true
		}
		p.allowed[o] = true
	}
	return p
}

func (p originPolicy) permits(origin string) bool {
	// Non-browser clients send no Origin
	return origin == "" || p.any || p.allowed[origin]
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if h.origins.permits(origin) {
		return true
	}
	log.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// HandleWS handles GET /ws?token=<API token>. Browsers cannot set headers
// on the upgrade request, so the secret travels in the query.
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	if err := h.validator.ValidateToken(c.QueryParam("token")); err != nil {
		log.Debug().Err(err).Str("ip", c.RealIP()).Msg("WebSocket connection rejected: invalid token")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	if h.maxClients > 0 && h.hub.ClientCount() >= h.maxClients {
		log.Warn().Int("clients", h.hub.ClientCount()).Msg("WebSocket connection rejected: too many clients")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "too many connections")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return err
	}

	client := websocket.NewClient(conn, h.hub)
	h.hub.Register(client)
	log.Info().
		Str("client_id", client.ID()).
		Int("clients", h.hub.ClientCount()).
		Msg("WebSocket client connected")

	go client.WritePump()
	go client.ReadPump()
	return nil
}
