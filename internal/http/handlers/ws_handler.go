package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/http/middleware"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/ws"
)

// WSHandler подключает пользователя к хабу уведомлений.
// Браузер не умеет ставить заголовки на WebSocket, поэтому токен передаётся в query.
type WSHandler struct {
	hub      *ws.Hub
	tokens   middleware.AccessTokenParser
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *ws.Hub, tokens middleware.AccessTokenParser, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &WSHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				_, wildcard := allowed["*"]
				return ok || wildcard || strings.EqualFold(origin, "http://"+r.Host)
			},
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access токен обязателен", "code": apperror.ErrCodeUnauthorized})
		return
	}
	userID, _, err := h.tokens.ParseAccess(rawToken)
	if err != nil || userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "невалидный access токен", "code": apperror.ErrCodeUnauthorized})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже ответил клиенту.
		return
	}
	ws.NewClient(conn, h.hub, userID).Run(c.Request.Context())
}
