package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/madness-store/madness-backend/internal/middleware"
	"github.com/madness-store/madness-backend/internal/websocket"
)

// FeedController upgrades admin connections onto the live order feed.
type FeedController struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
}

func NewFeedController(hub *websocket.Hub, allowedOrigins []string) *FeedController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &FeedController{
		hub: hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
	}
}

// OrderFeed
// GET /api/v1/admin/orders/feed?token=<access token>
func (ctrl *FeedController) OrderFeed(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	ws, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	client := websocket.NewClient(ctrl.hub, &websocket.Conn{Conn: ws}, userID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
