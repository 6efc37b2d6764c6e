package live

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// WSHandler upgrades the request and keeps the client registered until it
// goes away. Incoming messages are ignored. allowAnyOrigin is meant for
// local development, where the frontend runs on another port.
func WSHandler(hub *Hub, allowAnyOrigin bool) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if allowAnyOrigin {
		upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		cl := &client{conn: ws}
		hub.add(cl)
		hub.log.Debug("client connected", zap.Int("clients", hub.Stats().WSClients))

		if b, err := hub.encode(EventWelcome, hub.Stats()); err == nil {
			_ = cl.write(websocket.TextMessage, b)
		}

		done := make(chan struct{})
		go pinger(cl, done)

		ws.SetReadLimit(4096)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		close(done)
		hub.remove(cl)
		hub.log.Debug("client disconnected")
	}
}

func pinger(c *client, done <-chan struct{}) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// RegisterRoutes mounts GET /ws and GET /api/live/stats.
func RegisterRoutes(r *gin.Engine, hub *Hub, allowAnyOrigin bool) {
	r.GET("/ws", WSHandler(hub, allowAnyOrigin))
	r.GET("/api/live/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, hub.Stats())
	})
}
