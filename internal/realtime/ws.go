package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"collegehub/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxJoinPayload = 512
	sendBuffer     = 16
)

// RoomAuthorizer decides whether the authenticated user may join a room.
type RoomAuthorizer func(c *gin.Context, claims auth.Claims, room string) bool

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// joinFrame is the only client-to-server message: {"room": "branch:BTech:AI"}.
type joinFrame struct {
	Room string `json:"room"`
}

// WSHandler upgrades the connection and serves join requests until the
// client disconnects. Reconnection requires re-joining rooms.
func WSHandler(hub *Hub, authorize RoomAuthorizer, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}
	return func(c *gin.Context) {
		claims := auth.FromContext(c)
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("realtime: upgrade failed: %v", err)
			return
		}
		cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
		go cl.writePump()
		defer func() {
			hub.drop(cl)
			close(cl.send)
		}()

		conn.SetReadLimit(maxJoinPayload)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			var join joinFrame
			if err := json.Unmarshal(data, &join); err != nil || join.Room == "" {
				continue
			}
			if authorize != nil && !authorize(c, claims, join.Room) {
				msg, _ := json.Marshal(frame{Event: "error", Data: map[string]any{"message": "room not allowed: " + join.Room}})
				select {
				case cl.send <- msg:
				default:
				}
				continue
			}
			hub.join(join.Room, cl)
		}
	}
}

// writePump drains the send channel and keeps the connection alive with pings.
func (cl *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer cl.conn.Close()
	for {
		select {
		case data, ok := <-cl.send:
			if !ok {
				_ = cl.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
