package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Banter/internal/app"
	"github.com/dkeye/Banter/internal/auth"
	"github.com/dkeye/Banter/internal/domain"
	"github.com/dkeye/Banter/internal/errs"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxFrameSize   = 8192
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one websocket subscriber of a channel stream.
type Client struct {
	hub    *channelHub
	userID domain.UserID
	conn   *websocket.Conn
	send   chan []byte
}

type inboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Serve upgrades the connection and attaches the authenticated user to
// their current channel's stream. Browsers cannot set headers on ws
// requests, so the token travels in the query string.
func Serve(hub *Hub, o *app.Orchestrator, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		claims, err := auth.ParseAccessToken(token, secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID := domain.UserID(claims.UserID)
		user, ok := o.Users.Find(userID)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		if user.CurrentChannel == "" {
			c.JSON(http.StatusConflict, gin.H{"error": errs.ErrNotInChannel.Error()})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Str("module", "ws.conn").Err(err).Msg("upgrade failed")
			return
		}
		client := &Client{
			hub:    hub.get(user.CurrentChannel),
			userID: userID,
			conn:   conn,
			send:   make(chan []byte, sendBufferSize),
		}
		select {
		case client.hub.register <- client:
		case <-client.hub.stop:
			_ = conn.Close()
			return
		}
		o.Users.SetPresence(userID, true)

		go client.writePump()
		go client.readPump(c.Request.Context(), o)
	}
}

// readPump forwards chat frames to the orchestrator. Everything except
// plain messages goes through the REST API.
func (c *Client) readPump(ctx context.Context, o *app.Orchestrator) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
		}
		o.Users.SetPresence(c.userID, false)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type != "message" {
			continue
		}
		if _, err := o.SendMessage(ctx, c.userID, frame.Content); err != nil {
			payload, _ := json.Marshal(gin.H{"type": "error", "error": err.Error()})
			select {
			case c.send <- payload:
			default:
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
