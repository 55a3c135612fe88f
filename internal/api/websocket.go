package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"xauusd-engine/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamClient is one subscribed websocket connection.
type streamClient struct {
	conn *websocket.Conn
	send chan []byte
	mu   sync.Mutex
}

// handleStream upgrades the connection and fans out every bus event as
// long as the connection stays open. Engine events are broadcast, not
// request/response — clients never send anything the server acts on.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &streamClient{conn: conn, send: make(chan []byte, 256)}
	unsubscribe := s.subscribeClient(client)

	go client.writePump()
	client.readPump(unsubscribe)
}

func (s *Server) subscribeClient(client *streamClient) func() {
	stop := make(chan struct{})
	s.bus.SubscribeAll(func(event events.Event) {
		select {
		case <-stop:
			return
		default:
		}
		data, err := json.Marshal(event)
		if err != nil {
			return
		}
		select {
		case client.send <- data:
		default:
			s.logger.Warn().Msg("stream client send buffer full, dropping event")
		}
	})
	return func() { close(stop) }
}

func (c *streamClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *streamClient) readPump(unsubscribe func()) {
	defer func() {
		unsubscribe()
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
