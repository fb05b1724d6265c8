package ws

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/netpong/backend/internal/match"
	"github.com/netpong/backend/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameSize   = 64
	sendBufferSize = 256
)

var errSlowClient = errors.New("ws: send buffer full")

var errClientClosed = errors.New("ws: client closed")

// Client bridges one websocket to a match actor. The actor writes
// through Send; the two pumps own the underlying connection. The mutex
// orders Send against Close: the actor closes a seat while the read
// pump may still be echoing pongs, and a send must never race a closed
// channel.
type Client struct {
	conn *websocket.Conn
	m    *match.Match
	slot uint8

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// Send queues a frame without blocking the match loop. A full buffer
// means the reader on the other end stalled; the actor treats the
// error as a disconnect.
func (c *Client) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClientClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		return errSlowClient
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// Handler owns the websocket entry point.
type Handler struct {
	matches *match.Manager
}

func NewHandler(matches *match.Manager) *Handler {
	return &Handler{matches: matches}
}

// HandleWebSocket upgrades the connection and seats it in the match
// named by the path code, creating the match on first join.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	if len(code) != protocol.CodeLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "match code must be 5 characters"})
		return
	}

	m := h.matches.GetOrCreate(code)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		m:    m,
		send: make(chan []byte, sendBufferSize),
	}

	reply := make(chan match.JoinResult, 1)
	select {
	case m.Inbox <- match.Join{Conn: client, Reply: reply}:
	case <-m.Done():
		conn.Close()
		return
	}

	res := <-reply
	if res.Err != nil {
		log.Printf("[WS] join rejected for %s: %v", code, res.Err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, res.Err.Error()),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	client.slot = res.Slot
	log.Printf("[WS] seated slot %d in match %s", res.Slot, code)

	go client.writePump()
	go client.readPump()
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed — the actor dropped this seat.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				log.Printf("[WS] write error on slot %d: %v", c.slot, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump decodes client frames and posts them to the match actor.
// Frames that fail to decode are dropped; the connection stays up.
func (c *Client) readPump() {
	defer func() {
		c.post(match.Leave{Slot: c.slot})
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] read error on slot %d: %v", c.slot, err)
			}
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			log.Printf("[WS] bad frame from slot %d: %v", c.slot, err)
			continue
		}

		switch m := msg.(type) {
		case protocol.Ping:
			// Latency echo; never touches the match actor.
			_ = c.Send(protocol.Encode(protocol.Pong{ClientTime: m.ClientTime}))
		case protocol.Join:
			// The seat came from the URL; a late Join frame is a no-op.
		case protocol.Input, protocol.Restart:
			c.post(match.Frame{Slot: c.slot, Msg: msg})
		default:
			// Server-to-client kinds echoed back are dropped.
		}
	}
}

// post delivers a command unless the actor has already shut down.
func (c *Client) post(cmd interface{}) {
	select {
	case c.m.Inbox <- cmd:
	case <-c.m.Done():
	}
}
