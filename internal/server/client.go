package server

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

type Client struct {
	id    string
	conn  *websocket.Conn
	relay *Relay
	log   *log.Logger
	// email is the authenticated identity the connection was opened with
	email string
	// identity is the identity bound by a join; only the relay loop touches it
	identity string
	send     chan *ServerMessage
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(email string, conn *websocket.Conn, r *Relay, l *log.Logger) (*Client, error) {
	id, err := shortid.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate connection id: %w", err)
	}

	return &Client{
		id:    id,
		conn:  conn,
		relay: r,
		log:   l,
		email: email,
		send:  make(chan *ServerMessage, sendBufferSize),
		stop:  make(chan struct{}),
	}, nil
}

func (c *Client) Id() string {
	return c.id
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		c.handleRaw(raw)
	}
}

func (c *Client) handleRaw(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.log.Println("error parsing message:", err)
		c.queueMessage(ErrInvalidMessage())
		return
	}

	switch msg.Event {
	case EventJoin:
		var join Join
		if err := json.Unmarshal(msg.Data, &join); err != nil || join.Email == "" {
			c.queueMessage(ErrInvalidMessage())
			return
		}
		c.join(join.Email)
	case EventMessage:
		var pub Publish
		if err := json.Unmarshal(msg.Data, &pub); err != nil || pub.SocketId == "" {
			c.queueMessage(ErrInvalidMessage())
			return
		}
		c.publish(pub)
	default:
		c.queueMessage(ErrUnknownEvent())
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("failed to send message to client %q, channel is full", c.id)
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.relay.deregister(c)
	c.stopClient()
}

func (c *Client) join(email string) {
	select {
	case c.relay.joinChan <- &joinReq{client: c, email: email}:
	default:
		c.log.Printf("joinChan full")
		c.queueMessage(ErrServiceUnavailable())
	}
}

func (c *Client) publish(pub Publish) {
	select {
	case c.relay.publishChan <- &publishReq{from: c, to: pub.SocketId, payload: pub.Message}:
	default:
		c.log.Printf("publishChan full")
		c.queueMessage(ErrServiceUnavailable())
	}
}
