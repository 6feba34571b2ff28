package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-studyhub/internal/chat"
	"github.com/npezzotti/go-studyhub/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 8192
	requestTimeout = 10 * time.Second
)

// Client connects one websocket to a chat session.
type Client struct {
	conn       *websocket.Conn
	chatServer *ChatServer
	session    *chat.Session
	log        *log.Logger
	user       types.User
	send       chan *ServerMessage
	stop       chan struct{}
	stopOnce   sync.Once
	writeDone  chan struct{}
}

func NewClient(user types.User, conn *websocket.Conn, cs *ChatServer, svc *chat.Service, l *log.Logger) *Client {
	c := &Client{
		conn:       conn,
		chatServer: cs,
		log:        l,
		user:       user,
		send:       make(chan *ServerMessage, 256),
		stop:       make(chan struct{}),
		writeDone:  make(chan struct{}),
	}
	c.session = chat.NewSession(svc, user, chat.SessionHandlers{
		Rooms: func(rooms []types.Room) {
			c.queueMessage(roomsMessage(rooms))
		},
		Messages: func(roomId string, messages []types.Message) {
			c.queueMessage(messagesMessage(roomId, messages))
		},
	}, l)

	return c
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.writeDone)
	}()

	for {
		select {
		case msg := <-c.send:
			if !c.writeServerMessage(msg) {
				return
			}
		case <-c.stop:
			// flush what was queued before the stop
			for len(c.send) > 0 {
				if !c.writeServerMessage(<-c.send) {
					return
				}
			}
			c.sendMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
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

	if err := c.session.Start(context.Background()); err != nil {
		c.log.Printf("start session for %q: %v", c.user.Username, err)
		c.queueMessage(ErrResponse(0, err))
		c.stopClient()
		// the deferred close must not overtake the error frame
		select {
		case <-c.writeDone:
		case <-time.After(writeWait):
		}
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) handleMessage(msg *ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch {
	case msg.Select != nil:
		if err := c.session.SelectRoom(msg.Select.RoomId); err != nil {
			c.queueMessage(ErrResponse(msg.Id, err))
			return
		}
		c.queueMessage(NoErrOK(msg.Id, nil))
	case msg.Publish != nil:
		sent, err := c.session.Send(ctx, msg.Publish.RoomId, msg.Publish.Content)
		if err != nil {
			c.queueMessage(ErrResponse(msg.Id, err))
			return
		}
		c.queueMessage(NoErrAccepted(msg.Id, map[string]any{"message_id": sent.Id}))
	case msg.Edit != nil:
		if _, err := c.session.Edit(ctx, msg.Edit.RoomId, msg.Edit.MessageId, msg.Edit.Content); err != nil {
			c.queueMessage(ErrResponse(msg.Id, err))
			return
		}
		c.queueMessage(NoErrOK(msg.Id, nil))
	case msg.Delete != nil:
		if err := c.session.Delete(ctx, msg.Delete.RoomId, msg.Delete.MessageId); err != nil {
			c.queueMessage(ErrResponse(msg.Id, err))
			return
		}
		c.queueMessage(NoErrOK(msg.Id, nil))
	case msg.Join != nil:
		if err := c.session.Join(ctx, msg.Join.RoomId); err != nil {
			c.queueMessage(ErrResponse(msg.Id, err))
			return
		}
		c.queueMessage(NoErrOK(msg.Id, nil))
	case msg.Leave != nil:
		if err := c.session.Leave(ctx, msg.Leave.RoomId); err != nil {
			c.queueMessage(ErrResponse(msg.Id, err))
			return
		}
		c.queueMessage(NoErrOK(msg.Id, nil))
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) writeServerMessage(msg *ServerMessage) bool {
	bytes, err := serializeMessage(msg)
	if err != nil {
		c.log.Println("failed to serialize message:", err)
		return true
	}
	return c.sendMessage(websocket.TextMessage, bytes)
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
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
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.session.Close()
	c.chatServer.DeregisterClient(c)
	c.stopClient()
}
