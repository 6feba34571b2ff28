package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/npezzotti/go-studyhub/internal/chat"
	"github.com/npezzotti/go-studyhub/internal/database"
	"github.com/npezzotti/go-studyhub/internal/types"
)

type requestKind int

const (
	reqSubscribe requestKind = iota
	reqAppend
	reqUpdate
	reqRemove
)

type roomRequest struct {
	ctx       context.Context
	kind      requestKind
	author    types.User
	messageId string
	content   string
	resp      chan roomResponse
}

type roomResponse struct {
	msg types.Message
	sub *chat.Subscription[[]types.Message]
	err error
}

// Room serializes every read and write of one room's message log.
type Room struct {
	id         int
	externalId string
	cs         *ChatServer
	log        *log.Logger
	seqId      int
	messages   []types.Message
	subs       map[*chat.Subscription[[]types.Message]]struct{}
	requests   chan *roomRequest
	unsubChan  chan *chat.Subscription[[]types.Message]
	// killTimer is used to automatically unload the room when it is no longer active
	killTimer *time.Timer
	// exit is used to signal the room to exit
	exit chan struct{}
	done chan struct{}
}

func newRoom(cs *ChatServer, dbRoom database.Room, dbMessages []database.Message) *Room {
	messages := make([]types.Message, 0, len(dbMessages))
	for _, m := range dbMessages {
		messages = append(messages, toMessage(m, dbRoom.ExternalId))
	}

	return &Room{
		id:         dbRoom.Id,
		externalId: dbRoom.ExternalId,
		cs:         cs,
		log:        cs.log,
		seqId:      dbRoom.SeqId,
		messages:   messages,
		subs:       make(map[*chat.Subscription[[]types.Message]]struct{}),
		requests:   make(chan *roomRequest),
		unsubChan:  make(chan *chat.Subscription[[]types.Message]),
		exit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (r *Room) start() {
	defer close(r.done)

	r.log.Printf("starting room %q", r.externalId)
	r.killTimer = time.NewTimer(r.cs.idleTimeout)
	defer r.killTimer.Stop()

	for {
		select {
		case req := <-r.requests:
			r.handleRequest(req)
		case sub := <-r.unsubChan:
			r.removeSubscriber(sub)
		case <-r.killTimer.C:
			if r.handleRoomTimeout() {
				return
			}
		case <-r.exit:
			r.handleRoomExit()
			return
		}
	}
}

func (r *Room) handleRequest(req *roomRequest) {
	var res roomResponse
	if req.ctx != nil && req.ctx.Err() != nil && req.kind != reqSubscribe {
		// expired while queued; nothing has been applied
		res.err = req.ctx.Err()
		req.resp <- res
		return
	}

	switch req.kind {
	case reqSubscribe:
		res.sub = r.addSubscriber()
	case reqAppend:
		res.msg, res.err = r.appendMessage(req.author, req.content)
	case reqUpdate:
		res.msg, res.err = r.updateMessage(req.messageId, req.author.Id, req.content)
	case reqRemove:
		res.err = r.removeMessage(req.messageId, req.author.Id)
	default:
		res.err = fmt.Errorf("unknown request kind %d", req.kind)
	}

	if len(r.subs) == 0 {
		r.killTimer.Reset(r.cs.idleTimeout)
	}

	req.resp <- res
}

// handleRoomTimeout asks the chat server to unload the room. It reports
// whether the room goroutine should exit.
func (r *Room) handleRoomTimeout() bool {
	if len(r.subs) > 0 {
		return false
	}

	r.log.Printf("room %q timed out", r.externalId)
	req := unloadRoomRequest{room: r, done: make(chan struct{})}
	select {
	case r.cs.unloadRoomChan <- req:
		<-req.done
	case <-r.exit:
		r.handleRoomExit()
	}
	return true
}

func (r *Room) handleRoomExit() {
	r.log.Printf("room %q is exiting", r.externalId)
	for sub := range r.subs {
		sub.Close()
		r.cs.stats.Decr(metricMessageSubscriptions)
	}
	clear(r.subs)
}

func (r *Room) addSubscriber() *chat.Subscription[[]types.Message] {
	var sub *chat.Subscription[[]types.Message]
	sub = chat.NewSubscription[[]types.Message](func() {
		select {
		case r.unsubChan <- sub:
		case <-r.done:
		}
	})

	r.subs[sub] = struct{}{}
	r.cs.stats.Incr(metricMessageSubscriptions)
	r.killTimer.Stop()

	sub.Publish(slices.Clone(r.messages))
	return sub
}

func (r *Room) removeSubscriber(sub *chat.Subscription[[]types.Message]) {
	if _, ok := r.subs[sub]; !ok {
		return
	}

	delete(r.subs, sub)
	r.cs.stats.Decr(metricMessageSubscriptions)

	if len(r.subs) == 0 {
		r.log.Printf("no subscribers in %q, starting kill timer", r.externalId)
		r.killTimer.Reset(r.cs.idleTimeout)
	}
}

// timestamp returns now, clamped so the log never goes back in time.
func (r *Room) timestamp() time.Time {
	ts := r.cs.now()
	if n := len(r.messages); n > 0 && ts.Before(r.messages[n-1].Timestamp) {
		ts = r.messages[n-1].Timestamp
	}
	return ts
}

func (r *Room) appendMessage(author types.User, content string) (types.Message, error) {
	msg := types.Message{
		Id:        r.cs.newMessageId(),
		SeqId:     r.seqId + 1,
		RoomId:    r.externalId,
		UserId:    author.Id,
		Username:  author.Username,
		AvatarURL: author.AvatarURL,
		Content:   content,
		Timestamp: r.timestamp(),
	}

	if err := r.cs.db.CreateMessage(database.Message{
		ExternalId: msg.Id,
		SeqId:      msg.SeqId,
		RoomId:     r.id,
		UserId:     msg.UserId,
		Username:   msg.Username,
		AvatarURL:  msg.AvatarURL,
		Content:    msg.Content,
		CreatedAt:  msg.Timestamp,
	}); err != nil {
		r.log.Println("error saving message:", err)
		return types.Message{}, fmt.Errorf("save message: %w", err)
	}

	// increment the sequence ID for the room now that the message is saved
	r.seqId++
	r.messages = append(r.messages, msg)
	r.broadcast()

	return msg, nil
}

// findOwned returns the index of messageId, checking that authorId wrote it.
func (r *Room) findOwned(messageId string, authorId int) (int, error) {
	idx := slices.IndexFunc(r.messages, func(m types.Message) bool { return m.Id == messageId })
	if idx < 0 {
		return -1, chat.NotFoundErr("message %q in room %q", messageId, r.externalId)
	}
	if r.messages[idx].UserId != authorId {
		return -1, chat.AuthorizationErr("user %d is not the author of message %q", authorId, messageId)
	}
	return idx, nil
}

func (r *Room) updateMessage(messageId string, authorId int, content string) (types.Message, error) {
	idx, err := r.findOwned(messageId, authorId)
	if err != nil {
		return types.Message{}, err
	}
	if strings.TrimSpace(content) == "" {
		return types.Message{}, chat.ValidationErr("message content cannot be empty")
	}

	msg := r.messages[idx]
	editedAt := r.cs.now()
	if editedAt.Before(msg.Timestamp) {
		editedAt = msg.Timestamp
	}

	if err := r.cs.db.UpdateMessage(database.UpdateMessageParams{
		RoomId:     r.id,
		ExternalId: messageId,
		Content:    content,
		EditedAt:   editedAt,
	}); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.Message{}, chat.NotFoundErr("message %q in room %q", messageId, r.externalId)
		}
		r.log.Println("error updating message:", err)
		return types.Message{}, fmt.Errorf("update message: %w", err)
	}

	msg.Content = content
	msg.Edited = true
	msg.EditedAt = &editedAt
	r.messages[idx] = msg
	r.broadcast()

	return msg, nil
}

func (r *Room) removeMessage(messageId string, authorId int) error {
	idx, err := r.findOwned(messageId, authorId)
	if err != nil {
		return err
	}

	if err := r.cs.db.DeleteMessage(r.id, messageId); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return chat.NotFoundErr("message %q in room %q", messageId, r.externalId)
		}
		r.log.Println("error deleting message:", err)
		return fmt.Errorf("delete message: %w", err)
	}

	r.messages = slices.Delete(r.messages, idx, idx+1)
	r.broadcast()

	return nil
}

// broadcast pushes a fresh copy of the log to every subscriber and marks the
// directory stale.
func (r *Room) broadcast() {
	for sub := range r.subs {
		sub.Publish(slices.Clone(r.messages))
	}
	r.cs.dir.refresh()
}

func toMessage(m database.Message, roomId string) types.Message {
	return types.Message{
		Id:        m.ExternalId,
		SeqId:     m.SeqId,
		RoomId:    roomId,
		UserId:    m.UserId,
		Username:  m.Username,
		AvatarURL: m.AvatarURL,
		Content:   m.Content,
		Timestamp: m.CreatedAt,
		Edited:    m.Edited,
		EditedAt:  m.EditedAt,
	}
}
