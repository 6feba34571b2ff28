package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/go-studyhub/internal/chat"
	"github.com/npezzotti/go-studyhub/internal/database"
	"github.com/npezzotti/go-studyhub/internal/stats"
	"github.com/npezzotti/go-studyhub/internal/types"
	"github.com/teris-io/shortid"
)

const (
	metricActiveRooms            = "NumActiveRooms"
	metricActiveClients          = "NumActiveClients"
	metricMessageSubscriptions   = "NumMessageSubscriptions"
	metricDirectorySubscriptions = "NumDirectorySubscriptions"

	defaultIdleRoomTimeout = 5 * time.Second
)

// ErrServerClosed is returned by every operation once the server has shut down.
var ErrServerClosed = errors.New("chat server closed")

type loadRoomRequest struct {
	roomId string
	resp   chan loadRoomResult
}

type loadRoomResult struct {
	room *Room
	err  error
}

type unloadRoomRequest struct {
	room *Room
	done chan struct{}
}

// ChatServer is the realtime provider behind the chat service. It owns the
// set of loaded rooms and the room directory.
type ChatServer struct {
	log            *log.Logger
	db             database.StudyHubRepository
	stats          stats.StatsProvider
	now            func() time.Time
	newRoomId      func() (string, error)
	newMessageId   func() string
	idleTimeout    time.Duration
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	loadRoomChan   chan loadRoomRequest
	unloadRoomChan chan unloadRoomRequest
	rooms          map[string]*Room
	roomsLock      sync.RWMutex
	dir            *directory
	stop           chan struct{}
	stopOnce       sync.Once
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, db database.StudyHubRepository, su stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:            logger,
		db:             db,
		stats:          su,
		now:            Now,
		newRoomId:      shortid.Generate,
		newMessageId:   uuid.NewString,
		idleTimeout:    defaultIdleRoomTimeout,
		clients:        make(map[*Client]struct{}),
		loadRoomChan:   make(chan loadRoomRequest),
		unloadRoomChan: make(chan unloadRoomRequest),
		rooms:          make(map[string]*Room),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	cs.dir = newDirectory(cs)

	su.RegisterMetric(metricActiveRooms)
	su.RegisterMetric(metricActiveClients)
	su.RegisterMetric(metricMessageSubscriptions)
	su.RegisterMetric(metricDirectorySubscriptions)

	return cs, nil
}

// Run serves room loading and unloading until Shutdown is called.
func (cs *ChatServer) Run() {
	go cs.dir.run()

	for {
		select {
		case req := <-cs.loadRoomChan:
			room, err := cs.handleLoadRoom(req.roomId)
			req.resp <- loadRoomResult{room: room, err: err}
		case req := <-cs.unloadRoomChan:
			cs.handleUnloadRoom(req)
		case <-cs.stop:
			cs.log.Println("shutting down rooms")
			cs.unloadAllRooms()

			close(cs.dir.exit)
			<-cs.dir.done

			close(cs.done)
			return
		}
	}
}

func (cs *ChatServer) handleLoadRoom(roomId string) (*Room, error) {
	if room, ok := cs.getRoom(roomId); ok {
		return room, nil
	}

	dbRoom, err := cs.db.GetRoomByExternalId(roomId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, chat.NotFoundErr("room %q", roomId)
		}
		return nil, fmt.Errorf("get room: %w", err)
	}

	dbMessages, err := cs.db.ListMessages(dbRoom.Id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	room := newRoom(cs, dbRoom, dbMessages)
	cs.addRoom(roomId, room)
	go room.start()

	return room, nil
}

func (cs *ChatServer) handleUnloadRoom(req unloadRoomRequest) {
	if current, ok := cs.getRoom(req.room.externalId); ok && current == req.room {
		cs.removeRoom(req.room.externalId)
	}
	close(req.done)
}

func (cs *ChatServer) unloadAllRooms() {
	cs.roomsLock.RLock()
	rooms := make([]*Room, 0, len(cs.rooms))
	for _, r := range cs.rooms {
		rooms = append(rooms, r)
	}
	cs.roomsLock.RUnlock()

	for _, r := range rooms {
		cs.log.Printf("shutting down room %q", r.externalId)
		close(r.exit)
		<-r.done
		cs.removeRoom(r.externalId)
	}
}

func (cs *ChatServer) addRoom(id string, r *Room) {
	cs.roomsLock.Lock()
	defer cs.roomsLock.Unlock()
	cs.rooms[id] = r
	cs.stats.Incr(metricActiveRooms)
}

func (cs *ChatServer) getRoom(id string) (*Room, bool) {
	cs.roomsLock.RLock()
	defer cs.roomsLock.RUnlock()
	r, ok := cs.rooms[id]
	return r, ok
}

func (cs *ChatServer) removeRoom(id string) {
	cs.roomsLock.Lock()
	defer cs.roomsLock.Unlock()
	if _, ok := cs.rooms[id]; ok {
		delete(cs.rooms, id)
		cs.stats.Decr(metricActiveRooms)
		cs.log.Printf("unloaded room %q", id)
	}
}

// loadRoom returns the running room for roomId, starting it if needed.
func (cs *ChatServer) loadRoom(ctx context.Context, roomId string) (*Room, error) {
	req := loadRoomRequest{roomId: roomId, resp: make(chan loadRoomResult, 1)}

	select {
	case cs.loadRoomChan <- req:
	case <-cs.stop:
		return nil, ErrServerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.resp:
		return res.room, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// roomCall hands req to the goroutine of roomId and waits for its answer.
// A room that unloads before accepting the request is loaded again. Once a
// mutation is accepted, ctx no longer abandons it: the room either drops it
// before touching storage or applies it, and the caller learns which.
func (cs *ChatServer) roomCall(ctx context.Context, roomId string, req *roomRequest) (roomResponse, error) {
	req.ctx = ctx
	req.resp = make(chan roomResponse, 1)
	for {
		r, err := cs.loadRoom(ctx, roomId)
		if err != nil {
			return roomResponse{}, err
		}

		select {
		case r.requests <- req:
			if req.kind != reqSubscribe {
				// an accepted mutation is reported with its real outcome
				res := <-req.resp
				return res, res.err
			}

			select {
			case res := <-req.resp:
				return res, res.err
			case <-ctx.Done():
				// the room still answers; release a subscription nobody will read
				go func() {
					if res := <-req.resp; res.sub != nil {
						res.sub.Unsubscribe()
					}
				}()
				return roomResponse{}, ctx.Err()
			}
		case <-r.done:
			// unloaded in the meantime
		case <-ctx.Done():
			return roomResponse{}, ctx.Err()
		}
	}
}

func (cs *ChatServer) SubscribeRooms(ctx context.Context, userId int) (*chat.Subscription[[]types.Room], error) {
	return cs.dir.subscribe(ctx, userId)
}

func (cs *ChatServer) SubscribeMessages(ctx context.Context, roomId string) (*chat.Subscription[[]types.Message], error) {
	res, err := cs.roomCall(ctx, roomId, &roomRequest{kind: reqSubscribe})
	if err != nil {
		return nil, err
	}
	return res.sub, nil
}

func (cs *ChatServer) AppendMessage(ctx context.Context, roomId string, author types.User, content string) (types.Message, error) {
	res, err := cs.roomCall(ctx, roomId, &roomRequest{
		kind:    reqAppend,
		author:  author,
		content: content,
	})
	return res.msg, err
}

func (cs *ChatServer) UpdateMessage(ctx context.Context, roomId, messageId string, authorId int, content string) (types.Message, error) {
	res, err := cs.roomCall(ctx, roomId, &roomRequest{
		kind:      reqUpdate,
		author:    types.User{Id: authorId},
		messageId: messageId,
		content:   content,
	})
	return res.msg, err
}

func (cs *ChatServer) RemoveMessage(ctx context.Context, roomId, messageId string, authorId int) error {
	_, err := cs.roomCall(ctx, roomId, &roomRequest{
		kind:      reqRemove,
		author:    types.User{Id: authorId},
		messageId: messageId,
	})
	return err
}

func (cs *ChatServer) CreateRoom(ctx context.Context, params chat.CreateRoomParams) (types.Room, error) {
	externalId, err := cs.newRoomId()
	if err != nil {
		return types.Room{}, fmt.Errorf("generate room id: %w", err)
	}

	dbRoom, err := cs.db.CreateRoom(database.CreateRoomParams{
		Name:        params.Name,
		Description: params.Description,
		Type:        string(params.Type),
		OwnerId:     params.Owner.Id,
		ExternalId:  externalId,
	})
	if err != nil {
		return types.Room{}, err
	}

	cs.dir.refresh()

	room := toRoom(dbRoom)
	room.Joined = true
	return room, nil
}

func (cs *ChatServer) JoinRoom(ctx context.Context, roomId string, userId int) error {
	dbRoom, err := cs.lookupRoom(roomId)
	if err != nil {
		return err
	}

	if !cs.db.SubscriptionExists(userId, dbRoom.Id) {
		if _, err := cs.db.CreateSubscription(userId, dbRoom.Id); err != nil {
			// a concurrent join of the same user won the insert
			if cs.db.SubscriptionExists(userId, dbRoom.Id) {
				return nil
			}
			return err
		}
		cs.log.Printf("user %d joined room %q", userId, roomId)
		cs.dir.refresh()
	}

	return nil
}

func (cs *ChatServer) LeaveRoom(ctx context.Context, roomId string, userId int) error {
	dbRoom, err := cs.lookupRoom(roomId)
	if err != nil {
		return err
	}

	if err := cs.db.DeleteSubscription(userId, dbRoom.Id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return chat.NotFoundErr("user %d is not a member of room %q", userId, roomId)
		}
		return err
	}

	cs.log.Printf("user %d left room %q", userId, roomId)
	cs.dir.refresh()
	return nil
}

func (cs *ChatServer) lookupRoom(roomId string) (database.Room, error) {
	dbRoom, err := cs.db.GetRoomByExternalId(roomId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.Room{}, chat.NotFoundErr("room %q", roomId)
		}
		return database.Room{}, err
	}
	return dbRoom, nil
}

// RegisterClient tracks a connected websocket client.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
	cs.stats.Incr(metricActiveClients)
}

func (cs *ChatServer) DeregisterClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	if _, ok := cs.clients[c]; ok {
		delete(cs.clients, c)
		cs.stats.Decr(metricActiveClients)
	}
}

func (cs *ChatServer) getClients() []*Client {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	clients := make([]*Client, 0, len(cs.clients))
	for c := range cs.clients {
		clients = append(clients, c)
	}
	return clients
}

// Shutdown disconnects every client, stops all rooms and the directory and
// waits for them to exit or for ctx to expire.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")
	for _, c := range cs.getClients() {
		c.stopClient()
	}

	cs.stopOnce.Do(func() { close(cs.stop) })

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func toRoom(r database.Room) types.Room {
	room := types.Room{
		Id:          r.Id,
		ExternalId:  r.ExternalId,
		Name:        r.Name,
		Description: r.Description,
		Type:        types.RoomType(r.Type),
		MemberCount: r.MemberCount,
		SeqId:       r.SeqId,
		OwnerId:     r.OwnerId,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.LastMessageContent != nil && r.LastMessageAt != nil {
		room.LastMessage = &types.LastMessage{
			Content:   *r.LastMessageContent,
			Timestamp: *r.LastMessageAt,
		}
	}
	return room
}
