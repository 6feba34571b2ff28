package chat

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/go-studyhub/internal/types"
)

// memProvider is an in-memory Provider used by the package tests.
type memProvider struct {
	mu       sync.Mutex
	clock    time.Time
	rooms    map[string]*memRoom
	order    []string
	roomSubs map[*Subscription[[]types.Room]]struct{}
	// err, when set, fails every call
	err error
}

type memRoom struct {
	room     types.Room
	messages []types.Message
	subs     map[*Subscription[[]types.Message]]struct{}
}

func newMemProvider(roomIds ...string) *memProvider {
	p := &memProvider{
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		rooms:    make(map[string]*memRoom),
		roomSubs: make(map[*Subscription[[]types.Room]]struct{}),
	}
	for i, id := range roomIds {
		p.addRoom(types.Room{
			ExternalId: id,
			Name:       id,
			Type:       types.RoomTypeGeneral,
			CreatedAt:  p.clock.Add(time.Duration(i) * time.Second),
		})
	}
	return p
}

func (p *memProvider) addRoom(room types.Room) {
	p.rooms[room.ExternalId] = &memRoom{
		room: room,
		subs: make(map[*Subscription[[]types.Message]]struct{}),
	}
	p.order = append(p.order, room.ExternalId)
}

// setTime moves the provider clock to the given offset in seconds.
func (p *memProvider) setTime(sec int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = time.Unix(int64(sec), 0).UTC()
}

func (p *memProvider) directory() []types.Room {
	rooms := make([]types.Room, 0, len(p.order))
	for _, id := range p.order {
		rooms = append(rooms, p.rooms[id].room)
	}
	return SortRooms(rooms)
}

func (p *memProvider) publishRooms() {
	rooms := p.directory()
	for sub := range p.roomSubs {
		sub.Publish(slices.Clone(rooms))
	}
}

func (p *memProvider) publishMessages(r *memRoom) {
	for sub := range r.subs {
		sub.Publish(slices.Clone(r.messages))
	}

	if n := len(r.messages); n > 0 {
		last := r.messages[n-1]
		r.room.LastMessage = &types.LastMessage{Content: last.Content, Timestamp: last.Timestamp}
	} else {
		r.room.LastMessage = nil
	}
	p.publishRooms()
}

func (p *memProvider) messageSubscribers(roomId string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.rooms[roomId]; ok {
		return len(r.subs)
	}
	return 0
}

func (p *memProvider) SubscribeRooms(ctx context.Context, userId int) (*Subscription[[]types.Room], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}

	var sub *Subscription[[]types.Room]
	sub = NewSubscription[[]types.Room](func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.roomSubs, sub)
	})
	p.roomSubs[sub] = struct{}{}
	sub.Publish(p.directory())
	return sub, nil
}

func (p *memProvider) SubscribeMessages(ctx context.Context, roomId string) (*Subscription[[]types.Message], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}

	r, ok := p.rooms[roomId]
	if !ok {
		return nil, NotFoundErr("room %q", roomId)
	}

	var sub *Subscription[[]types.Message]
	sub = NewSubscription[[]types.Message](func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(r.subs, sub)
	})
	r.subs[sub] = struct{}{}
	sub.Publish(slices.Clone(r.messages))
	return sub, nil
}

func (p *memProvider) AppendMessage(ctx context.Context, roomId string, author types.User, content string) (types.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return types.Message{}, p.err
	}

	r, ok := p.rooms[roomId]
	if !ok {
		return types.Message{}, NotFoundErr("room %q", roomId)
	}

	msg := types.Message{
		Id:        uuid.NewString(),
		SeqId:     len(r.messages) + 1,
		RoomId:    roomId,
		UserId:    author.Id,
		Username:  author.Username,
		AvatarURL: author.AvatarURL,
		Content:   content,
		Timestamp: p.clock,
	}
	r.messages = append(slices.Clone(r.messages), msg)
	p.publishMessages(r)
	return msg, nil
}

func (p *memProvider) find(roomId, messageId string, authorId int) (*memRoom, int, error) {
	r, ok := p.rooms[roomId]
	if !ok {
		return nil, 0, NotFoundErr("room %q", roomId)
	}

	idx := slices.IndexFunc(r.messages, func(m types.Message) bool { return m.Id == messageId })
	if idx < 0 {
		return nil, 0, NotFoundErr("message %q", messageId)
	}
	if r.messages[idx].UserId != authorId {
		return nil, 0, AuthorizationErr("not the author of message %q", messageId)
	}
	return r, idx, nil
}

func (p *memProvider) UpdateMessage(ctx context.Context, roomId, messageId string, authorId int, content string) (types.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return types.Message{}, p.err
	}

	r, idx, err := p.find(roomId, messageId, authorId)
	if err != nil {
		return types.Message{}, err
	}
	if strings.TrimSpace(content) == "" {
		return types.Message{}, ValidationErr("message content cannot be empty")
	}

	editedAt := p.clock
	messages := slices.Clone(r.messages)
	messages[idx].Content = content
	messages[idx].Edited = true
	messages[idx].EditedAt = &editedAt
	r.messages = messages
	p.publishMessages(r)
	return messages[idx], nil
}

func (p *memProvider) RemoveMessage(ctx context.Context, roomId, messageId string, authorId int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}

	r, idx, err := p.find(roomId, messageId, authorId)
	if err != nil {
		return err
	}

	r.messages = slices.Delete(slices.Clone(r.messages), idx, idx+1)
	p.publishMessages(r)
	return nil
}

func (p *memProvider) CreateRoom(ctx context.Context, params CreateRoomParams) (types.Room, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return types.Room{}, p.err
	}

	room := types.Room{
		ExternalId:  uuid.NewString()[:8],
		Name:        params.Name,
		Description: params.Description,
		Type:        params.Type,
		OwnerId:     params.Owner.Id,
		MemberCount: 1,
		CreatedAt:   p.clock,
	}
	p.addRoom(room)
	p.publishRooms()
	return room, nil
}

func (p *memProvider) JoinRoom(ctx context.Context, roomId string, userId int) error {
	return p.changeMembers(roomId, 1)
}

func (p *memProvider) LeaveRoom(ctx context.Context, roomId string, userId int) error {
	return p.changeMembers(roomId, -1)
}

func (p *memProvider) changeMembers(roomId string, delta int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}

	r, ok := p.rooms[roomId]
	if !ok {
		return NotFoundErr("room %q", roomId)
	}
	r.room.MemberCount += delta
	p.publishRooms()
	return nil
}
