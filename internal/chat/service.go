package chat

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/npezzotti/go-studyhub/internal/types"
)

const (
	maxRoomNameLength = 128
	maxDescLength     = 1024
)

var roomIdPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Service implements the room directory and message stream operations on
// top of a Provider. It validates every request before the provider sees
// it and never retries a failed call.
type Service struct {
	provider Provider
	log      *log.Logger
}

func NewService(provider Provider, logger *log.Logger) *Service {
	return &Service{
		provider: provider,
		log:      logger,
	}
}

func authenticated(user *types.User) error {
	if user == nil || user.Id <= 0 {
		return AuthorizationErr("not authenticated")
	}
	return nil
}

func validRoomId(roomId string) error {
	if !roomIdPattern.MatchString(roomId) {
		return ValidationErr("malformed room id %q", roomId)
	}
	return nil
}

func validMessageId(messageId string) error {
	if _, err := uuid.Parse(messageId); err != nil {
		return ValidationErr("malformed message id %q", messageId)
	}
	return nil
}

// normalizeContent trims content and rejects it if nothing is left.
func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ValidationErr("message content cannot be empty")
	}
	return content, nil
}

// SubscribeToRooms registers interest in the room directory of user. The
// current directory is delivered first, then every change.
func (s *Service) SubscribeToRooms(ctx context.Context, user *types.User) (*Subscription[[]types.Room], error) {
	if err := authenticated(user); err != nil {
		return nil, err
	}

	sub, err := s.provider.SubscribeRooms(ctx, user.Id)
	if err != nil {
		return nil, providerErr("subscribe rooms", err)
	}
	return sub, nil
}

// ListRooms returns the current directory of user without keeping a
// subscription open.
func (s *Service) ListRooms(ctx context.Context, user *types.User) ([]types.Room, error) {
	sub, err := s.SubscribeToRooms(ctx, user)
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	select {
	case rooms, ok := <-sub.Updates():
		if !ok {
			return nil, providerErr("list rooms", ErrSubscriptionClosed)
		}
		return rooms, nil
	case <-ctx.Done():
		return nil, providerErr("list rooms", ctx.Err())
	}
}

// SubscribeToMessages registers interest in the messages of one room.
func (s *Service) SubscribeToMessages(ctx context.Context, user *types.User, roomId string) (*Subscription[[]types.Message], error) {
	if err := authenticated(user); err != nil {
		return nil, err
	}
	if err := validRoomId(roomId); err != nil {
		return nil, err
	}

	sub, err := s.provider.SubscribeMessages(ctx, roomId)
	if err != nil {
		return nil, providerErr("subscribe messages", err)
	}
	return sub, nil
}

// SendMessage appends a message authored by user. The returned message is
// informational; subscribers observe it through their own subscriptions.
func (s *Service) SendMessage(ctx context.Context, user *types.User, roomId, content string) (types.Message, error) {
	if err := authenticated(user); err != nil {
		return types.Message{}, err
	}
	if err := validRoomId(roomId); err != nil {
		return types.Message{}, err
	}
	content, err := normalizeContent(content)
	if err != nil {
		return types.Message{}, err
	}

	msg, err := s.provider.AppendMessage(ctx, roomId, *user, content)
	if err != nil {
		return types.Message{}, providerErr("send message", err)
	}
	return msg, nil
}

// EditMessage replaces the content of a message. Only its author may edit it.
func (s *Service) EditMessage(ctx context.Context, user *types.User, messageId, roomId, newContent string) (types.Message, error) {
	if err := authenticated(user); err != nil {
		return types.Message{}, err
	}
	if err := validRoomId(roomId); err != nil {
		return types.Message{}, err
	}
	if err := validMessageId(messageId); err != nil {
		return types.Message{}, err
	}
	// blank content is rejected by the provider after its author check
	newContent = strings.TrimSpace(newContent)

	msg, err := s.provider.UpdateMessage(ctx, roomId, messageId, user.Id, newContent)
	if err != nil {
		return types.Message{}, providerErr("edit message", err)
	}
	return msg, nil
}

// DeleteMessage removes a message. Only its author may delete it.
func (s *Service) DeleteMessage(ctx context.Context, user *types.User, messageId, roomId string) error {
	if err := authenticated(user); err != nil {
		return err
	}
	if err := validRoomId(roomId); err != nil {
		return err
	}
	if err := validMessageId(messageId); err != nil {
		return err
	}

	if err := s.provider.RemoveMessage(ctx, roomId, messageId, user.Id); err != nil {
		return providerErr("delete message", err)
	}
	return nil
}

// CreateRoom creates a room owned by user, who becomes its first member.
func (s *Service) CreateRoom(ctx context.Context, user *types.User, name, description string, roomType types.RoomType) (types.Room, error) {
	if err := authenticated(user); err != nil {
		return types.Room{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return types.Room{}, ValidationErr("room name cannot be empty")
	}
	if len(name) > maxRoomNameLength {
		return types.Room{}, ValidationErr("room name cannot exceed %d characters", maxRoomNameLength)
	}
	description = strings.TrimSpace(description)
	if len(description) > maxDescLength {
		return types.Room{}, ValidationErr("room description cannot exceed %d characters", maxDescLength)
	}
	if roomType == "" {
		roomType = types.RoomTypeGeneral
	}
	if !roomType.Valid() {
		return types.Room{}, ValidationErr("unknown room type %q", roomType)
	}

	room, err := s.provider.CreateRoom(ctx, CreateRoomParams{
		Name:        name,
		Description: description,
		Type:        roomType,
		Owner:       *user,
	})
	if err != nil {
		return types.Room{}, providerErr("create room", err)
	}

	s.log.Printf("user %d created room %q", user.Id, room.ExternalId)
	return room, nil
}

func (s *Service) JoinRoom(ctx context.Context, user *types.User, roomId string) error {
	if err := authenticated(user); err != nil {
		return err
	}
	if err := validRoomId(roomId); err != nil {
		return err
	}

	if err := s.provider.JoinRoom(ctx, roomId, user.Id); err != nil {
		return providerErr("join room", err)
	}
	return nil
}

func (s *Service) LeaveRoom(ctx context.Context, user *types.User, roomId string) error {
	if err := authenticated(user); err != nil {
		return err
	}
	if err := validRoomId(roomId); err != nil {
		return err
	}

	if err := s.provider.LeaveRoom(ctx, roomId, user.Id); err != nil {
		return providerErr("leave room", err)
	}
	return nil
}
