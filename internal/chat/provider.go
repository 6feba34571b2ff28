package chat

import (
	"context"

	"github.com/npezzotti/go-studyhub/internal/types"
)

// Provider is the persistence and realtime backend the chat service runs on.
// It owns every room and message and is the ordering authority for both.
//
// Implementations report a missing room or message with ErrNotFound and an
// ownership violation with ErrAuthorization. Anything else is treated as a
// provider failure.
type Provider interface {
	// SubscribeRooms pushes the full room directory as seen by userId,
	// starting with the current state.
	SubscribeRooms(ctx context.Context, userId int) (*Subscription[[]types.Room], error)
	// SubscribeMessages pushes the full ordered message log of a room,
	// starting with the current state.
	SubscribeMessages(ctx context.Context, roomId string) (*Subscription[[]types.Message], error)
	AppendMessage(ctx context.Context, roomId string, author types.User, content string) (types.Message, error)
	// UpdateMessage replaces the content of a message owned by authorId.
	// Ownership is checked first; blank content from the author is then
	// rejected with ErrValidation.
	UpdateMessage(ctx context.Context, roomId, messageId string, authorId int, content string) (types.Message, error)
	// RemoveMessage deletes a message owned by authorId.
	RemoveMessage(ctx context.Context, roomId, messageId string, authorId int) error
	CreateRoom(ctx context.Context, params CreateRoomParams) (types.Room, error)
	JoinRoom(ctx context.Context, roomId string, userId int) error
	LeaveRoom(ctx context.Context, roomId string, userId int) error
}

type CreateRoomParams struct {
	Name        string
	Description string
	Type        types.RoomType
	Owner       types.User
}
