package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/npezzotti/go-studyhub/internal/chat"
	"github.com/npezzotti/go-studyhub/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ClientMessage struct {
	BaseMessage
	Select  *Select  `json:"select,omitempty"`
	Publish *Publish `json:"publish,omitempty"`
	Edit    *Edit    `json:"edit,omitempty"`
	Delete  *Delete  `json:"delete,omitempty"`
	Join    *Join    `json:"join,omitempty"`
	Leave   *Leave   `json:"leave,omitempty"`
}

type Select struct {
	RoomId string `json:"room_id"`
}

// Publish sends a message. An empty RoomId targets the selected room.
type Publish struct {
	RoomId  string `json:"room_id,omitempty"`
	Content string `json:"content"`
}

type Edit struct {
	RoomId    string `json:"room_id,omitempty"`
	MessageId string `json:"message_id"`
	Content   string `json:"content"`
}

type Delete struct {
	RoomId    string `json:"room_id,omitempty"`
	MessageId string `json:"message_id"`
}

type Join struct {
	RoomId string `json:"room_id"`
}

type Leave struct {
	RoomId string `json:"room_id"`
}

type ServerMessage struct {
	BaseMessage
	Response *Response       `json:"response,omitempty"`
	Rooms    *RoomsUpdate    `json:"rooms,omitempty"`
	Messages *MessagesUpdate `json:"messages,omitempty"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

// RoomsUpdate carries a complete room directory snapshot.
type RoomsUpdate struct {
	Rooms []types.Room `json:"rooms"`
}

// MessagesUpdate carries the complete message log of one room.
type MessagesUpdate struct {
	RoomId   string          `json:"room_id"`
	Messages []types.Message `json:"messages"`
}

func roomsMessage(rooms []types.Room) *ServerMessage {
	if rooms == nil {
		rooms = []types.Room{}
	}
	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Rooms:       &RoomsUpdate{Rooms: rooms},
	}
}

func messagesMessage(roomId string, messages []types.Message) *ServerMessage {
	if messages == nil {
		messages = []types.Message{}
	}
	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Messages:    &MessagesUpdate{RoomId: roomId, Messages: messages},
	}
}

func response(id, code int, errText string, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        errText,
			Data:         data,
		},
	}
}

func NoErrOK(id int, data any) *ServerMessage {
	return response(id, http.StatusOK, "", data)
}

func NoErrAccepted(id int, data any) *ServerMessage {
	return response(id, http.StatusAccepted, "", data)
}

func ErrInternalError(id int) *ServerMessage {
	return response(id, http.StatusInternalServerError, "internal server error", nil)
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return response(id, http.StatusServiceUnavailable, "service unavailable", nil)
}

func ErrInvalidMessage(id int) *ServerMessage {
	if id < 0 {
		id = 0
	}
	return response(id, http.StatusBadRequest, "invalid message format", nil)
}

// ErrResponse maps a chat error onto a response envelope.
func ErrResponse(id int, err error) *ServerMessage {
	switch chat.Kind(err) {
	case chat.ErrValidation:
		return response(id, http.StatusBadRequest, err.Error(), nil)
	case chat.ErrAuthorization:
		return response(id, http.StatusForbidden, err.Error(), nil)
	case chat.ErrNotFound:
		return response(id, http.StatusNotFound, err.Error(), nil)
	case chat.ErrProvider:
		return ErrServiceUnavailable(id)
	}

	if errors.Is(err, chat.ErrSessionClosed) {
		return ErrServiceUnavailable(id)
	}
	return ErrInternalError(id)
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
