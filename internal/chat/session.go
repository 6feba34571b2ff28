package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/npezzotti/go-studyhub/internal/types"
)

var (
	ErrSessionClosed  = errors.New("session closed")
	ErrSessionStarted = errors.New("session already started")
	ErrNoRoomSelected = errors.New("no room selected")
)

// SessionHandlers receive the snapshots a session accepts. They are called
// with the session lock held and must not call back into the session.
type SessionHandlers struct {
	Rooms    func(rooms []types.Room)
	Messages func(roomId string, messages []types.Message)
}

// Session is one user's view of the chat: the live room directory and the
// message stream of the selected room. Its caches are replaced wholesale on
// every push.
type Session struct {
	svc      *Service
	user     types.User
	handlers SessionHandlers
	log      *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// selectLock serializes room switches
	selectLock sync.Mutex

	mu           sync.Mutex
	closed       bool
	autoSelected bool
	selected     string
	rooms        []types.Room
	messages     []types.Message
	roomsSub     *Subscription[[]types.Room]
	messagesSub  *Subscription[[]types.Message]
}

func NewSession(svc *Service, user types.User, handlers SessionHandlers, logger *log.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		svc:      svc,
		user:     user,
		handlers: handlers,
		log:      logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the room directory. The first non-empty directory
// selects its first room unless a room was already selected. A session is
// started at most once.
func (s *Session) Start(ctx context.Context) error {
	if err := s.startable(); err != nil {
		return err
	}

	sub, err := s.svc.SubscribeToRooms(ctx, &s.user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.startableLocked(); err != nil {
		s.mu.Unlock()
		sub.Unsubscribe()
		return err
	}
	s.roomsSub = sub
	s.wg.Add(1)
	s.mu.Unlock()

	go s.readRooms(sub)
	return nil
}

func (s *Session) startable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startableLocked()
}

func (s *Session) startableLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.roomsSub != nil {
		return ErrSessionStarted
	}
	return nil
}

func (s *Session) readRooms(sub *Subscription[[]types.Room]) {
	defer s.wg.Done()

	for rooms := range sub.Updates() {
		s.mu.Lock()
		if s.roomsSub != sub {
			s.mu.Unlock()
			continue
		}

		s.rooms = rooms
		if s.handlers.Rooms != nil {
			s.handlers.Rooms(rooms)
		}

		var initial string
		if !s.autoSelected && s.selected == "" {
			if r, ok := InitialRoom(rooms); ok {
				s.autoSelected = true
				initial = r.ExternalId
			}
		}
		s.mu.Unlock()

		if initial != "" {
			if err := s.selectRoom(initial, true); err != nil {
				s.log.Printf("initial room selection %q: %v", initial, err)
			}
		}
	}
}

// SelectRoom switches the observed message stream to roomId. The previous
// stream is unsubscribed before the new one is opened, and nothing from the
// previous stream reaches the handlers once SelectRoom has started.
func (s *Session) SelectRoom(roomId string) error {
	return s.selectRoom(roomId, false)
}

func (s *Session) selectRoom(roomId string, initial bool) error {
	s.selectLock.Lock()
	defer s.selectLock.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if initial && s.selected != "" {
		// the user picked a room in the meantime
		s.mu.Unlock()
		return nil
	}
	old := s.messagesSub
	s.messagesSub = nil
	s.messages = nil
	s.selected = roomId
	s.autoSelected = true
	s.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}

	sub, err := s.svc.SubscribeToMessages(s.ctx, &s.user, roomId)
	if err != nil {
		s.mu.Lock()
		if s.selected == roomId {
			s.selected = ""
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.closed || s.selected != roomId {
		s.mu.Unlock()
		sub.Unsubscribe()
		return ErrSessionClosed
	}
	s.messagesSub = sub
	s.wg.Add(1)
	s.mu.Unlock()

	go s.readMessages(sub, roomId)
	return nil
}

func (s *Session) readMessages(sub *Subscription[[]types.Message], roomId string) {
	defer s.wg.Done()

	for messages := range sub.Updates() {
		s.mu.Lock()
		if s.messagesSub != sub {
			s.mu.Unlock()
			continue
		}

		s.messages = messages
		if s.handlers.Messages != nil {
			s.handlers.Messages(roomId, messages)
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	if s.messagesSub == sub {
		s.log.Printf("message stream for room %q ended", roomId)
		s.messagesSub = nil
	}
	s.mu.Unlock()
}

// Selected returns the id of the observed room, or "" if none.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Rooms returns the last directory snapshot.
func (s *Session) Rooms() []types.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms
}

// Messages returns the last message snapshot of the selected room.
func (s *Session) Messages() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages
}

func (s *Session) SearchRooms(query string) []types.Room {
	return FilterRooms(s.Rooms(), query)
}

func (s *Session) SearchMessages(query string) []types.Message {
	return FilterMessages(s.Messages(), query)
}

// roomOrSelected resolves an empty room id to the selected room.
func (s *Session) roomOrSelected(roomId string) (string, error) {
	if roomId != "" {
		return roomId, nil
	}
	if selected := s.Selected(); selected != "" {
		return selected, nil
	}
	return "", fmt.Errorf("%w: %w", ErrValidation, ErrNoRoomSelected)
}

func (s *Session) Send(ctx context.Context, roomId, content string) (types.Message, error) {
	roomId, err := s.roomOrSelected(roomId)
	if err != nil {
		return types.Message{}, err
	}
	return s.svc.SendMessage(ctx, &s.user, roomId, content)
}

func (s *Session) Edit(ctx context.Context, roomId, messageId, content string) (types.Message, error) {
	roomId, err := s.roomOrSelected(roomId)
	if err != nil {
		return types.Message{}, err
	}
	return s.svc.EditMessage(ctx, &s.user, messageId, roomId, content)
}

func (s *Session) Delete(ctx context.Context, roomId, messageId string) error {
	roomId, err := s.roomOrSelected(roomId)
	if err != nil {
		return err
	}
	return s.svc.DeleteMessage(ctx, &s.user, messageId, roomId)
}

func (s *Session) Join(ctx context.Context, roomId string) error {
	return s.svc.JoinRoom(ctx, &s.user, roomId)
}

func (s *Session) Leave(ctx context.Context, roomId string) error {
	return s.svc.LeaveRoom(ctx, &s.user, roomId)
}

// Close cancels every subscription of the session and waits for its
// readers to stop. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	roomsSub, messagesSub := s.roomsSub, s.messagesSub
	s.roomsSub, s.messagesSub = nil, nil
	s.mu.Unlock()

	s.cancel()
	if roomsSub != nil {
		roomsSub.Unsubscribe()
	}
	if messagesSub != nil {
		messagesSub.Unsubscribe()
	}

	s.wg.Wait()
}
