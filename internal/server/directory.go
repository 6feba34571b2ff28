package server

import (
	"context"
	"fmt"
	"log"

	"github.com/npezzotti/go-studyhub/internal/chat"
	"github.com/npezzotti/go-studyhub/internal/types"
)

type directoryRequest struct {
	userId int
	resp   chan directoryResponse
}

type directoryResponse struct {
	sub *chat.Subscription[[]types.Room]
	err error
}

type roomsSub = chat.Subscription[[]types.Room]

// directory pushes the room list to every directory subscriber. Changes
// anywhere in the server mark it stale; bursts of changes collapse into a
// single refresh.
type directory struct {
	cs        *ChatServer
	log       *log.Logger
	subs      map[*roomsSub]int
	subChan   chan directoryRequest
	unsubChan chan *roomsSub
	stale     chan struct{}
	exit      chan struct{}
	done      chan struct{}
}

func newDirectory(cs *ChatServer) *directory {
	return &directory{
		cs:        cs,
		log:       cs.log,
		subs:      make(map[*roomsSub]int),
		subChan:   make(chan directoryRequest),
		unsubChan: make(chan *roomsSub),
		stale:     make(chan struct{}, 1),
		exit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (d *directory) run() {
	defer close(d.done)

	for {
		select {
		case req := <-d.subChan:
			sub, err := d.handleSubscribe(req.userId)
			req.resp <- directoryResponse{sub: sub, err: err}
		case sub := <-d.unsubChan:
			if _, ok := d.subs[sub]; ok {
				delete(d.subs, sub)
				d.cs.stats.Decr(metricDirectorySubscriptions)
			}
		case <-d.stale:
			d.publishAll()
		case <-d.exit:
			d.log.Println("closing room directory")
			for sub := range d.subs {
				sub.Close()
				d.cs.stats.Decr(metricDirectorySubscriptions)
			}
			clear(d.subs)
			return
		}
	}
}

// refresh marks the directory stale without blocking.
func (d *directory) refresh() {
	select {
	case d.stale <- struct{}{}:
	default:
	}
}

func (d *directory) subscribe(ctx context.Context, userId int) (*roomsSub, error) {
	req := directoryRequest{userId: userId, resp: make(chan directoryResponse, 1)}

	select {
	case d.subChan <- req:
	case <-d.done:
		return nil, ErrServerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.resp:
		return res.sub, res.err
	case <-ctx.Done():
		go func() {
			if res := <-req.resp; res.sub != nil {
				res.sub.Unsubscribe()
			}
		}()
		return nil, ctx.Err()
	}
}

func (d *directory) handleSubscribe(userId int) (*roomsSub, error) {
	rooms, err := d.listRooms()
	if err != nil {
		return nil, err
	}

	joined, err := d.membership(userId)
	if err != nil {
		return nil, err
	}

	var sub *roomsSub
	sub = chat.NewSubscription[[]types.Room](func() {
		select {
		case d.unsubChan <- sub:
		case <-d.done:
		}
	})
	d.subs[sub] = userId
	d.cs.stats.Incr(metricDirectorySubscriptions)

	sub.Publish(view(rooms, joined))
	return sub, nil
}

func (d *directory) listRooms() ([]types.Room, error) {
	dbRooms, err := d.cs.db.ListRooms()
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	rooms := make([]types.Room, 0, len(dbRooms))
	for _, r := range dbRooms {
		rooms = append(rooms, toRoom(r))
	}
	return chat.SortRooms(rooms), nil
}

// membership returns the ids of the rooms userId has joined.
func (d *directory) membership(userId int) (map[int]bool, error) {
	subs, err := d.cs.db.ListSubscriptions(userId)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	joined := make(map[int]bool, len(subs))
	for _, s := range subs {
		joined[s.RoomId] = true
	}
	return joined, nil
}

// view returns a fresh copy of rooms with the joined flags set.
func view(rooms []types.Room, joined map[int]bool) []types.Room {
	v := make([]types.Room, len(rooms))
	for i, r := range rooms {
		r.Joined = joined[r.Id]
		v[i] = r
	}
	return v
}

func (d *directory) publishAll() {
	if len(d.subs) == 0 {
		return
	}

	rooms, err := d.listRooms()
	if err != nil {
		d.log.Println("refresh directory:", err)
		return
	}

	memberships := make(map[int]map[int]bool)
	for sub, userId := range d.subs {
		joined, ok := memberships[userId]
		if !ok {
			joined, err = d.membership(userId)
			if err != nil {
				d.log.Printf("refresh directory for user %d: %v", userId, err)
				continue
			}
			memberships[userId] = joined
		}

		sub.Publish(view(rooms, joined))
	}
}
