package chat

import (
	"testing"
	"time"

	"github.com/npezzotti/go-studyhub/internal/types"
	"github.com/stretchr/testify/assert"
)

func roomIds(rooms []types.Room) []string {
	ids := make([]string, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ExternalId
	}
	return ids
}

func TestSortRooms(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

	tcases := []struct {
		name     string
		rooms    []types.Room
		expected []string
	}{
		{
			name:     "empty",
			rooms:    nil,
			expected: []string{},
		},
		{
			name: "newest message first",
			rooms: []types.Room{
				{ExternalId: "a", Name: "a", CreatedAt: at(0), LastMessage: &types.LastMessage{Timestamp: at(5)}},
				{ExternalId: "b", Name: "b", CreatedAt: at(0), LastMessage: &types.LastMessage{Timestamp: at(10)}},
			},
			expected: []string{"b", "a"},
		},
		{
			name: "empty room falls back to creation time",
			rooms: []types.Room{
				{ExternalId: "old", Name: "old", CreatedAt: at(0), LastMessage: &types.LastMessage{Timestamp: at(3)}},
				{ExternalId: "new", Name: "new", CreatedAt: at(4)},
			},
			expected: []string{"new", "old"},
		},
		{
			name: "ties broken by name then id",
			rooms: []types.Room{
				{ExternalId: "z", Name: "beta", CreatedAt: at(1)},
				{ExternalId: "y", Name: "alpha", CreatedAt: at(1)},
				{ExternalId: "x", Name: "alpha", CreatedAt: at(1)},
			},
			expected: []string{"x", "y", "z"},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			sorted := SortRooms(tc.rooms)
			assert.Equal(t, tc.expected, roomIds(sorted))
		})
	}
}

func TestSortRooms_DoesNotModifyInput(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rooms := []types.Room{
		{ExternalId: "a", CreatedAt: base},
		{ExternalId: "b", CreatedAt: base.Add(time.Minute)},
	}

	SortRooms(rooms)
	assert.Equal(t, []string{"a", "b"}, roomIds(rooms), "expected input order to be untouched")
}

func TestInitialRoom(t *testing.T) {
	_, ok := InitialRoom(nil)
	assert.False(t, ok, "expected no selection for an empty directory")

	rooms := []types.Room{{ExternalId: "first"}, {ExternalId: "second"}}
	for i := 0; i < 3; i++ {
		r, ok := InitialRoom(rooms)
		assert.True(t, ok)
		assert.Equal(t, "first", r.ExternalId, "expected the first delivered room every time")
	}
}

func TestFilterRooms(t *testing.T) {
	rooms := []types.Room{
		{ExternalId: "1", Name: "Semester 3", Description: "Data Structures"},
		{ExternalId: "2", Name: "General", Description: "anything goes"},
		{ExternalId: "3", Name: "Physics", Description: "semester 1 labs"},
	}

	assert.Equal(t, []string{"1", "3"}, roomIds(FilterRooms(rooms, "SEMESTER")))
	assert.Equal(t, []string{"2"}, roomIds(FilterRooms(rooms, " general ")))
	assert.Len(t, FilterRooms(rooms, ""), 3, "expected empty query to match everything")
	assert.Empty(t, FilterRooms(rooms, "chemistry"))
}

func TestFilterMessages(t *testing.T) {
	messages := []types.Message{
		{Id: "1", Username: "alice", Content: "Hello there"},
		{Id: "2", Username: "bob", Content: "exam tomorrow?"},
		{Id: "3", Username: "carol", Content: "say hello to Bob"},
	}

	var ids []string
	for _, m := range FilterMessages(messages, "hello") {
		ids = append(ids, m.Id)
	}
	assert.Equal(t, []string{"1", "3"}, ids)

	ids = nil
	for _, m := range FilterMessages(messages, "bob") {
		ids = append(ids, m.Id)
	}
	assert.Equal(t, []string{"2", "3"}, ids, "expected author names to match too")
}
