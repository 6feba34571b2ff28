package chat

import (
	"slices"
	"strings"

	"github.com/npezzotti/go-studyhub/internal/types"
)

// SortRooms returns a copy of rooms ordered most recently active first.
// Activity is the time of the newest message, or the creation time for an
// empty room. Ties are broken by name, then by room id, so the same input
// always produces the same order.
func SortRooms(rooms []types.Room) []types.Room {
	sorted := slices.Clone(rooms)
	slices.SortStableFunc(sorted, func(a, b types.Room) int {
		if c := b.LastActive().Compare(a.LastActive()); c != 0 {
			return c
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ExternalId, b.ExternalId)
	})
	return sorted
}

// InitialRoom picks the room selected when a directory is first populated:
// the first room in delivered order.
func InitialRoom(rooms []types.Room) (types.Room, bool) {
	if len(rooms) == 0 {
		return types.Room{}, false
	}
	return rooms[0], true
}

// FilterRooms returns the rooms whose name or description contains query,
// ignoring case. An empty query matches everything.
func FilterRooms(rooms []types.Room, query string) []types.Room {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return rooms
	}

	var res []types.Room
	for _, r := range rooms {
		if strings.Contains(strings.ToLower(r.Name), query) ||
			strings.Contains(strings.ToLower(r.Description), query) {
			res = append(res, r)
		}
	}
	return res
}

// FilterMessages returns the messages whose content or author name contains
// query, ignoring case. Order is preserved.
func FilterMessages(messages []types.Message, query string) []types.Message {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return messages
	}

	var res []types.Message
	for _, m := range messages {
		if strings.Contains(strings.ToLower(m.Content), query) ||
			strings.Contains(strings.ToLower(m.Username), query) {
			res = append(res, m)
		}
	}
	return res
}
