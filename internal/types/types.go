package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type RoomType string

const (
	RoomTypeGeneral         RoomType = "general"
	RoomTypeYearBased       RoomType = "year-based"
	RoomTypeSubjectSpecific RoomType = "subject-specific"
)

// Valid reports whether t is one of the known room types.
func (t RoomType) Valid() bool {
	switch t {
	case RoomTypeGeneral, RoomTypeYearBased, RoomTypeSubjectSpecific:
		return true
	}
	return false
}

// LastMessage is the preview of the newest message in a room.
type LastMessage struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Room struct {
	Id          int          `json:"id"`
	ExternalId  string       `json:"external_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Type        RoomType     `json:"type"`
	MemberCount int          `json:"member_count"`
	SeqId       int          `json:"seq_id"`
	OwnerId     int          `json:"owner_id"`
	Joined      bool         `json:"joined"`
	LastMessage *LastMessage `json:"last_message,omitempty"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
}

// LastActive returns the time of the newest message, or the creation
// time when the room has no messages.
func (r Room) LastActive() time.Time {
	if r.LastMessage != nil {
		return r.LastMessage.Timestamp
	}
	return r.CreatedAt
}

type Subscription struct {
	Id        int       `json:"id"`
	User      User      `json:"user"`
	Room      Room      `json:"room"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Message struct {
	Id        string     `json:"id"`
	SeqId     int        `json:"seq_id"`
	RoomId    string     `json:"room_id"`
	UserId    int        `json:"user_id"`
	Username  string     `json:"username"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	Edited    bool       `json:"edited"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

type Profile struct {
	UserId    int       `json:"user_id"`
	FullName  string    `json:"full_name"`
	Bio       string    `json:"bio,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	Year      int       `json:"year,omitempty"`
	College   string    `json:"college,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type ContactSubmission struct {
	Id        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type FeedbackSubmission struct {
	Id        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Rating    int       `json:"rating,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type FreelanceRegistration struct {
	Id           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Skills       string    `json:"skills"`
	PortfolioURL string    `json:"portfolio_url,omitempty"`
	Experience   string    `json:"experience,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
