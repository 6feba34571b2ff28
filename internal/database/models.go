package database

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type Room struct {
	Id                 int
	Name               string
	ExternalId         string
	Description        string
	Type               string
	SeqId              int
	OwnerId            int
	MemberCount        int
	LastMessageContent *string
	LastMessageAt      *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Subscriptions      []Subscription
}

type User struct {
	Id           int
	Username     string
	EmailAddress string
	AvatarURL    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Subscription struct {
	Id        int
	Room      Room
	AccountId int
	Username  string
	RoomId    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Message struct {
	Id         int
	ExternalId string
	SeqId      int
	RoomId     int
	UserId     int
	Username   string
	AvatarURL  string
	Content    string
	Edited     bool
	EditedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Profile struct {
	AccountId int
	FullName  string
	Bio       string
	Branch    string
	Year      int
	College   string
	Phone     string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ContactSubmission struct {
	Id        int
	Name      string
	Email     string
	Subject   string
	Message   string
	CreatedAt time.Time
}

type FeedbackSubmission struct {
	Id        int
	Name      string
	Email     string
	Rating    int
	Message   string
	CreatedAt time.Time
}

type FreelanceRegistration struct {
	Id           int
	Name         string
	Email        string
	Skills       string
	PortfolioURL string
	Experience   string
	CreatedAt    time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	AvatarURL    string
	PasswordHash string
}

type CreateRoomParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	OwnerId     int    `json:"-"`
	ExternalId  string `json:"external_id"`
}

type UpdateMessageParams struct {
	RoomId     int
	ExternalId string
	Content    string
	EditedAt   time.Time
}
