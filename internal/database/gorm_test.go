package database

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo opens a private in-memory SQLite database for a single test.
func setupTestRepo(t *testing.T) *GormStudyHubRepository {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	repo, err := NewGormStudyHubRepository(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func createTestAccount(t *testing.T, repo *GormStudyHubRepository, username string) User {
	t.Helper()

	u, err := repo.CreateAccount(CreateAccountParams{
		Username:     username,
		EmailAddress: username + "@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err, "failed to create account")
	return u
}

func TestGormRepository_Accounts(t *testing.T) {
	repo := setupTestRepo(t)

	u := createTestAccount(t, repo, "alice")
	assert.NotZero(t, u.Id, "expected account id to be assigned")
	assert.Empty(t, u.PasswordHash, "expected password hash not to be returned")

	byEmail, err := repo.GetAccountByEmail("alice@example.com")
	assert.NoError(t, err)
	assert.Equal(t, "hash", byEmail.PasswordHash, "expected password hash for login lookups")

	updated, err := repo.UpdateAccount(UpdateAccountParams{
		UserId:       u.Id,
		Username:     "alice2",
		AvatarURL:    "https://example.com/a.png",
		PasswordHash: "newhash",
	})
	assert.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, "https://example.com/a.png", updated.AvatarURL)

	_, err = repo.GetAccountById(9999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.UpdateAccount(UpdateAccountParams{UserId: 9999, Username: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepository_RoomsAndSubscriptions(t *testing.T) {
	repo := setupTestRepo(t)
	owner := createTestAccount(t, repo, "owner")
	member := createTestAccount(t, repo, "member")

	room, err := repo.CreateRoom(CreateRoomParams{
		Name:        "Semester 3",
		Description: "third semester",
		Type:        "year-based",
		OwnerId:     owner.Id,
		ExternalId:  "abc123",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, room.MemberCount, "expected owner to be the first member")
	assert.True(t, repo.SubscriptionExists(owner.Id, room.Id), "expected owner subscription")
	assert.False(t, repo.SubscriptionExists(member.Id, room.Id), "expected no member subscription")

	_, err = repo.CreateSubscription(member.Id, room.Id)
	require.NoError(t, err)

	got, err := repo.GetRoomByExternalId("abc123")
	require.NoError(t, err)
	assert.Equal(t, 2, got.MemberCount)
	assert.Equal(t, "year-based", got.Type)
	assert.Nil(t, got.LastMessageContent, "expected no last message in an empty room")

	subs, err := repo.ListSubscriptions(member.Id)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.Equal(t, room.Id, subs[0].RoomId)

	assert.NoError(t, repo.DeleteSubscription(member.Id, room.Id))
	assert.ErrorIs(t, repo.DeleteSubscription(member.Id, room.Id), ErrNotFound)

	_, err = repo.GetRoomByExternalId("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepository_Messages(t *testing.T) {
	repo := setupTestRepo(t)
	owner := createTestAccount(t, repo, "owner")
	room, err := repo.CreateRoom(CreateRoomParams{Name: "General", Type: "general", OwnerId: owner.Id, ExternalId: "gen"})
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		err := repo.CreateMessage(Message{
			ExternalId: fmt.Sprintf("msg-%d", i),
			SeqId:      i,
			RoomId:     room.Id,
			UserId:     owner.Id,
			Username:   owner.Username,
			Content:    fmt.Sprintf("message %d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	msgs, err := repo.ListMessages(room.Id)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, msg := range msgs {
		assert.Equal(t, i+1, msg.SeqId, "expected messages in sequence order")
	}

	got, err := repo.GetRoomByExternalId("gen")
	require.NoError(t, err)
	assert.Equal(t, 3, got.SeqId, "expected room sequence id to follow the newest message")
	if assert.NotNil(t, got.LastMessageContent) {
		assert.Equal(t, "message 3", *got.LastMessageContent)
	}

	editedAt := base.Add(time.Hour)
	assert.NoError(t, repo.UpdateMessage(UpdateMessageParams{RoomId: room.Id, ExternalId: "msg-2", Content: "changed", EditedAt: editedAt}))
	assert.ErrorIs(t, repo.UpdateMessage(UpdateMessageParams{RoomId: room.Id, ExternalId: "nope", Content: "x", EditedAt: editedAt}), ErrNotFound)

	msgs, err = repo.ListMessages(room.Id)
	require.NoError(t, err)
	assert.Equal(t, "changed", msgs[1].Content)
	assert.True(t, msgs[1].Edited)
	if assert.NotNil(t, msgs[1].EditedAt) {
		assert.True(t, msgs[1].EditedAt.Equal(editedAt), "expected edited at to be stored")
	}

	assert.NoError(t, repo.DeleteMessage(room.Id, "msg-3"))
	assert.ErrorIs(t, repo.DeleteMessage(room.Id, "msg-3"), ErrNotFound)

	got, err = repo.GetRoomByExternalId("gen")
	require.NoError(t, err)
	if assert.NotNil(t, got.LastMessageContent) {
		assert.Equal(t, "changed", *got.LastMessageContent, "expected last message to fall back after delete")
	}

	page, err := repo.GetMessages(room.Id, 0, 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 2, page[0].SeqId, "expected newest remaining message first")
}

func TestGormRepository_Profiles(t *testing.T) {
	repo := setupTestRepo(t)
	u := createTestAccount(t, repo, "student")

	_, err := repo.GetProfile(u.Id)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := repo.CreateProfile(Profile{AccountId: u.Id, FullName: "A Student", Branch: "CSE", Year: 2})
	require.NoError(t, err)
	assert.Equal(t, "A Student", p.FullName)

	p.Bio = "hello"
	updated, err := repo.UpdateProfile(p)
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Bio)

	assert.NoError(t, repo.DeleteProfile(u.Id))
	assert.ErrorIs(t, repo.DeleteProfile(u.Id), ErrNotFound)
}

func TestGormRepository_Submissions(t *testing.T) {
	repo := setupTestRepo(t)

	c, err := repo.CreateContactSubmission(ContactSubmission{Name: "n", Email: "e@example.com", Message: "m"})
	assert.NoError(t, err)
	assert.NotZero(t, c.Id)

	f, err := repo.CreateFeedbackSubmission(FeedbackSubmission{Name: "n", Email: "e@example.com", Rating: 4, Message: "m"})
	assert.NoError(t, err)
	assert.NotZero(t, f.Id)

	r, err := repo.CreateFreelanceRegistration(FreelanceRegistration{Name: "n", Email: "e@example.com", Skills: "go"})
	assert.NoError(t, err)
	assert.NotZero(t, r.Id)
	assert.False(t, r.CreatedAt.IsZero(), "expected created at to be set")
}
