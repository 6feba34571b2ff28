package database

import (
	"github.com/stretchr/testify/mock"
)

type MockStudyHubRepository struct {
	mock.Mock
}

func (m *MockStudyHubRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockStudyHubRepository) CreateAccount(accountParams CreateAccountParams) (User, error) {
	args := m.Called(accountParams)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockStudyHubRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockStudyHubRepository) GetAccountById(userId int) (User, error) {
	args := m.Called(userId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockStudyHubRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockStudyHubRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockStudyHubRepository) GetRoomByExternalId(externalId string) (Room, error) {
	args := m.Called(externalId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockStudyHubRepository) ListRooms() ([]Room, error) {
	args := m.Called()
	return args.Get(0).([]Room), args.Error(1)
}
func (m *MockStudyHubRepository) CreateSubscription(userId, roomId int) (Subscription, error) {
	args := m.Called(userId, roomId)
	return args.Get(0).(Subscription), args.Error(1)
}
func (m *MockStudyHubRepository) SubscriptionExists(accountId, roomId int) bool {
	args := m.Called(accountId, roomId)
	return args.Bool(0)
}
func (m *MockStudyHubRepository) ListSubscriptions(accountId int) ([]Subscription, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Subscription), args.Error(1)
}
func (m *MockStudyHubRepository) DeleteSubscription(accountId, roomId int) error {
	args := m.Called(accountId, roomId)
	return args.Error(0)
}
func (m *MockStudyHubRepository) CreateMessage(msg Message) error {
	args := m.Called(msg)
	return args.Error(0)
}
func (m *MockStudyHubRepository) UpdateMessage(params UpdateMessageParams) error {
	args := m.Called(params)
	return args.Error(0)
}
func (m *MockStudyHubRepository) DeleteMessage(roomId int, externalId string) error {
	args := m.Called(roomId, externalId)
	return args.Error(0)
}
func (m *MockStudyHubRepository) ListMessages(roomId int) ([]Message, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockStudyHubRepository) GetMessages(roomId, since, before, limit int) ([]Message, error) {
	args := m.Called(roomId, since, before, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockStudyHubRepository) GetProfile(accountId int) (Profile, error) {
	args := m.Called(accountId)
	return args.Get(0).(Profile), args.Error(1)
}
func (m *MockStudyHubRepository) CreateProfile(profile Profile) (Profile, error) {
	args := m.Called(profile)
	return args.Get(0).(Profile), args.Error(1)
}
func (m *MockStudyHubRepository) UpdateProfile(profile Profile) (Profile, error) {
	args := m.Called(profile)
	return args.Get(0).(Profile), args.Error(1)
}
func (m *MockStudyHubRepository) DeleteProfile(accountId int) error {
	args := m.Called(accountId)
	return args.Error(0)
}
func (m *MockStudyHubRepository) CreateContactSubmission(sub ContactSubmission) (ContactSubmission, error) {
	args := m.Called(sub)
	return args.Get(0).(ContactSubmission), args.Error(1)
}
func (m *MockStudyHubRepository) CreateFeedbackSubmission(sub FeedbackSubmission) (FeedbackSubmission, error) {
	args := m.Called(sub)
	return args.Get(0).(FeedbackSubmission), args.Error(1)
}
func (m *MockStudyHubRepository) CreateFreelanceRegistration(reg FreelanceRegistration) (FreelanceRegistration, error) {
	args := m.Called(reg)
	return args.Get(0).(FreelanceRegistration), args.Error(1)
}
