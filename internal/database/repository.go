package database

type StudyHubRepository interface {
	Ping() error
	CreateAccount(accountParams CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomByExternalId(externalId string) (Room, error)
	ListRooms() ([]Room, error)
	CreateSubscription(accountId, roomId int) (Subscription, error)
	SubscriptionExists(accountId, roomId int) bool
	ListSubscriptions(accountId int) ([]Subscription, error)
	DeleteSubscription(accountId, roomId int) error
	CreateMessage(msg Message) error
	UpdateMessage(params UpdateMessageParams) error
	DeleteMessage(roomId int, externalId string) error
	ListMessages(roomId int) ([]Message, error)
	GetMessages(roomId, since, before, limit int) ([]Message, error)
	GetProfile(accountId int) (Profile, error)
	CreateProfile(profile Profile) (Profile, error)
	UpdateProfile(profile Profile) (Profile, error)
	DeleteProfile(accountId int) error
	CreateContactSubmission(sub ContactSubmission) (ContactSubmission, error)
	CreateFeedbackSubmission(sub FeedbackSubmission) (FeedbackSubmission, error)
	CreateFreelanceRegistration(reg FreelanceRegistration) (FreelanceRegistration, error)
}
