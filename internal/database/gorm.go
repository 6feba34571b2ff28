package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type accountRecord struct {
	ID           int    `gorm:"primaryKey"`
	Username     string `gorm:"size:64;not null"`
	Email        string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	AvatarURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (accountRecord) TableName() string { return "accounts" }

type roomRecord struct {
	ID          int    `gorm:"primaryKey"`
	ExternalID  string `gorm:"size:32;not null;uniqueIndex"`
	Name        string `gorm:"size:128;not null"`
	Description string
	Type        string `gorm:"size:32;not null;default:general"`
	OwnerID     int    `gorm:"not null"`
	SeqID       int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (roomRecord) TableName() string { return "rooms" }

type subscriptionRecord struct {
	ID        int `gorm:"primaryKey"`
	AccountID int `gorm:"not null;uniqueIndex:idx_account_room"`
	RoomID    int `gorm:"not null;uniqueIndex:idx_account_room"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (subscriptionRecord) TableName() string { return "subscriptions" }

type messageRecord struct {
	ID         int    `gorm:"primaryKey"`
	ExternalID string `gorm:"size:36;not null;uniqueIndex"`
	SeqID      int    `gorm:"not null;uniqueIndex:idx_room_seq"`
	RoomID     int    `gorm:"not null;uniqueIndex:idx_room_seq"`
	UserID     int    `gorm:"not null"`
	Username   string `gorm:"size:64;not null"`
	AvatarURL  string
	Content    string `gorm:"not null"`
	Edited     bool   `gorm:"not null;default:false"`
	EditedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (messageRecord) TableName() string { return "messages" }

type profileRecord struct {
	AccountID int    `gorm:"primaryKey;autoIncrement:false"`
	FullName  string `gorm:"size:128;not null"`
	Bio       string
	Branch    string
	Year      int
	College   string
	Phone     string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (profileRecord) TableName() string { return "profiles" }

type contactRecord struct {
	ID        int    `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null"`
	Subject   string
	Message   string `gorm:"not null"`
	CreatedAt time.Time
}

func (contactRecord) TableName() string { return "contact_submissions" }

type feedbackRecord struct {
	ID        int    `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null"`
	Rating    int
	Message   string `gorm:"not null"`
	CreatedAt time.Time
}

func (feedbackRecord) TableName() string { return "feedback_submissions" }

type freelanceRecord struct {
	ID           int    `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"not null"`
	Skills       string `gorm:"not null"`
	PortfolioURL string
	Experience   string
	CreatedAt    time.Time
}

func (freelanceRecord) TableName() string { return "freelance_registrations" }

// GormStudyHubRepository stores everything in an embedded SQLite database.
// It backs local development and the repository tests.
type GormStudyHubRepository struct {
	db *gorm.DB
}

func NewGormStudyHubRepository(dsn string) (*GormStudyHubRepository, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// sqlite allows a single writer
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&accountRecord{},
		&roomRecord{},
		&subscriptionRecord{},
		&messageRecord{},
		&profileRecord{},
		&contactRecord{},
		&feedbackRecord{},
		&freelanceRecord{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &GormStudyHubRepository{db: db}, nil
}

func (r *GormStudyHubRepository) Ping() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (r *GormStudyHubRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func gormRowsAffected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (a accountRecord) toUser() User {
	return User{
		Id:           a.ID,
		Username:     a.Username,
		EmailAddress: a.Email,
		AvatarURL:    a.AvatarURL,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (r *GormStudyHubRepository) CreateAccount(params CreateAccountParams) (User, error) {
	rec := accountRecord{
		Username:     params.Username,
		Email:        params.EmailAddress,
		PasswordHash: params.PasswordHash,
	}
	if err := r.db.Create(&rec).Error; err != nil {
		return User{}, fmt.Errorf("create account: %w", err)
	}

	u := rec.toUser()
	u.PasswordHash = ""
	return u, nil
}

func (r *GormStudyHubRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := r.db.Model(&accountRecord{}).Where("id = ?", params.UserId).Updates(map[string]any{
		"username":      params.Username,
		"avatar_url":    params.AvatarURL,
		"password_hash": params.PasswordHash,
		"updated_at":    time.Now().UTC(),
	})
	if err := gormRowsAffected(res); err != nil {
		return User{}, err
	}

	return r.GetAccountById(params.UserId)
}

func (r *GormStudyHubRepository) GetAccountById(accountId int) (User, error) {
	var rec accountRecord
	if err := r.db.First(&rec, "id = ?", accountId).Error; err != nil {
		return User{}, gormNotFound(err)
	}

	u := rec.toUser()
	u.PasswordHash = ""
	return u, nil
}

func (r *GormStudyHubRepository) GetAccountByEmail(email string) (User, error) {
	var rec accountRecord
	if err := r.db.First(&rec, "email = ?", email).Error; err != nil {
		return User{}, gormNotFound(err)
	}
	return rec.toUser(), nil
}

func (r *GormStudyHubRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	rec := roomRecord{
		ExternalID:  params.ExternalId,
		Name:        params.Name,
		Description: params.Description,
		Type:        params.Type,
		OwnerID:     params.OwnerId,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		return tx.Create(&subscriptionRecord{AccountID: params.OwnerId, RoomID: rec.ID}).Error
	})
	if err != nil {
		return Room{}, fmt.Errorf("create room: %w", err)
	}

	return Room{
		Id:          rec.ID,
		Name:        rec.Name,
		ExternalId:  rec.ExternalID,
		Description: rec.Description,
		Type:        rec.Type,
		SeqId:       rec.SeqID,
		OwnerId:     rec.OwnerID,
		MemberCount: 1,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}

// roomRow is the scan target of the room listing query.
type roomRow struct {
	ID          int
	ExternalID  string
	Name        string
	Description string
	Type        string
	SeqID       int
	OwnerID     int
	MemberCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (row roomRow) toRoom() Room {
	return Room{
		Id:          row.ID,
		ExternalId:  row.ExternalID,
		Name:        row.Name,
		Description: row.Description,
		Type:        row.Type,
		SeqId:       row.SeqID,
		OwnerId:     row.OwnerID,
		MemberCount: row.MemberCount,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func (r *GormStudyHubRepository) listRooms(scope func(*gorm.DB) *gorm.DB) ([]Room, error) {
	var rows []roomRow
	q := r.db.Table("rooms").Select(`rooms.id, rooms.external_id, rooms.name, rooms.description,
		rooms.type, rooms.seq_id, rooms.owner_id, rooms.created_at, rooms.updated_at,
		(SELECT COUNT(*) FROM subscriptions s WHERE s.room_id = rooms.id) AS member_count`)
	if err := scope(q).Order("rooms.id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []Room{}, nil
	}

	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	// newest message of every listed room
	var latest []messageRecord
	err := r.db.Where("room_id IN ? AND seq_id = (SELECT MAX(m2.seq_id) FROM messages m2 WHERE m2.room_id = messages.room_id)", ids).
		Find(&latest).Error
	if err != nil {
		return nil, err
	}

	byRoom := make(map[int]messageRecord, len(latest))
	for _, m := range latest {
		byRoom[m.RoomID] = m
	}

	rooms := make([]Room, 0, len(rows))
	for _, row := range rows {
		room := row.toRoom()
		if m, ok := byRoom[row.ID]; ok {
			content, at := m.Content, m.CreatedAt
			room.LastMessageContent = &content
			room.LastMessageAt = &at
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (r *GormStudyHubRepository) GetRoomByExternalId(externalId string) (Room, error) {
	rooms, err := r.listRooms(func(q *gorm.DB) *gorm.DB {
		return q.Where("rooms.external_id = ?", externalId)
	})
	if err != nil {
		return Room{}, fmt.Errorf("get room: %w", err)
	}
	if len(rooms) == 0 {
		return Room{}, ErrNotFound
	}
	return rooms[0], nil
}

func (r *GormStudyHubRepository) ListRooms() ([]Room, error) {
	rooms, err := r.listRooms(func(q *gorm.DB) *gorm.DB { return q })
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

func (r *GormStudyHubRepository) CreateSubscription(accountId, roomId int) (Subscription, error) {
	rec := subscriptionRecord{AccountID: accountId, RoomID: roomId}
	if err := r.db.Create(&rec).Error; err != nil {
		return Subscription{}, fmt.Errorf("create subscription: %w", err)
	}

	return Subscription{
		Id:        rec.ID,
		AccountId: rec.AccountID,
		RoomId:    rec.RoomID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (r *GormStudyHubRepository) SubscriptionExists(accountId, roomId int) bool {
	var count int64
	err := r.db.Model(&subscriptionRecord{}).
		Where("account_id = ? AND room_id = ?", accountId, roomId).
		Count(&count).Error
	return err == nil && count > 0
}

func (r *GormStudyHubRepository) ListSubscriptions(accountId int) ([]Subscription, error) {
	var recs []subscriptionRecord
	if err := r.db.Where("account_id = ?", accountId).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	subs := make([]Subscription, 0, len(recs))
	for _, rec := range recs {
		subs = append(subs, Subscription{
			Id:        rec.ID,
			AccountId: rec.AccountID,
			RoomId:    rec.RoomID,
			Room:      Room{Id: rec.RoomID},
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return subs, nil
}

func (r *GormStudyHubRepository) DeleteSubscription(accountId, roomId int) error {
	res := r.db.Where("account_id = ? AND room_id = ?", accountId, roomId).Delete(&subscriptionRecord{})
	return gormRowsAffected(res)
}

func (m messageRecord) toMessage() Message {
	return Message{
		Id:         m.ID,
		ExternalId: m.ExternalID,
		SeqId:      m.SeqID,
		RoomId:     m.RoomID,
		UserId:     m.UserID,
		Username:   m.Username,
		AvatarURL:  m.AvatarURL,
		Content:    m.Content,
		Edited:     m.Edited,
		EditedAt:   m.EditedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func (r *GormStudyHubRepository) CreateMessage(msg Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		rec := messageRecord{
			ExternalID: msg.ExternalId,
			SeqID:      msg.SeqId,
			RoomID:     msg.RoomId,
			UserID:     msg.UserId,
			Username:   msg.Username,
			AvatarURL:  msg.AvatarURL,
			Content:    msg.Content,
			CreatedAt:  msg.CreatedAt,
			UpdatedAt:  msg.CreatedAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}

		res := tx.Model(&roomRecord{}).Where("id = ?", msg.RoomId).Updates(map[string]any{
			"seq_id":     msg.SeqId,
			"updated_at": msg.CreatedAt,
		})
		return gormRowsAffected(res)
	})
}

func (r *GormStudyHubRepository) UpdateMessage(params UpdateMessageParams) error {
	res := r.db.Model(&messageRecord{}).
		Where("room_id = ? AND external_id = ?", params.RoomId, params.ExternalId).
		Updates(map[string]any{
			"content":    params.Content,
			"edited":     true,
			"edited_at":  params.EditedAt,
			"updated_at": params.EditedAt,
		})
	return gormRowsAffected(res)
}

func (r *GormStudyHubRepository) DeleteMessage(roomId int, externalId string) error {
	res := r.db.Where("room_id = ? AND external_id = ?", roomId, externalId).Delete(&messageRecord{})
	return gormRowsAffected(res)
}

func (r *GormStudyHubRepository) ListMessages(roomId int) ([]Message, error) {
	var recs []messageRecord
	if err := r.db.Where("room_id = ?", roomId).Order("seq_id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]Message, 0, len(recs))
	for _, rec := range recs {
		messages = append(messages, rec.toMessage())
	}
	return messages, nil
}

func (r *GormStudyHubRepository) GetMessages(roomId, since, before, limit int) ([]Message, error) {
	upper, lower := historyBounds(since, before)
	limit = historyLimit(limit)

	var recs []messageRecord
	err := r.db.Where("room_id = ? AND seq_id BETWEEN ? AND ?", roomId, lower, upper).
		Order("seq_id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	messages := make([]Message, 0, len(recs))
	for _, rec := range recs {
		messages = append(messages, rec.toMessage())
	}
	return messages, nil
}

func (p profileRecord) toProfile() Profile {
	return Profile{
		AccountId: p.AccountID,
		FullName:  p.FullName,
		Bio:       p.Bio,
		Branch:    p.Branch,
		Year:      p.Year,
		College:   p.College,
		Phone:     p.Phone,
		AvatarURL: p.AvatarURL,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r *GormStudyHubRepository) GetProfile(accountId int) (Profile, error) {
	var rec profileRecord
	if err := r.db.First(&rec, "account_id = ?", accountId).Error; err != nil {
		return Profile{}, gormNotFound(err)
	}
	return rec.toProfile(), nil
}

func (r *GormStudyHubRepository) CreateProfile(profile Profile) (Profile, error) {
	rec := profileRecord{
		AccountID: profile.AccountId,
		FullName:  profile.FullName,
		Bio:       profile.Bio,
		Branch:    profile.Branch,
		Year:      profile.Year,
		College:   profile.College,
		Phone:     profile.Phone,
		AvatarURL: profile.AvatarURL,
	}
	if err := r.db.Create(&rec).Error; err != nil {
		return Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return rec.toProfile(), nil
}

func (r *GormStudyHubRepository) UpdateProfile(profile Profile) (Profile, error) {
	res := r.db.Model(&profileRecord{}).Where("account_id = ?", profile.AccountId).Updates(map[string]any{
		"full_name":  profile.FullName,
		"bio":        profile.Bio,
		"branch":     profile.Branch,
		"year":       profile.Year,
		"college":    profile.College,
		"phone":      profile.Phone,
		"avatar_url": profile.AvatarURL,
		"updated_at": time.Now().UTC(),
	})
	if err := gormRowsAffected(res); err != nil {
		return Profile{}, err
	}
	return r.GetProfile(profile.AccountId)
}

func (r *GormStudyHubRepository) DeleteProfile(accountId int) error {
	res := r.db.Where("account_id = ?", accountId).Delete(&profileRecord{})
	return gormRowsAffected(res)
}

func (r *GormStudyHubRepository) CreateContactSubmission(sub ContactSubmission) (ContactSubmission, error) {
	rec := contactRecord{Name: sub.Name, Email: sub.Email, Subject: sub.Subject, Message: sub.Message}
	if err := r.db.Create(&rec).Error; err != nil {
		return ContactSubmission{}, fmt.Errorf("create contact submission: %w", err)
	}
	sub.Id, sub.CreatedAt = rec.ID, rec.CreatedAt
	return sub, nil
}

func (r *GormStudyHubRepository) CreateFeedbackSubmission(sub FeedbackSubmission) (FeedbackSubmission, error) {
	rec := feedbackRecord{Name: sub.Name, Email: sub.Email, Rating: sub.Rating, Message: sub.Message}
	if err := r.db.Create(&rec).Error; err != nil {
		return FeedbackSubmission{}, fmt.Errorf("create feedback submission: %w", err)
	}
	sub.Id, sub.CreatedAt = rec.ID, rec.CreatedAt
	return sub, nil
}

func (r *GormStudyHubRepository) CreateFreelanceRegistration(reg FreelanceRegistration) (FreelanceRegistration, error) {
	rec := freelanceRecord{
		Name:         reg.Name,
		Email:        reg.Email,
		Skills:       reg.Skills,
		PortfolioURL: reg.PortfolioURL,
		Experience:   reg.Experience,
	}
	if err := r.db.Create(&rec).Error; err != nil {
		return FreelanceRegistration{}, fmt.Errorf("create freelance registration: %w", err)
	}
	reg.Id, reg.CreatedAt = rec.ID, rec.CreatedAt
	return reg, nil
}
