package database

import (
	"fmt"
	"time"
)

const (
	createSubQuery = "INSERT INTO subscriptions (account_id, room_id, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id, account_id, room_id, created_at, updated_at"

	listRoomsQuery = `
		SELECT
				r.id,
				r.external_id,
				r.name,
				r.description,
				r.type,
				r.seq_id,
				r.owner_id,
				(SELECT COUNT(*) FROM subscriptions s WHERE s.room_id = r.id) AS member_count,
				lm.content,
				lm.created_at,
				r.created_at,
				r.updated_at
		FROM rooms r
		LEFT JOIN LATERAL (
				SELECT m.content, m.created_at FROM messages m
				WHERE m.room_id = r.id ORDER BY m.seq_id DESC LIMIT 1
		) lm ON TRUE
`
)

func (db *PgStudyHubRepository) CreateAccount(accountParams CreateAccountParams) (User, error) {
	now := time.Now().UTC()
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, username, email, avatar_url, created_at, updated_at",
		accountParams.Username,
		accountParams.EmailAddress,
		accountParams.PasswordHash,
		now,
		now,
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgStudyHubRepository) UpdateAccount(accountParams UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, avatar_url = $3, password_hash = $4, updated_at = $5 "+
			"WHERE id = $1 RETURNING id, username, email, avatar_url, created_at, updated_at",
		accountParams.UserId,
		accountParams.Username,
		accountParams.AvatarURL,
		accountParams.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, notFound(err)
}

func (db *PgStudyHubRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, avatar_url, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, notFound(err)
}

func (db *PgStudyHubRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, avatar_url, password_hash, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)
	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.AvatarURL,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, notFound(err)
}

func (db *PgStudyHubRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res := tx.QueryRow(
		"INSERT INTO rooms (name, external_id, description, type, owner_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, name, external_id, description, type, owner_id, seq_id, created_at, updated_at",
		params.Name,
		params.ExternalId,
		params.Description,
		params.Type,
		params.OwnerId,
		now,
		now,
	)

	var room Room
	err = res.Scan(
		&room.Id,
		&room.Name,
		&room.ExternalId,
		&room.Description,
		&room.Type,
		&room.OwnerId,
		&room.SeqId,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return Room{}, err
	}

	_, err = tx.Exec(
		createSubQuery,
		params.OwnerId,
		room.Id,
		now,
		now,
	)
	if err != nil {
		return Room{}, err
	}

	if err = tx.Commit(); err != nil {
		return Room{}, err
	}

	room.MemberCount = 1
	return room, nil
}

func (db *PgStudyHubRepository) GetRoomByExternalId(externalId string) (Room, error) {
	row := db.conn.QueryRow(listRoomsQuery+" WHERE r.external_id = $1 LIMIT 1", externalId)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.Description,
		&room.Type,
		&room.SeqId,
		&room.OwnerId,
		&room.MemberCount,
		&room.LastMessageContent,
		&room.LastMessageAt,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, notFound(err)
}

func (db *PgStudyHubRepository) ListRooms() ([]Room, error) {
	rows, err := db.conn.Query(listRoomsQuery + " ORDER BY r.id")
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]Room, 0)
	for rows.Next() {
		var room Room
		if err := rows.Scan(
			&room.Id,
			&room.ExternalId,
			&room.Name,
			&room.Description,
			&room.Type,
			&room.SeqId,
			&room.OwnerId,
			&room.MemberCount,
			&room.LastMessageContent,
			&room.LastMessageAt,
			&room.CreatedAt,
			&room.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}

		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return rooms, nil
}

func (db *PgStudyHubRepository) CreateSubscription(userId, roomId int) (Subscription, error) {
	now := time.Now().UTC()
	res := db.conn.QueryRow(
		createSubQuery,
		userId,
		roomId,
		now,
		now,
	)

	var sub Subscription
	err := res.Scan(
		&sub.Id,
		&sub.AccountId,
		&sub.RoomId,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)

	return sub, err
}

func (db *PgStudyHubRepository) SubscriptionExists(accountId, roomId int) bool {
	res := db.conn.QueryRow(
		"SELECT id FROM subscriptions WHERE account_id = $1 AND room_id = $2 LIMIT 1",
		accountId,
		roomId,
	)

	var id int
	return res.Scan(&id) == nil
}

func (db *PgStudyHubRepository) ListSubscriptions(accountId int) ([]Subscription, error) {
	rows, err := db.conn.Query(
		"SELECT s.id, s.account_id, s.room_id, s.created_at, s.updated_at, r.external_id, r.name "+
			"FROM subscriptions s JOIN rooms r ON r.id = s.room_id WHERE s.account_id = $1 ORDER BY s.id",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]Subscription, 0)
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(
			&sub.Id,
			&sub.AccountId,
			&sub.RoomId,
			&sub.CreatedAt,
			&sub.UpdatedAt,
			&sub.Room.ExternalId,
			&sub.Room.Name,
		); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.Room.Id = sub.RoomId

		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

func (db *PgStudyHubRepository) DeleteSubscription(accountId, roomId int) error {
	res, err := db.conn.Exec(
		"DELETE FROM subscriptions WHERE account_id = $1 AND room_id = $2",
		accountId,
		roomId,
	)
	if err != nil {
		return err
	}

	return expectRows(res.RowsAffected())
}

func (db *PgStudyHubRepository) CreateMessage(msg Message) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(
		"INSERT INTO messages (external_id, seq_id, room_id, user_id, username, avatar_url, content, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		msg.ExternalId,
		msg.SeqId,
		msg.RoomId,
		msg.UserId,
		msg.Username,
		msg.AvatarURL,
		msg.Content,
		msg.CreatedAt,
		msg.CreatedAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec("UPDATE rooms SET seq_id = $1, updated_at = $2 WHERE id = $3", msg.SeqId, msg.CreatedAt, msg.RoomId)
	if err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

func (db *PgStudyHubRepository) UpdateMessage(params UpdateMessageParams) error {
	res, err := db.conn.Exec(
		"UPDATE messages SET content = $3, edited = TRUE, edited_at = $4, updated_at = $4 "+
			"WHERE room_id = $1 AND external_id = $2",
		params.RoomId,
		params.ExternalId,
		params.Content,
		params.EditedAt,
	)
	if err != nil {
		return err
	}

	return expectRows(res.RowsAffected())
}

func (db *PgStudyHubRepository) DeleteMessage(roomId int, externalId string) error {
	res, err := db.conn.Exec(
		"DELETE FROM messages WHERE room_id = $1 AND external_id = $2",
		roomId,
		externalId,
	)
	if err != nil {
		return err
	}

	return expectRows(res.RowsAffected())
}

func (db *PgStudyHubRepository) ListMessages(roomId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, external_id, seq_id, room_id, user_id, username, avatar_url, content, edited, edited_at, created_at, updated_at "+
			"FROM messages WHERE room_id = $1 ORDER BY seq_id ASC",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(
			&msg.Id,
			&msg.ExternalId,
			&msg.SeqId,
			&msg.RoomId,
			&msg.UserId,
			&msg.Username,
			&msg.AvatarURL,
			&msg.Content,
			&msg.Edited,
			&msg.EditedAt,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PgStudyHubRepository) GetMessages(roomId, since, before, limit int) ([]Message, error) {
	upper, lower := historyBounds(since, before)
	limit = historyLimit(limit)

	rows, err := db.conn.Query(
		"SELECT id, external_id, seq_id, room_id, user_id, username, avatar_url, content, edited, edited_at, created_at, updated_at "+
			"FROM messages WHERE room_id = $1 AND seq_id BETWEEN $2 AND $3 ORDER BY seq_id DESC LIMIT $4",
		roomId,
		lower,
		upper,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(
			&msg.Id,
			&msg.ExternalId,
			&msg.SeqId,
			&msg.RoomId,
			&msg.UserId,
			&msg.Username,
			&msg.AvatarURL,
			&msg.Content,
			&msg.Edited,
			&msg.EditedAt,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (db *PgStudyHubRepository) GetProfile(accountId int) (Profile, error) {
	row := db.conn.QueryRow(
		"SELECT account_id, full_name, bio, branch, year, college, phone, avatar_url, created_at, updated_at "+
			"FROM profiles WHERE account_id = $1",
		accountId,
	)

	var p Profile
	err := row.Scan(&p.AccountId, &p.FullName, &p.Bio, &p.Branch, &p.Year, &p.College, &p.Phone, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	return p, notFound(err)
}

func (db *PgStudyHubRepository) CreateProfile(profile Profile) (Profile, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRow(
		"INSERT INTO profiles (account_id, full_name, bio, branch, year, college, phone, avatar_url, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) "+
			"RETURNING account_id, full_name, bio, branch, year, college, phone, avatar_url, created_at, updated_at",
		profile.AccountId,
		profile.FullName,
		profile.Bio,
		profile.Branch,
		profile.Year,
		profile.College,
		profile.Phone,
		profile.AvatarURL,
		now,
	)

	var p Profile
	err := row.Scan(&p.AccountId, &p.FullName, &p.Bio, &p.Branch, &p.Year, &p.College, &p.Phone, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (db *PgStudyHubRepository) UpdateProfile(profile Profile) (Profile, error) {
	row := db.conn.QueryRow(
		"UPDATE profiles SET full_name = $2, bio = $3, branch = $4, year = $5, college = $6, phone = $7, avatar_url = $8, updated_at = $9 "+
			"WHERE account_id = $1 "+
			"RETURNING account_id, full_name, bio, branch, year, college, phone, avatar_url, created_at, updated_at",
		profile.AccountId,
		profile.FullName,
		profile.Bio,
		profile.Branch,
		profile.Year,
		profile.College,
		profile.Phone,
		profile.AvatarURL,
		time.Now().UTC(),
	)

	var p Profile
	err := row.Scan(&p.AccountId, &p.FullName, &p.Bio, &p.Branch, &p.Year, &p.College, &p.Phone, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	return p, notFound(err)
}

func (db *PgStudyHubRepository) DeleteProfile(accountId int) error {
	res, err := db.conn.Exec("DELETE FROM profiles WHERE account_id = $1", accountId)
	if err != nil {
		return err
	}

	return expectRows(res.RowsAffected())
}

func (db *PgStudyHubRepository) CreateContactSubmission(sub ContactSubmission) (ContactSubmission, error) {
	row := db.conn.QueryRow(
		"INSERT INTO contact_submissions (name, email, subject, message, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at",
		sub.Name,
		sub.Email,
		sub.Subject,
		sub.Message,
		time.Now().UTC(),
	)

	err := row.Scan(&sub.Id, &sub.CreatedAt)
	return sub, err
}

func (db *PgStudyHubRepository) CreateFeedbackSubmission(sub FeedbackSubmission) (FeedbackSubmission, error) {
	row := db.conn.QueryRow(
		"INSERT INTO feedback_submissions (name, email, rating, message, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at",
		sub.Name,
		sub.Email,
		sub.Rating,
		sub.Message,
		time.Now().UTC(),
	)

	err := row.Scan(&sub.Id, &sub.CreatedAt)
	return sub, err
}

func (db *PgStudyHubRepository) CreateFreelanceRegistration(reg FreelanceRegistration) (FreelanceRegistration, error) {
	row := db.conn.QueryRow(
		"INSERT INTO freelance_registrations (name, email, skills, portfolio_url, experience, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at",
		reg.Name,
		reg.Email,
		reg.Skills,
		reg.PortfolioURL,
		reg.Experience,
		time.Now().UTC(),
	)

	err := row.Scan(&reg.Id, &reg.CreatedAt)
	return reg, err
}

func expectRows(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func historyBounds(since, before int) (upper, lower int) {
	upper, lower = 1<<31-1, 0
	if before > 0 {
		upper = before - 1
	}

	if since > 0 {
		lower = since
	}
	return upper, lower
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}
