package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-studyhub/internal/chat"
	"github.com/npezzotti/go-studyhub/internal/database"
	"github.com/npezzotti/go-studyhub/internal/server"
	"github.com/npezzotti/go-studyhub/internal/types"
)

const maxPageSize = 100

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateAccountRequest struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Password  string `json:"password"`
}

type CreateRoomRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        types.RoomType `json:"type"`
}

type MessageRequest struct {
	Content string `json:"content"`
}

func (s *StudyHubApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *StudyHubApp) writeError(w http.ResponseWriter, errResp *ApiError) {
	if errResp.Err != nil {
		s.log.Println(errResp.Error())
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

func toUser(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		Username:     u.Username,
		EmailAddress: u.EmailAddress,
		AvatarURL:    u.AvatarURL,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// currentUser loads the account of the authenticated caller.
func (s *StudyHubApp) currentUser(r *http.Request) (types.User, *ApiError) {
	userId, ok := UserId(r.Context())
	if !ok {
		return types.User{}, NewUnauthorizedError()
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		return types.User{}, dbError(err)
	}

	return toUser(user), nil
}

func (s *StudyHubApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *StudyHubApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	req.Email = normalizeEmail(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	if _, err := s.db.GetAccountByEmail(req.Email); err == nil {
		s.writeError(w, NewConflictError())
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	newUser, err := s.db.CreateAccount(database.CreateAccountParams{
		Username:     req.Username,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
	})
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, toUser(newUser))
}

func (s *StudyHubApp) account(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		user, errResp := s.currentUser(r)
		if errResp != nil {
			s.writeError(w, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, user)
	case http.MethodPut:
		curUser, errResp := s.currentUser(r)
		if errResp != nil {
			s.writeError(w, errResp)
			return
		}

		var updateAccountReq UpdateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&updateAccountReq); err != nil {
			s.writeError(w, NewBadRequestError())
			return
		}

		if updateAccountReq.Username == "" || updateAccountReq.Password == "" {
			s.writeError(w, NewBadRequestError())
			return
		}

		pwdHash, err := hashPassword(updateAccountReq.Password)
		if err != nil {
			s.writeError(w, NewInternalServerError(err))
			return
		}

		dbUser, err := s.db.UpdateAccount(database.UpdateAccountParams{
			UserId:       curUser.Id,
			Username:     updateAccountReq.Username,
			AvatarURL:    updateAccountReq.AvatarURL,
			PasswordHash: pwdHash,
		})
		if err != nil {
			s.writeError(w, dbError(err))
			return
		}

		s.writeJson(w, http.StatusOK, toUser(dbUser))
	default:
		s.writeError(w, NewMethodNotAllowedError())
	}
}

func (s *StudyHubApp) session(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, user)
}

func (s *StudyHubApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	lr.Email = normalizeEmail(lr.Email)
	if lr.Email == "" || lr.Password == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		s.writeError(w, dbError(err))
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	u := toUser(dbUser)
	token, err := s.createJwtForSession(u, defaultJwtExpiration)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, u)
}

func (s *StudyHubApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", -time.Hour))
	w.WriteHeader(http.StatusNoContent)
}

func (s *StudyHubApp) createRoom(w http.ResponseWriter, r *http.Request) {
	var createRoomReq CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&createRoomReq); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	room, err := s.svc.CreateRoom(r.Context(), &user, createRoomReq.Name, createRoomReq.Description, createRoomReq.Type)
	if err != nil {
		s.writeError(w, chatError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, room)
}

func (s *StudyHubApp) listRooms(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	rooms, err := s.svc.ListRooms(r.Context(), &user)
	if err != nil {
		s.writeError(w, chatError(err))
		return
	}

	if query := r.URL.Query().Get("q"); query != "" {
		rooms = chat.FilterRooms(rooms, query)
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *StudyHubApp) getRoom(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	rooms, err := s.svc.ListRooms(r.Context(), &user)
	if err != nil {
		s.writeError(w, chatError(err))
		return
	}

	id := r.PathValue("id")
	idx := slices.IndexFunc(rooms, func(room types.Room) bool { return room.ExternalId == id })
	if idx < 0 {
		s.writeError(w, NewNotFoundError())
		return
	}

	s.writeJson(w, http.StatusOK, rooms[idx])
}

func (s *StudyHubApp) joinRoom(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	if err := s.svc.JoinRoom(r.Context(), &user, r.PathValue("id")); err != nil {
		s.writeError(w, chatError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *StudyHubApp) leaveRoom(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	if err := s.svc.LeaveRoom(r.Context(), &user, r.PathValue("id")); err != nil {
		s.writeError(w, chatError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, key string) (int, bool) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return 0, true
	}

	v, err := strconv.Atoi(str)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func (s *StudyHubApp) getMessages(w http.ResponseWriter, r *http.Request) {
	room, err := s.db.GetRoomByExternalId(r.PathValue("id"))
	if err != nil {
		s.writeError(w, dbError(err))
		return
	}

	before, ok := queryInt(r, "before")
	if !ok {
		s.writeError(w, NewBadRequestError())
		return
	}
	after, ok := queryInt(r, "after")
	if !ok {
		s.writeError(w, NewBadRequestError())
		return
	}
	limit, ok := queryInt(r, "limit")
	if !ok || limit > maxPageSize {
		s.writeError(w, NewBadRequestError())
		return
	}

	messages, err := s.db.GetMessages(room.Id, after, before, limit)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	roomMessages := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		roomMessages = append(roomMessages, types.Message{
			Id:        msg.ExternalId,
			SeqId:     msg.SeqId,
			RoomId:    room.ExternalId,
			UserId:    msg.UserId,
			Username:  msg.Username,
			AvatarURL: msg.AvatarURL,
			Content:   msg.Content,
			Timestamp: msg.CreatedAt,
			Edited:    msg.Edited,
			EditedAt:  msg.EditedAt,
		})
	}

	s.writeJson(w, http.StatusOK, roomMessages)
}

func (s *StudyHubApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	msg, err := s.svc.SendMessage(r.Context(), &user, r.PathValue("id"), req.Content)
	if err != nil {
		s.writeError(w, chatError(err))
		return
	}

	s.writeJson(w, http.StatusAccepted, msg)
}

func (s *StudyHubApp) editMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	if _, err := s.svc.EditMessage(r.Context(), &user, r.PathValue("messageId"), r.PathValue("id"), req.Content); err != nil {
		s.writeError(w, chatError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *StudyHubApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	if err := s.svc.DeleteMessage(r.Context(), &user, r.PathValue("messageId"), r.PathValue("id")); err != nil {
		s.writeError(w, chatError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *StudyHubApp) serveWs(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(user, conn, s.cs, s.svc, s.log)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
