package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/npezzotti/go-studyhub/internal/database"
	"github.com/npezzotti/go-studyhub/internal/types"
)

type formError struct {
	Error string `json:"error"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type FeedbackRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Rating  *int   `json:"rating"`
	Message string `json:"message"`
}

type FreelanceRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Skills       string `json:"skills"`
	PortfolioURL string `json:"portfolio_url"`
	Experience   string `json:"experience"`
}

type ProfileRequest struct {
	FullName  string `json:"full_name"`
	Bio       string `json:"bio"`
	Branch    string `json:"branch"`
	Year      int    `json:"year"`
	College   string `json:"college"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatar_url"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *StudyHubApp) formFail(w http.ResponseWriter, statusCode int, msg string) {
	s.writeJson(w, statusCode, formError{Error: msg})
}

// missingField returns the name of the first empty required field.
func missingField(fields ...[2]string) string {
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			return f[0]
		}
	}
	return ""
}

func (s *StudyHubApp) submitContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.formFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if field := missingField(
		[2]string{"name", req.Name},
		[2]string{"email", req.Email},
		[2]string{"message", req.Message},
	); field != "" {
		s.formFail(w, http.StatusBadRequest, field+" is required")
		return
	}

	sub, err := s.db.CreateContactSubmission(database.ContactSubmission{
		Name:    strings.TrimSpace(req.Name),
		Email:   normalizeEmail(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	})
	if err != nil {
		s.log.Println("create contact submission:", err)
		s.formFail(w, http.StatusInternalServerError, "failed to save submission")
		return
	}

	s.writeJson(w, http.StatusCreated, types.ContactSubmission{
		Id:        sub.Id,
		Name:      sub.Name,
		Email:     sub.Email,
		Subject:   sub.Subject,
		Message:   sub.Message,
		CreatedAt: sub.CreatedAt,
	})
}

func (s *StudyHubApp) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.formFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if field := missingField(
		[2]string{"name", req.Name},
		[2]string{"email", req.Email},
		[2]string{"message", req.Message},
	); field != "" {
		s.formFail(w, http.StatusBadRequest, field+" is required")
		return
	}

	var rating int
	if req.Rating != nil {
		if *req.Rating < 1 || *req.Rating > 5 {
			s.formFail(w, http.StatusBadRequest, "rating must be between 1 and 5")
			return
		}
		rating = *req.Rating
	}

	sub, err := s.db.CreateFeedbackSubmission(database.FeedbackSubmission{
		Name:    strings.TrimSpace(req.Name),
		Email:   normalizeEmail(req.Email),
		Rating:  rating,
		Message: strings.TrimSpace(req.Message),
	})
	if err != nil {
		s.log.Println("create feedback submission:", err)
		s.formFail(w, http.StatusInternalServerError, "failed to save feedback")
		return
	}

	s.writeJson(w, http.StatusCreated, types.FeedbackSubmission{
		Id:        sub.Id,
		Name:      sub.Name,
		Email:     sub.Email,
		Rating:    sub.Rating,
		Message:   sub.Message,
		CreatedAt: sub.CreatedAt,
	})
}

func (s *StudyHubApp) submitFreelance(w http.ResponseWriter, r *http.Request) {
	var req FreelanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.formFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if field := missingField(
		[2]string{"name", req.Name},
		[2]string{"email", req.Email},
		[2]string{"skills", req.Skills},
	); field != "" {
		s.formFail(w, http.StatusBadRequest, field+" is required")
		return
	}

	reg, err := s.db.CreateFreelanceRegistration(database.FreelanceRegistration{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		Skills:       strings.TrimSpace(req.Skills),
		PortfolioURL: strings.TrimSpace(req.PortfolioURL),
		Experience:   strings.TrimSpace(req.Experience),
	})
	if err != nil {
		s.log.Println("create freelance registration:", err)
		s.formFail(w, http.StatusInternalServerError, "failed to save registration")
		return
	}

	s.writeJson(w, http.StatusCreated, types.FreelanceRegistration{
		Id:           reg.Id,
		Name:         reg.Name,
		Email:        reg.Email,
		Skills:       reg.Skills,
		PortfolioURL: reg.PortfolioURL,
		Experience:   reg.Experience,
		CreatedAt:    reg.CreatedAt,
	})
}

func toProfile(p database.Profile) types.Profile {
	return types.Profile{
		UserId:    p.AccountId,
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

func (s *StudyHubApp) profile(w http.ResponseWriter, r *http.Request) {
	profileUserId, err := strconv.Atoi(r.PathValue("userId"))
	if err != nil || profileUserId <= 0 {
		s.formFail(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if r.Method == http.MethodGet {
		p, err := s.db.GetProfile(profileUserId)
		if errors.Is(err, database.ErrNotFound) {
			s.formFail(w, http.StatusNotFound, "profile not found")
			return
		} else if err != nil {
			s.log.Println("get profile:", err)
			s.formFail(w, http.StatusInternalServerError, "failed to load profile")
			return
		}

		s.writeJson(w, http.StatusOK, toProfile(p))
		return
	}

	userId, ok := UserId(r.Context())
	if !ok {
		s.formFail(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if userId != profileUserId {
		s.formFail(w, http.StatusForbidden, "cannot modify another user's profile")
		return
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut:
		var req ProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.formFail(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if r.Method == http.MethodPost && strings.TrimSpace(req.FullName) == "" {
			s.formFail(w, http.StatusBadRequest, "full_name is required")
			return
		}

		profile := database.Profile{
			AccountId: userId,
			FullName:  strings.TrimSpace(req.FullName),
			Bio:       req.Bio,
			Branch:    req.Branch,
			Year:      req.Year,
			College:   req.College,
			Phone:     req.Phone,
			AvatarURL: req.AvatarURL,
		}

		var (
			saved  database.Profile
			status int
		)
		if r.Method == http.MethodPost {
			saved, err = s.db.CreateProfile(profile)
			status = http.StatusCreated
		} else {
			saved, err = s.db.UpdateProfile(profile)
			status = http.StatusOK
		}
		if errors.Is(err, database.ErrNotFound) {
			s.formFail(w, http.StatusNotFound, "profile not found")
			return
		} else if err != nil {
			s.log.Println("save profile:", err)
			s.formFail(w, http.StatusInternalServerError, "failed to save profile")
			return
		}

		s.writeJson(w, status, toProfile(saved))
	case http.MethodDelete:
		err := s.db.DeleteProfile(userId)
		if errors.Is(err, database.ErrNotFound) {
			s.formFail(w, http.StatusNotFound, "profile not found")
			return
		} else if err != nil {
			s.log.Println("delete profile:", err)
			s.formFail(w, http.StatusInternalServerError, "failed to delete profile")
			return
		}

		s.writeJson(w, http.StatusOK, map[string]string{"message": "profile deleted"})
	default:
		s.formFail(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
