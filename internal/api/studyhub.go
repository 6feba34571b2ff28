package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-studyhub/internal/chat"
	"github.com/npezzotti/go-studyhub/internal/config"
	"github.com/npezzotti/go-studyhub/internal/database"
	"github.com/npezzotti/go-studyhub/internal/ratelimit"
	"github.com/npezzotti/go-studyhub/internal/server"
)

// StudyHubApp is the HTTP surface: accounts, the REST mirror of the chat
// core, the websocket endpoint and the side-channel forms.
type StudyHubApp struct {
	log            *log.Logger
	db             database.StudyHubRepository
	mux            *http.Server
	cs             *server.ChatServer
	svc            *chat.Service
	limiter        *ratelimit.LimiterStore
	signingKey     []byte
	allowedOrigins []string
}

func NewStudyHubApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.StudyHubRepository, limiter *ratelimit.LimiterStore, cfg *config.Config) *StudyHubApp {
	s := &StudyHubApp{
		log:            logger,
		db:             db,
		cs:             cs,
		limiter:        limiter,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}
	if cs != nil {
		s.svc = chat.NewService(cs, logger)
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.HandleFunc("/api/account", s.authMiddleware(s.account))

	mux.HandleFunc("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.HandleFunc("GET /api/rooms", s.authMiddleware(s.listRooms))
	mux.HandleFunc("GET /api/rooms/{id}", s.authMiddleware(s.getRoom))
	mux.HandleFunc("POST /api/rooms/{id}/members", s.authMiddleware(s.joinRoom))
	mux.HandleFunc("DELETE /api/rooms/{id}/members", s.authMiddleware(s.leaveRoom))
	mux.HandleFunc("GET /api/rooms/{id}/messages", s.authMiddleware(s.getMessages))
	mux.HandleFunc("POST /api/rooms/{id}/messages", s.authMiddleware(s.sendMessage))
	mux.HandleFunc("PUT /api/rooms/{id}/messages/{messageId}", s.authMiddleware(s.editMessage))
	mux.HandleFunc("DELETE /api/rooms/{id}/messages/{messageId}", s.authMiddleware(s.deleteMessage))
	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))

	mux.HandleFunc("POST /api/contact", s.rateLimited(s.submitContact))
	mux.HandleFunc("POST /api/feedback", s.rateLimited(s.submitFeedback))
	mux.HandleFunc("POST /api/freelancing/submit", s.rateLimited(s.submitFreelance))
	mux.HandleFunc("/api/profile/{userId}", s.authMiddleware(s.profile))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	s.mux = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *StudyHubApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *StudyHubApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
