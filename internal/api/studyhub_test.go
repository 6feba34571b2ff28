package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/npezzotti/go-studyhub/internal/config"
	"github.com/npezzotti/go-studyhub/internal/database"
	"github.com/npezzotti/go-studyhub/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewStudyHubApp(t *testing.T) {
	mockRepo := &database.MockStudyHubRepository{}
	defer mockRepo.AssertExpectations(t)

	logger := testutil.TestLogger(t)
	cfg := &config.Config{
		ServerAddr:     "localhost:0",
		SigningKey:     testSigningKey,
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	app := NewStudyHubApp(http.NewServeMux(), logger, nil, mockRepo, nil, cfg)

	assert.Equal(t, logger, app.log)
	assert.Equal(t, mockRepo, app.db)
	assert.Nil(t, app.svc, "expected no chat service without a chat server")
	assert.Equal(t, cfg.SigningKey, app.signingKey)
	assert.Equal(t, cfg.AllowedOrigins, app.allowedOrigins)
	assert.Equal(t, cfg.ServerAddr, app.mux.Addr)

	t.Run("health route", func(t *testing.T) {
		mockRepo.On("Ping").Return(nil).Once()

		rr := httptest.NewRecorder()
		app.mux.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rr := httptest.NewRecorder()
		app.mux.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/healthz", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/rooms", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		rr := httptest.NewRecorder()
		app.mux.Handler.ServeHTTP(rr, req)
		assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("shutdown before start", func(t *testing.T) {
		assert.NoError(t, app.Shutdown(context.Background()))
	})
}
