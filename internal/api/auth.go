package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/feedwell/feeder-core/internal/auth"
)

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the response body for successful auth operations.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// handleRegister creates a new user account and returns a token pair.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if !auth.IsValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid email address")
		return
	}
	if !auth.IsValidPassword(req.Password) {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "password too short")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("password hash failed", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	user := &auth.User{Email: req.Email, PasswordHash: hash}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("user create failed", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	s.issueTokenPair(r.Context(), w, user.ID)
}

// handleLogin authenticates a user and returns a token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		// Same response for unknown email and bad password.
		writeUnauthorized(w, "invalid credentials")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	s.issueTokenPair(r.Context(), w, user.ID)
}

// refreshRequest is the request body for POST /auth/refresh.
type refreshRequest struct {
	UserID       string `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

// handleRefresh rotates a refresh token into a fresh token pair.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.users.GetByID(r.Context(), req.UserID)
	if err != nil {
		writeUnauthorized(w, "invalid refresh token")
		return
	}

	if user.RefreshTokenHash == "" {
		writeUnauthorized(w, "invalid refresh token")
		return
	}
	candidate := auth.HashRefreshToken(req.RefreshToken)
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(user.RefreshTokenHash)) != 1 {
		writeUnauthorized(w, "invalid refresh token")
		return
	}

	s.issueTokenPair(r.Context(), w, user.ID)
}

// issueTokenPair mints an access and refresh token for the user,
// stores the refresh token hash (replacing any previous session), and
// writes the response.
func (s *Server) issueTokenPair(ctx context.Context, w http.ResponseWriter, uid string) {
	access, err := s.tokens.IssueAccessToken(uid)
	if err != nil {
		s.logger.Error("access token issue failed", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	refresh, err := auth.GenerateRefreshToken()
	if err != nil {
		s.logger.Error("refresh token issue failed", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	if err := s.users.UpdateRefreshTokenHash(ctx, uid, auth.HashRefreshToken(refresh)); err != nil {
		s.logger.Error("refresh token store failed", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.tokens.AccessTokenTTL(),
	})
}
