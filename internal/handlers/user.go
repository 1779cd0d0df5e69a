// internal/handlers/user.go
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/baduk/internal/auth"
	"github.com/jason-s-yu/baduk/internal/database"
	"github.com/jason-s-yu/baduk/internal/models"
)

var errInvalidCredentials = newAPIError(http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", "invalid username or password")

type registerRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=4,max=20"`
	Password string `json:"password" validate:"required,min=8,password"`
	Nickname string `json:"nickname" validate:"required,min=2,max=10,singleline"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

// RegisterHandler creates an account and signs the new user in.
//
// POST /api/v1/auth/register
func (s *APIServer) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Nickname = strings.TrimSpace(req.Nickname)

	if err := auth.Validate(req); err != nil {
		s.fail(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	user := &models.User{Username: req.Username, Password: hash, Nickname: req.Nickname}
	if err := s.Users.Create(r.Context(), user); err != nil {
		s.fail(w, r, err)
		return
	}
	s.Logger.WithField("user_id", user.ID).Info("user registered")

	s.startSession(w, r, http.StatusCreated, user)
}

// LoginHandler exchanges credentials for a session token.
//
// POST /api/v1/auth/login
func (s *APIServer) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	user, err := s.Users.GetByUsername(r.Context(), strings.TrimSpace(req.Username))
	if errors.Is(err, database.ErrUserNotFound) {
		s.fail(w, r, errInvalidCredentials)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok, err := auth.CheckPassword(req.Password, user.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		s.fail(w, r, errInvalidCredentials)
		return
	}

	if err := s.Users.TouchLastLogin(r.Context(), user.ID); err != nil {
		s.Logger.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	} else {
		t := time.Now().UTC()
		user.LastLoginAt = &t
	}

	s.startSession(w, r, http.StatusOK, user)
}

// ProfileHandler returns the caller's account.
//
// GET /api/v1/auth/profile
func (s *APIServer) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.fail(w, r, errUnauthorized)
		return
	}
	user, err := s.Users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, user)
}

// GET /api/v1/auth/check-username/{username}
func (s *APIServer) CheckUsernameHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "username")
	if err := auth.ValidateUsername(name); err != nil {
		s.fail(w, r, err)
		return
	}
	_, err := s.Users.GetByUsername(r.Context(), name)
	s.availability(w, r, err)
}

// GET /api/v1/auth/check-nickname/{nickname}
func (s *APIServer) CheckNicknameHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "nickname")
	if err := auth.ValidateNickname(name); err != nil {
		s.fail(w, r, err)
		return
	}
	_, err := s.Users.GetByNickname(r.Context(), name)
	s.availability(w, r, err)
}

func (s *APIServer) availability(w http.ResponseWriter, r *http.Request, lookupErr error) {
	switch {
	case lookupErr == nil:
		success(w, http.StatusOK, availabilityResponse{Available: false})
	case errors.Is(lookupErr, database.ErrUserNotFound):
		success(w, http.StatusOK, availabilityResponse{Available: true})
	default:
		s.fail(w, r, lookupErr)
	}
}

// startSession issues a token, mirrors it into the auth_token cookie, and writes the user back.
func (s *APIServer) startSession(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	token, err := s.Sessions.Issue(user.ID, user.Nickname)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cookie := &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl := s.Sessions.TTL(); ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)
	success(w, status, sessionResponse{User: user, Token: token})
}
