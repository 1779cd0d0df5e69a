package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jason-s-yu/baduk/internal/auth"
	"github.com/jason-s-yu/baduk/internal/cache"
	"github.com/jason-s-yu/baduk/internal/database"
	"github.com/jason-s-yu/baduk/internal/matchmaking"
	"github.com/sirupsen/logrus"
)

type envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *apiError `json:"error,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// apiError is the failure body: a stable machine code plus a human message.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return e.Code + ": " + e.Message
}

func newAPIError(status int, code, message string) *apiError {
	return &apiError{Status: status, Code: code, Message: message}
}

var errUnauthorized = newAPIError(http.StatusUnauthorized, "AUTH_UNAUTHORIZED", "authentication required")

// toAPIError maps a domain error onto its response. Unknown errors become INTERNAL_ERROR.
func toAPIError(err error) *apiError {
	var (
		ae   *apiError
		verr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.As(err, &verr):
		return newAPIError(http.StatusBadRequest, "VALIDATION_ERROR", auth.Describe(verr))
	case errors.Is(err, matchmaking.ErrRoomNotFound):
		return newAPIError(http.StatusNotFound, "ROOM_NOT_FOUND", "room not found")
	case errors.Is(err, matchmaking.ErrRoomNotAvailable):
		return newAPIError(http.StatusConflict, "ROOM_NOT_AVAILABLE", "the game in this room has already started")
	case errors.Is(err, matchmaking.ErrRoomSelfJoin):
		return newAPIError(http.StatusBadRequest, "ROOM_SELF_JOIN", "you cannot join your own room")
	case errors.Is(err, matchmaking.ErrRoomConflict):
		return newAPIError(http.StatusConflict, "ROOM_CONFLICT", "the room changed, please retry")
	case errors.Is(err, matchmaking.ErrInvalidBoardSize):
		return newAPIError(http.StatusBadRequest, "VALIDATION_ERROR", "boardSize must be 9, 13 or 19")
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidNickname):
		return newAPIError(http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, auth.ErrTokenExpired):
		return newAPIError(http.StatusUnauthorized, "AUTH_TOKEN_EXPIRED", "token expired")
	case errors.Is(err, auth.ErrTokenInvalid):
		return newAPIError(http.StatusUnauthorized, "AUTH_TOKEN_INVALID", "invalid token")
	case errors.Is(err, database.ErrUsernameTaken):
		return newAPIError(http.StatusConflict, "USER_USERNAME_TAKEN", "username already in use")
	case errors.Is(err, database.ErrNicknameTaken):
		return newAPIError(http.StatusConflict, "USER_NICKNAME_TAKEN", "nickname already in use")
	case errors.Is(err, database.ErrUserNotFound):
		return newAPIError(http.StatusNotFound, "USER_NOT_FOUND", "user not found")
	case errors.Is(err, cache.ErrUnavailable):
		return newAPIError(http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "lobby temporarily unavailable, please retry")
	default:
		return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func success(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data, Timestamp: now()})
}

// fail writes the error response. Server-side failures are logged here and nowhere else.
func (s *APIServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	ae := toAPIError(err)
	if ae.Status >= http.StatusInternalServerError {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"code":   ae.Code,
		}).Error("request failed")
	}
	writeJSON(w, ae.Status, envelope{Error: ae, Timestamp: now()})
}

// decode reads a JSON body into v; an empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return newAPIError(http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
	}
	return nil
}
