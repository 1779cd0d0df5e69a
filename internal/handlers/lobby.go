// internal/handlers/lobby.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/baduk/internal/database"
	"github.com/jason-s-yu/baduk/internal/matchmaking"
	"github.com/jason-s-yu/baduk/internal/models"
)

type boardRequest struct {
	BoardSize models.BoardSize `json:"boardSize"`
}

type roomResponse struct {
	Room *models.GameRoom `json:"room"`
}

type roomListResponse struct {
	Rooms []models.GameRoom `json:"rooms"`
}

type autoMatchResponse struct {
	Room    *models.GameRoom `json:"room"`
	Created bool             `json:"created"`
}

type onlineUsersResponse struct {
	Users      []models.OnlineUser `json:"users"`
	TotalCount int                 `json:"totalCount"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// roomID parses the {roomId} path segment. An id that is not a uuid cannot name a room.
func roomID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "roomId"))
	if err != nil {
		return uuid.Nil, matchmaking.ErrRoomNotFound
	}
	return id, nil
}

// boardSize reads and validates the request's boardSize.
func boardSize(r *http.Request) (models.BoardSize, error) {
	var req boardRequest
	if err := decode(r, &req); err != nil {
		return 0, err
	}
	if !req.BoardSize.Valid() {
		return 0, matchmaking.ErrInvalidBoardSize
	}
	return req.BoardSize, nil
}

// HeartbeatHandler marks the caller online. It acknowledges even when the presence write is lost.
//
// POST /api/v1/lobby/heartbeat
func (s *APIServer) HeartbeatHandler(w http.ResponseWriter, r *http.Request) {
	p, err := s.player(r)
	if errors.Is(err, database.ErrUserNotFound) {
		success(w, http.StatusOK, okResponse{OK: true})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res := s.Presence.Heartbeat(r.Context(), p.UserID, p.Nickname, p.RankTier, p.RankLevel)
	if res.Failed() {
		s.Metrics.HeartbeatLost()
	}
	res.Discard(s.Logger.WithField("user_id", p.UserID))

	success(w, http.StatusOK, okResponse{OK: true})
}

// OnlineUsersHandler lists users with a live heartbeat.
//
// GET /api/v1/lobby/online-users
func (s *APIServer) OnlineUsersHandler(w http.ResponseWriter, r *http.Request) {
	users := s.Presence.ListOnline(r.Context())
	success(w, http.StatusOK, onlineUsersResponse{Users: users, TotalCount: len(users)})
}

// CreateRoomHandler opens a room hosted by the caller.
//
// POST /api/v1/lobby/rooms  { "boardSize": 19 }
func (s *APIServer) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	size, err := boardSize(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	room, err := s.Rooms.CreateRoom(r.Context(), p, size)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusCreated, roomResponse{Room: room})
}

// ListRoomsHandler returns the rooms waiting for a guest.
//
// GET /api/v1/lobby/rooms
func (s *APIServer) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.Rooms.ListWaitingRooms(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, roomListResponse{Rooms: rooms})
}

// JoinRoomHandler seats the caller as guest.
//
// POST /api/v1/lobby/rooms/{roomId}/join
func (s *APIServer) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	id, err := roomID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	room, err := s.Rooms.JoinRoom(r.Context(), id, p.UserID, p.Nickname)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, roomResponse{Room: room})
}

// AutoMatchHandler joins a compatible waiting room or opens a new one.
//
// POST /api/v1/lobby/auto-match  { "boardSize": 9 }
func (s *APIServer) AutoMatchHandler(w http.ResponseWriter, r *http.Request) {
	size, err := boardSize(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	room, created, err := s.Rooms.AutoMatch(r.Context(), p, size)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, autoMatchResponse{Room: room, Created: created})
}

// RoomStatusHandler is polled by both players to follow a room.
//
// GET /api/v1/lobby/rooms/{roomId}
func (s *APIServer) RoomStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := roomID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	room, err := s.Rooms.GetRoomStatus(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, roomResponse{Room: room})
}

// LeaveRoomHandler removes the caller from a room.
//
// POST /api/v1/lobby/rooms/{roomId}/leave
func (s *APIServer) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	id, err := roomID(r)
	if errors.Is(err, matchmaking.ErrRoomNotFound) {
		success(w, http.StatusOK, okResponse{OK: true})
		return
	}
	claims, _ := claimsFrom(r.Context())

	if err := s.Rooms.LeaveRoom(r.Context(), id, claims.UserID); err != nil {
		s.fail(w, r, err)
		return
	}
	success(w, http.StatusOK, okResponse{OK: true})
}
