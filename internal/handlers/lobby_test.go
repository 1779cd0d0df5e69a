// internal/handlers/lobby_test.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/baduk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRoom(t *testing.T, resp response) models.GameRoom {
	t.Helper()
	var body struct {
		Room models.GameRoom `json:"room"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	return body.Room
}

func TestLobbyRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/lobby/heartbeat"},
		{http.MethodGet, "/api/v1/lobby/online-users"},
		{http.MethodPost, "/api/v1/lobby/rooms"},
		{http.MethodPost, "/api/v1/lobby/rooms/" + uuid.NewString() + "/join"},
		{http.MethodPost, "/api/v1/lobby/rooms/" + uuid.NewString() + "/leave"},
		{http.MethodPost, "/api/v1/lobby/auto-match"},
	}
	for _, rt := range routes {
		w, resp := ts.do(t, rt.method, rt.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, rt.path)
		assert.Equal(t, "AUTH_UNAUTHORIZED", errCode(resp), rt.path)
	}

	w, resp := ts.do(t, http.MethodGet, "/api/v1/lobby/online-users", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_TOKEN_INVALID", errCode(resp))
}

func TestAuthCookieAccepted(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.signUp(t, "cookie")

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/lobby/online-users", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	assert.Equal(t, token, bearerToken(req))
}

func TestHeartbeatAndOnlineUsers(t *testing.T) {
	ts := newTestServer(t)
	u, token := ts.signUp(t, "흑돌")

	w, resp := ts.do(t, http.MethodPost, "/api/v1/lobby/heartbeat", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	w, resp = ts.do(t, http.MethodGet, "/api/v1/lobby/online-users", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body onlineUsersResponse
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	require.Equal(t, 1, body.TotalCount)
	assert.Equal(t, u.ID, body.Users[0].UserID)
	assert.Equal(t, "흑돌", body.Users[0].Nickname)
	assert.Equal(t, models.RankTierGosu, body.Users[0].RankTier)
	assert.Equal(t, 3, body.Users[0].RankLevel)
}

func TestHeartbeatSurvivesStoreOutage(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.signUp(t, "white")
	ts.store.SetFault(errors.New("connection refused"))

	w, resp := ts.do(t, http.MethodPost, "/api/v1/lobby/heartbeat", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	w, _ = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, w.Body.String(), "baduk_lobby_heartbeats_lost_total 1")

	w, resp = ts.do(t, http.MethodGet, "/api/v1/lobby/online-users", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body onlineUsersResponse
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	assert.Empty(t, body.Users)
}

func TestCreateAndListRooms(t *testing.T) {
	ts := newTestServer(t)
	host, token := ts.signUp(t, "host")

	w, resp := ts.do(t, http.MethodPost, "/api/v1/lobby/rooms", token, map[string]int{"boardSize": 13})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	room := decodeRoom(t, resp)
	assert.Equal(t, host.ID, room.HostID)
	assert.Equal(t, "host", room.HostNickname)
	assert.Equal(t, models.Board13x13, room.BoardSize)
	assert.Equal(t, models.RoomStatusWaiting, room.Status)
	assert.Nil(t, room.GuestID)

	w, resp = ts.do(t, http.MethodGet, "/api/v1/lobby/rooms", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list roomListResponse
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, room.RoomID, list.Rooms[0].RoomID)
}

func TestListRoomsEmptyIsArray(t *testing.T) {
	ts := newTestServer(t)
	w, resp := ts.do(t, http.MethodGet, "/api/v1/lobby/rooms", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rooms":[]}`, string(resp.Data))
}

func TestCreateRoomValidation(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.signUp(t, "host")

	for _, body := range []any{nil, map[string]int{"boardSize": 15}, map[string]string{"boardSize": "big"}} {
		w, resp := ts.do(t, http.MethodPost, "/api/v1/lobby/rooms", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errCode(resp))
	}
}

func TestJoinRoomFlow(t *testing.T) {
	ts := newTestServer(t)
	_, hostToken := ts.signUp(t, "host")
	guest, guestToken := ts.signUp(t, "guest")
	_, lateToken := ts.signUp(t, "late")

	_, resp := ts.do(t, http.MethodPost, "/api/v1/lobby/rooms", hostToken, map[string]int{"boardSize": 19})
	room := decodeRoom(t, resp)
	base := "/api/v1/lobby/rooms/" + room.RoomID.String()

	w, resp := ts.do(t, http.MethodPost, base+"/join", hostToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ROOM_SELF_JOIN", errCode(resp))

	w, resp = ts.do(t, http.MethodPost, base+"/join", guestToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	joined := decodeRoom(t, resp)
	assert.Equal(t, models.RoomStatusFull, joined.Status)
	require.NotNil(t, joined.GuestID)
	assert.Equal(t, guest.ID, *joined.GuestID)

	w, resp = ts.do(t, http.MethodPost, base+"/join", lateToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ROOM_NOT_AVAILABLE", errCode(resp))

	// both players poll the room without auth
	w, resp = ts.do(t, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoomStatusFull, decodeRoom(t, resp).Status)

	_, resp = ts.do(t, http.MethodGet, "/api/v1/lobby/rooms", "", nil)
	assert.JSONEq(t, `{"rooms":[]}`, string(resp.Data))
}

func TestRoomNotFound(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.signUp(t, "guest")

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		w, resp := ts.do(t, http.MethodGet, "/api/v1/lobby/rooms/"+id, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "ROOM_NOT_FOUND", errCode(resp))

		w, resp = ts.do(t, http.MethodPost, "/api/v1/lobby/rooms/"+id+"/join", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "ROOM_NOT_FOUND", errCode(resp))

		w, _ = ts.do(t, http.MethodPost, "/api/v1/lobby/rooms/"+id+"/leave", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestLeaveRoom(t *testing.T) {
	ts := newTestServer(t)
	_, hostToken := ts.signUp(t, "host")
	_, guestToken := ts.signUp(t, "guest")

	_, resp := ts.do(t, http.MethodPost, "/api/v1/lobby/rooms", hostToken, map[string]int{"boardSize": 9})
	base := "/api/v1/lobby/rooms/" + decodeRoom(t, resp).RoomID.String()
	ts.do(t, http.MethodPost, base+"/join", guestToken, nil)

	w, _ := ts.do(t, http.MethodPost, base+"/leave", guestToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, resp = ts.do(t, http.MethodGet, base, "", nil)
	reopened := decodeRoom(t, resp)
	assert.Equal(t, models.RoomStatusWaiting, reopened.Status)
	assert.Nil(t, reopened.GuestID)

	w, _ = ts.do(t, http.MethodPost, base+"/leave", hostToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = ts.do(t, http.MethodGet, base, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAutoMatch(t *testing.T) {
	ts := newTestServer(t)
	_, aToken := ts.signUp(t, "alpha")
	b, bToken := ts.signUp(t, "beta")

	w, resp := ts.do(t, http.MethodPost, "/api/v1/lobby/auto-match", aToken, map[string]int{"boardSize": 9})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first autoMatchResponse
	require.NoError(t, json.Unmarshal(resp.Data, &first))
	assert.True(t, first.Created)
	assert.Equal(t, models.RoomStatusWaiting, first.Room.Status)

	w, resp = ts.do(t, http.MethodPost, "/api/v1/lobby/auto-match", bToken, map[string]int{"boardSize": 9})
	require.Equal(t, http.StatusOK, w.Code)
	var second autoMatchResponse
	require.NoError(t, json.Unmarshal(resp.Data, &second))
	assert.False(t, second.Created)
	assert.Equal(t, first.Room.RoomID, second.Room.RoomID)
	require.NotNil(t, second.Room.GuestID)
	assert.Equal(t, b.ID, *second.Room.GuestID)

	w, resp = ts.do(t, http.MethodPost, "/api/v1/lobby/auto-match", bToken, map[string]int{"boardSize": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errCode(resp))
}

func TestRoomStoreOutage(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.signUp(t, "host")
	ts.store.SetFault(errors.New("connection refused"))

	w, resp := ts.do(t, http.MethodPost, "/api/v1/lobby/rooms", token, map[string]int{"boardSize": 19})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORE_UNAVAILABLE", errCode(resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Timestamp)

	w, resp = ts.do(t, http.MethodGet, "/api/v1/lobby/rooms", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORE_UNAVAILABLE", errCode(resp))
}

func TestDeletedUserCannotCreateRoom(t *testing.T) {
	ts := newTestServer(t)
	token, err := ts.srv.Sessions.Issue(uuid.New(), "ghost")
	require.NoError(t, err)

	w, resp := ts.do(t, http.MethodPost, "/api/v1/lobby/rooms", token, map[string]int{"boardSize": 19})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", errCode(resp))
}
