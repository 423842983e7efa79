package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/control"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/playersync"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/connection/inmemory"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room/memory"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/presence"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/room"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv        *httptest.Server
	controller *controller
}

func newTestServer(t *testing.T) testServer {
	t.Helper()

	logger := slog.Default()
	roomRepo := memory.NewRepo(logger)
	roomService := room.New(&room.Deps{RoomRepo: roomRepo, Gate: control.HostGate{}}, &room.Config{Secret: "secret"}, logger)

	c := New(&Deps{
		RoomService: roomService,
		Presence:    presence.NewTracker(roomRepo, logger),
		RoomRepo:    roomRepo,
		ConnRepo:    inmemory.NewRepo(logger),
	}, &Config{SyncInterval: 50 * time.Millisecond}, logger)

	srv := httptest.NewServer(c.GetMux())
	t.Cleanup(srv.Close)

	return testServer{srv: srv, controller: c}
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Errors []struct {
		Field string `json:"field"`
		Code  string `json:"code"`
	} `json:"errors"`
}

func (ts testServer) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, ts.srv.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func (ts testServer) createRoom(t *testing.T, name string) sessionResponse {
	t.Helper()

	status, env := ts.do(t, http.MethodPost, "/api/v1/rooms", `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusCreated, status)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	status, _ := ts.do(t, http.MethodGet, "/api/v1/healthz", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestCreateAndJoinRoom(t *testing.T) {
	ts := newTestServer(t)

	created := ts.createRoom(t, "Alice")
	assert.Regexp(t, `^[A-Z0-9]{6}$`, created.RoomCode)
	assert.True(t, created.Participant.IsHost)
	assert.NotEmpty(t, created.AuthToken)

	status, env := ts.do(t, http.MethodPost, "/api/v1/rooms/"+created.RoomCode+"/join", `{"name":"Bob"}`)
	require.Equal(t, http.StatusOK, status)
	var joined sessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	assert.Equal(t, created.RoomCode, joined.RoomCode)
	assert.False(t, joined.Participant.IsHost)

	status, env = ts.do(t, http.MethodGet, "/api/v1/rooms/"+created.RoomCode, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"hostId":"`+created.Participant.ID+`"`)
}

func TestRoomErrors(t *testing.T) {
	ts := newTestServer(t)

	status, env := ts.do(t, http.MethodPost, "/api/v1/rooms/ZZZZZZ/join", `{"name":"Bob"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "room not found", env.Error)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/rooms/ZZZZZZ", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, env = ts.do(t, http.MethodPost, "/api/v1/rooms", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "name", env.Errors[0].Field)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/rooms", `{"name":`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/rooms", `{"name":"Alice","color":"red"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status, "unknown fields are rejected")
}

func TestSearchWithoutProvider(t *testing.T) {
	ts := newTestServer(t)

	status, env := ts.do(t, http.MethodGet, "/api/v1/search?q=lofi&kind=audio", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(env.Data))
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, ts testServer, roomCode, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/api/v1/ws/room/" + roomCode + "?auth-token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func readUntil(t *testing.T, conn *websocket.Conn, messageType string, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == messageType && (match == nil || match(f.Payload)) {
			return f.Payload
		}
	}
}

func TestWebsocketSession(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createRoom(t, "Alice")

	conn, _, err := dial(t, ts, created.RoomCode, created.AuthToken)
	require.NoError(t, err)
	defer conn.Close()

	joined := readUntil(t, conn, typeJoinedRoom, nil)
	assert.Contains(t, string(joined), created.Participant.ID)

	readUntil(t, conn, typeParticipantsUpdated, func(p json.RawMessage) bool {
		return strings.Contains(string(p), created.Participant.ID)
	})

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    typeEnqueueTrack,
		"payload": map[string]any{"kind": "audio", "trackId": "dQw4w9WgXcQ", "title": "Never Gonna"},
	}))

	raw := readUntil(t, conn, typePlayerCommand, func(p json.RawMessage) bool {
		return strings.Contains(string(p), `"action":"LOAD"`)
	})
	var cmd playersync.Command
	require.NoError(t, json.Unmarshal(raw, &cmd))
	assert.Equal(t, domain.MediaKindAudio, cmd.Kind)
	assert.Equal(t, "dQw4w9WgXcQ", cmd.TrackID)

	readUntil(t, conn, typeRoomUpdated, func(p json.RawMessage) bool {
		return strings.Contains(string(p), `"Never Gonna"`)
	})

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "DANCE"}))
	errPayload := readUntil(t, conn, typeError, nil)
	assert.Contains(t, string(errPayload), "unknown message type")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": typeTogglePlay, "payload": map[string]any{"kind": "karaoke"}}))
	errPayload = readUntil(t, conn, typeError, nil)
	assert.Contains(t, string(errPayload), "kind")
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createRoom(t, "Alice")
	other := ts.createRoom(t, "Carol")

	_, resp, err := dial(t, ts, created.RoomCode, "garbage")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dial(t, ts, created.RoomCode, other.AuthToken)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCloseConns(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createRoom(t, "Alice")

	conn, _, err := dial(t, ts, created.RoomCode, created.AuthToken)
	require.NoError(t, err)
	defer conn.Close()
	readUntil(t, conn, typeJoinedRoom, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, ts.controller.CloseConns(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
			break
		}
	}

	status, env := ts.do(t, http.MethodGet, "/api/v1/rooms/"+created.RoomCode, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"participants":[]`, "unmount removes the participant")
}

func TestRequestIdHeader(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/v1/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(requestIdHeader, "trace-1")
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "trace-1", resp.Header.Get(requestIdHeader))

	resp, err = ts.srv.Client().Get(ts.srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(requestIdHeader))
}
