package inmemory

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/connection"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewRepo(slog.Default())
	conn := &websocket.Conn{}
	info := connection.Info{RoomCode: "ABC123", ParticipantID: "p1"}

	require.NoError(t, r.Add(ctx, conn, info))
	assert.ErrorIs(t, r.Add(ctx, conn, info), connection.ErrAlreadyExists)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(conn)
	require.NoError(t, err)
	assert.Equal(t, info, got)

	removed, err := r.Remove(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, info, removed)

	_, err = r.Remove(ctx, conn)
	assert.ErrorIs(t, err, connection.ErrNotFound)
	_, err = r.Get(conn)
	assert.ErrorIs(t, err, connection.ErrNotFound)
}

func TestCloseAll(t *testing.T) {
	ctx := context.Background()
	r := NewRepo(slog.Default())
	registered := make(chan struct{})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		_ = r.Add(ctx, conn, connection.Info{RoomCode: "ABC123", ParticipantID: "p1"})
		close(registered)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()
	<-registered

	assert.Equal(t, 1, r.CloseAll(ctx, websocket.CloseGoingAway, "server shutting down"))

	_, _, err = client.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
