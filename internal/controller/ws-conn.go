package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/playersync"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/room"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/session"
	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

const (
	// in
	typeAlive         = "ALIVE"
	typeEnqueueTrack  = "ENQUEUE_TRACK"
	typeTogglePlay    = "TOGGLE_PLAYBACK"
	typeSkipNext      = "SKIP_NEXT"
	typeSkipPrevious  = "SKIP_PREVIOUS"
	typeRemoveTrack   = "REMOVE_TRACK"
	typeReorderQueue  = "REORDER_QUEUE"
	typeSendMessage   = "SEND_MESSAGE"
	typeSearch        = "SEARCH"
	typePlayerStatus  = "PLAYER_STATUS"
	typePlayerLoaded  = "PLAYER_LOADED"
	typePlayerEnded   = "PLAYER_ENDED"
	typePlayerError   = "PLAYER_ERROR"
	// out
	typeJoinedRoom          = "JOINED_ROOM"
	typeRoomUpdated         = "ROOM_UPDATED"
	typeParticipantsUpdated = "PARTICIPANTS_UPDATED"
	typeMessagesUpdated     = "MESSAGES_UPDATED"
	typeAIReplyPartial      = "AI_REPLY_PARTIAL"
	typeSearchResults       = "SEARCH_RESULTS"
	typePlayerCommand       = "PLAYER_COMMAND"
	typeError               = "ERROR"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// wsConn is the per-socket state shared by the read loop, the session and background replies.
type wsConn struct {
	conn     *websocket.Conn
	identity room.Identity
	session  *session.Session
	players  map[domain.MediaKind]*playersync.RemotePlayer

	// ctx lives as long as the socket; background work started by handlers uses it.
	ctx context.Context

	writeMu  sync.Mutex
	replying atomic.Bool
	wg       sync.WaitGroup
}

func (w *wsConn) write(out *Output) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteJSON(out)
}

// goBackground runs fn on the socket's lifetime context; teardown waits for it.
func (w *wsConn) goBackground(fn func(ctx context.Context)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn(w.ctx)
	}()
}

type ctxKey int

const wsConnCtxKey ctxKey = iota

func withWSConn(ctx context.Context, w *wsConn) context.Context {
	return context.WithValue(ctx, wsConnCtxKey, w)
}

func (c controller) getWSConnFromCtx(ctx context.Context) *wsConn {
	w, ok := ctx.Value(wsConnCtxKey).(*wsConn)
	if !ok {
		return nil
	}

	return w
}
