package inmemory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/connection"
	"github.com/gorilla/websocket"
)

const closeWriteTimeout = time.Second

type repo struct {
	conns  map[*websocket.Conn]connection.Info
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		conns:  make(map[*websocket.Conn]connection.Info),
		logger: logger,
	}
}

func (r *repo) Add(ctx context.Context, conn *websocket.Conn, info connection.Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.DebugContext(ctx, "called", "room_code", info.RoomCode, "participant_id", info.ParticipantID)
	if _, ok := r.conns[conn]; ok {
		r.logger.DebugContext(ctx, "returned", "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.conns[conn] = info
	return nil
}

func (r *repo) Remove(ctx context.Context, conn *websocket.Conn) (connection.Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.conns[conn]
	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", connection.ErrNotFound)
		return connection.Info{}, connection.ErrNotFound
	}
	delete(r.conns, conn)

	r.logger.DebugContext(ctx, "returned", "room_code", info.RoomCode, "participant_id", info.ParticipantID)
	return info, nil
}

func (r *repo) Get(conn *websocket.Conn) (connection.Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.conns[conn]
	if !ok {
		return connection.Info{}, connection.ErrNotFound
	}

	return info, nil
}

func (r *repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// CloseAll sends a close frame to every registered socket and closes it. Registrations are kept;
// each connection's own handler removes itself once its read loop fails.
func (r *repo) CloseAll(ctx context.Context, code int, reason string) int {
	r.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(r.conns))
	for conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	msg := websocket.FormatCloseMessage(code, reason)
	for _, conn := range conns {
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout)); err != nil {
			r.logger.DebugContext(ctx, "failed to write close frame", "error", err)
		}
		conn.Close()
	}

	r.logger.InfoContext(ctx, "closed websocket connections", "count", len(conns))
	return len(conns)
}
