package controller

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/control"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/connection"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/room"
	"github.com/Sr-Chandan-Sahu/vibeone/pkg/validator"
	"github.com/Sr-Chandan-Sahu/vibeone/pkg/wsrouter"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	GetRoom(context.Context, string) (domain.Room, error)
	ParseSessionToken(string) (room.Identity, error)
	// playback
	Enqueue(context.Context, *room.EnqueueParams) error
	TogglePlay(context.Context, *room.PlaybackParams) error
	SkipNext(context.Context, *room.PlaybackParams) error
	SkipPrevious(context.Context, *room.PlaybackParams) error
	RemoveAt(context.Context, *room.RemoveAtParams) error
	Reorder(context.Context, *room.ReorderParams) error
	TrackEnded(context.Context, *room.TrackEndedParams) error
	// chat
	AnnounceJoin(context.Context, string, domain.Participant) error
	SendMessage(context.Context, *room.SendMessageParams) (room.SendMessageResponse, error)
	// search
	Search(context.Context, *room.SearchParams) []domain.Track
	Gate() control.Gate
}

type iPresence interface {
	Join(ctx context.Context, roomCode string, p domain.Participant) error
	Leave(ctx context.Context, roomCode, participantID string) error
	Subscribe(ctx context.Context, roomCode string, onChange func([]domain.Participant)) (func(), error)
}

type iRoomRepo interface {
	Subscribe(ctx context.Context, code string, onChange func(domain.Room)) (func(), error)
	SubscribeMessages(ctx context.Context, code string, onChange func([]domain.Message)) (func(), error)
}

type iConnRepo interface {
	Add(context.Context, *websocket.Conn, connection.Info) error
	Remove(context.Context, *websocket.Conn) (connection.Info, error)
	CloseAll(ctx context.Context, code int, reason string) int
	Len() int
}

type controller struct {
	roomService    iRoomService
	presence       iPresence
	roomRepo       iRoomRepo
	connRepo       iConnRepo
	upgrader       websocket.Upgrader
	wsmux          *wsrouter.WSRouter
	validate       *validator.Validator
	syncInterval   time.Duration
	driftTolerance time.Duration
	logger         *slog.Logger
}

type Deps struct {
	RoomService iRoomService
	Presence    iPresence
	RoomRepo    iRoomRepo
	ConnRepo    iConnRepo
}

type Config struct {
	SyncInterval   time.Duration
	DriftTolerance time.Duration
}

func New(deps *Deps, cfg *Config, logger *slog.Logger) *controller {
	c := &controller{
		roomService: deps.RoomService,
		presence:    deps.Presence,
		roomRepo:    deps.RoomRepo,
		connRepo:    deps.ConnRepo,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate:       validator.NewValidator(),
		syncInterval:   cfg.SyncInterval,
		driftTolerance: cfg.DriftTolerance,
		logger:         logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}

const drainPollInterval = 50 * time.Millisecond

// CloseConns sends a going-away close frame to every live websocket and waits
// until their handlers have unmounted or ctx is done.
func (c controller) CloseConns(ctx context.Context) error {
	c.connRepo.CloseAll(ctx, websocket.CloseGoingAway, "server shutting down")

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for c.connRepo.Len() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to drain websocket connections: %w", ctx.Err())
		case <-ticker.C:
		}
	}

	return nil
}

func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
