package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/playersync"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/connection"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/room"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/session"
	"github.com/Sr-Chandan-Sahu/vibeone/pkg/ctxlogger"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type joinedRoomOutput struct {
	Participant domain.Participant `json:"participant"`
	Room        domain.Room        `json:"room"`
}

func (c controller) connectRoom(w http.ResponseWriter, r *http.Request) {
	roomCode := chi.URLParam(r, "room-code")

	identity, err := c.roomService.ParseSessionToken(r.URL.Query().Get("auth-token"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	if identity.RoomCode != roomCode {
		c.writeError(w, r, ErrWrongRoom)
		return
	}

	roomState, err := c.roomService.GetRoom(r.Context(), roomCode)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("room_code", roomCode))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("participant_id", identity.ParticipantId))
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	wc := c.newWSConn(connCtx, conn, identity)

	if err := c.connRepo.Add(ctx, conn, connection.Info{RoomCode: roomCode, ParticipantID: identity.ParticipantId}); err != nil {
		c.logger.WarnContext(ctx, "failed to register connection", "error", err)
		return
	}
	defer c.connRepo.Remove(ctx, conn)

	if err := wc.write(&Output{
		Type: typeJoinedRoom,
		Payload: joinedRoomOutput{
			Participant: identity.Participant(),
			Room:        roomState,
		},
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to write json", "error", err)
		return
	}

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if err := wc.session.Run(connCtx); err != nil {
			c.logger.WarnContext(ctx, "session stopped", "error", err)
			conn.Close()
		}
	}()

	if err := c.wsmux.ServeConn(withWSConn(connCtx, wc), conn); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.logger.InfoContext(ctx, "failed to serve conn", "error", err)
		}
	}

	cancel()
	<-sessionDone
	wc.wg.Wait()
}

func (c controller) newWSConn(ctx context.Context, conn *websocket.Conn, identity room.Identity) *wsConn {
	wc := &wsConn{
		conn:     conn,
		identity: identity,
		players:  make(map[domain.MediaKind]*playersync.RemotePlayer, len(domain.MediaKinds)),
		ctx:      ctx,
	}

	players := make(map[domain.MediaKind]playersync.Player, len(domain.MediaKinds))
	for _, kind := range domain.MediaKinds {
		p := playersync.NewRemotePlayer(kind, func(cmd playersync.Command) error {
			return wc.write(&Output{Type: typePlayerCommand, Payload: cmd})
		}, nil)
		wc.players[kind] = p
		players[kind] = p
	}

	wc.session = session.New(&session.Deps{
		RoomService: c.roomService,
		Presence:    c.presence,
		RoomRepo:    c.roomRepo,
		Gate:        c.roomService.Gate(),
	}, &session.Config{
		Identity:       identity,
		Players:        players,
		SyncInterval:   c.syncInterval,
		DriftTolerance: c.driftTolerance,
		OnRoom: func(r domain.Room) {
			c.push(ctx, wc, typeRoomUpdated, r)
		},
		OnParticipants: func(participants []domain.Participant) {
			c.push(ctx, wc, typeParticipantsUpdated, map[string]any{"participants": participants})
		},
		OnMessages: func(messages []domain.Message) {
			c.push(ctx, wc, typeMessagesUpdated, map[string]any{"messages": messages})
		},
	}, c.logger)

	return wc
}

func (c controller) push(ctx context.Context, wc *wsConn, messageType string, payload any) {
	if err := wc.write(&Output{Type: messageType, Payload: payload}); err != nil {
		c.logger.DebugContext(ctx, "failed to push", "type", messageType, "error", err)
	}
}

// handleWSError reports a failed frame back to its sender and keeps the connection open.
func (c controller) handleWSError(ctx context.Context, _ *websocket.Conn, err error) error {
	status, message := errorResponse(err)
	if status >= http.StatusInternalServerError {
		c.logger.ErrorContext(ctx, "websocket message failed", "error", err)
	} else {
		c.logger.InfoContext(ctx, "websocket message rejected", "error", err)
	}

	wc := c.getWSConnFromCtx(ctx)
	if wc == nil {
		return ErrNotConnected
	}

	return wc.write(&Output{
		Type:    typeError,
		Payload: map[string]any{"message": message},
	})
}

func (c controller) mustWSConn(ctx context.Context) (*wsConn, error) {
	wc := c.getWSConnFromCtx(ctx)
	if wc == nil {
		return nil, ErrNotConnected
	}
	return wc, nil
}

type EmptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

type KindInput struct {
	Kind domain.MediaKind `json:"kind"`
}

type EnqueueTrackInput struct {
	Kind      domain.MediaKind `json:"kind"`
	TrackID   string           `json:"trackId"`
	Title     string           `json:"title"`
	Thumbnail string           `json:"thumbnail"`
	Duration  string           `json:"duration"`
}

func (c controller) handleEnqueueTrack(ctx context.Context, _ *websocket.Conn, input EnqueueTrackInput) error {
	wc, err := c.mustWSConn(ctx)
	if err != nil {
		return err
	}

	return c.roomService.Enqueue(ctx, &room.EnqueueParams{
		Sender:    wc.identity,
		RoomCode:  wc.identity.RoomCode,
		Kind:      input.Kind,
		TrackID:   input.TrackID,
		Title:     input.Title,
		Thumbnail: input.Thumbnail,
		Duration:  input.Duration,
	})
}

func (c controller) playbackHandler(fn func(context.Context, *room.PlaybackParams) error) func(context.Context, *websocket.Conn, KindInput) error {
	return func(ctx context.Context, _ *websocket.Conn, input KindInput) error {
		wc, err := c.mustWSConn(ctx)
		if err != nil {
			return err
		}

		return fn(ctx, &room.PlaybackParams{
			Sender:   wc.identity,
			RoomCode: wc.identity.RoomCode,
			Kind:     input.Kind,
		})
	}
}

type RemoveTrackInput struct {
	Kind  domain.MediaKind `json:"kind"`
	Index int              `json:"index"`
}

func (c controller) handleRemoveTrack(ctx context.Context, _ *websocket.Conn, input RemoveTrackInput) error {
	wc, err := c.mustWSConn(ctx)
	if err != nil {
		return err
	}

	return c.roomService.RemoveAt(ctx, &room.RemoveAtParams{
		Sender:   wc.identity,
		RoomCode: wc.identity.RoomCode,
		Kind:     input.Kind,
		Index:    input.Index,
	})
}

type ReorderQueueInput struct {
	Kind domain.MediaKind `json:"kind"`
	From int              `json:"from"`
	To   int              `json:"to"`
}

func (c controller) handleReorderQueue(ctx context.Context, _ *websocket.Conn, input ReorderQueueInput) error {
	wc, err := c.mustWSConn(ctx)
	if err != nil {
		return err
	}

	return c.roomService.Reorder(ctx, &room.ReorderParams{
		Sender:   wc.identity,
		RoomCode: wc.identity.RoomCode,
		Kind:     input.Kind,
		From:     input.From,
		To:       input.To,
	})
}

type SendMessageInput struct {
	Text string `json:"text"`
}

// handleSendMessage returns once the reply is started; the ai stream continues in the background.
func (c controller) handleSendMessage(ctx context.Context, _ *websocket.Conn, input SendMessageInput) error {
	wc, err := c.mustWSConn(ctx)
	if err != nil {
		return err
	}

	if !wc.replying.CompareAndSwap(false, true) {
		return ErrReplyInFlight
	}

	wc.goBackground(func(bgCtx context.Context) {
		defer wc.replying.Store(false)

		_, err := c.roomService.SendMessage(bgCtx, &room.SendMessageParams{
			Sender:   wc.identity,
			RoomCode: wc.identity.RoomCode,
			Text:     input.Text,
			OnPartial: func(m domain.Message) {
				c.push(bgCtx, wc, typeAIReplyPartial, m)
			},
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.handleWSError(withWSConn(bgCtx, wc), wc.conn, err)
		}
	})

	return nil
}

type SearchInput struct {
	Query string           `json:"query"`
	Kind  domain.MediaKind `json:"kind"`
}

type searchResultsOutput struct {
	Query  string           `json:"query"`
	Kind   domain.MediaKind `json:"kind"`
	Tracks []domain.Track   `json:"tracks"`
}

func (c controller) handleSearch(ctx context.Context, _ *websocket.Conn, input SearchInput) error {
	wc, err := c.mustWSConn(ctx)
	if err != nil {
		return err
	}

	wc.goBackground(func(bgCtx context.Context) {
		tracks := c.roomService.Search(bgCtx, &room.SearchParams{Query: input.Query, Kind: input.Kind})
		c.push(bgCtx, wc, typeSearchResults, searchResultsOutput{
			Query:  input.Query,
			Kind:   input.Kind,
			Tracks: tracks,
		})
	})

	return nil
}

type PlayerStatusInput struct {
	Kind      domain.MediaKind `json:"kind"`
	TrackID   string           `json:"trackId"`
	Position  float64          `json:"position"`
	IsPlaying bool             `json:"isPlaying"`
	Error     string           `json:"error,omitempty"`
}

func (c controller) remotePlayer(ctx context.Context, kind domain.MediaKind) (*wsConn, *playersync.RemotePlayer, error) {
	wc, err := c.mustWSConn(ctx)
	if err != nil {
		return nil, nil, err
	}

	p, ok := wc.players[kind]
	if !ok {
		return nil, nil, room.ErrInvalidKind
	}

	return wc, p, nil
}

func (c controller) handlePlayerStatus(ctx context.Context, _ *websocket.Conn, input PlayerStatusInput) error {
	_, p, err := c.remotePlayer(ctx, input.Kind)
	if err != nil {
		return err
	}

	p.Report(playersync.Status{TrackID: input.TrackID, Position: input.Position, IsPlaying: input.IsPlaying})
	return nil
}

func (c controller) handlePlayerLoaded(ctx context.Context, _ *websocket.Conn, input PlayerStatusInput) error {
	wc, p, err := c.remotePlayer(ctx, input.Kind)
	if err != nil {
		return err
	}

	p.Report(playersync.Status{TrackID: input.TrackID, Position: input.Position, IsPlaying: input.IsPlaying})
	return wc.session.PlayerEvent(ctx, input.Kind, playersync.Event{Kind: playersync.EventLoaded, TrackID: input.TrackID})
}

func (c controller) handlePlayerEnded(ctx context.Context, _ *websocket.Conn, input PlayerStatusInput) error {
	wc, p, err := c.remotePlayer(ctx, input.Kind)
	if err != nil {
		return err
	}

	p.Report(playersync.Status{TrackID: input.TrackID, Position: input.Position, IsPlaying: false})
	return wc.session.PlayerEvent(ctx, input.Kind, playersync.Event{Kind: playersync.EventEnded, TrackID: input.TrackID})
}

func (c controller) handlePlayerError(ctx context.Context, _ *websocket.Conn, input PlayerStatusInput) error {
	wc, p, err := c.remotePlayer(ctx, input.Kind)
	if err != nil {
		return err
	}

	p.Failed()
	return wc.session.PlayerEvent(ctx, input.Kind, playersync.Event{
		Kind:    playersync.EventError,
		TrackID: input.TrackID,
		Err:     errors.New(input.Error),
	})
}
