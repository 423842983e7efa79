package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/control"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/playersync"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/room"
)

const (
	DefaultSyncInterval = time.Second

	leaveTimeout = 5 * time.Second
	eventsBuffer = 16
)

var ErrSessionClosed = errors.New("session closed")

type iRoomService interface {
	AnnounceJoin(ctx context.Context, roomCode string, p domain.Participant) error
	TrackEnded(ctx context.Context, params *room.TrackEndedParams) error
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

type Deps struct {
	RoomService iRoomService
	Presence    iPresence
	RoomRepo    iRoomRepo
	Gate        control.Gate
}

type Config struct {
	Identity       room.Identity
	Players        map[domain.MediaKind]playersync.Player
	SyncInterval   time.Duration
	DriftTolerance time.Duration
	Now            func() time.Time

	// Callbacks are never invoked after Run returns. They may be nil.
	OnRoom         func(domain.Room)
	OnParticipants func([]domain.Participant)
	OnMessages     func([]domain.Message)
}

type playerEvent struct {
	kind domain.MediaKind
	ev   playersync.Event
}

// Session is one mounted client of a room. All synchronizer work happens on the Run goroutine.
type Session struct {
	roomService iRoomService
	presence    iPresence
	roomRepo    iRoomRepo
	gate        control.Gate
	cfg         Config
	syncs       []*playersync.Synchronizer
	logger      *slog.Logger

	events  chan playerEvent
	done    chan struct{}
	mounted atomic.Bool

	mu         sync.Mutex
	latest     *domain.Room
	roomNotify chan struct{}
}

func New(deps *Deps, cfg *Config, logger *slog.Logger) *Session {
	s := &Session{
		roomService: deps.RoomService,
		presence:    deps.Presence,
		roomRepo:    deps.RoomRepo,
		gate:        deps.Gate,
		cfg:         *cfg,
		logger:      logger.With("room_code", cfg.Identity.RoomCode, "participant_id", cfg.Identity.ParticipantId),
		events:      make(chan playerEvent, eventsBuffer),
		done:        make(chan struct{}),
		roomNotify:  make(chan struct{}, 1),
	}

	if s.gate == nil {
		s.gate = control.HostGate{}
	}
	if s.cfg.SyncInterval <= 0 {
		s.cfg.SyncInterval = DefaultSyncInterval
	}

	for _, kind := range domain.MediaKinds {
		player, ok := cfg.Players[kind]
		if !ok {
			continue
		}
		s.syncs = append(s.syncs, playersync.New(&playersync.Config{
			Kind:           kind,
			Player:         player,
			DriftTolerance: cfg.DriftTolerance,
			Now:            cfg.Now,
			Logger:         s.logger,
		}))
	}

	return s
}

// PlayerEvent queues an event from the client's player for the Run loop.
func (s *Session) PlayerEvent(ctx context.Context, kind domain.MediaKind, ev playersync.Event) error {
	select {
	case s.events <- playerEvent{kind: kind, ev: ev}:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run mounts the session and blocks until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	code := s.cfg.Identity.RoomCode
	participant := s.cfg.Identity.Participant()

	if err := s.presence.Join(ctx, code, participant); err != nil {
		return fmt.Errorf("failed to join presence: %w", err)
	}
	defer s.leave(ctx)

	if err := s.roomService.AnnounceJoin(ctx, code, participant); err != nil {
		s.logger.WarnContext(ctx, "failed to announce join", "error", err)
	}

	s.mounted.Store(true)
	defer s.mounted.Store(false)

	unsubRoom, err := s.roomRepo.Subscribe(ctx, code, s.pushRoom)
	if err != nil {
		return fmt.Errorf("failed to subscribe to room: %w", err)
	}
	defer unsubRoom()

	unsubParticipants, err := s.presence.Subscribe(ctx, code, func(participants []domain.Participant) {
		if s.mounted.Load() && s.cfg.OnParticipants != nil {
			s.cfg.OnParticipants(participants)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to participants: %w", err)
	}
	defer unsubParticipants()

	unsubMessages, err := s.roomRepo.SubscribeMessages(ctx, code, func(messages []domain.Message) {
		if s.mounted.Load() && s.cfg.OnMessages != nil {
			s.cfg.OnMessages(messages)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to messages: %w", err)
	}
	defer unsubMessages()

	// Muted before the subscriptions close.
	defer s.mounted.Store(false)

	ticker := time.NewTicker(s.cfg.SyncInterval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "session mounted")

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "session unmounted")
			return nil
		case <-s.roomNotify:
			s.applyRoom(ctx)
		case pe := <-s.events:
			s.handlePlayerEvent(ctx, pe)
		case <-ticker.C:
			for _, ps := range s.syncs {
				ps.Reconcile(ctx)
			}
		}
	}
}

// pushRoom keeps only the newest snapshot; the loop catches up in one step.
func (s *Session) pushRoom(r domain.Room) {
	s.mu.Lock()
	s.latest = &r
	s.mu.Unlock()

	select {
	case s.roomNotify <- struct{}{}:
	default:
	}
}

func (s *Session) applyRoom(ctx context.Context) {
	s.mu.Lock()
	latest := s.latest
	s.latest = nil
	s.mu.Unlock()
	if latest == nil {
		return
	}

	r := latest.Normalize()
	for _, ps := range s.syncs {
		ps.Apply(ctx, r.MusicState.Channel(ps.Kind()))
	}

	if s.mounted.Load() && s.cfg.OnRoom != nil {
		s.cfg.OnRoom(r)
	}
}

func (s *Session) handlePlayerEvent(ctx context.Context, pe playerEvent) {
	for _, ps := range s.syncs {
		if ps.Kind() != pe.kind {
			continue
		}

		trackID, ended := ps.HandleEvent(ctx, pe.ev)
		if !ended {
			return
		}

		identity := s.cfg.Identity
		if !s.gate.Allow(identity.Actor(), control.ActionAdvanceOnEnd) {
			return
		}

		if err := s.roomService.TrackEnded(ctx, &room.TrackEndedParams{
			Sender:    identity,
			RoomCode:  identity.RoomCode,
			Kind:      pe.kind,
			TrackID:   trackID,
			StartedAt: ps.Anchor(),
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to advance ended track", "track_id", trackID, "error", err)
		}
		return
	}
}

// leave runs after ctx is cancelled, so it uses a detached context of its own.
func (s *Session) leave(ctx context.Context) {
	leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaveTimeout)
	defer cancel()

	if err := s.presence.Leave(leaveCtx, s.cfg.Identity.RoomCode, s.cfg.Identity.ParticipantId); err != nil {
		s.logger.WarnContext(leaveCtx, "failed to leave presence", "error", err)
	}
}
