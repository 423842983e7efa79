package session

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/control"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/playersync"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room/memory"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/presence"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

type fakePlayer struct {
	mu       sync.Mutex
	loads    []string
	loadedID string
	playing  bool
	position float64
}

func (p *fakePlayer) Load(trackID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads = append(p.loads, trackID)
	p.loadedID = trackID
	p.playing = false
	p.position = 0
	return nil
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	return nil
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	return nil
}

func (p *fakePlayer) Seek(position float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = position
	return nil
}

func (p *fakePlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *fakePlayer) LoadedID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadedID
}

func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) Loads() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.loads...)
}

type recorder[T any] struct {
	mu   sync.Mutex
	last T
	n    int
}

func (r *recorder[T]) set(v T) {
	r.mu.Lock()
	r.last = v
	r.n++
	r.mu.Unlock()
}

func (r *recorder[T]) get() (T, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.n
}

type roomService interface {
	iRoomService
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	ParseSessionToken(string) (room.Identity, error)
	GetRoom(context.Context, string) (domain.Room, error)
	Enqueue(context.Context, *room.EnqueueParams) error
}

type env struct {
	repo     iRoomRepo
	service  roomService
	presence iPresence
}

func newEnv() env {
	logger := slog.Default()
	repo := memory.NewRepo(logger)
	svc := room.New(&room.Deps{RoomRepo: repo, Gate: control.HostGate{}}, &room.Config{Secret: "secret"}, logger)

	return env{repo: repo, service: svc, presence: presence.NewTracker(repo, logger)}
}

type mounted struct {
	session      *Session
	audio        *fakePlayer
	video        *fakePlayer
	rooms        *recorder[domain.Room]
	participants *recorder[[]domain.Participant]
	messages     *recorder[[]domain.Message]
	cancel       context.CancelFunc
	done         chan error
}

func (e env) mount(t *testing.T, identity room.Identity) *mounted {
	t.Helper()

	m := &mounted{
		audio:        &fakePlayer{},
		video:        &fakePlayer{},
		rooms:        &recorder[domain.Room]{},
		participants: &recorder[[]domain.Participant]{},
		messages:     &recorder[[]domain.Message]{},
		done:         make(chan error, 1),
	}

	m.session = New(&Deps{
		RoomService: e.service,
		Presence:    e.presence,
		RoomRepo:    e.repo,
		Gate:        control.HostGate{},
	}, &Config{
		Identity:       identity,
		Players:        map[domain.MediaKind]playersync.Player{domain.MediaKindAudio: m.audio, domain.MediaKindVideo: m.video},
		SyncInterval:   20 * time.Millisecond,
		OnRoom:         m.rooms.set,
		OnParticipants: m.participants.set,
		OnMessages:     m.messages.set,
	}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go func() { m.done <- m.session.Run(ctx) }()
	t.Cleanup(m.unmount)

	return m
}

func (m *mounted) unmount() {
	m.cancel()
	<-m.done
	m.done <- nil
}

func participantIDs(ps []domain.Participant) []string {
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestSessionPresenceAndMessages(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	created, err := e.service.CreateRoom(ctx, &room.CreateRoomParams{Name: "Alice"})
	require.NoError(t, err)
	alice, err := e.service.ParseSessionToken(created.AuthToken)
	require.NoError(t, err)

	joined, err := e.service.JoinRoom(ctx, &room.JoinRoomParams{RoomCode: created.RoomCode, Name: "Bob"})
	require.NoError(t, err)
	bob, err := e.service.ParseSessionToken(joined.AuthToken)
	require.NoError(t, err)

	host := e.mount(t, alice)
	assert.Eventually(t, func() bool {
		ps, _ := host.participants.get()
		return len(ps) == 1
	}, waitFor, tick)

	guest := e.mount(t, bob)
	assert.Eventually(t, func() bool {
		ps, _ := host.participants.get()
		return assert.ObjectsAreEqual([]string{alice.ParticipantId, bob.ParticipantId}, participantIDs(ps))
	}, waitFor, tick)

	assert.Eventually(t, func() bool {
		msgs, _ := guest.messages.get()
		texts := make(map[string]bool)
		for _, m := range msgs {
			texts[m.Text] = true
		}
		return len(msgs) == 2 && texts["Alice joined"] && texts["Bob joined"]
	}, waitFor, tick)

	ps, _ := host.participants.get()
	for _, p := range ps {
		assert.Equal(t, p.ID == alice.ParticipantId, p.IsHost)
	}

	guest.unmount()
	assert.Eventually(t, func() bool {
		r, err := e.service.GetRoom(ctx, created.RoomCode)
		return err == nil && assert.ObjectsAreEqual([]string{alice.ParticipantId}, participantIDs(r.Participants))
	}, waitFor, tick)

	_, n := guest.rooms.get()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, e.service.Enqueue(ctx, &room.EnqueueParams{Sender: alice, RoomCode: created.RoomCode, Kind: domain.MediaKindAudio, TrackID: "aaaaaaaaaaa", Title: "A"}))
	time.Sleep(50 * time.Millisecond)
	_, after := guest.rooms.get()
	assert.Equal(t, n, after, "no pushes after unmount")
}

func TestSessionPlaybackAndAdvance(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	created, err := e.service.CreateRoom(ctx, &room.CreateRoomParams{Name: "Alice"})
	require.NoError(t, err)
	alice, err := e.service.ParseSessionToken(created.AuthToken)
	require.NoError(t, err)
	code := created.RoomCode

	host := e.mount(t, alice)

	for _, id := range []string{"aaaaaaaaaaa", "bbbbbbbbbbb"} {
		require.NoError(t, e.service.Enqueue(ctx, &room.EnqueueParams{Sender: alice, RoomCode: code, Kind: domain.MediaKindAudio, TrackID: id, Title: id}))
	}

	assert.Eventually(t, func() bool {
		loads := host.audio.Loads()
		return len(loads) > 0 && loads[len(loads)-1] == "aaaaaaaaaaa"
	}, waitFor, tick)

	require.NoError(t, host.session.PlayerEvent(ctx, domain.MediaKindAudio, playersync.Event{Kind: playersync.EventLoaded, TrackID: "aaaaaaaaaaa"}))
	assert.Eventually(t, host.audio.IsPlaying, waitFor, tick)
	assert.Empty(t, host.video.Loads())

	ended := playersync.Event{Kind: playersync.EventEnded, TrackID: "aaaaaaaaaaa"}
	require.NoError(t, host.session.PlayerEvent(ctx, domain.MediaKindAudio, ended))
	require.NoError(t, host.session.PlayerEvent(ctx, domain.MediaKindAudio, ended))

	assert.Eventually(t, func() bool {
		r, err := e.service.GetRoom(ctx, code)
		return err == nil && r.MusicState.Audio.CurrentTrack != nil && r.MusicState.Audio.CurrentTrack.ID == "bbbbbbbbbbb"
	}, waitFor, tick)

	assert.Eventually(t, func() bool {
		loads := host.audio.Loads()
		return loads[len(loads)-1] == "bbbbbbbbbbb"
	}, waitFor, tick)

	r, err := e.service.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Empty(t, r.MusicState.Audio.Queue, "a repeated ended signal advances once")
}

func TestGuestEndedDoesNotAdvance(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	created, err := e.service.CreateRoom(ctx, &room.CreateRoomParams{Name: "Alice"})
	require.NoError(t, err)
	alice, err := e.service.ParseSessionToken(created.AuthToken)
	require.NoError(t, err)
	joined, err := e.service.JoinRoom(ctx, &room.JoinRoomParams{RoomCode: created.RoomCode, Name: "Bob"})
	require.NoError(t, err)
	bob, err := e.service.ParseSessionToken(joined.AuthToken)
	require.NoError(t, err)

	for _, id := range []string{"aaaaaaaaaaa", "bbbbbbbbbbb"} {
		require.NoError(t, e.service.Enqueue(ctx, &room.EnqueueParams{Sender: alice, RoomCode: created.RoomCode, Kind: domain.MediaKindVideo, TrackID: id, Title: id}))
	}

	guest := e.mount(t, bob)
	assert.Eventually(t, func() bool {
		loads := guest.video.Loads()
		return len(loads) == 1 && loads[0] == "aaaaaaaaaaa"
	}, waitFor, tick)

	require.NoError(t, guest.session.PlayerEvent(ctx, domain.MediaKindVideo, playersync.Event{Kind: playersync.EventLoaded, TrackID: "aaaaaaaaaaa"}))
	require.NoError(t, guest.session.PlayerEvent(ctx, domain.MediaKindVideo, playersync.Event{Kind: playersync.EventEnded, TrackID: "aaaaaaaaaaa"}))

	time.Sleep(100 * time.Millisecond)
	r, err := e.service.GetRoom(ctx, created.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaaa", r.MusicState.Video.CurrentTrack.ID)
}

func TestPlayerEventAfterClose(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	created, err := e.service.CreateRoom(ctx, &room.CreateRoomParams{Name: "Alice"})
	require.NoError(t, err)
	alice, err := e.service.ParseSessionToken(created.AuthToken)
	require.NoError(t, err)

	m := e.mount(t, alice)
	m.unmount()

	for range eventsBuffer + 1 {
		if err := m.session.PlayerEvent(ctx, domain.MediaKindAudio, playersync.Event{Kind: playersync.EventEnded}); err != nil {
			assert.ErrorIs(t, err, ErrSessionClosed)
			return
		}
	}
	t.Fatal("expected ErrSessionClosed once the buffer filled")
}
