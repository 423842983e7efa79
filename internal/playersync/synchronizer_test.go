package playersync

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	loaded   string
	position float64
	playing  bool
	loadErr  error
	calls    []string
	seeks    []float64
}

func (p *fakePlayer) Load(id string) error {
	p.calls = append(p.calls, "load:"+id)
	return p.loadErr
}

func (p *fakePlayer) Play() error {
	p.calls = append(p.calls, "play")
	p.playing = true
	return nil
}

func (p *fakePlayer) Pause() error {
	p.calls = append(p.calls, "pause")
	p.playing = false
	return nil
}

func (p *fakePlayer) Seek(pos float64) error {
	p.calls = append(p.calls, "seek")
	p.seeks = append(p.seeks, pos)
	p.position = pos
	return nil
}

func (p *fakePlayer) Position() float64 { return p.position }
func (p *fakePlayer) LoadedID() string  { return p.loaded }
func (p *fakePlayer) IsPlaying() bool   { return p.playing }

// completeLoad mimics the embedded player finishing a load request.
func (p *fakePlayer) completeLoad(id string) {
	p.loaded = id
	p.position = 0
}

var now = time.UnixMilli(1_700_000_000_000)

func newSync(p Player) *Synchronizer {
	return New(&Config{
		Kind:   domain.MediaKindVideo,
		Player: p,
		Now:    func() time.Time { return now },
		Logger: slog.Default(),
	})
}

func playing(id string, startedAt int64) domain.Channel {
	return domain.Channel{
		CurrentTrack: &domain.Track{ID: id},
		IsPlaying:    true,
		Queue:        []domain.Track{},
		StartedAt:    startedAt,
	}
}

func TestLoadsMismatchedTrackWithoutOtherCommands(t *testing.T) {
	ctx := context.Background()
	p := &fakePlayer{loaded: "xyz", playing: true, position: 3}
	s := newSync(p)

	s.Apply(ctx, playing("abc", now.UnixMilli()-10_000))
	assert.Equal(t, StateLoading, s.State())
	assert.Equal(t, []string{"load:abc"}, p.calls, "only a load may be issued before the track is loaded")

	s.Apply(ctx, playing("abc", now.UnixMilli()-10_000))
	s.Reconcile(ctx)
	assert.Equal(t, []string{"load:abc"}, p.calls, "no play/pause/seek while still loading")
	assert.Equal(t, StateLoading, s.State())

	p.completeLoad("abc")
	p.playing = false
	_, ended := s.HandleEvent(ctx, Event{Kind: EventLoaded, TrackID: "abc"})
	assert.False(t, ended)
	assert.Equal(t, []string{"load:abc", "play", "seek"}, p.calls)
	require.Len(t, p.seeks, 1)
	assert.InDelta(t, 10.0, p.seeks[0], 0.01)
	assert.Equal(t, StateSyncing, s.State())

	s.Reconcile(ctx)
	assert.Equal(t, StateSteady, s.State())
}

func TestDriftTolerance(t *testing.T) {
	ctx := context.Background()

	p := &fakePlayer{loaded: "abc", playing: true, position: 7.5}
	s := newSync(p)
	s.Apply(ctx, playing("abc", now.UnixMilli()-10_000))
	require.Len(t, p.seeks, 1, "drift of 2.5s must seek")
	assert.InDelta(t, 10.0, p.seeks[0], 0.01)

	p = &fakePlayer{loaded: "abc", playing: true, position: 9.0}
	s = newSync(p)
	s.Apply(ctx, playing("abc", now.UnixMilli()-10_000))
	assert.Empty(t, p.seeks, "drift of 1s is within tolerance")
	assert.Empty(t, p.calls)
	assert.Equal(t, StateSteady, s.State())
}

func TestPlayStateCorrection(t *testing.T) {
	ctx := context.Background()
	p := &fakePlayer{loaded: "abc", playing: true, position: 12}
	s := newSync(p)

	ch := playing("abc", now.UnixMilli()-12_000)
	ch.IsPlaying = false
	ch.PausedAt = 12
	s.Apply(ctx, ch)
	assert.Equal(t, []string{"pause"}, p.calls)
	assert.False(t, p.playing)
}

func TestTrackChangeReturnsToLoading(t *testing.T) {
	ctx := context.Background()
	p := &fakePlayer{loaded: "abc", playing: true}
	s := newSync(p)

	s.Apply(ctx, playing("abc", now.UnixMilli()))
	assert.Equal(t, StateSteady, s.State())

	s.Apply(ctx, playing("def", now.UnixMilli()))
	assert.Equal(t, StateLoading, s.State())
	assert.Equal(t, []string{"load:def"}, p.calls)
}

func TestIdlePausesWithoutUnloading(t *testing.T) {
	ctx := context.Background()
	p := &fakePlayer{loaded: "abc", playing: true}
	s := newSync(p)

	s.Apply(ctx, playing("abc", now.UnixMilli()))
	s.Apply(ctx, domain.DefaultChannel())
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, []string{"pause"}, p.calls)
	assert.Equal(t, "abc", p.loaded, "idle must not unload")

	s.Apply(ctx, domain.DefaultChannel())
	assert.Equal(t, []string{"pause"}, p.calls, "already idle")
}

func TestLoadErrorStaysLoading(t *testing.T) {
	ctx := context.Background()
	p := &fakePlayer{}
	s := newSync(p)

	s.Apply(ctx, playing("bad", now.UnixMilli()))
	s.HandleEvent(ctx, Event{Kind: EventError, TrackID: "bad", Err: errors.New("codec")})
	assert.Equal(t, StateLoading, s.State())

	s.Apply(ctx, playing("bad", now.UnixMilli()))
	s.Reconcile(ctx)
	assert.Equal(t, StateLoading, s.State(), "no automatic remediation")
	assert.Equal(t, []string{"load:bad"}, p.calls, "no retry or skip")

	p.loadErr = errors.New("offline")
	s.Apply(ctx, playing("next", now.UnixMilli()))
	assert.Equal(t, StateLoading, s.State())
}

func TestEndedSignal(t *testing.T) {
	ctx := context.Background()
	p := &fakePlayer{loaded: "v1", playing: true}
	s := newSync(p)
	s.Apply(ctx, playing("v1", now.UnixMilli()))

	_, ok := s.HandleEvent(ctx, Event{Kind: EventEnded, TrackID: "old"})
	assert.False(t, ok, "stale ended signal is ignored")

	p.playing = false
	id, ok := s.HandleEvent(ctx, Event{Kind: EventEnded, TrackID: "v1"})
	assert.True(t, ok)
	assert.Equal(t, "v1", id)

	_, ok = s.HandleEvent(ctx, Event{Kind: EventEnded})
	assert.False(t, ok, "a track ends once")

	s.Reconcile(ctx)
	assert.Empty(t, p.calls, "an ended track is not restarted while waiting for advance")
}

func TestRepeatedTrackPlaysAgainAfterEnded(t *testing.T) {
	ctx := context.Background()
	p := &fakePlayer{loaded: "v1", playing: true, position: 200}
	s := newSync(p)

	first := playing("v1", now.UnixMilli()-200_000)
	first.Queue = []domain.Track{{ID: "v1"}}
	s.Apply(ctx, first)
	require.Empty(t, p.calls)

	p.playing = false
	id, ok := s.HandleEvent(ctx, Event{Kind: EventEnded, TrackID: "v1"})
	require.True(t, ok)
	assert.Equal(t, "v1", id)
	assert.Equal(t, first.StartedAt, s.Anchor())

	// an unrelated update of the same play keeps the ended hold
	s.Apply(ctx, first)
	_, ok = s.HandleEvent(ctx, Event{Kind: EventEnded, TrackID: "v1"})
	assert.False(t, ok)
	assert.Empty(t, p.calls)

	second := domain.Advance(first, now)
	require.Equal(t, "v1", second.CurrentTrack.ID)
	s.Apply(ctx, second)
	assert.Equal(t, []string{"play", "seek"}, p.calls, "the second copy restarts from the beginning")
	assert.Equal(t, []float64{0}, p.seeks)
	assert.Equal(t, second.StartedAt, s.Anchor())

	p.playing = false
	id, ok = s.HandleEvent(ctx, Event{Kind: EventEnded, TrackID: "v1"})
	assert.True(t, ok, "the second copy reports its own end")
	assert.Equal(t, "v1", id)
}

func TestLoadedEventForOtherTrackIgnored(t *testing.T) {
	ctx := context.Background()
	p := &fakePlayer{}
	s := newSync(p)
	s.Apply(ctx, playing("abc", now.UnixMilli()))

	s.HandleEvent(ctx, Event{Kind: EventLoaded, TrackID: "zzz"})
	assert.Equal(t, StateLoading, s.State())
}
