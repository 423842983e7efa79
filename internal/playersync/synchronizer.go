package playersync

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
)

const DefaultDriftTolerance = 2 * time.Second

type State int

const (
	StateIdle State = iota
	StateLoading
	StateSyncing
	StateSteady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSyncing:
		return "syncing"
	case StateSteady:
		return "steady"
	default:
		return "unknown"
	}
}

type Config struct {
	Kind           domain.MediaKind
	Player         Player
	DriftTolerance time.Duration
	Now            func() time.Time
	Logger         *slog.Logger
}

// Synchronizer drives one channel's player towards the shared channel state.
// It is not safe for concurrent use; callers feed it from a single loop.
type Synchronizer struct {
	kind      domain.MediaKind
	player    Player
	tolerance float64
	now       func() time.Time
	logger    *slog.Logger

	state     State
	channel   domain.Channel
	requested string
	// endedID and endedAt identify the play that already reported "ended".
	endedID string
	endedAt int64
}

func New(cfg *Config) *Synchronizer {
	tolerance := cfg.DriftTolerance
	if tolerance <= 0 {
		tolerance = DefaultDriftTolerance
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Synchronizer{
		kind:      cfg.Kind,
		player:    cfg.Player,
		tolerance: tolerance.Seconds(),
		now:       now,
		logger:    logger.With("media_kind", string(cfg.Kind)),
		state:     StateIdle,
	}
}

func (s *Synchronizer) State() State {
	return s.state
}

func (s *Synchronizer) Kind() domain.MediaKind {
	return s.kind
}

// Anchor is the StartedAt of the last applied channel; it tells repeated plays of one id apart.
func (s *Synchronizer) Anchor() int64 {
	return s.channel.StartedAt
}

// Apply handles a new shared channel state.
func (s *Synchronizer) Apply(ctx context.Context, ch domain.Channel) {
	s.channel = ch

	if ch.CurrentTrack == nil {
		if s.state != StateIdle {
			if s.player.IsPlaying() {
				s.command(ctx, "pause", s.player.Pause)
			}
			s.setState(ctx, StateIdle)
		}
		s.requested = ""
		s.clearEnded()
		return
	}

	id := ch.CurrentTrack.ID
	if id != s.requested || ch.StartedAt != s.endedAt {
		s.clearEnded()
	}

	switch {
	case s.state == StateIdle || id != s.requested:
		s.requested = id
		if s.player.LoadedID() != id {
			s.load(ctx, id)
			return
		}
	case s.state == StateLoading:
		if s.player.LoadedID() != id {
			return
		}
	case s.player.LoadedID() != id:
		s.load(ctx, id)
		return
	}

	s.setState(ctx, StateSyncing)
	s.reconcile(ctx)
}

// HandleEvent handles a local player event. It reports the id of a track that
// finished while it was still the channel's current track.
func (s *Synchronizer) HandleEvent(ctx context.Context, ev Event) (string, bool) {
	switch ev.Kind {
	case EventLoaded:
		if s.state != StateLoading || ev.TrackID != s.requested {
			return "", false
		}
		s.setState(ctx, StateSyncing)
		s.reconcile(ctx)
	case EventError:
		s.logger.WarnContext(ctx, "player failed to play track", "track_id", ev.TrackID, "error", ev.Err)
		if ev.TrackID == "" || ev.TrackID == s.requested {
			s.setState(ctx, StateLoading)
		}
	case EventEnded:
		trackID := ev.TrackID
		if trackID == "" {
			trackID = s.player.LoadedID()
		}
		if s.channel.CurrentTrack == nil || s.channel.CurrentTrack.ID != trackID || s.hasEnded(trackID) {
			return "", false
		}
		s.endedID = trackID
		s.endedAt = s.channel.StartedAt
		return trackID, true
	}

	return "", false
}

// Reconcile re-checks play state and drift against the last applied channel.
func (s *Synchronizer) Reconcile(ctx context.Context) {
	switch s.state {
	case StateLoading:
		if s.requested == "" || s.player.LoadedID() != s.requested {
			return
		}
		s.setState(ctx, StateSyncing)
	case StateIdle:
		return
	}

	s.reconcile(ctx)
}

func (s *Synchronizer) reconcile(ctx context.Context) {
	if s.state != StateSyncing && s.state != StateSteady {
		return
	}
	// After "ended" the player sits at the end until the queue advances.
	if s.hasEnded(s.requested) {
		return
	}

	corrected := false
	if s.player.IsPlaying() != s.channel.IsPlaying {
		if s.channel.IsPlaying {
			s.command(ctx, "play", s.player.Play)
		} else {
			s.command(ctx, "pause", s.player.Pause)
		}
		corrected = true
	}

	target := domain.EffectivePosition(s.channel, s.now())
	if drift := math.Abs(s.player.Position() - target); drift > s.tolerance {
		s.logger.DebugContext(ctx, "drift exceeds tolerance", "drift", drift, "target", target)
		s.command(ctx, "seek", func() error {
			return s.player.Seek(target)
		})
		corrected = true
	}

	if corrected {
		s.setState(ctx, StateSyncing)
	} else {
		s.setState(ctx, StateSteady)
	}
}

func (s *Synchronizer) hasEnded(id string) bool {
	return id != "" && s.endedID == id && s.endedAt == s.channel.StartedAt
}

func (s *Synchronizer) clearEnded() {
	s.endedID = ""
	s.endedAt = 0
}

func (s *Synchronizer) load(ctx context.Context, id string) {
	s.setState(ctx, StateLoading)
	if err := s.player.Load(id); err != nil {
		s.logger.WarnContext(ctx, "failed to load track", "track_id", id, "error", err)
	}
}

func (s *Synchronizer) command(ctx context.Context, name string, fn func() error) {
	if err := fn(); err != nil {
		s.logger.WarnContext(ctx, "player command failed", "command", name, "error", err)
	}
}

func (s *Synchronizer) setState(ctx context.Context, state State) {
	if s.state == state {
		return
	}
	s.logger.DebugContext(ctx, "state changed", "from", s.state.String(), "to", state.String(), "track_id", s.requested)
	s.state = state
}
