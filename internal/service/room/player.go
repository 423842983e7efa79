package room

import (
	"context"
	"fmt"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/control"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	roomrepo "github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room"
	"github.com/Sr-Chandan-Sahu/vibeone/pkg/ytvideodata"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// allowed reports whether sender may perform action. Denied calls are dropped without error.
func (s service) allowed(ctx context.Context, sender Identity, action control.Action) bool {
	if s.gate.Allow(sender.Actor(), action) {
		return true
	}

	s.logger.InfoContext(ctx, "action denied", "action", action.String(), "participant_id", sender.ParticipantId)
	return false
}

// updateChannel runs fn on the current channel and writes back every channel it changed.
// Starting one channel pauses the other in the same write.
func (s service) updateChannel(ctx context.Context, roomCode string, kind domain.MediaKind, fn func(domain.Channel, time.Time) (domain.Channel, error)) error {
	if err := validation.Validate(kind, KindRule...); err != nil {
		return fmt.Errorf("%w %q", ErrInvalidKind, kind)
	}

	return s.roomRepo.RunTransaction(ctx, roomCode, func(r domain.Room) (roomrepo.Patch, error) {
		now := s.now()

		ch, err := fn(r.MusicState.Channel(kind), now)
		if err != nil {
			return nil, err
		}

		state, changed := r.MusicState.Start(kind, ch, now)
		return roomrepo.MusicStatePatch(state, changed, now.UnixMilli()), nil
	})
}

type EnqueueParams struct {
	Sender    Identity
	RoomCode  string
	Kind      domain.MediaKind
	TrackID   string
	Title     string
	Thumbnail string
	Duration  string
}

// Enqueue accepts a bare id or any youtube url. A missing title is looked up from the video metadata.
func (s service) Enqueue(ctx context.Context, params *EnqueueParams) error {
	if !s.allowed(ctx, params.Sender, control.ActionEnqueue) {
		return nil
	}

	if id, ok := ytvideodata.ParseVideoID(params.TrackID); ok {
		params.TrackID = id
	}
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.TrackID, TrackIDRule...),
		validation.Field(&params.Kind, KindRule...),
	); err != nil {
		return err
	}

	track := domain.Track{
		ID:        params.TrackID,
		Title:     params.Title,
		AddedBy:   params.Sender.Name,
		Thumbnail: params.Thumbnail,
		Duration:  params.Duration,
		MediaKind: params.Kind,
	}
	if track.Title == "" {
		s.fillTrackMetadata(ctx, &track)
	}

	if err := s.updateChannel(ctx, params.RoomCode, params.Kind, func(ch domain.Channel, now time.Time) (domain.Channel, error) {
		if len(ch.Queue) >= s.queueLimit {
			return ch, ErrQueueLimitReached
		}
		return domain.Enqueue(ch, track, now), nil
	}); err != nil {
		return fmt.Errorf("failed to enqueue track: %w", err)
	}

	return nil
}

func (s service) fillTrackMetadata(ctx context.Context, track *domain.Track) {
	track.Title = "Video " + track.ID
	if s.videoData == nil {
		return
	}

	data, err := s.videoData.Get(ctx, track.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to get video data", "track_id", track.ID, "error", err)
		return
	}

	if data.Title != "" {
		track.Title = data.Title
	}
	if track.Thumbnail == "" {
		track.Thumbnail = data.ThumbnailUrl
	}
}

type PlaybackParams struct {
	Sender   Identity
	RoomCode string
	Kind     domain.MediaKind
}

func (s service) TogglePlay(ctx context.Context, params *PlaybackParams) error {
	if !s.allowed(ctx, params.Sender, control.ActionTogglePlay) {
		return nil
	}

	if err := s.updateChannel(ctx, params.RoomCode, params.Kind, func(ch domain.Channel, now time.Time) (domain.Channel, error) {
		return domain.TogglePlay(ch, now), nil
	}); err != nil {
		return fmt.Errorf("failed to toggle playback: %w", err)
	}

	return nil
}

func (s service) SkipNext(ctx context.Context, params *PlaybackParams) error {
	if !s.allowed(ctx, params.Sender, control.ActionSkipNext) {
		return nil
	}

	if err := s.updateChannel(ctx, params.RoomCode, params.Kind, func(ch domain.Channel, now time.Time) (domain.Channel, error) {
		return domain.Advance(ch, now), nil
	}); err != nil {
		return fmt.Errorf("failed to skip to next track: %w", err)
	}

	return nil
}

func (s service) SkipPrevious(ctx context.Context, params *PlaybackParams) error {
	if !s.allowed(ctx, params.Sender, control.ActionSkipPrevious) {
		return nil
	}

	if err := s.updateChannel(ctx, params.RoomCode, params.Kind, func(ch domain.Channel, now time.Time) (domain.Channel, error) {
		return domain.SkipPrevious(ch, now), nil
	}); err != nil {
		return fmt.Errorf("failed to skip to previous track: %w", err)
	}

	return nil
}

type RemoveAtParams struct {
	Sender   Identity
	RoomCode string
	Kind     domain.MediaKind
	Index    int
}

// RemoveAt and Reorder ignore out-of-range indices.
func (s service) RemoveAt(ctx context.Context, params *RemoveAtParams) error {
	if !s.allowed(ctx, params.Sender, control.ActionRemoveAt) {
		return nil
	}

	if err := s.updateChannel(ctx, params.RoomCode, params.Kind, func(ch domain.Channel, _ time.Time) (domain.Channel, error) {
		return domain.RemoveAt(ch, params.Index), nil
	}); err != nil {
		return fmt.Errorf("failed to remove track: %w", err)
	}

	return nil
}

type ReorderParams struct {
	Sender   Identity
	RoomCode string
	Kind     domain.MediaKind
	From     int
	To       int
}

func (s service) Reorder(ctx context.Context, params *ReorderParams) error {
	if !s.allowed(ctx, params.Sender, control.ActionReorder) {
		return nil
	}

	if err := s.updateChannel(ctx, params.RoomCode, params.Kind, func(ch domain.Channel, _ time.Time) (domain.Channel, error) {
		return domain.Reorder(ch, params.From, params.To), nil
	}); err != nil {
		return fmt.Errorf("failed to reorder queue: %w", err)
	}

	return nil
}

type TrackEndedParams struct {
	Sender   Identity
	RoomCode string
	Kind     domain.MediaKind
	TrackID  string
	// StartedAt is the anchor of the play that ended; it separates repeated copies of one track.
	StartedAt int64
}

// TrackEnded advances only while the same play of TrackID is still current, so repeated ended signals advance once.
func (s service) TrackEnded(ctx context.Context, params *TrackEndedParams) error {
	if !s.allowed(ctx, params.Sender, control.ActionAdvanceOnEnd) {
		return nil
	}

	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Kind, KindRule...),
		validation.Field(&params.TrackID, validation.Required),
		validation.Field(&params.StartedAt, validation.Required),
	); err != nil {
		return err
	}

	if err := s.roomRepo.RunTransaction(ctx, params.RoomCode, func(r domain.Room) (roomrepo.Patch, error) {
		ch := r.MusicState.Channel(params.Kind)
		if ch.CurrentTrack == nil || ch.CurrentTrack.ID != params.TrackID || ch.StartedAt != params.StartedAt {
			return nil, nil
		}

		now := s.now()
		state, changed := r.MusicState.Start(params.Kind, domain.Advance(ch, now), now)
		return roomrepo.MusicStatePatch(state, changed, now.UnixMilli()), nil
	}); err != nil {
		return fmt.Errorf("failed to advance ended track: %w", err)
	}

	return nil
}
