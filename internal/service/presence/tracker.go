package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	roomrepo "github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room"
)

type iRoomRepo interface {
	RunTransaction(ctx context.Context, code string, fn func(domain.Room) (roomrepo.Patch, error)) error
	Subscribe(ctx context.Context, code string, onChange func(domain.Room)) (func(), error)
}

type mountKey struct {
	roomCode      string
	participantID string
}

// tracker keeps the room participant list in step with mounted sessions.
// A participant mounted twice in this process is removed only when its last mount goes away.
type tracker struct {
	roomRepo iRoomRepo
	logger   *slog.Logger

	mu     sync.Mutex
	mounts map[mountKey]int
}

func NewTracker(roomRepo iRoomRepo, logger *slog.Logger) *tracker {
	return &tracker{
		roomRepo: roomRepo,
		logger:   logger,
		mounts:   make(map[mountKey]int),
	}
}

// Join adds p to the room, replacing an existing entry with the same id.
func (t *tracker) Join(ctx context.Context, roomCode string, p domain.Participant) error {
	err := t.roomRepo.RunTransaction(ctx, roomCode, func(r domain.Room) (roomrepo.Patch, error) {
		p.IsHost = r.HostID != "" && p.ID == r.HostID

		participants := make([]domain.Participant, 0, len(r.Participants)+1)
		replaced := false
		for _, existing := range r.Participants {
			if existing.ID == p.ID {
				if !replaced {
					participants = append(participants, p)
					replaced = true
				}
				continue
			}
			participants = append(participants, existing)
		}
		if !replaced {
			participants = append(participants, p)
		}

		return roomrepo.ParticipantsPatch(participants), nil
	})
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}

	t.mu.Lock()
	t.mounts[mountKey{roomCode, p.ID}]++
	t.mu.Unlock()

	t.logger.DebugContext(ctx, "participant joined", "room_code", roomCode, "participant_id", p.ID)
	return nil
}

// Leave removes the participant once no other mount in this process still holds it.
// A room that no longer exists is not an error.
func (t *tracker) Leave(ctx context.Context, roomCode, participantID string) error {
	key := mountKey{roomCode, participantID}

	t.mu.Lock()
	if n := t.mounts[key]; n > 1 {
		t.mounts[key] = n - 1
		t.mu.Unlock()
		t.logger.DebugContext(ctx, "participant still mounted elsewhere", "room_code", roomCode, "participant_id", participantID, "mounts", n-1)
		return nil
	}
	delete(t.mounts, key)
	t.mu.Unlock()

	err := t.roomRepo.RunTransaction(ctx, roomCode, func(r domain.Room) (roomrepo.Patch, error) {
		kept := make([]domain.Participant, 0, len(r.Participants))
		for _, p := range r.Participants {
			if p.ID != participantID {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(r.Participants) {
			return nil, nil
		}

		return roomrepo.ParticipantsPatch(kept), nil
	})
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return nil
		}
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	t.logger.DebugContext(ctx, "participant left", "room_code", roomCode, "participant_id", participantID)
	return nil
}

// Subscribe pushes the full participant list on every room change.
func (t *tracker) Subscribe(ctx context.Context, roomCode string, onChange func([]domain.Participant)) (func(), error) {
	return t.roomRepo.Subscribe(ctx, roomCode, func(r domain.Room) {
		onChange(r.Participants)
	})
}
