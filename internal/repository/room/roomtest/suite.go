// Package roomtest holds behaviour checks shared by every room store backend.
package roomtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Store interface {
	Get(ctx context.Context, code string) (domain.Room, error)
	WriteMerge(ctx context.Context, code string, patch room.Patch) error
	RunTransaction(ctx context.Context, code string, fn func(domain.Room) (room.Patch, error)) error
	Subscribe(ctx context.Context, code string, onChange func(domain.Room)) (func(), error)
	SaveMessage(ctx context.Context, code string, msg domain.Message) error
	CreateMessage(ctx context.Context, code string, msg domain.Message) error
	ListMessages(ctx context.Context, code string) ([]domain.Message, error)
	SubscribeMessages(ctx context.Context, code string, onChange func([]domain.Message)) (func(), error)
}

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

// Run exercises the store contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("WriteMergeCreatesAndMerges", func(t *testing.T) { testWriteMerge(t, newStore(t)) })
	t.Run("SubscribeDeliversSnapshots", func(t *testing.T) { testSubscribe(t, newStore(t)) })
	t.Run("TransactionsDoNotLoseUpdates", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("Messages", func(t *testing.T) { testMessages(t, newStore(t)) })
}

func seed(t *testing.T, s Store, code string, participants ...domain.Participant) {
	r := domain.NewRoom(code, domain.Participant{ID: "host", Name: "Host"}, time.Now().UnixMilli())
	r.Participants = append(r.Participants, participants...)
	require.NoError(t, s.WriteMerge(context.Background(), code, room.RoomPatch(r)))
}

func testWriteMerge(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "NOPE00")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	seed(t, s, "ABC123")

	ch := domain.Enqueue(domain.DefaultChannel(), domain.Track{ID: "v1", MediaKind: domain.MediaKindAudio}, time.Now())
	state := domain.DefaultMusicState().WithChannel(domain.MediaKindAudio, ch)
	require.NoError(t, s.WriteMerge(ctx, "ABC123", room.MusicStatePatch(state, []domain.MediaKind{domain.MediaKindAudio}, 1)))

	r, err := s.Get(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", r.Code, "fields not mentioned are kept")
	assert.Equal(t, "host", r.HostID)
	assert.Equal(t, "v1", r.MusicState.Audio.CurrentTrack.ID)
	assert.True(t, r.MusicState.Audio.IsPlaying)
	assert.Nil(t, r.MusicState.Video.CurrentTrack)
	assert.NotZero(t, r.LastUpdated)
}

func testSubscribe(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s, "SUB001")

	var mu sync.Mutex
	var got []domain.Room
	unsubscribe, err := s.Subscribe(ctx, "SUB001", func(r domain.Room) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	})
	require.NoError(t, err)

	last := func() (domain.Room, int) {
		mu.Lock()
		defer mu.Unlock()
		if len(got) == 0 {
			return domain.Room{}, 0
		}
		return got[len(got)-1], len(got)
	}

	assert.Eventually(t, func() bool {
		r, n := last()
		return n >= 1 && r.Code == "SUB001"
	}, waitFor, tick, "initial snapshot must be delivered")

	require.NoError(t, s.WriteMerge(ctx, "SUB001", room.ParticipantsPatch([]domain.Participant{{ID: "p1", Name: "P1"}})))
	assert.Eventually(t, func() bool {
		r, _ := last()
		return len(r.Participants) == 1 && r.Participants[0].ID == "p1"
	}, waitFor, tick, "change must be pushed as a full document")

	unsubscribe()
	_, before := last()
	require.NoError(t, s.WriteMerge(ctx, "SUB001", room.ParticipantsPatch(nil)))
	time.Sleep(50 * time.Millisecond)
	_, after := last()
	assert.Equal(t, before, after, "no pushes after unsubscribe")
}

func testTransactions(t *testing.T, s Store) {
	ctx := context.Background()

	err := s.RunTransaction(ctx, "MISSING", func(domain.Room) (room.Patch, error) { return nil, nil })
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	const n = 8
	initial := make([]domain.Participant, 0, n)
	for i := 0; i < n; i++ {
		initial = append(initial, domain.Participant{ID: fmt.Sprintf("p%d", i), Name: "P"})
	}
	seed(t, s, "TXN001", initial...)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := s.RunTransaction(ctx, "TXN001", func(r domain.Room) (room.Patch, error) {
				kept := make([]domain.Participant, 0, len(r.Participants))
				for _, p := range r.Participants {
					if p.ID != id {
						kept = append(kept, p)
					}
				}
				return room.ParticipantsPatch(kept), nil
			})
			assert.NoError(t, err)
		}(fmt.Sprintf("p%d", i))
	}
	wg.Wait()

	r, err := s.Get(ctx, "TXN001")
	require.NoError(t, err)
	assert.Empty(t, r.Participants, "every concurrent removal must survive")

	sentinel := errors.New("abort")
	err = s.RunTransaction(ctx, "TXN001", func(domain.Room) (room.Patch, error) { return nil, sentinel })
	assert.ErrorIs(t, err, sentinel)
}

func testMessages(t *testing.T, s Store) {
	ctx := context.Background()
	seed(t, s, "MSG001")

	var mu sync.Mutex
	var latest []domain.Message
	unsubscribe, err := s.SubscribeMessages(ctx, "MSG001", func(list []domain.Message) {
		mu.Lock()
		latest = list
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	msg := func(id string, ts int64) domain.Message {
		return domain.Message{ID: id, RoomID: "MSG001", Text: id, Timestamp: ts, Kind: domain.MessageKindText}
	}
	require.NoError(t, s.SaveMessage(ctx, "MSG001", msg("b", 20)))
	require.NoError(t, s.SaveMessage(ctx, "MSG001", msg("a", 10)))
	require.NoError(t, s.CreateMessage(ctx, "MSG001", msg("join-p1", 15)))
	assert.ErrorIs(t, s.CreateMessage(ctx, "MSG001", msg("join-p1", 30)), room.ErrMessageExists)

	updated := msg("b", 20)
	updated.Text = "edited"
	require.NoError(t, s.SaveMessage(ctx, "MSG001", updated))

	list, err := s.ListMessages(ctx, "MSG001")
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"a", "join-p1", "b"}, ids, "ordered by timestamp")
	assert.Equal(t, "edited", list[2].Text, "save overwrites by id")
	assert.Equal(t, int64(15), list[1].Timestamp, "create never overwrites")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latest) == 3 && latest[2].Text == "edited"
	}, waitFor, tick)

	empty, err := s.ListMessages(ctx, "NOPE00")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
