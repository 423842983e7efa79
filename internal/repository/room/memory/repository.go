package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room"
)

type repo struct {
	mu sync.Mutex

	rooms    map[string]map[string]any
	messages map[string]map[string]domain.Message

	roomFeeds    map[string]map[uint64]*feed[domain.Room]
	messageFeeds map[string]map[uint64]*feed[[]domain.Message]
	nextFeedID   uint64

	now    func() time.Time
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		rooms:        make(map[string]map[string]any),
		messages:     make(map[string]map[string]domain.Message),
		roomFeeds:    make(map[string]map[uint64]*feed[domain.Room]),
		messageFeeds: make(map[string]map[uint64]*feed[[]domain.Message]),
		now:          time.Now,
		logger:       logger,
	}
}

func (r *repo) Get(ctx context.Context, code string) (domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.rooms[code]
	if !ok {
		return domain.Room{}, room.ErrRoomNotFound
	}

	return room.DecodeRoom(doc)
}

func (r *repo) WriteMerge(ctx context.Context, code string, patch room.Patch) error {
	r.logger.DebugContext(ctx, "called", "room_code", code, "fields", len(patch))
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.rooms[code]
	if !ok {
		doc = make(map[string]any)
	}

	if err := r.applyLocked(code, doc, patch); err != nil {
		return fmt.Errorf("failed to write merge: %w", err)
	}

	return nil
}

func (r *repo) RunTransaction(ctx context.Context, code string, fn func(domain.Room) (room.Patch, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.rooms[code]
	if !ok {
		return room.ErrRoomNotFound
	}

	current, err := room.DecodeRoom(doc)
	if err != nil {
		return err
	}

	patch, err := fn(current)
	if err != nil {
		return err
	}
	if len(patch) == 0 {
		return nil
	}

	return r.applyLocked(code, doc, patch)
}

// applyLocked works on a copy so a failed patch leaves the stored document untouched.
func (r *repo) applyLocked(code string, doc map[string]any, patch room.Patch) error {
	next, err := copyDoc(doc)
	if err != nil {
		return err
	}

	if err := room.ApplyPatch(next, patch.Merge(room.Patch{"lastUpdated": r.now().UnixMilli()})); err != nil {
		return err
	}

	snapshot, err := room.DecodeRoom(next)
	if err != nil {
		return err
	}

	r.rooms[code] = next
	for _, f := range r.roomFeeds[code] {
		f.push(snapshot)
	}

	return nil
}

func (r *repo) Subscribe(ctx context.Context, code string, onChange func(domain.Room)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := newFeed(onChange)
	id := r.nextFeedID
	r.nextFeedID++
	if r.roomFeeds[code] == nil {
		r.roomFeeds[code] = make(map[uint64]*feed[domain.Room])
	}
	r.roomFeeds[code][id] = f

	if doc, ok := r.rooms[code]; ok {
		snapshot, err := room.DecodeRoom(doc)
		if err != nil {
			delete(r.roomFeeds[code], id)
			f.close()
			return nil, err
		}
		f.push(snapshot)
	}

	return func() {
		r.mu.Lock()
		delete(r.roomFeeds[code], id)
		r.mu.Unlock()
		f.close()
	}, nil
}

func (r *repo) SaveMessage(ctx context.Context, code string, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.putMessageLocked(code, msg)
	return nil
}

func (r *repo) CreateMessage(ctx context.Context, code string, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.messages[code][msg.ID]; ok {
		return room.ErrMessageExists
	}

	r.putMessageLocked(code, msg)
	return nil
}

func (r *repo) ListMessages(ctx context.Context, code string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.listMessagesLocked(code), nil
}

func (r *repo) SubscribeMessages(ctx context.Context, code string, onChange func([]domain.Message)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := newFeed(onChange)
	id := r.nextFeedID
	r.nextFeedID++
	if r.messageFeeds[code] == nil {
		r.messageFeeds[code] = make(map[uint64]*feed[[]domain.Message])
	}
	r.messageFeeds[code][id] = f
	f.push(r.listMessagesLocked(code))

	return func() {
		r.mu.Lock()
		delete(r.messageFeeds[code], id)
		r.mu.Unlock()
		f.close()
	}, nil
}

func (r *repo) putMessageLocked(code string, msg domain.Message) {
	if r.messages[code] == nil {
		r.messages[code] = make(map[string]domain.Message)
	}
	r.messages[code][msg.ID] = msg

	list := r.listMessagesLocked(code)
	for _, f := range r.messageFeeds[code] {
		f.push(list)
	}
}

func (r *repo) listMessagesLocked(code string) []domain.Message {
	list := make([]domain.Message, 0, len(r.messages[code]))
	for _, m := range r.messages[code] {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Timestamp != list[j].Timestamp {
			return list[i].Timestamp < list[j].Timestamp
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func copyDoc(doc map[string]any) (map[string]any, error) {
	v, err := room.Generic(doc)
	if err != nil {
		return nil, err
	}
	out, _ := v.(map[string]any)
	if out == nil {
		out = make(map[string]any)
	}
	return out, nil
}
