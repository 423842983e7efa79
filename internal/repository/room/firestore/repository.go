package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const roomsCollection = "rooms"

type repo struct {
	client *firestore.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewRepo(client *firestore.Client, logger *slog.Logger) *repo {
	return &repo{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

func (r repo) roomRef(code string) *firestore.DocumentRef {
	return r.client.Collection(roomsCollection).Doc(code)
}

func (r repo) messagesRef(code string) *firestore.CollectionRef {
	return r.roomRef(code).Collection("messages")
}

func (r repo) Get(ctx context.Context, code string) (domain.Room, error) {
	snap, err := r.roomRef(code).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.Room{}, room.ErrRoomNotFound
		}
		return domain.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	return room.DecodeRoom(snap.Data())
}

// mergeData expands patch into nested data plus the field paths Set should merge.
func (r repo) mergeData(patch room.Patch) (map[string]any, []firestore.FieldPath, error) {
	patch = patch.Merge(room.Patch{"lastUpdated": r.now().UnixMilli()})

	data := make(map[string]any)
	if err := room.ApplyPatch(data, patch); err != nil {
		return nil, nil, err
	}

	paths := make([]firestore.FieldPath, 0, len(patch))
	for _, key := range patch.SortedKeys() {
		paths = append(paths, firestore.FieldPath(strings.Split(key, ".")))
	}

	return data, paths, nil
}

func (r repo) WriteMerge(ctx context.Context, code string, patch room.Patch) error {
	r.logger.DebugContext(ctx, "called", "room_code", code, "fields", len(patch))

	data, paths, err := r.mergeData(patch)
	if err != nil {
		return fmt.Errorf("failed to write merge: %w", err)
	}

	if _, err := r.roomRef(code).Set(ctx, data, firestore.Merge(paths...)); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to write merge: %w", err)
	}

	return nil
}

func (r repo) RunTransaction(ctx context.Context, code string, fn func(domain.Room) (room.Patch, error)) error {
	r.logger.DebugContext(ctx, "called", "room_code", code)
	ref := r.roomRef(code)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return room.ErrRoomNotFound
			}
			return err
		}

		current, err := room.DecodeRoom(snap.Data())
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

		data, paths, err := r.mergeData(patch)
		if err != nil {
			return err
		}

		return tx.Set(ref, data, firestore.Merge(paths...))
	})
}

func (r repo) Subscribe(ctx context.Context, code string, onChange func(domain.Room)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	it := r.roomRef(code).Snapshots(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				r.logIteratorError(ctx, code, err)
				return
			}
			if !snap.Exists() {
				continue
			}

			current, err := room.DecodeRoom(snap.Data())
			if err != nil {
				r.logger.WarnContext(ctx, "failed to decode room snapshot", "room_code", code, "error", err)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			onChange(current)
		}
	}()

	return stopper(cancel, done), nil
}

func (r repo) SaveMessage(ctx context.Context, code string, msg domain.Message) error {
	data, err := messageData(msg)
	if err != nil {
		return err
	}

	if _, err := r.messagesRef(code).Doc(msg.ID).Set(ctx, data); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

func (r repo) CreateMessage(ctx context.Context, code string, msg domain.Message) error {
	data, err := messageData(msg)
	if err != nil {
		return err
	}

	if _, err := r.messagesRef(code).Doc(msg.ID).Create(ctx, data); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return room.ErrMessageExists
		}
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

func (r repo) ListMessages(ctx context.Context, code string) ([]domain.Message, error) {
	docs, err := r.messagesRef(code).OrderBy("timestamp", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return decodeMessages(docs)
}

func (r repo) SubscribeMessages(ctx context.Context, code string, onChange func([]domain.Message)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	it := r.messagesRef(code).OrderBy("timestamp", firestore.Asc).Snapshots(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer it.Stop()

		for {
			qs, err := it.Next()
			if err != nil {
				r.logIteratorError(ctx, code, err)
				return
			}

			docs, err := qs.Documents.GetAll()
			if err != nil {
				r.logger.WarnContext(ctx, "failed to read message snapshot", "room_code", code, "error", err)
				continue
			}

			messages, err := decodeMessages(docs)
			if err != nil {
				r.logger.WarnContext(ctx, "failed to decode messages", "room_code", code, "error", err)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			onChange(messages)
		}
	}()

	return stopper(cancel, done), nil
}

func (r repo) logIteratorError(ctx context.Context, code string, err error) {
	if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
		return
	}
	r.logger.WarnContext(ctx, "snapshot listener stopped", "room_code", code, "error", err)
}

func stopper(cancel context.CancelFunc, done <-chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func messageData(msg domain.Message) (map[string]any, error) {
	v, err := room.Generic(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	data, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to encode message: unexpected shape %T", v)
	}

	return data, nil
}

func decodeMessages(docs []*firestore.DocumentSnapshot) ([]domain.Message, error) {
	messages := make([]domain.Message, 0, len(docs))
	for _, doc := range docs {
		data, err := json.Marshal(doc.Data())
		if err != nil {
			return nil, err
		}

		var msg domain.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message %s: %w", doc.Ref.ID, err)
		}
		messages = append(messages, msg)
	}

	return messages, nil
}
