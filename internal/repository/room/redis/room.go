package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room"
	"github.com/redis/go-redis/v9"
)

func (r repo) Get(ctx context.Context, code string) (domain.Room, error) {
	doc, err := r.readDoc(ctx, r.rc, r.getRoomKey(code))
	if err != nil {
		return domain.Room{}, fmt.Errorf("failed to get room: %w", err)
	}
	if doc == nil {
		return domain.Room{}, room.ErrRoomNotFound
	}

	return room.DecodeRoom(doc)
}

func (r repo) WriteMerge(ctx context.Context, code string, patch room.Patch) error {
	r.logger.DebugContext(ctx, "called", "room_code", code, "fields", len(patch))

	if err := r.update(ctx, code, func(map[string]any) (room.Patch, error) {
		return patch, nil
	}); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to write merge: %w", err)
	}

	return nil
}

func (r repo) RunTransaction(ctx context.Context, code string, fn func(domain.Room) (room.Patch, error)) error {
	r.logger.DebugContext(ctx, "called", "room_code", code)

	return r.update(ctx, code, func(doc map[string]any) (room.Patch, error) {
		if doc == nil {
			return nil, room.ErrRoomNotFound
		}

		current, err := room.DecodeRoom(doc)
		if err != nil {
			return nil, err
		}

		return fn(current)
	})
}

// update is an optimistic read-modify-write on the room key, retried while another writer wins the race.
func (r repo) update(ctx context.Context, code string, fn func(doc map[string]any) (room.Patch, error)) error {
	key := r.getRoomKey(code)

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		written := false
		err := r.rc.Watch(ctx, func(tx *redis.Tx) error {
			doc, err := r.readDoc(ctx, tx, key)
			if err != nil {
				return err
			}

			patch, err := fn(doc)
			if err != nil {
				return err
			}
			if len(patch) == 0 {
				return nil
			}

			if doc == nil {
				doc = make(map[string]any)
			}
			if err := room.ApplyPatch(doc, patch.Merge(room.Patch{"lastUpdated": r.now().UnixMilli()})); err != nil {
				return err
			}

			data, err := json.Marshal(doc)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, r.expireDuration)
				return nil
			})
			written = err == nil
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			r.logger.DebugContext(ctx, "transaction conflict, retrying", "room_code", code, "attempt", attempt)
			continue
		}
		if err != nil {
			return err
		}

		if written {
			r.publish(ctx, r.getRoomUpdatesKey(code))
		}
		return nil
	}

	return room.ErrTxRetriesExceed
}

func (r repo) Subscribe(ctx context.Context, code string, onChange func(domain.Room)) (func(), error) {
	unsubscribe, err := r.listen(ctx, r.getRoomUpdatesKey(code), func(ctx context.Context) {
		current, err := r.Get(ctx, code)
		if err != nil {
			if !errors.Is(err, room.ErrRoomNotFound) && ctx.Err() == nil {
				r.logger.WarnContext(ctx, "failed to read room for subscriber", "room_code", code, "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		onChange(current)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to room: %w", err)
	}

	return unsubscribe, nil
}
