package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room"
	"github.com/redis/go-redis/v9"
)

func (r repo) SaveMessage(ctx context.Context, code string, msg domain.Message) error {
	r.logger.DebugContext(ctx, "called", "room_code", code, "message_id", msg.ID)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	dataKey := r.getMessageDataKey(code)
	listKey := r.getMessageListKey(code)

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, dataKey, msg.ID, data)
	pipe.ZAdd(ctx, listKey, redis.Z{Score: float64(msg.Timestamp), Member: msg.ID})
	r.expire(ctx, pipe, dataKey, listKey)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	r.publish(ctx, r.getMessageUpdatesKey(code))
	return nil
}

func (r repo) CreateMessage(ctx context.Context, code string, msg domain.Message) error {
	r.logger.DebugContext(ctx, "called", "room_code", code, "message_id", msg.ID)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	created, err := r.rc.EvalSha(ctx, r.createMessageScript,
		[]string{r.getMessageDataKey(code), r.getMessageListKey(code)},
		msg.ID, data, msg.Timestamp, r.expireDuration.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	if created == 0 {
		return room.ErrMessageExists
	}

	r.publish(ctx, r.getMessageUpdatesKey(code))
	return nil
}

func (r repo) ListMessages(ctx context.Context, code string) ([]domain.Message, error) {
	ids, err := r.rc.ZRange(ctx, r.getMessageListKey(code), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get message ids: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Message{}, nil
	}

	values, err := r.rc.HMGet(ctx, r.getMessageDataKey(code), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	messages := make([]domain.Message, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			r.logger.WarnContext(ctx, "message body missing", "room_code", code, "message_id", ids[i])
			continue
		}

		var msg domain.Message
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message %s: %w", ids[i], err)
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func (r repo) SubscribeMessages(ctx context.Context, code string, onChange func([]domain.Message)) (func(), error) {
	unsubscribe, err := r.listen(ctx, r.getMessageUpdatesKey(code), func(ctx context.Context) {
		messages, err := r.ListMessages(ctx, code)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.WarnContext(ctx, "failed to read messages for subscriber", "room_code", code, "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		onChange(messages)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to messages: %w", err)
	}

	return unsubscribe, nil
}
