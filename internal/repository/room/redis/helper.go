package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type expirer interface {
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

func (r repo) expire(ctx context.Context, c expirer, keys ...string) {
	if r.expireDuration <= 0 {
		return
	}
	for _, key := range keys {
		c.Expire(ctx, key, r.expireDuration)
	}
}

func (r repo) readDoc(ctx context.Context, c getter, key string) (map[string]any, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	doc := make(map[string]any)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return doc, nil
}

func (r repo) publish(ctx context.Context, channel string) {
	if err := r.rc.Publish(ctx, channel, r.now().UnixMilli()).Err(); err != nil {
		r.logger.WarnContext(ctx, "failed to publish update", "channel", channel, "error", err)
	}
}

// listen calls deliver once on start and again after every message on channel,
// until the returned stop function is called or ctx ends.
func (r repo) listen(ctx context.Context, channel string, deliver func(ctx context.Context)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	pubsub := r.rc.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		cancel()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		deliver(ctx)
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				// collapse a burst into one read
				for drained := false; !drained; {
					select {
					case _, ok := <-messages:
						if !ok {
							return
						}
					default:
						drained = true
					}
				}
				deliver(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			pubsub.Close()
			<-done
		})
	}, nil
}
