package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 32

type repo struct {
	rc                  *redis.Client
	logger              *slog.Logger
	expireDuration      time.Duration
	createMessageScript string
	now                 func() time.Time
}

func NewRepo(rc *redis.Client, logger *slog.Logger, expireDuration time.Duration) *repo {
	return &repo{
		rc:             rc,
		logger:         logger,
		expireDuration: expireDuration,
		createMessageScript: rc.ScriptLoad(context.Background(), `
			if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
				return 0
			end
			redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
			if tonumber(ARGV[4]) > 0 then
				redis.call('PEXPIRE', KEYS[1], ARGV[4])
				redis.call('PEXPIRE', KEYS[2], ARGV[4])
			end
			return 1
		`).Val(),
		now: time.Now,
	}
}

func (r repo) getRoomKey(code string) string {
	return "room:" + code
}

func (r repo) getRoomUpdatesKey(code string) string {
	return "room:" + code + ":updates"
}

func (r repo) getMessageListKey(code string) string {
	return "room:" + code + ":messages"
}

func (r repo) getMessageDataKey(code string) string {
	return "room:" + code + ":messages:data"
}

func (r repo) getMessageUpdatesKey(code string) string {
	return "room:" + code + ":messages:updates"
}
