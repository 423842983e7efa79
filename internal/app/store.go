package app

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room"
	roomFirestore "github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room/firestore"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room/memory"
	roomRedis "github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room/redis"
	"github.com/Sr-Chandan-Sahu/vibeone/pkg/redisclient"
	"google.golang.org/api/option"
)

const (
	StoreMemory    = "memory"
	StoreRedis     = "redis"
	StoreFirestore = "firestore"
)

// roomStore is the union of what the services, the session and the controller need from the store.
type roomStore interface {
	Get(ctx context.Context, code string) (domain.Room, error)
	WriteMerge(ctx context.Context, code string, patch room.Patch) error
	RunTransaction(ctx context.Context, code string, fn func(domain.Room) (room.Patch, error)) error
	Subscribe(ctx context.Context, code string, onChange func(domain.Room)) (func(), error)
	SaveMessage(ctx context.Context, code string, msg domain.Message) error
	CreateMessage(ctx context.Context, code string, msg domain.Message) error
	ListMessages(ctx context.Context, code string) ([]domain.Message, error)
	SubscribeMessages(ctx context.Context, code string, onChange func([]domain.Message)) (func(), error)
}

func openStore(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (roomStore, func() error, error) {
	switch cfg.StoreBackend {
	case StoreMemory:
		return memory.NewRepo(logger), func() error { return nil }, nil
	case StoreRedis:
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		return roomRedis.NewRepo(rc, logger, cfg.RoomTTL), rc.Close, nil
	case StoreFirestore:
		var opts []option.ClientOption
		if cfg.FirestoreCredentials != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.FirestoreCredentials))
		}
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		return roomFirestore.NewRepo(client, logger), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
