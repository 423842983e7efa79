package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/control"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/controller"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/connection/inmemory"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/assistant"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/presence"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/room"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/search"
	"github.com/Sr-Chandan-Sahu/vibeone/pkg/ctxlogger"
	"github.com/Sr-Chandan-Sahu/vibeone/pkg/randstr"
	"github.com/Sr-Chandan-Sahu/vibeone/pkg/ytvideodata"
)

const (
	shutdownTimeout    = 30 * time.Second
	metadataTimeout    = 5 * time.Second
	generatedSecretLen = 32
	secretLetters      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type AppConfig struct {
	Secret           string        `json:"-"`
	Host             string        `json:"host"`
	Port             int           `json:"port"`
	LogLevel         string        `json:"log_level"`
	MembersLimit     int           `json:"members_limit"`
	QueueLimit       int           `json:"queue_limit"`
	RoomCodeAttempts int           `json:"room_code_attempts"`
	StoreBackend     string        `json:"store_backend"`
	RoomTTL          time.Duration `json:"room_ttl"`
	RedisHost        string        `json:"redis_host"`
	RedisPort        int           `json:"redis_port"`
	RedisPassword    string        `json:"-"`
	FirestoreProject string        `json:"firestore_project"`
	// path to a service account json file, empty means application default credentials
	FirestoreCredentials string        `json:"firestore_credentials"`
	YoutubeAPIKey        string        `json:"-"`
	SearchLimit          int           `json:"search_limit"`
	GeminiAPIKey         string        `json:"-"`
	GeminiModel          string        `json:"gemini_model"`
	SyncInterval         time.Duration `json:"sync_interval"`
	DriftTolerance       time.Duration `json:"drift_tolerance"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.QueueLimit < 1 {
		return fmt.Errorf("queue limit must be greater than 0")
	}
	if cfg.RoomCodeAttempts < 1 {
		return fmt.Errorf("room code attempts must be greater than 0")
	}
	if cfg.SearchLimit < 1 || cfg.SearchLimit > search.MaxResults {
		return fmt.Errorf("search limit must be between 1 and %d", search.MaxResults)
	}
	if cfg.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	if cfg.DriftTolerance <= 0 {
		return fmt.Errorf("drift tolerance must be positive")
	}

	switch cfg.StoreBackend {
	case StoreMemory:
	case StoreRedis:
		if cfg.RoomTTL <= 0 {
			return fmt.Errorf("room ttl must be positive")
		}
		if cfg.RedisHost == "" {
			return fmt.Errorf("redis host is required")
		}
	case StoreFirestore:
		if cfg.FirestoreProject == "" {
			return fmt.Errorf("firestore project is required")
		}
	default:
		return fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	slog.SetDefault(logger)

	secret := cfg.Secret
	if secret == "" {
		secret = randstr.New([]byte(secretLetters)).GenerateRandomString(generatedSecretLen)
		logger.WarnContext(ctx, "secret is not set, generated one; session tokens will not survive a restart")
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	searcher, err := search.New(ctx, &search.Config{
		APIKey: cfg.YoutubeAPIKey,
		Limit:  int64(cfg.SearchLimit),
	}, logger)
	if err != nil {
		return err
	}

	aiAssistant, err := assistant.New(ctx, &assistant.Config{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	}, logger)
	if err != nil {
		return err
	}

	roomService := room.New(&room.Deps{
		RoomRepo:  store,
		Gate:      control.HostGate{},
		VideoData: ytvideodata.New(&http.Client{Timeout: metadataTimeout}),
		Searcher:  searcher,
		Assistant: aiAssistant,
	}, &room.Config{
		MembersLimit: cfg.MembersLimit,
		QueueLimit:   cfg.QueueLimit,
		CodeAttempts: cfg.RoomCodeAttempts,
		Secret:       secret,
	}, logger)

	controller := controller.New(&controller.Deps{
		RoomService: roomService,
		Presence:    presence.NewTracker(store, logger),
		RoomRepo:    store,
		ConnRepo:    inmemory.NewRepo(logger),
	}, &controller.Config{
		SyncInterval:   cfg.SyncInterval,
		DriftTolerance: cfg.DriftTolerance,
	}, logger)

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig
		logger.InfoContext(serverCtx, "shutting down")

		shutdownCtx, c := context.WithTimeout(serverCtx, shutdownTimeout)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		// hijacked websocket conns are not tracked by Shutdown
		if err := controller.CloseConns(shutdownCtx); err != nil {
			logger.WarnContext(shutdownCtx, "websockets did not drain", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "store", cfg.StoreBackend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-serverCtx.Done()

	return nil
}
