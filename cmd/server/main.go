package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/app"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	secret = configVar[string]{
		envKey:  "SERVER_SECRET",
		flagKey: "secret",
		usage:   "Secret used to sign session tokens",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
		usage:        "Server port",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 10,
		usage:        "Maximum number of participants in the room",
	}
	queueLimit = configVar[int]{
		envKey:       "SERVER_QUEUE_LIMIT",
		flagKey:      "queue-limit",
		defaultValue: 100,
		usage:        "Maximum number of tracks in a channel queue",
	}
	roomCodeAttempts = configVar[int]{
		envKey:       "SERVER_ROOM_CODE_ATTEMPTS",
		flagKey:      "room-code-attempts",
		defaultValue: 5,
		usage:        "Attempts to find a free room code",
	}
	storeBackend = configVar[string]{
		envKey:       "STORE_BACKEND",
		flagKey:      "store-backend",
		defaultValue: app.StoreMemory,
		usage:        "Room store backend: memory, redis or firestore",
	}
	roomTTL = configVar[time.Duration]{
		envKey:       "STORE_ROOM_TTL",
		flagKey:      "room-ttl",
		defaultValue: 24 * 14 * time.Hour,
		usage:        "Expiration of room keys in redis",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisPassword = configVar[string]{
		envKey:  "REDIS_PASSWORD",
		flagKey: "redis-password",
		usage:   "Redis password",
	}
	firestoreProject = configVar[string]{
		envKey:  "FIRESTORE_PROJECT",
		flagKey: "firestore-project",
		usage:   "Firestore project id",
	}
	firestoreCredentials = configVar[string]{
		envKey:  "FIRESTORE_CREDENTIALS",
		flagKey: "firestore-credentials",
		usage:   "Path to a service account json file",
	}
	youtubeAPIKey = configVar[string]{
		envKey:  "YOUTUBE_API_KEY",
		flagKey: "youtube-api-key",
		usage:   "YouTube Data API key, search is disabled when empty",
	}
	searchLimit = configVar[int]{
		envKey:       "SEARCH_LIMIT",
		flagKey:      "search-limit",
		defaultValue: 5,
		usage:        "Number of search results",
	}
	geminiAPIKey = configVar[string]{
		envKey:  "GEMINI_API_KEY",
		flagKey: "gemini-api-key",
		usage:   "Gemini API key",
	}
	geminiModel = configVar[string]{
		envKey:       "GEMINI_MODEL",
		flagKey:      "gemini-model",
		defaultValue: "gemini-2.5-flash",
		usage:        "Gemini model for chat replies",
	}
	syncInterval = configVar[time.Duration]{
		envKey:       "SYNC_INTERVAL",
		flagKey:      "sync-interval",
		defaultValue: time.Second,
		usage:        "Interval of player drift checks",
	}
	driftTolerance = configVar[time.Duration]{
		envKey:       "SYNC_DRIFT_TOLERANCE",
		flagKey:      "drift-tolerance",
		defaultValue: 2 * time.Second,
		usage:        "Allowed player drift before a seek",
	}
)

func bindString(v configVar[string]) {
	pflag.String(v.flagKey, v.defaultValue, v.usage)
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func bindInt(v configVar[int]) {
	pflag.Int(v.flagKey, v.defaultValue, v.usage)
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func bindDuration(v configVar[time.Duration]) {
	pflag.Duration(v.flagKey, v.defaultValue, v.usage)
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() *app.AppConfig {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("failed to load .env: %v", err)
		}
	}

	for _, v := range []configVar[string]{
		secret, host, logLevel, storeBackend, redisHost, redisPassword,
		firestoreProject, firestoreCredentials, youtubeAPIKey, geminiAPIKey, geminiModel,
	} {
		bindString(v)
	}
	for _, v := range []configVar[int]{port, membersLimit, queueLimit, roomCodeAttempts, redisPort, searchLimit} {
		bindInt(v)
	}
	for _, v := range []configVar[time.Duration]{roomTTL, syncInterval, driftTolerance} {
		bindDuration(v)
	}
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	return &app.AppConfig{
		Secret:               viper.GetString(secret.flagKey),
		Host:                 viper.GetString(host.flagKey),
		Port:                 viper.GetInt(port.flagKey),
		LogLevel:             viper.GetString(logLevel.flagKey),
		MembersLimit:         viper.GetInt(membersLimit.flagKey),
		QueueLimit:           viper.GetInt(queueLimit.flagKey),
		RoomCodeAttempts:     viper.GetInt(roomCodeAttempts.flagKey),
		StoreBackend:         viper.GetString(storeBackend.flagKey),
		RoomTTL:              viper.GetDuration(roomTTL.flagKey),
		RedisHost:            viper.GetString(redisHost.flagKey),
		RedisPort:            viper.GetInt(redisPort.flagKey),
		RedisPassword:        viper.GetString(redisPassword.flagKey),
		FirestoreProject:     viper.GetString(firestoreProject.flagKey),
		FirestoreCredentials: viper.GetString(firestoreCredentials.flagKey),
		YoutubeAPIKey:        viper.GetString(youtubeAPIKey.flagKey),
		SearchLimit:          viper.GetInt(searchLimit.flagKey),
		GeminiAPIKey:         viper.GetString(geminiAPIKey.flagKey),
		GeminiModel:          viper.GetString(geminiModel.flagKey),
		SyncInterval:         viper.GetDuration(syncInterval.flagKey),
		DriftTolerance:       viper.GetDuration(driftTolerance.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
