package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/control"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	roomrepo "github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room"
	"github.com/Sr-Chandan-Sahu/vibeone/pkg/randstr"
	"github.com/Sr-Chandan-Sahu/vibeone/pkg/ytvideodata"
)

var (
	ErrRoomNotFound             = roomrepo.ErrRoomNotFound
	ErrParticipantsLimitReached = errors.New("participants limit reached")
	ErrQueueLimitReached        = errors.New("queue limit reached")
	ErrRoomCodeExhausted        = errors.New("no free room code found")
	ErrInvalidToken             = errors.New("invalid token")
	ErrInvalidKind              = errors.New("invalid media kind")
)

const (
	roomCodeLength  = 6
	roomCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	defaultMembersLimit = 10
	defaultQueueLimit   = 100
	defaultCodeAttempts = 5
)

type iRoomRepo interface {
	Get(ctx context.Context, code string) (domain.Room, error)
	WriteMerge(ctx context.Context, code string, patch roomrepo.Patch) error
	RunTransaction(ctx context.Context, code string, fn func(domain.Room) (roomrepo.Patch, error)) error
	SaveMessage(ctx context.Context, code string, msg domain.Message) error
	CreateMessage(ctx context.Context, code string, msg domain.Message) error
	ListMessages(ctx context.Context, code string) ([]domain.Message, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type iVideoData interface {
	Get(ctx context.Context, videoId string) (*ytvideodata.VideoData, error)
}

type iSearcher interface {
	Search(ctx context.Context, query string, kind domain.MediaKind) []domain.Track
}

type iAssistant interface {
	StreamReply(ctx context.Context, history []domain.Message, text string, onPartial func(string)) string
}

type service struct {
	roomRepo     iRoomRepo
	gate         control.Gate
	generator    iGenerator
	videoData    iVideoData
	searcher     iSearcher
	assistant    iAssistant
	membersLimit int
	queueLimit   int
	codeAttempts int
	secret       []byte
	now          func() time.Time
	logger       *slog.Logger
}

type Config struct {
	MembersLimit int
	QueueLimit   int
	CodeAttempts int
	Secret       string
}

type Deps struct {
	RoomRepo  iRoomRepo
	Gate      control.Gate
	VideoData iVideoData
	Searcher  iSearcher
	Assistant iAssistant
}

// New wires the service. A nil searcher or assistant disables the matching feature.
func New(deps *Deps, cfg *Config, logger *slog.Logger) *service {
	s := &service{
		roomRepo:     deps.RoomRepo,
		gate:         deps.Gate,
		generator:    randstr.New([]byte(roomCodeLetters)),
		videoData:    deps.VideoData,
		searcher:     deps.Searcher,
		assistant:    deps.Assistant,
		membersLimit: cfg.MembersLimit,
		queueLimit:   cfg.QueueLimit,
		codeAttempts: cfg.CodeAttempts,
		secret:       []byte(cfg.Secret),
		now:          time.Now,
		logger:       logger,
	}

	if s.gate == nil {
		s.gate = control.HostGate{}
	}
	if s.membersLimit <= 0 {
		s.membersLimit = defaultMembersLimit
	}
	if s.queueLimit <= 0 {
		s.queueLimit = defaultQueueLimit
	}
	if s.codeAttempts <= 0 {
		s.codeAttempts = defaultCodeAttempts
	}

	return s
}

// Gate exposes the authorization function so sessions apply the same rules as the service.
func (s service) Gate() control.Gate {
	return s.gate
}
