package playersync

// Player is the minimal command/query surface of an embedded player.
type Player interface {
	Load(trackID string) error
	Play() error
	Pause() error
	Seek(position float64) error
	Position() float64
	LoadedID() string
	IsPlaying() bool
}

type EventKind int

const (
	EventLoaded EventKind = iota
	EventEnded
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventLoaded:
		return "loaded"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind    EventKind
	TrackID string
	Err     error
}
