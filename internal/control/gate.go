package control

type Action int

const (
	ActionEnqueue Action = iota
	ActionTogglePlay
	ActionSkipNext
	ActionSkipPrevious
	ActionRemoveAt
	ActionReorder
	ActionAdvanceOnEnd
)

var actionNames = map[Action]string{
	ActionEnqueue:      "enqueue",
	ActionTogglePlay:   "toggle_play",
	ActionSkipNext:     "skip_next",
	ActionSkipPrevious: "skip_previous",
	ActionRemoveAt:     "remove_at",
	ActionReorder:      "reorder",
	ActionAdvanceOnEnd: "advance_on_end",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Actor is the identity a client cached when it joined. The host flag is not re-read from the store.
type Actor struct {
	ParticipantID string
	IsHost        bool
}

type Gate interface {
	Allow(actor Actor, action Action) bool
}

type HostGate struct{}

func (HostGate) Allow(actor Actor, action Action) bool {
	if action == ActionEnqueue {
		return actor.ParticipantID != ""
	}
	return actor.IsHost
}
