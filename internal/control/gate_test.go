package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostGate(t *testing.T) {
	var g Gate = HostGate{}
	host := Actor{ParticipantID: "alice", IsHost: true}
	guest := Actor{ParticipantID: "bob"}

	hostOnly := []Action{ActionTogglePlay, ActionSkipNext, ActionSkipPrevious, ActionRemoveAt, ActionReorder, ActionAdvanceOnEnd}
	for _, a := range hostOnly {
		assert.True(t, g.Allow(host, a), "host must be allowed to %s", a)
		assert.False(t, g.Allow(guest, a), "guest must not be allowed to %s", a)
	}

	assert.True(t, g.Allow(host, ActionEnqueue))
	assert.True(t, g.Allow(guest, ActionEnqueue))
	assert.False(t, g.Allow(Actor{}, ActionEnqueue), "anonymous actor cannot enqueue")
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "skip_next", ActionSkipNext.String())
	assert.Equal(t, "unknown", Action(99).String())
}
