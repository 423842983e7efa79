package playersync

import (
	"sync"
	"time"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
)

const (
	CommandLoad  = "LOAD"
	CommandPlay  = "PLAY"
	CommandPause = "PAUSE"
	CommandSeek  = "SEEK"
)

type Command struct {
	Kind     domain.MediaKind `json:"kind"`
	Action   string           `json:"action"`
	TrackID  string           `json:"track_id,omitempty"`
	Position float64          `json:"position"`
}

type Status struct {
	TrackID   string
	Position  float64
	IsPlaying bool
}

// RemotePlayer is a Player whose embedded surface lives on the other end of a connection.
// Commands go out through send; queries are answered from the last reported status,
// extrapolated while playing.
type RemotePlayer struct {
	kind domain.MediaKind
	send func(Command) error
	now  func() time.Time

	mu         sync.Mutex
	loadedID   string
	position   float64
	playing    bool
	reportedAt time.Time
}

func NewRemotePlayer(kind domain.MediaKind, send func(Command) error, now func() time.Time) *RemotePlayer {
	if now == nil {
		now = time.Now
	}
	return &RemotePlayer{kind: kind, send: send, now: now, reportedAt: now()}
}

func (p *RemotePlayer) Load(trackID string) error {
	p.mu.Lock()
	p.loadedID = ""
	p.position = 0
	p.playing = false
	p.reportedAt = p.now()
	p.mu.Unlock()

	return p.send(Command{Kind: p.kind, Action: CommandLoad, TrackID: trackID})
}

func (p *RemotePlayer) Play() error {
	p.mu.Lock()
	p.position = p.positionLocked()
	p.playing = true
	p.reportedAt = p.now()
	p.mu.Unlock()

	return p.send(Command{Kind: p.kind, Action: CommandPlay})
}

func (p *RemotePlayer) Pause() error {
	p.mu.Lock()
	p.position = p.positionLocked()
	p.playing = false
	p.reportedAt = p.now()
	pos := p.position
	p.mu.Unlock()

	return p.send(Command{Kind: p.kind, Action: CommandPause, Position: pos})
}

func (p *RemotePlayer) Seek(position float64) error {
	p.mu.Lock()
	p.position = position
	p.reportedAt = p.now()
	p.mu.Unlock()

	return p.send(Command{Kind: p.kind, Action: CommandSeek, Position: position})
}

func (p *RemotePlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *RemotePlayer) LoadedID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadedID
}

func (p *RemotePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Report replaces the cached state with what the remote surface last observed.
func (p *RemotePlayer) Report(st Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadedID = st.TrackID
	p.position = st.Position
	p.playing = st.IsPlaying
	p.reportedAt = p.now()
}

// Failed forgets the loaded track so the next state update does not treat it as playable.
func (p *RemotePlayer) Failed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadedID = ""
	p.playing = false
}

func (p *RemotePlayer) positionLocked() float64 {
	if !p.playing {
		return p.position
	}
	return p.position + p.now().Sub(p.reportedAt).Seconds()
}
