package domain

import "time"

type Channel struct {
	CurrentTrack *Track  `json:"currentTrack"`
	IsPlaying    bool    `json:"isPlaying"`
	Queue        []Track `json:"queue"`
	// StartedAt is the ms epoch at which position 0 of the current track would have played.
	StartedAt int64 `json:"startedAt"`
	// PausedAt is the play head in seconds captured at the last pause.
	PausedAt float64 `json:"pausedAt"`
	Previous *Track  `json:"previous,omitempty"`
}

// EffectivePosition returns the play head in seconds derived from the stored anchors.
func EffectivePosition(ch Channel, now time.Time) float64 {
	if !ch.IsPlaying {
		return ch.PausedAt
	}

	pos := float64(now.UnixMilli()-ch.StartedAt) / 1000
	if pos < 0 {
		return 0
	}
	return pos
}

func IsChannelActive(ch Channel) bool {
	return ch.CurrentTrack != nil
}

func (ch Channel) clone() Channel {
	out := ch
	out.Queue = make([]Track, len(ch.Queue))
	copy(out.Queue, ch.Queue)
	if ch.CurrentTrack != nil {
		t := *ch.CurrentTrack
		out.CurrentTrack = &t
	}
	if ch.Previous != nil {
		t := *ch.Previous
		out.Previous = &t
	}
	return out
}

func (ch Channel) normalize() Channel {
	if ch.Queue == nil {
		ch.Queue = []Track{}
	}
	if ch.CurrentTrack == nil {
		ch.IsPlaying = false
	}
	if ch.PausedAt < 0 {
		ch.PausedAt = 0
	}
	return ch
}
