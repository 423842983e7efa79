package domain

import "time"

type MusicState struct {
	Audio       Channel `json:"audio"`
	Video       Channel `json:"video"`
	LastUpdated int64   `json:"lastUpdated"`
}

func DefaultMusicState() MusicState {
	return MusicState{
		Audio: DefaultChannel(),
		Video: DefaultChannel(),
	}
}

func DefaultChannel() Channel {
	return Channel{Queue: []Track{}}
}

func (s MusicState) Channel(kind MediaKind) Channel {
	if kind == MediaKindVideo {
		return s.Video
	}
	return s.Audio
}

func (s MusicState) WithChannel(kind MediaKind, ch Channel) MusicState {
	if kind == MediaKindVideo {
		s.Video = ch
	} else {
		s.Audio = ch
	}
	return s
}

// Start stores ch for kind and, when ch is playing, pauses the other channel.
// It reports which channels changed so callers can write back only those.
func (s MusicState) Start(kind MediaKind, ch Channel, now time.Time) (MusicState, []MediaKind) {
	s = s.WithChannel(kind, ch)
	changed := []MediaKind{kind}

	other := s.Channel(kind.Other())
	if ch.IsPlaying && other.IsPlaying {
		s = s.WithChannel(kind.Other(), Pause(other, now))
		changed = append(changed, kind.Other())
	}

	return s, changed
}

func (s MusicState) normalize() MusicState {
	s.Audio = s.Audio.normalize()
	s.Video = s.Video.normalize()
	return s
}
