package domain

import (
	"time"

	"golang.org/x/exp/slices"
)

// Queue operations never mutate their input. Out-of-range or otherwise bad arguments return the channel unchanged.

func Enqueue(ch Channel, track Track, now time.Time) Channel {
	if track.ID == "" {
		return ch
	}

	out := ch.clone()
	if out.CurrentTrack == nil {
		return start(out, &track, now)
	}

	out.Queue = append(out.Queue, track)
	return out
}

func Advance(ch Channel, now time.Time) Channel {
	out := ch.clone()
	if out.CurrentTrack != nil {
		out.Previous = out.CurrentTrack
	}

	if len(out.Queue) == 0 {
		out.CurrentTrack = nil
		out.IsPlaying = false
		out.PausedAt = 0
		return out
	}

	next := out.Queue[0]
	out.Queue = slices.Delete(out.Queue, 0, 1)
	return start(out, &next, now)
}

func RemoveAt(ch Channel, index int) Channel {
	if index < 0 || index >= len(ch.Queue) {
		return ch
	}

	out := ch.clone()
	out.Queue = slices.Delete(out.Queue, index, index+1)
	return out
}

func Reorder(ch Channel, from, to int) Channel {
	n := len(ch.Queue)
	if from == to || from < 0 || to < 0 || from >= n || to >= n {
		return ch
	}

	out := ch.clone()
	t := out.Queue[from]
	out.Queue = slices.Delete(out.Queue, from, from+1)
	out.Queue = slices.Insert(out.Queue, to, t)
	return out
}

func Pause(ch Channel, now time.Time) Channel {
	if !ch.IsPlaying {
		return ch
	}

	out := ch.clone()
	out.PausedAt = EffectivePosition(ch, now)
	out.IsPlaying = false
	return out
}

// Resume re-anchors StartedAt so the effective position continues from PausedAt.
// With nothing loaded it pulls the queue head instead.
func Resume(ch Channel, now time.Time) Channel {
	if ch.IsPlaying {
		return ch
	}
	if ch.CurrentTrack == nil {
		if len(ch.Queue) == 0 {
			return ch
		}
		return Advance(ch, now)
	}

	out := ch.clone()
	out.StartedAt = now.UnixMilli() - int64(out.PausedAt*1000)
	out.IsPlaying = true
	return out
}

func TogglePlay(ch Channel, now time.Time) Channel {
	if ch.IsPlaying {
		return Pause(ch, now)
	}
	return Resume(ch, now)
}

// SkipPrevious restores the previously played track and pushes the current one back to the queue head.
// Without a previous track the current one restarts from 0.
func SkipPrevious(ch Channel, now time.Time) Channel {
	if ch.Previous == nil {
		if ch.CurrentTrack == nil {
			return ch
		}
		out := ch.clone()
		out.PausedAt = 0
		out.StartedAt = nextAnchor(ch, now)
		return out
	}

	out := ch.clone()
	prev := out.Previous
	if out.CurrentTrack != nil {
		out.Queue = slices.Insert(out.Queue, 0, *out.CurrentTrack)
	}
	out.Previous = nil
	return start(out, prev, now)
}

// start anchors a fresh play of track. The anchor always moves forward, so a
// repeated id in the queue is still told apart from the play before it.
func start(ch Channel, track *Track, now time.Time) Channel {
	ch.StartedAt = nextAnchor(ch, now)
	ch.CurrentTrack = track
	ch.IsPlaying = true
	ch.PausedAt = 0
	return ch
}

func nextAnchor(ch Channel, now time.Time) int64 {
	at := now.UnixMilli()
	if ch.CurrentTrack != nil && at <= ch.StartedAt {
		at = ch.StartedAt + 1
	}
	return at
}
