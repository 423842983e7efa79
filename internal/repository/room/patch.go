package room

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
)

// Patch maps top-level or dot-pathed field names to values.
// Fields not named keep their stored value.
type Patch map[string]any

func (p Patch) Merge(other Patch) Patch {
	out := make(Patch, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

func ChannelPatch(kind domain.MediaKind, ch domain.Channel) Patch {
	queue := ch.Queue
	if queue == nil {
		queue = []domain.Track{}
	}

	prefix := "musicState." + string(kind) + "."
	return Patch{
		prefix + "currentTrack": ch.CurrentTrack,
		prefix + "isPlaying":    ch.IsPlaying,
		prefix + "queue":        queue,
		prefix + "startedAt":    ch.StartedAt,
		prefix + "pausedAt":     ch.PausedAt,
		prefix + "previous":     ch.Previous,
	}
}

// MusicStatePatch writes back only the listed channels of state.
func MusicStatePatch(state domain.MusicState, kinds []domain.MediaKind, now int64) Patch {
	p := Patch{"musicState.lastUpdated": now}
	for _, kind := range kinds {
		p = p.Merge(ChannelPatch(kind, state.Channel(kind)))
	}
	return p
}

func ParticipantsPatch(participants []domain.Participant) Patch {
	if participants == nil {
		participants = []domain.Participant{}
	}
	return Patch{"participants": participants}
}

func RoomPatch(r domain.Room) Patch {
	return Patch{
		"code":         r.Code,
		"createdAt":    r.CreatedAt,
		"hostId":       r.HostID,
		"participants": r.Participants,
		"musicState":   r.MusicState,
		"lastUpdated":  r.LastUpdated,
	}
}

// Generic converts v to the plain map/slice/float64/string/bool shape produced by encoding/json.
func Generic(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return out, nil
}

// SortedKeys orders shallow paths before deeper ones so a parent write never clobbers a child write.
func (p Patch) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := strings.Count(keys[i], "."), strings.Count(keys[j], ".")
		if di != dj {
			return di < dj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// ApplyPatch merges patch into doc in place, creating intermediate maps along dot paths.
func ApplyPatch(doc map[string]any, patch Patch) error {
	for _, key := range patch.SortedKeys() {
		path := strings.Split(key, ".")
		for _, segment := range path {
			if segment == "" {
				return fmt.Errorf("%w: empty segment in %q", ErrInvalidPatch, key)
			}
		}

		value, err := Generic(patch[key])
		if err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidPatch, key, err)
		}

		node := doc
		for _, segment := range path[:len(path)-1] {
			child, ok := node[segment].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[segment] = child
			}
			node = child
		}
		node[path[len(path)-1]] = value
	}

	return nil
}

func DecodeRoom(doc map[string]any) (domain.Room, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return domain.Room{}, fmt.Errorf("failed to marshal document: %w", err)
	}

	return DecodeRoomJSON(data)
}

// DecodeRoomJSON decodes over the default shape, so missing sub-objects keep their defaults.
func DecodeRoomJSON(data []byte) (domain.Room, error) {
	r := domain.Room{
		Participants: []domain.Participant{},
		MusicState:   domain.DefaultMusicState(),
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.Room{}, fmt.Errorf("failed to decode room: %w", err)
	}

	return r.Normalize(), nil
}
