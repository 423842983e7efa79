package domain

type Room struct {
	Code         string        `json:"code"`
	CreatedAt    int64         `json:"createdAt"`
	HostID       string        `json:"hostId"`
	Participants []Participant `json:"participants"`
	MusicState   MusicState    `json:"musicState"`
	LastUpdated  int64         `json:"lastUpdated"`
}

func NewRoom(code string, host Participant, now int64) Room {
	host.IsHost = true
	return Room{
		Code:         code,
		CreatedAt:    now,
		HostID:       host.ID,
		Participants: []Participant{},
		MusicState:   DefaultMusicState(),
		LastUpdated:  now,
	}
}

// Normalize fills in whatever an older or partial document left out.
func (r Room) Normalize() Room {
	participants := make([]Participant, len(r.Participants))
	for i, p := range r.Participants {
		if r.HostID != "" {
			p.IsHost = p.ID == r.HostID
		}
		participants[i] = p
	}
	r.Participants = participants
	r.MusicState = r.MusicState.normalize()
	return r
}

func (r Room) Participant(id string) (Participant, bool) {
	for _, p := range r.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}
