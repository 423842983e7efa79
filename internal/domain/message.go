package domain

type MessageKind string

const (
	MessageKindText   MessageKind = "text"
	MessageKindSystem MessageKind = "system"
	MessageKindAI     MessageKind = "ai"
)

type Message struct {
	ID          string      `json:"id"`
	RoomID      string      `json:"roomId"`
	Sender      Participant `json:"sender"`
	Text        string      `json:"text"`
	Timestamp   int64       `json:"timestamp"`
	Kind        MessageKind `json:"type"`
	IsStreaming bool        `json:"isStreaming,omitempty"`
}

// JoinMessageID is reserved for the one "joined" system message per participant.
func JoinMessageID(participantID string) string {
	return "join-" + participantID
}
