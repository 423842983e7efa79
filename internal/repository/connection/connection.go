package connection

import "errors"

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("connection already exists")
)

// Info identifies who a live socket belongs to.
type Info struct {
	RoomCode      string
	ParticipantID string
}
