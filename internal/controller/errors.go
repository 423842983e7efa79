package controller

import (
	"errors"
	"net/http"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/room"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/session"
	"github.com/Sr-Chandan-Sahu/vibeone/pkg/wsrouter"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrReplyInFlight = errors.New("an ai reply is already in progress")
	ErrNotConnected  = errors.New("connection is not mounted")
	ErrWrongRoom     = errors.New("token does not belong to this room")
)

// errorResponse maps an error to the status and message exposed to clients.
// Anything unrecognised is reported as an internal error without details.
func errorResponse(err error) (int, string) {
	var validationErrors validation.Errors
	var validationError validation.Error

	switch {
	case errors.As(err, &validationErrors), errors.As(err, &validationError):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, wsrouter.ErrUnknownMessageType), errors.Is(err, wsrouter.ErrInvalidPayload), errors.Is(err, room.ErrInvalidKind):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, room.ErrInvalidToken):
		return http.StatusUnauthorized, room.ErrInvalidToken.Error()
	case errors.Is(err, ErrWrongRoom):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound, room.ErrRoomNotFound.Error()
	case errors.Is(err, room.ErrParticipantsLimitReached):
		return http.StatusConflict, room.ErrParticipantsLimitReached.Error()
	case errors.Is(err, room.ErrQueueLimitReached):
		return http.StatusConflict, room.ErrQueueLimitReached.Error()
	case errors.Is(err, ErrReplyInFlight):
		return http.StatusConflict, err.Error()
	case errors.Is(err, room.ErrRoomCodeExhausted):
		return http.StatusServiceUnavailable, room.ErrRoomCodeExhausted.Error()
	case errors.Is(err, ErrNotConnected), errors.Is(err, session.ErrSessionClosed):
		return http.StatusGone, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
