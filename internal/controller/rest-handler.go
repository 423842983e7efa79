package controller

import (
	"net/http"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/service/room"
	"github.com/Sr-Chandan-Sahu/vibeone/pkg/rest"
	"github.com/go-chi/chi/v5"
)

type profileRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=50"`
	Avatar string `json:"avatar" validate:"omitempty,url"`
}

type sessionResponse struct {
	RoomCode    string             `json:"room_code"`
	Participant domain.Participant `json:"participant"`
	AuthToken   string             `json:"auth_token"`
}

func (c controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorResponse(err)
	if status >= http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
	} else {
		c.logger.InfoContext(r.Context(), "request rejected", "status", status, "error", err)
	}

	rest.WriteJSON(w, status, rest.Envelope{"error": message})
}

func (c controller) readProfile(w http.ResponseWriter, r *http.Request) (profileRequest, bool) {
	var req profileRequest

	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return req, false
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.logger.InfoContext(r.Context(), "validation failed", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return req, false
	}

	return req, true
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	req, ok := c.readProfile(w, r)
	if !ok {
		return
	}

	resp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		Name:   req.Name,
		Avatar: req.Avatar,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": sessionResponse{
		RoomCode:    resp.RoomCode,
		Participant: resp.Participant,
		AuthToken:   resp.AuthToken,
	}})
}

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomCode := chi.URLParam(r, "room-code")

	req, ok := c.readProfile(w, r)
	if !ok {
		return
	}

	resp, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		RoomCode: roomCode,
		Name:     req.Name,
		Avatar:   req.Avatar,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": sessionResponse{
		RoomCode:    resp.RoomCode,
		Participant: resp.Participant,
		AuthToken:   resp.AuthToken,
	}})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	roomCode := chi.URLParam(r, "room-code")

	roomState, err := c.roomService.GetRoom(r.Context(), roomCode)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": roomState})
}

func (c controller) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	tracks := c.roomService.Search(r.Context(), &room.SearchParams{
		Query: query.Get("q"),
		Kind:  domain.MediaKind(query.Get("kind")),
	})

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": tracks})
}
