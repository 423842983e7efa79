package room

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	roomrepo "github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

type CreateRoomParams struct {
	Name   string
	Avatar string
}

type CreateRoomResponse struct {
	RoomCode    string
	Participant domain.Participant
	AuthToken   string
}

func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	params.Name = strings.TrimSpace(params.Name)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Name, NameRule...),
		validation.Field(&params.Avatar, AvatarRule...),
	); err != nil {
		return CreateRoomResponse{}, err
	}

	roomCode, err := s.findFreeRoomCode(ctx)
	if err != nil {
		return CreateRoomResponse{}, err
	}

	identity := Identity{
		ParticipantId: uuid.NewString(),
		RoomCode:      roomCode,
		Name:          params.Name,
		Avatar:        avatarOrDefault(params.Avatar, params.Name),
		IsHost:        true,
	}

	r := domain.NewRoom(roomCode, identity.Participant(), s.now().UnixMilli())
	if err := s.roomRepo.WriteMerge(ctx, roomCode, roomrepo.RoomPatch(r)); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to write room: %w", err)
	}

	authToken, err := s.generateJWT(identity)
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to generate jwt: %w", err)
	}

	s.logger.InfoContext(ctx, "room created", "room_code", roomCode, "participant_id", identity.ParticipantId)

	return CreateRoomResponse{
		RoomCode:    roomCode,
		Participant: identity.Participant(),
		AuthToken:   authToken,
	}, nil
}

// findFreeRoomCode checks each candidate code against the store before use.
// Two creators racing on the same unused code are not detected.
func (s service) findFreeRoomCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		code := s.generator.GenerateRandomString(roomCodeLength)

		_, err := s.roomRepo.Get(ctx, code)
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check room code: %w", err)
		}

		s.logger.DebugContext(ctx, "room code taken", "room_code", code, "attempt", attempt)
	}

	return "", ErrRoomCodeExhausted
}

type JoinRoomParams struct {
	RoomCode string
	Name     string
	Avatar   string
}

type JoinRoomResponse struct {
	RoomCode    string
	Participant domain.Participant
	AuthToken   string
}

func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.RoomCode = strings.ToUpper(strings.TrimSpace(params.RoomCode))
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomCode, RoomCodeRule...),
		validation.Field(&params.Name, NameRule...),
		validation.Field(&params.Avatar, AvatarRule...),
	); err != nil {
		return JoinRoomResponse{}, err
	}

	r, err := s.roomRepo.Get(ctx, params.RoomCode)
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return JoinRoomResponse{}, ErrRoomNotFound
		}
		return JoinRoomResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	if len(r.Participants) >= s.membersLimit {
		return JoinRoomResponse{}, ErrParticipantsLimitReached
	}

	identity := Identity{
		ParticipantId: uuid.NewString(),
		RoomCode:      params.RoomCode,
		Name:          params.Name,
		Avatar:        avatarOrDefault(params.Avatar, params.Name),
		IsHost:        false,
	}

	authToken, err := s.generateJWT(identity)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to generate jwt: %w", err)
	}

	s.logger.InfoContext(ctx, "room joined", "room_code", params.RoomCode, "participant_id", identity.ParticipantId)

	return JoinRoomResponse{
		RoomCode:    params.RoomCode,
		Participant: identity.Participant(),
		AuthToken:   authToken,
	}, nil
}

func (s service) GetRoom(ctx context.Context, roomCode string) (domain.Room, error) {
	r, err := s.roomRepo.Get(ctx, roomCode)
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return domain.Room{}, ErrRoomNotFound
		}
		return domain.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	return r.Normalize(), nil
}

func avatarOrDefault(avatar, name string) string {
	if avatar != "" {
		return avatar
	}
	return domain.DefaultAvatar(name)
}
