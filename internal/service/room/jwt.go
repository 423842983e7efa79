package room

import (
	"fmt"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/control"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const (
	participantIdKey = "participant_id"
	roomCodeKey      = "room_code"
	nameKey          = "name"
	avatarKey        = "avatar"
	isHostKey        = "is_host"
)

// Identity is what a client holds after create or join. IsHost is fixed at that moment.
type Identity struct {
	ParticipantId string `json:"participantId"`
	RoomCode      string `json:"roomCode"`
	Name          string `json:"name"`
	Avatar        string `json:"avatar"`
	IsHost        bool   `json:"isHost"`
}

func (i Identity) Participant() domain.Participant {
	return domain.Participant{
		ID:     i.ParticipantId,
		Name:   i.Name,
		Avatar: i.Avatar,
		IsHost: i.IsHost,
	}
}

func (i Identity) Actor() control.Actor {
	return control.Actor{
		ParticipantID: i.ParticipantId,
		IsHost:        i.IsHost,
	}
}

func (s service) generateJWT(identity Identity) (string, error) {
	claims := jwt.MapClaims{
		participantIdKey: identity.ParticipantId,
		roomCodeKey:      identity.RoomCode,
		nameKey:          identity.Name,
		avatarKey:        identity.Avatar,
		isHostKey:        identity.IsHost,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.secret)
}

func (s service) ParseSessionToken(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	participantId, ok := claims[participantIdKey].(string)
	if !ok || participantId == "" {
		return Identity{}, ErrInvalidToken
	}

	roomCode, ok := claims[roomCodeKey].(string)
	if !ok || roomCode == "" {
		return Identity{}, ErrInvalidToken
	}

	name, _ := claims[nameKey].(string)
	avatar, _ := claims[avatarKey].(string)
	isHost, _ := claims[isHostKey].(bool)

	return Identity{
		ParticipantId: participantId,
		RoomCode:      roomCode,
		Name:          name,
		Avatar:        avatar,
		IsHost:        isHost,
	}, nil
}
