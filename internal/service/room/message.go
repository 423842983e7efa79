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

const (
	thinkingText   = "Thinking..."
	emptyReplyText = "..."
)

// AnnounceJoin posts the "joined" system message at most once per participant.
func (s service) AnnounceJoin(ctx context.Context, roomCode string, p domain.Participant) error {
	err := s.roomRepo.CreateMessage(ctx, roomCode, domain.Message{
		ID:        domain.JoinMessageID(p.ID),
		RoomID:    roomCode,
		Sender:    domain.SystemParticipant,
		Text:      p.Name + " joined",
		Timestamp: s.now().UnixMilli(),
		Kind:      domain.MessageKindSystem,
	})
	if err != nil {
		if errors.Is(err, roomrepo.ErrMessageExists) {
			return nil
		}
		return fmt.Errorf("failed to create join message: %w", err)
	}

	return nil
}

type SendMessageParams struct {
	Sender   Identity
	RoomCode string
	Text     string
	// OnPartial receives the streaming ai message. It may be nil.
	OnPartial func(domain.Message)
}

type SendMessageResponse struct {
	Message domain.Message
	Reply   *domain.Message
}

// SendMessage saves the message and, with an assistant configured, blocks until the ai reply is saved too.
func (s service) SendMessage(ctx context.Context, params *SendMessageParams) (SendMessageResponse, error) {
	params.Text = strings.TrimSpace(params.Text)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Text, MessageTextRule...),
	); err != nil {
		return SendMessageResponse{}, err
	}

	history, err := s.roomRepo.ListMessages(ctx, params.RoomCode)
	if err != nil {
		return SendMessageResponse{}, fmt.Errorf("failed to list messages: %w", err)
	}

	msg := domain.Message{
		ID:        uuid.NewString(),
		RoomID:    params.RoomCode,
		Sender:    params.Sender.Participant(),
		Text:      params.Text,
		Timestamp: s.now().UnixMilli(),
		Kind:      domain.MessageKindText,
	}
	if err := s.roomRepo.SaveMessage(ctx, params.RoomCode, msg); err != nil {
		return SendMessageResponse{}, fmt.Errorf("failed to save message: %w", err)
	}

	if s.assistant == nil {
		return SendMessageResponse{Message: msg}, nil
	}

	reply := s.streamReply(ctx, params, history, msg.Text)
	if err := s.roomRepo.SaveMessage(ctx, params.RoomCode, reply); err != nil {
		return SendMessageResponse{Message: msg}, fmt.Errorf("failed to save ai reply: %w", err)
	}

	return SendMessageResponse{Message: msg, Reply: &reply}, nil
}

// streamReply keeps the ai message id stable across partials and the final save.
func (s service) streamReply(ctx context.Context, params *SendMessageParams, history []domain.Message, text string) domain.Message {
	partial := domain.Message{
		ID:          uuid.NewString(),
		RoomID:      params.RoomCode,
		Sender:      domain.BotParticipant,
		Text:        thinkingText,
		Timestamp:   s.now().UnixMilli(),
		Kind:        domain.MessageKindAI,
		IsStreaming: true,
	}

	onPartial := func(text string) {
		if params.OnPartial == nil {
			return
		}
		partial.Text = text
		params.OnPartial(partial)
	}
	onPartial(thinkingText)

	replyText := s.assistant.StreamReply(ctx, history, text, onPartial)
	if replyText == "" {
		replyText = emptyReplyText
	}

	reply := partial
	reply.Text = replyText
	reply.Timestamp = s.now().UnixMilli()
	reply.IsStreaming = false

	return reply
}

func (s service) ListMessages(ctx context.Context, roomCode string) ([]domain.Message, error) {
	messages, err := s.roomRepo.ListMessages(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}
