package assistant

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"testing"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func textMessage(sender domain.Participant, text string) domain.Message {
	return domain.Message{ID: text, Sender: sender, Text: text, Kind: domain.MessageKindText}
}

func TestBuildContents(t *testing.T) {
	alice := domain.Participant{ID: "a", Name: "Alice"}

	history := []domain.Message{
		{ID: "join-a", Sender: domain.SystemParticipant, Text: "Alice joined", Kind: domain.MessageKindSystem},
		textMessage(alice, "hi"),
		{ID: "ai-1", Sender: domain.BotParticipant, Text: "Hello Alice", Kind: domain.MessageKindAI},
		{ID: "ai-2", Sender: domain.BotParticipant, Text: "typing", Kind: domain.MessageKindAI, IsStreaming: true},
	}

	contents := buildContents(history, "@gemini tell a joke")
	require.Len(t, contents, 3)

	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "Alice: hi", contents[0].Parts[0].Text)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "Gemini AI: Hello Alice", contents[1].Parts[0].Text)
	assert.Equal(t, "user", contents[2].Role)
	assert.Equal(t, "@gemini tell a joke", contents[2].Parts[0].Text)
}

func TestBuildContentsKeepsLastTen(t *testing.T) {
	alice := domain.Participant{ID: "a", Name: "Alice"}

	var history []domain.Message
	for i := range 15 {
		history = append(history, textMessage(alice, fmt.Sprint(i)))
	}

	contents := buildContents(history, "next")
	require.Len(t, contents, 11)
	assert.Equal(t, "Alice: 5", contents[0].Parts[0].Text)
}

func fakeStream(chunks []string, err error) streamFunc {
	return func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
		return func(yield func(*genai.GenerateContentResponse, error) bool) {
			for _, c := range chunks {
				resp := &genai.GenerateContentResponse{
					Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(c, genai.RoleModel)}},
				}
				if !yield(resp, nil) {
					return
				}
			}
			if err != nil {
				yield(nil, err)
			}
		}
	}
}

func TestStreamReply(t *testing.T) {
	s := service{stream: fakeStream([]string{"Why ", "not?"}, nil), model: DefaultModel, logger: slog.Default()}

	var partials []string
	reply := s.StreamReply(context.Background(), nil, "joke", func(p string) { partials = append(partials, p) })

	assert.Equal(t, "Why not?", reply)
	assert.Equal(t, []string{"Why ", "Why not?"}, partials)
}

func TestStreamReplyFailure(t *testing.T) {
	s := service{stream: fakeStream([]string{"Wh"}, errors.New("unavailable")), model: DefaultModel, logger: slog.Default()}

	reply := s.StreamReply(context.Background(), nil, "joke", func(string) {})
	assert.Equal(t, FallbackReply, reply)
}

func TestStreamReplyWithoutKey(t *testing.T) {
	s, err := New(context.Background(), &Config{}, slog.Default())
	require.NoError(t, err)

	var partials []string
	reply := s.StreamReply(context.Background(), nil, "joke", func(p string) { partials = append(partials, p) })
	assert.Equal(t, MissingKeyReply, reply)
	assert.Equal(t, []string{MissingKeyReply}, partials)
}
