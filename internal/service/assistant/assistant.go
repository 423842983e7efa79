package assistant

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/Sr-Chandan-Sahu/vibeone/internal/domain"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-flash"

	historyLimit = 10

	systemInstruction = "You are a helpful, witty, and concise AI assistant in a group chat room. Your name is Gemini. Keep responses relatively short and conversational."

	FallbackReply   = "Sorry, I'm having trouble connecting to my brain right now."
	MissingKeyReply = "Error: API Key is missing."
)

type Config struct {
	APIKey string
	Model  string
}

type streamFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]

type service struct {
	stream streamFunc
	model  string
	logger *slog.Logger
}

func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*service, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	s := &service{model: model, logger: logger}
	if cfg.APIKey == "" {
		logger.WarnContext(ctx, "gemini api key is not set, assistant replies are disabled")
		return s, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	s.stream = client.Models.GenerateContentStream

	return s, nil
}

// StreamReply calls onPartial with the cumulative reply text after every chunk and returns the final text.
func (s service) StreamReply(ctx context.Context, history []domain.Message, text string, onPartial func(string)) string {
	if s.stream == nil {
		onPartial(MissingKeyReply)
		return MissingKeyReply
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}

	var full strings.Builder
	for resp, err := range s.stream(ctx, s.model, buildContents(history, text), config) {
		if err != nil {
			s.logger.WarnContext(ctx, "gemini stream failed", "error", err)
			return FallbackReply
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		onPartial(full.String())
	}

	return full.String()
}

func buildContents(history []domain.Message, text string) []*genai.Content {
	filtered := make([]domain.Message, 0, len(history))
	for _, m := range history {
		if m.Kind == domain.MessageKindSystem || m.IsStreaming {
			continue
		}
		filtered = append(filtered, m)
	}
	if len(filtered) > historyLimit {
		filtered = filtered[len(filtered)-historyLimit:]
	}

	contents := make([]*genai.Content, 0, len(filtered)+1)
	for _, m := range filtered {
		role := genai.Role(genai.RoleUser)
		if m.Sender.ID == domain.BotParticipant.ID {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Sender.Name+": "+m.Text, role))
	}

	return append(contents, genai.NewContentFromText(text, genai.RoleUser))
}
