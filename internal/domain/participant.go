package domain

import "net/url"

type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	IsHost bool   `json:"isHost"`
}

var (
	BotParticipant = Participant{
		ID:     "gemini-bot-id",
		Name:   "Gemini AI",
		Avatar: "https://api.dicebear.com/7.x/bottts/svg?seed=Gemini",
	}
	SystemParticipant = Participant{
		ID:   "system",
		Name: "System",
	}
)

func DefaultAvatar(name string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(name)
}
