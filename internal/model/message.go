package model

import (
	"strings"
	"time"
)

type MessageRole string

const (
	RolePatient   MessageRole = "patient"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// ChatMessage is a single conversation entry. Messages are append-only;
// ordering defines conversation position.
type ChatMessage struct {
	Role      MessageRole `json:"role"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
}

// FirstPatientMessage returns the opening complaint, if any.
func FirstPatientMessage(history []ChatMessage) string {
	for _, m := range history {
		if m.Role == RolePatient && strings.TrimSpace(m.Text) != "" {
			return m.Text
		}
	}
	return ""
}

// RecentWindow returns at most n trailing messages. The dialogue policy works
// on a recency-bounded window rather than the full history.
func RecentWindow(history []ChatMessage, n int) []ChatMessage {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
