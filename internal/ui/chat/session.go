// Package chat holds the conversation state of the chat UI and a terminal
// renderer for it.
package chat

import (
	"strings"

	"autogen-chat/internal/chatclient"
	"autogen-chat/internal/domain"
)

// ErrorReply is shown as the assistant's message when a turn fails. The
// underlying error is never shown to the user.
const ErrorReply = "Sorry, there was an error processing your request."

// Session is the UI state: the ordered conversation and whether a turn is in
// flight. It is not safe for concurrent use; the terminal model owns it.
type Session struct {
	messages []domain.Message
	loading  bool
}

func NewSession() *Session {
	return &Session{}
}

// Submit starts a turn. Blank input and input received while a turn is in
// flight are ignored. Otherwise the user message is appended immediately and
// the text to send is returned.
func (s *Session) Submit(input string) (string, bool) {
	if s.loading || strings.TrimSpace(input) == "" {
		return "", false
	}
	s.messages = append(s.messages, domain.Message{Role: domain.RoleUser, Content: input})
	s.loading = true
	return input, true
}

// Resolve ends the in-flight turn with exactly one assistant message.
func (s *Session) Resolve(reply chatclient.Reply, err error) {
	defer func() { s.loading = false }()

	if err != nil {
		s.messages = append(s.messages, domain.Message{Role: domain.RoleAssistant, Content: ErrorReply})
		return
	}
	s.messages = append(s.messages, domain.Message{
		Role:     domain.RoleAssistant,
		Content:  reply.Text,
		ImageURL: reply.ImageURL,
		AudioURL: reply.AudioURL,
	})
}

// Messages returns a copy of the conversation in display order.
func (s *Session) Messages() []domain.Message {
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Loading() bool {
	return s.loading
}
