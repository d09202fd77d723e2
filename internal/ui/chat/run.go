package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"autogen-chat/internal/chatclient"
)

// SendFunc delivers one message to the backend.
type SendFunc func(ctx context.Context, message string) (chatclient.Reply, error)

// Run starts the interactive terminal chat and blocks until the user quits.
func Run(ctx context.Context, send SendFunc, apiBase string) error {
	program := tea.NewProgram(newModel(ctx, send, apiBase), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}
