package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"autogen-chat/internal/chatclient"
	"autogen-chat/internal/config"
	"autogen-chat/internal/logging"
	"autogen-chat/internal/ui/chat"
)

var (
	chatAPIBase string
	chatMessage string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with a running backend from the terminal",
	Long:  "Sends one message and prints the reply, or starts an interactive chat when no message is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		cfg, err := config.LoadClient()
		if err != nil {
			return err
		}
		if v := strings.TrimSpace(chatAPIBase); v != "" {
			cfg.APIBase = strings.TrimRight(v, "/")
		}

		logger, err := logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		log := logger.With("component", "cmd.chat", "api_base", cfg.APIBase)

		client, err := chatclient.New(cfg.APIBase, chatclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		if err != nil {
			return err
		}

		if message, ok := resolveMessage(args); ok {
			reply, err := client.Send(cmd.Context(), message)
			if err != nil {
				log.Error("Chat request failed", "error", err)
				return err
			}
			log.Debug("Chat reply received", "image", reply.ImageURL != "", "text_len", len(reply.Text))
			printReply(cmd, reply)
			return nil
		}

		// The terminal UI owns the screen, so nothing is logged until it exits.
		if err := chat.Run(cmd.Context(), client.Send, cfg.APIBase); err != nil {
			log.Error("Terminal chat exited with error", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatAPIBase, "api-base", "", "chat backend base URL (default $CHAT_API_BASE or http://localhost:8080)")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "message to send")
}

// resolveMessage picks the one-shot message from the flag or the arguments.
// Blank input means interactive mode; non-blank input is sent unmodified.
func resolveMessage(args []string) (string, bool) {
	if strings.TrimSpace(chatMessage) != "" {
		return chatMessage, true
	}
	joined := strings.Join(args, " ")
	if strings.TrimSpace(joined) == "" {
		return "", false
	}
	return joined, true
}

func printReply(cmd *cobra.Command, reply chatclient.Reply) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, reply.Text)
	if reply.ImageURL != "" {
		_, _ = fmt.Fprintf(out, "image: %s\n", reply.ImageURL)
	}
	if reply.AudioURL != "" {
		_, _ = fmt.Fprintf(out, "audio: %s\n", reply.AudioURL)
	}
}
