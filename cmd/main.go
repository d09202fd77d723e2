package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "autogen-chat",
	Short: "Multimodal chat backend and clients",
	Long: "Serves the chat API and browser UI, runs as an AWS Lambda behind API Gateway, " +
		"or chats with a running backend from the terminal.",
	SilenceUsage: true,
}

func main() {
	// The Lambda runtime starts the bootstrap binary without arguments.
	if len(os.Args) == 1 && os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		rootCmd.SetArgs([]string{lambdaCmd.Name()})
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
