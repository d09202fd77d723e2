package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run as an AWS Lambda function behind API Gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		_, logger, h, err := loadBackend(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info("Lambda handler starting", "component", "cmd.lambda")
		lambda.Start(h.Handle)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
}
