package main

import (
	"os"

	"github.com/spf13/cobra"

	"site-cms/pkg/logger"
	"site-cms/pkg/setup"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create or complete the .env file",
	Long: `Create .env from .env.example when it is missing, generate a
PAYLOAD_SECRET, ask for the MongoDB connection string and default
NEXT_PUBLIC_SERVER_URL to http://localhost:3000.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		log, err := logger.New(logger.Config{Level: "info", Development: true, OutputPaths: []string{"stderr"}})
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		s := setup.New(dir, cmd.InOrStdin(), cmd.OutOrStdout())
		s.Log = log
		return s.Run()
	},
}
