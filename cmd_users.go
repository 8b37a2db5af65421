package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	userEmail    string
	userName     string
	userPassword string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage admin users",
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		user, err := a.auth.CreateUser(cmd.Context(), userEmail, userName, userPassword)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	usersCreateCmd.Flags().StringVar(&userEmail, "email", "", "email address used to sign in")
	usersCreateCmd.Flags().StringVar(&userName, "name", "", "display name")
	usersCreateCmd.Flags().StringVar(&userPassword, "password", "", "password")
	_ = usersCreateCmd.MarkFlagRequired("email")
	_ = usersCreateCmd.MarkFlagRequired("password")
	usersCmd.AddCommand(usersCreateCmd)
}
