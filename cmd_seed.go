package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed DIR",
	Short: "Import a content directory",
	Long: `Import users, categories, media, posts, pages, globals and redirects
from a content directory. Documents are matched by slug, so running the
import again updates them in place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		report, err := a.seeder().Seed(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(),
			"Imported %d users, %d categories, %d media, %d posts, %d pages, %d globals, %d redirects\n",
			report.Users, report.Categories, report.Media, report.Posts, report.Pages, report.Globals, report.Redirects)
		return nil
	},
}
