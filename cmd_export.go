package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"site-cms/pkg/services"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export DIR",
	Short: "Write posts out as front matter files",
	Long: `Write every post to DIR/posts/<slug>.md with its fields as front
matter and its content as the body. The result can be imported again with
the seed command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		n, err := services.NewExporter(a.store, a.log).ExportPosts(cmd.Context(), args[0], exportFormat)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d posts\n", n)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", services.FormatYAML, "front matter format: yaml, toml or json")
}
