package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thywilljoshua/pdf-to-docx/internal/convert"
)

func pagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages <pdf>",
		Short: "Print the page count of a PDF, or Unknown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := convert.CountPages(args[0])
			log.WithField("pages", n.String()).Debug("counted pages")
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}
