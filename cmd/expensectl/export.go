package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"expensedash/internal/log"
	"expensedash/internal/services"
)

func (a *app) exportCmd() *cobra.Command {
	var user, format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an xlsx or pdf export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := services.ParseExportFormat(format)
			if err != nil {
				return err
			}

			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			svc := services.NewExpenseService(repo, nil, nil, log.Discard())
			file, err := svc.Export(cmd.Context(), a.scope(user), f)
			if err != nil {
				return err
			}

			if out == "" {
				out = file.Name
			}
			if err := os.WriteFile(out, file.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			a.printf("wrote %s (%d bytes)\n", out, len(file.Body))
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Only this user's expenses")
	cmd.Flags().StringVarP(&format, "format", "f", string(services.FormatSpreadsheet), "xlsx or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (defaults to the download name)")
	return cmd
}
