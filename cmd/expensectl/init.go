package main

import (
	"github.com/spf13/cobra"

	"expensedash/internal/auth"
	"expensedash/internal/storage"
)

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the schema and seed the admin and demo accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			accounts := []auth.Account{{Username: a.cfg.AdminUsername, Password: a.cfg.AdminPassword}}
			if a.cfg.DemoUsername != "" {
				accounts = append(accounts, auth.Account{Username: a.cfg.DemoUsername, Password: a.cfg.DemoPassword})
			}

			created, err := a.credentials(repo).Seed(cmd.Context(), accounts)
			if err != nil {
				return err
			}

			seeded := make(map[string]bool, len(created))
			for _, u := range created {
				seeded[u] = true
			}
			for _, acc := range accounts {
				if seeded[acc.Username] {
					a.printf("created account %s\n", acc.Username)
				} else {
					a.printf("account %s already exists, left unchanged\n", acc.Username)
				}
			}

			if version, _, ok, err := storage.SchemaVersion(a.dbPath); err == nil && ok {
				a.printf("schema version %d at %s\n", version, a.dbPath)
			}
			return nil
		},
	}
}
