package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"expensedash/internal/core"
	"expensedash/internal/report"
)

// scope returns the caller a report runs as: the named user, or the admin
// view of every row when user is empty.
func (a *app) scope(user string) core.Caller {
	if user == "" {
		return core.Caller{Username: a.cfg.AdminUsername, IsAdmin: true}
	}
	return core.Caller{Username: user, IsAdmin: user == a.cfg.AdminUsername}
}

func (a *app) listCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			caller := a.scope(user)
			rows, err := repo.ListExpenses(cmd.Context(), caller)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				a.printf("%s\n", mutedStyle.Render("No expenses recorded."))
				return nil
			}

			header := report.Columns(caller.IsAdmin)
			amountCol := slices.Index(header, "amount")
			a.printf("%s\n", titleStyle.Render(report.Title(caller.Username, caller.IsAdmin)))
			a.printf("%s\n", renderTable(header, report.Rows(rows, caller.IsAdmin), 0, amountCol))
			a.printf("%d expenses, total %s\n", len(rows), core.FormatAmount(core.SumAmounts(rows)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Only this user's expenses")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show category and monthly totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			rows, err := repo.ListExpenses(cmd.Context(), a.scope(user))
			if err != nil {
				return err
			}
			sum := report.Summarize(rows)
			if sum.Empty() {
				a.printf("%s\n", mutedStyle.Render("No expenses recorded."))
				return nil
			}

			byCategory := make([][]string, 0, len(sum.ByCategory))
			for _, c := range sum.ByCategory {
				byCategory = append(byCategory, []string{string(c.Category), core.FormatAmount(c.Total)})
			}
			byMonth := make([][]string, 0, len(sum.ByMonth))
			for _, m := range sum.ByMonth {
				byMonth = append(byMonth, []string{m.Month, core.FormatAmount(m.Total)})
			}

			a.printf("%s\n", titleStyle.Render(fmt.Sprintf("%d expenses, total %s", sum.Count, core.FormatAmount(sum.Total))))
			a.printf("%s\n", renderTable([]string{"Category", "Total"}, byCategory, 1))
			a.printf("%s\n", renderTable([]string{"Month", "Total"}, byMonth, 1))
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Only this user's expenses")
	return cmd
}
