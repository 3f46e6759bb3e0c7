// Command expensectl administers an expensedash database.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"expensedash/internal/auth"
	"expensedash/internal/cli"
	"expensedash/internal/config"
	"expensedash/internal/log"
	"expensedash/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	cfg    *config.Config
	dbPath string
	stdin  io.Reader
	out    io.Writer
}

// passwordCost is the bcrypt work factor for new accounts.
var passwordCost = bcrypt.DefaultCost

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	a := &app{cfg: cfg, stdin: stdin, out: stdout}

	root := &cobra.Command{
		Use:           "expensectl",
		Short:         "Administer the expense tracker database",
		SilenceUsage: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stdout)
	root.PersistentFlags().StringVar(&a.dbPath, "db", cfg.DBPath, "Path to the SQLite database")

	root.AddCommand(
		a.initCmd(),
		a.addUserCmd(),
		a.listCmd(),
		a.summaryCmd(),
		a.exportCmd(),
	)
	return root
}

func (a *app) openRepo() (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(a.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.dbPath, err)
	}
	return repo, nil
}

func (a *app) credentials(repo *storage.SQLiteRepository) *auth.CredentialStore {
	return auth.NewCredentialStore(repo, auth.Config{
		AdminUsername: a.cfg.AdminUsername,
		Cost:          passwordCost,
		Logger:        log.Discard(),
	})
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
