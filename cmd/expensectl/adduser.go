package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"expensedash/internal/core"
)

func (a *app) addUserCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Register a user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			confirm := password
			if password == "" {
				in := bufio.NewReader(a.stdin)
				var err error
				a.printf("Password: ")
				if password, err = readPassword(a.stdin, in); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				a.printf("\nConfirm password: ")
				if confirm, err = readPassword(a.stdin, in); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				a.printf("\n")
			}

			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			err = a.credentials(repo).RegisterConfirmed(cmd.Context(), username, password, confirm)
			switch {
			case errors.Is(err, core.ErrDuplicateUser):
				return fmt.Errorf("user %s already exists", username)
			case errors.Is(err, core.ErrPasswordMismatch):
				return errors.New("passwords do not match")
			case err != nil:
				return err
			}

			a.printf("User %s created\n", strings.TrimSpace(username))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// readPassword reads without echo from a terminal, or one line otherwise.
func readPassword(stdin io.Reader, buffered *bufio.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := buffered.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
