package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mantrify/internal/session"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			reader := bufio.NewReader(cmd.InOrStdin())

			email = strings.TrimSpace(email)
			if email == "" {
				fmt.Fprint(out, "Email: ")
				line, _ := reader.ReadString('\n')
				email = strings.TrimSpace(line)
			}
			if email == "" {
				return errors.New("email is required")
			}

			password := os.Getenv("MANTRIFY_PASSWORD")
			if passwordStdin || password == "" {
				if !passwordStdin {
					fmt.Fprint(out, "Password: ")
				}
				line, _ := reader.ReadString('\n')
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password is required")
			}

			client, err := ctx.anonymousClient()
			if err != nil {
				return err
			}
			res, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			store := ctx.sessionStore()
			if err := store.Save(session.Session{
				AccessToken: res.AccessToken,
				UserID:      res.User.ID,
				Email:       res.User.Email,
				IsAdmin:     res.User.IsAdmin,
			}); err != nil {
				return err
			}
			role := ""
			if res.User.IsAdmin {
				role = " (admin)"
			}
			fmt.Fprintf(out, "Logged in as %s%s\n", res.User.Email, role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := ctx.sessionStore()
			sess, err := store.Load()
			if err != nil {
				// A corrupt file is removed all the same.
				sess = nil
			}
			if err := store.Clear(); err != nil {
				return err
			}
			if sess == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s\n", sess.Email)
			return nil
		},
	}
}
