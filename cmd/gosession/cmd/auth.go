package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)

	loginCmd.Flags().StringP("password", "p", "", "password, read from stdin when empty")
	signupCmd.Flags().StringP("password", "p", "", "password, read from stdin when empty")
	signupCmd.Flags().String("email", "", "email address")
	signupCmd.Flags().String("first-name", "", "first name")
	signupCmd.Flags().String("last-name", "", "last name")
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Sign in and persist the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordFlag(cmd)
		if err != nil {
			return err
		}

		client, release, err := newClient()
		if err != nil {
			return err
		}
		defer release()

		if err := client.SignIn(cmd.Context(), args[0], password); err != nil {
			return describeAuthError(err)
		}
		slog.Info("Signed in", "username", args[0])
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup <username>",
	Short: "Register a user, then sign in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordFlag(cmd)
		if err != nil {
			return err
		}
		email, _ := cmd.Flags().GetString("email")
		first, _ := cmd.Flags().GetString("first-name")
		last, _ := cmd.Flags().GetString("last-name")

		client, release, err := newClient()
		if err != nil {
			return err
		}
		defer release()

		err = client.SignUp(cmd.Context(), goSession.Registration{
			Username:  args[0],
			Password:  password,
			Email:     email,
			FirstName: first,
			LastName:  last,
		})
		if err != nil {
			return describeAuthError(err)
		}
		slog.Info("Registered and signed in", "username", args[0])
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the persisted session",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, release, err := newClient()
		if err != nil {
			return err
		}
		defer release()

		if err := client.SignOut(cmd.Context()); err != nil {
			return err
		}
		slog.Info("Signed out")
		return nil
	},
}

func passwordFlag(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password != "" {
		return password, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// describeAuthError surfaces the server's detail for rejections.
func describeAuthError(err error) error {
	var apiErr *goSession.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s (HTTP %d)", apiErr.Error(), apiErr.Status)
	}
	return err
}

// resume applies the background timeout and, when the session survived,
// refreshes it so the access token is attached.
func resume(ctx context.Context, client *goSession.Client) (bool, error) {
	res, err := client.AppResumed(ctx)
	if err != nil {
		return false, err
	}
	if res.Expired {
		slog.Warn("Session expired while in background, sign in again")
		return false, nil
	}
	if !res.Authenticated {
		return false, nil
	}
	return client.RestoreSession(ctx)
}
