package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/biometric"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(backgroundCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(statusCmd)

	unlockCmd.Flags().Bool("no-confirm", false, "behave as a device without biometric capability")
}

var backgroundCmd = &cobra.Command{
	Use:   "background",
	Short: "Record that the app left the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, release, err := newClient()
		if err != nil {
			return err
		}
		defer release()

		return client.AppBackgrounded(cmd.Context())
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Apply the background timeout and refresh a surviving session",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, release, err := newClient()
		if err != nil {
			return err
		}
		defer release()

		ok, err := resume(cmd.Context(), client)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "authenticated: %v\n", ok)
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Confirm on the terminal, then refresh the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		noConfirm, _ := cmd.Flags().GetBool("no-confirm")

		var gate biometric.Gate = terminalGate()
		if noConfirm {
			gate = biometric.Unsupported{}
		}
		client, release, err := newClient(func(b *goSession.Builder) {
			b.WithBiometricGate(gate)
		})
		if err != nil {
			return err
		}
		defer release()

		ctx := cmd.Context()
		res, err := client.AppResumed(ctx)
		if err != nil {
			return err
		}
		if res.Expired {
			slog.Warn("Session expired while in background, sign in again")
			return nil
		}

		outcome, err := client.UnlockWithBiometrics(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "unlock: %s\n", outcome)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted session without changing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, release, err := newClient()
		if err != nil {
			return err
		}
		defer release()

		sess, err := client.Session(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if sess == nil {
			fmt.Fprintln(out, "signed out")
			return nil
		}
		fmt.Fprintf(out, "username: %s\n", sess.Username)
		if exp, ok := jwt.Expiry(sess.AccessToken); ok {
			fmt.Fprintf(out, "access expires: %s (%s)\n", exp.Format(time.RFC3339), time.Until(exp).Round(time.Second))
		}
		if exp, ok := jwt.Expiry(sess.RefreshToken); ok {
			fmt.Fprintf(out, "refresh expires: %s\n", exp.Format(time.RFC3339))
		}
		return nil
	},
}

// terminalGate asks for a y/N confirmation on stdin.
func terminalGate() biometric.Gate {
	return biometric.Func{
		PromptFunc: func(ctx context.Context, reason string) (bool, error) {
			fmt.Fprintf(os.Stderr, "%s [y/N]: ", reason)
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return false, err
			}
			answer := strings.ToLower(strings.TrimSpace(line))
			return answer == "y" || answer == "yes", nil
		},
	}
}
