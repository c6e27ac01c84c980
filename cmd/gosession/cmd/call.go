package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().StringP("data", "d", "", "request body")
	callCmd.Flags().StringP("method", "X", http.MethodGet, "HTTP method")
	callCmd.Flags().StringArrayP("header", "H", nil, "extra header, \"Name: value\"")
}

var callCmd = &cobra.Command{
	Use:   "call <path-or-url>",
	Short: "Resume the session and make an authenticated call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, _ := cmd.Flags().GetString("method")
		data, _ := cmd.Flags().GetString("data")
		headers, _ := cmd.Flags().GetStringArray("header")

		client, release, err := newClient()
		if err != nil {
			return err
		}
		defer release()

		ctx := cmd.Context()
		if ok, err := resume(ctx, client); err != nil {
			return err
		} else if !ok {
			slog.Warn("No active session, calling unauthenticated")
		}

		target := args[0]
		if strings.HasPrefix(target, "/") {
			target = strings.TrimSuffix(viper.GetString("base_url"), "/") + target
		}

		var body io.Reader
		if data != "" {
			body = bytes.NewReader([]byte(data))
		}
		req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), target, body)
		if err != nil {
			return err
		}
		if data != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		for _, h := range headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok {
				return fmt.Errorf("invalid header %q", h)
			}
			req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		slog.Debug("Response", "status", resp.StatusCode, "refreshes", client.RefreshStats().Exchanges)
		fmt.Fprintln(os.Stderr, resp.Status)
		_, err = io.Copy(cmd.OutOrStdout(), resp.Body)
		return err
	},
}
