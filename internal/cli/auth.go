package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/sdejongh/drivesync/pkg/auth"
	"github.com/spf13/cobra"
)

// NewAuthCommand creates the auth command
func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Google Drive credentials",
	}

	cmd.AddCommand(newAuthLoginCommand())

	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	var (
		tokenPath       string
		credentialsPath string
		noBrowser       bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize read-only Drive access and save the token",
		Long: `Run the OAuth consent flow with the client secrets from credentials.json
and write the resulting token to token.json. An existing token is replaced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			opts := auth.LoginOptions{Out: os.Stderr}
			if !noBrowser {
				opts.OpenURL = openBrowser
			}

			if _, err := auth.Bootstrap(ctx, tokenPath, credentialsPath, opts); err != nil {
				return err
			}

			if !globalFlags.Quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Token saved to: %s\n", tokenPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tokenPath, "token-path", "token.json", "where to write the token")
	cmd.Flags().StringVar(&credentialsPath, "credentials-path", "", "path to credentials.json (required)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "only print the consent URL")
	cmd.MarkFlagRequired("credentials-path")

	return cmd
}

// openBrowser opens url with the desktop's default handler
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
