package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mikey/job-mail-tracker/internal/adapters/source"
	"github.com/mikey/job-mail-tracker/internal/config"
	"github.com/mikey/job-mail-tracker/internal/di"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize read-only Gmail access",
	Long:  "Prints the Google consent URL, reads the authorization code from stdin and saves the token to gmail.token_file.",
	RunE:  runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(_ *cobra.Command, _ []string) error {
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(cfg *config.Config) error {
		gc := cfg.GetGmail()

		oauthCfg, err := source.OAuthConfig(gc.CredentialsFile)
		if err != nil {
			return err
		}

		url := oauthCfg.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		fmt.Fprintf(flags.Out, "Open this URL in a browser and paste the authorization code:\n\n%s\n\nCode: ", url)

		code, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && code == "" {
			return fmt.Errorf("failed to read authorization code: %w", err)
		}

		if err := source.ExchangeCode(context.Background(), oauthCfg, strings.TrimSpace(code), gc.TokenFile); err != nil {
			return err
		}
		fmt.Fprintf(flags.Out, "Token saved to %s\n", gc.TokenFile)
		return nil
	})
}
