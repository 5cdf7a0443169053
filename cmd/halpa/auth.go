package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/halpa/internal/cli"
	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}

	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authenticate with Google Sheets",
		Long: `Authenticate with Google Sheets using OAuth2.

This command will:
1. Print a URL to authorize halpa in your browser
2. Receive the authorization on a local callback address
3. Save the refresh token to your config file

You'll need to run this once before 'halpa export'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clientID := viper.GetString("sheets.client_id")
			clientSecret := viper.GetString("sheets.client_secret")

			if flagID, _ := cmd.Flags().GetString("client-id"); flagID != "" {
				clientID = flagID
			}
			if flagSecret, _ := cmd.Flags().GetString("client-secret"); flagSecret != "" {
				clientSecret = flagSecret
			}
			if clientID == "" {
				clientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
			}
			if clientSecret == "" {
				clientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
			}

			if clientID == "" || clientSecret == "" {
				return common.NewUserError(
					"OAuth2 credentials not found; set sheets.client_id and sheets.client_secret or use --client-id and --client-secret",
					common.ErrMissingConfig)
			}

			tokenFile, err := tokenPath()
			if err != nil {
				return err
			}
			callback, _ := cmd.Flags().GetString("callback")

			force, _ := cmd.Flags().GetBool("force")
			oauthCfg := sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenFile:    tokenFile,
				CallbackAddr: callback,
				Timeout:      5 * time.Minute,
			}

			slog.Info("Starting Google Sheets authentication", "token_file", tokenFile)
			authenticate := sheets.GetOrCreateToken
			if force {
				authenticate = sheets.AuthenticateOAuth2Interactive
			}
			token, err := authenticate(cmd.Context(), oauthCfg)
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if token.RefreshToken == "" {
				fmt.Fprintln(out, cli.FormatSuccess("Stored token is still valid. Use --force to authenticate again."))
				return nil
			}

			viper.Set("sheets.refresh_token", token.RefreshToken)
			if err := saveConfig(); err != nil {
				slog.Warn("Failed to update config file with refresh token", "error", err)
				fmt.Fprintln(out, cli.FormatWarning("Could not save the refresh token; add it to config.yaml manually:"))
				fmt.Fprintf(out, "sheets:\n  refresh_token: %q\n", token.RefreshToken)
			} else {
				fmt.Fprintln(out, cli.FormatSuccess("Authentication successful. Run 'halpa export' to write the comparison."))
			}
			return nil
		},
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")
	cmd.Flags().String("callback", "localhost:8080", "address the OAuth2 callback listens on")
	cmd.Flags().Bool("force", false, "authenticate again even if a stored token exists")

	return cmd
}

func configDir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "halpa"), nil
}

func tokenPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sheets-token.json"), nil
}

func saveConfig() error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		configFile = filepath.Join(dir, "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0750); err != nil {
		return err
	}
	return viper.WriteConfigAs(configFile)
}
