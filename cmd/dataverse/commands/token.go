package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/davwright/XB-DataverseTools/internal/auth"
	"github.com/davwright/XB-DataverseTools/internal/constants"
)

// NewTokenCommand creates the token command group.
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
		Long:  "Inspect and refresh the stored access token for the current environment",
	}

	cmd.AddCommand(newTokenShowCommand())
	cmd.AddCommand(newTokenRefreshCommand())

	return cmd
}

func newTokenShowCommand() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored token",
		Long:  "Display the stored access token and its expiry for the current environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			_, envConfig, err := resolveEnvironment(config)
			if err != nil {
				return err
			}

			token := envConfig.Token
			if token == "" {
				token = constants.NotAvailable
			} else if !full {
				token = constants.MaskedSecret
			}

			expiresAt := constants.NotAvailable
			if envConfig.TokenExpiresAt != nil {
				expiresAt = envConfig.TokenExpiresAt.Format(time.RFC3339)
			}

			lastRefreshed := constants.NotAvailable
			if envConfig.LastRefreshed != nil {
				lastRefreshed = envConfig.LastRefreshed.Format(time.RFC3339)
			}

			return renderKeyValueTable([][]string{
				{"Environment", envConfig.URL},
				{"Token", token},
				{"Expires At", expiresAt},
				{"Last Refreshed", lastRefreshed},
			})
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "print the full token instead of masking it")

	return cmd
}

func newTokenRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the stored token",
		Long:  "Force a new token from Azure AD using the stored client credentials and persist it",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			envKey, envConfig, err := resolveEnvironment(config)
			if err != nil {
				return err
			}

			if envConfig.ClientID == "" || envConfig.ClientSecret == "" || envKey == "" {
				return constants.ErrNoCredentials
			}

			inner := auth.NewDataverseTokenManager(
				envConfig.TenantID, envConfig.ClientID, envConfig.ClientSecret, envConfig.URL)
			manager := auth.NewConfigTokenManager(inner, NewConfigPersister(), envKey, "", time.Time{})

			err = manager.RefreshToken(context.Background())
			if err != nil {
				return fmt.Errorf("failed to refresh token: %w", err)
			}

			fmt.Printf("Successfully refreshed token for '%s'\n", envKey)

			return nil
		},
	}
}
