package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
	"github.com/davwright/XB-DataverseTools/pkg/dvclient"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		environmentURL string
		name           string
		tenantID       string
		clientID       string
		clientSecret   string
		accessToken    string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to a Dataverse environment",
		Long:  "Authenticate against a Dataverse environment and store the credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if environmentURL == "" {
				environmentURL = viper.GetString("environment")
			}

			if environmentURL == "" {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Environment URL: ")
				environmentURL, _ = reader.ReadString('\n')
				environmentURL = strings.TrimSpace(environmentURL)
			}

			if environmentURL == "" {
				return dataverse.ErrAPIEndpointRequired
			}

			environmentURL = normalizeEnvironmentURL(environmentURL)

			// Secret may be supplied interactively so it stays out of
			// shell history.
			if clientID != "" && clientSecret == "" && accessToken == "" {
				fmt.Print("Client secret: ")

				byteSecret, err := term.ReadPassword(int(syscall.Stdin))
				if err != nil {
					return fmt.Errorf("failed to read client secret: %w", err)
				}

				clientSecret = string(byteSecret)

				fmt.Println()
			}

			dvConfig := &dataverse.Config{
				APIEndpoint:  environmentURL,
				TenantID:     tenantID,
				ClientID:     clientID,
				ClientSecret: clientSecret,
				AccessToken:  accessToken,
			}

			dvClient, err := dvclient.New(context.Background(), dvConfig)
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			// Verify the credentials before storing anything.
			ctx := context.Background()

			whoAmI, err := dvClient.Metadata().WhoAmI(ctx)
			if err != nil {
				return fmt.Errorf("failed to connect to environment: %w", err)
			}

			config := loadConfig()
			if config.Environments == nil {
				config.Environments = make(map[string]*EnvironmentConfig)
			}

			configKey := name
			if configKey == "" {
				configKey = extractDomain(environmentURL)
			}

			envConfig, exists := config.Environments[configKey]
			if !exists {
				envConfig = &EnvironmentConfig{}
				config.Environments[configKey] = envConfig
			}

			envConfig.URL = environmentURL
			envConfig.TenantID = tenantID
			envConfig.ClientID = clientID
			envConfig.ClientSecret = clientSecret
			envConfig.Token = accessToken

			if config.CurrentEnvironment == "" || len(config.Environments) == 1 {
				config.CurrentEnvironment = configKey
			}

			if err := saveConfigStruct(config); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Printf("Successfully logged in to %s\n", environmentURL)
			fmt.Printf("Environment '%s' set as current target\n", configKey)
			fmt.Printf("User ID: %s\n", whoAmI.UserID)
			fmt.Printf("Organization ID: %s\n", whoAmI.OrganizationID)

			return nil
		},
	}

	cmd.Flags().StringVarP(&environmentURL, "environment", "e", "", "environment URL")
	cmd.Flags().StringVarP(&name, "name", "n", "", "short name to store the environment under")
	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "Azure AD tenant ID")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret")
	cmd.Flags().StringVarP(&accessToken, "token", "t", "", "pre-issued access token")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout from the current environment",
		Long:  "Clear stored credentials for the current Dataverse environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			envKey, envConfig, err := resolveEnvironment(config)
			if err != nil {
				return err
			}

			if envKey == "" {
				// Nothing stored for an ad-hoc URL.
				fmt.Println("No stored credentials for this environment")

				return nil
			}

			envConfig.ClientID = ""
			envConfig.ClientSecret = ""
			envConfig.Token = ""
			envConfig.TokenExpiresAt = nil
			envConfig.LastRefreshed = nil

			if err := saveConfigStruct(config); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Printf("Successfully logged out of '%s'\n", envKey)

			return nil
		},
	}
}

// extractDomain derives a config key from an environment URL, e.g.
// "https://myorg.crm.dynamics.com" becomes "myorg".
func extractDomain(environmentURL string) string {
	host := strings.TrimPrefix(environmentURL, "https://")
	host = strings.TrimPrefix(host, "http://")

	if idx := strings.IndexAny(host, "./"); idx > 0 {
		return host[:idx]
	}

	return host
}
