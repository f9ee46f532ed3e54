package commands

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/davwright/XB-DataverseTools/internal/constants"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage Dataverse CLI configuration including environments and settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			masked := maskConfig(config)

			return renderOutput(masked, func() error {
				return displayConfigTable(masked)
			})
		},
	}
}

// maskConfig returns a copy safe for display.
func maskConfig(config *Config) *Config {
	masked := &Config{
		Environments:       make(map[string]*EnvironmentConfig, len(config.Environments)),
		CurrentEnvironment: config.CurrentEnvironment,
		Output:             config.Output,
	}

	for name, envConfig := range config.Environments {
		envCopy := *envConfig
		if envCopy.ClientSecret != "" {
			envCopy.ClientSecret = constants.MaskedSecret
		}

		if envCopy.Token != "" {
			envCopy.Token = constants.MaskedSecret
		}

		masked.Environments[name] = &envCopy
	}

	return masked
}

func displayConfigTable(config *Config) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Environment", "URL", "Tenant", "Auth", "Current")

	for name, envConfig := range config.Environments {
		authMethod := "none"

		switch {
		case envConfig.ClientID != "":
			authMethod = "client credentials"
		case envConfig.Token != "":
			authMethod = "token"
		}

		current := ""
		if name == config.CurrentEnvironment {
			current = "*"
		}

		tenant := envConfig.TenantID
		if tenant == "" {
			tenant = constants.NotAvailable
		}

		_ = table.Append(name, envConfig.URL, tenant, authMethod, current)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func newConfigSetCommand() *cobra.Command {
	var envFlag string

	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a specific configuration value (global or environment-specific)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]

			if value == "" {
				return constants.ErrValueRequired
			}

			config := loadConfig()

			if envFlag != "" {
				return setEnvironmentConfig(config, envFlag, key, value)
			}

			return setGlobalConfig(config, key, value)
		},
	}

	cmd.Flags().StringVar(&envFlag, "env", "", "target a stored environment by name")

	return cmd
}

func setGlobalConfig(config *Config, key, value string) error {
	switch key {
	case "current_environment", "environment":
		if _, exists := config.Environments[value]; !exists {
			return fmt.Errorf("environment '%s': %w", value, constants.ErrConfigNotFound)
		}

		config.CurrentEnvironment = value
	case "output":
		if value != constants.FormatTable && value != constants.FormatJSON && value != constants.FormatYAML {
			return constants.ErrInvalidOutputFormat
		}

		config.Output = value
	default:
		return fmt.Errorf("'%s': %w", key, constants.ErrUnknownConfigKey)
	}

	if err := saveConfigStruct(config); err != nil {
		return err
	}

	fmt.Printf("Set %s to '%s'\n", key, value)

	return nil
}

func setEnvironmentConfig(config *Config, envName, key, value string) error {
	envConfig, exists := config.Environments[envName]
	if !exists {
		envConfig = &EnvironmentConfig{}
		config.Environments[envName] = envConfig
	}

	switch key {
	case "url":
		envConfig.URL = normalizeEnvironmentURL(value)
	case "tenant_id":
		envConfig.TenantID = value
	case "client_id":
		envConfig.ClientID = value
	case "client_secret":
		envConfig.ClientSecret = value
	case "token":
		envConfig.Token = value
	default:
		return fmt.Errorf("'%s': %w", key, constants.ErrUnknownConfigKey)
	}

	if err := saveConfigStruct(config); err != nil {
		return err
	}

	fmt.Printf("Set %s for environment '%s'\n", key, envName)

	return nil
}

func newConfigUnsetCommand() *cobra.Command {
	var envFlag string

	cmd := &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a specific configuration value (global or environment-specific)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			config := loadConfig()

			if envFlag != "" {
				return setEnvironmentConfig(config, envFlag, key, "")
			}

			switch key {
			case "current_environment", "environment":
				config.CurrentEnvironment = ""
			case "output":
				config.Output = ""
			default:
				return fmt.Errorf("'%s': %w", key, constants.ErrUnknownConfigKey)
			}

			if err := saveConfigStruct(config); err != nil {
				return err
			}

			fmt.Printf("Unset %s\n", key)

			return nil
		},
	}

	cmd.Flags().StringVar(&envFlag, "env", "", "target a stored environment by name")

	return cmd
}

func newConfigClearCommand() *cobra.Command {
	var envFlag string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove all configuration settings or a single environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			if envFlag != "" {
				if _, exists := config.Environments[envFlag]; !exists {
					return fmt.Errorf("environment '%s': %w", envFlag, constants.ErrConfigNotFound)
				}

				delete(config.Environments, envFlag)

				if config.CurrentEnvironment == envFlag {
					config.CurrentEnvironment = ""
				}

				if err := saveConfigStruct(config); err != nil {
					return err
				}

				fmt.Printf("Cleared environment '%s'\n", envFlag)

				return nil
			}

			configFile := viper.ConfigFileUsed()
			if configFile == "" {
				configFile = configFilePath()
			}

			err := os.Remove(configFile)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			fmt.Println("Cleared all configuration")

			return nil
		},
	}

	cmd.Flags().StringVar(&envFlag, "env", "", "clear a single stored environment")

	return cmd
}
