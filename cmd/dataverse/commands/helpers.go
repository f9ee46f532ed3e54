package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/davwright/XB-DataverseTools/internal/auth"
	"github.com/davwright/XB-DataverseTools/internal/client"
	"github.com/davwright/XB-DataverseTools/internal/constants"
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
	"github.com/davwright/XB-DataverseTools/pkg/dvclient"
)

// Common static errors used throughout the commands package.
var (
	ErrRecordDataRequired  = errors.New("record data is required, use --data or --file")
	ErrColumnKindRequired  = errors.New("column kind is required (--kind)")
	ErrOptionsRequired     = errors.New("at least one option is required (--option)")
	ErrInvalidOptionFormat = errors.New("invalid option format, expected value=label")
)

// Config represents the CLI configuration.
type Config struct {
	// Multi-environment configuration, keyed by short name.
	Environments       map[string]*EnvironmentConfig `json:"environments,omitempty"        yaml:"environments,omitempty"`
	CurrentEnvironment string                        `json:"current_environment,omitempty" yaml:"current_environment,omitempty"`

	// Global settings
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// EnvironmentConfig represents configuration for a single Dataverse
// environment.
type EnvironmentConfig struct {
	URL            string     `json:"url"                        yaml:"url"`
	TenantID       string     `json:"tenant_id,omitempty"        yaml:"tenant_id,omitempty"`
	ClientID       string     `json:"client_id,omitempty"        yaml:"client_id,omitempty"`
	ClientSecret   string     `json:"client_secret,omitempty"    yaml:"client_secret,omitempty"`
	Token          string     `json:"token,omitempty"            yaml:"token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	LastRefreshed  *time.Time `json:"last_refreshed,omitempty"   yaml:"last_refreshed,omitempty"`
}

func loadConfig() *Config {
	config := &Config{
		Environments:       make(map[string]*EnvironmentConfig),
		CurrentEnvironment: viper.GetString("current_environment"),
		Output:             viper.GetString("output"),
	}

	environmentsRaw := viper.GetStringMap("environments")
	for name, raw := range environmentsRaw {
		envMap, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		config.Environments[name] = parseEnvironmentConfig(envMap)
	}

	return config
}

func parseEnvironmentConfig(envMap map[string]interface{}) *EnvironmentConfig {
	envConfig := &EnvironmentConfig{}

	fields := map[string]*string{
		"url":           &envConfig.URL,
		"tenant_id":     &envConfig.TenantID,
		"client_id":     &envConfig.ClientID,
		"client_secret": &envConfig.ClientSecret,
		"token":         &envConfig.Token,
	}

	for key, field := range fields {
		if value, ok := envMap[key].(string); ok {
			*field = value
		}
	}

	if expiresAtStr, ok := envMap["token_expires_at"].(string); ok && expiresAtStr != "" {
		t, err := time.Parse(time.RFC3339, expiresAtStr)
		if err == nil {
			envConfig.TokenExpiresAt = &t
		}
	}

	if lastRefreshedStr, ok := envMap["last_refreshed"].(string); ok && lastRefreshedStr != "" {
		t, err := time.Parse(time.RFC3339, lastRefreshedStr)
		if err == nil {
			envConfig.LastRefreshed = &t
		}
	}

	return envConfig
}

func configFilePath() string {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return configFile
	}

	home, _ := os.UserHomeDir()

	return filepath.Join(home, ".dataverse", "config.yml")
}

func saveConfigStruct(config *Config) error {
	// Keep the in-memory view coherent for the rest of this invocation.
	viper.Set("environments", config.Environments)
	viper.Set("current_environment", config.CurrentEnvironment)

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}

	configFile := configFilePath()

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}

	return nil
}

// resolveEnvironment determines the target environment from the
// --environment flag (short name or URL) or the configured current
// environment. The returned key is empty for ad-hoc URLs that are not in
// the config.
func resolveEnvironment(config *Config) (string, *EnvironmentConfig, error) {
	selector := viper.GetString("environment")
	if selector == "" {
		selector = config.CurrentEnvironment
	}

	if selector == "" {
		return "", nil, constants.ErrNoEnvironmentConfigured
	}

	if envConfig, exists := config.Environments[selector]; exists {
		return selector, envConfig, nil
	}

	normalized := normalizeEnvironmentURL(selector)
	for name, envConfig := range config.Environments {
		if normalizeEnvironmentURL(envConfig.URL) == normalized {
			return name, envConfig, nil
		}
	}

	// An ad-hoc URL the config has never seen. Usable with --token.
	return "", &EnvironmentConfig{URL: normalized}, nil
}

// normalizeEnvironmentURL trims a trailing slash and defaults to https.
func normalizeEnvironmentURL(environmentURL string) string {
	environmentURL = strings.TrimSuffix(environmentURL, "/")
	if environmentURL != "" && !strings.HasPrefix(environmentURL, "http://") && !strings.HasPrefix(environmentURL, "https://") {
		environmentURL = "https://" + environmentURL
	}

	return environmentURL
}

// CreateClient builds a dataverse.Client for the selected environment.
// Credential-backed environments persist refreshed tokens back to the
// config file; a --token flag overrides everything.
func CreateClient() (dataverse.Client, error) {
	config := loadConfig()

	envKey, envConfig, err := resolveEnvironment(config)
	if err != nil {
		return nil, err
	}

	dvConfig := &dataverse.Config{
		APIEndpoint:  envConfig.URL,
		TenantID:     envConfig.TenantID,
		ClientID:     envConfig.ClientID,
		ClientSecret: envConfig.ClientSecret,
		Debug:        viper.GetBool("verbose"),
		Logger:       newCommandLogger(),
	}

	if token := viper.GetString("token"); token != "" {
		dvConfig.AccessToken = token
		dvConfig.ClientID = ""
		dvConfig.ClientSecret = ""

		return dvclient.New(context.Background(), dvConfig)
	}

	if envConfig.ClientID != "" && envConfig.ClientSecret != "" && envKey != "" {
		return createPersistingClient(envKey, envConfig, dvConfig)
	}

	if envConfig.Token != "" {
		dvConfig.AccessToken = envConfig.Token
	}

	if dvConfig.AccessToken == "" && dvConfig.ClientID == "" {
		return nil, constants.ErrNoCredentials
	}

	return dvclient.New(context.Background(), dvConfig)
}

// createPersistingClient wires a config-persisting token manager so each
// CLI invocation reuses the previous token until it expires.
func createPersistingClient(envKey string, envConfig *EnvironmentConfig, dvConfig *dataverse.Config) (dataverse.Client, error) {
	inner := auth.NewDataverseTokenManager(
		envConfig.TenantID, envConfig.ClientID, envConfig.ClientSecret, envConfig.URL)

	var initialExpiry time.Time
	if envConfig.TokenExpiresAt != nil {
		initialExpiry = *envConfig.TokenExpiresAt
	}

	manager := auth.NewConfigTokenManager(inner, NewConfigPersister(), envKey, envConfig.Token, initialExpiry)

	dvClient, err := client.NewWithTokenManager(dvConfig, manager)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return dvClient, nil
}

// commandLogger adapts zerolog to the dataverse.Logger interface.
type commandLogger struct {
	logger zerolog.Logger
}

func newCommandLogger() dataverse.Logger {
	level := zerolog.WarnLevel
	if viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	return &commandLogger{logger: logger}
}

func (l *commandLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug().Fields(fields).Msg(msg)
}

func (l *commandLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info().Fields(fields).Msg(msg)
}

func (l *commandLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn().Fields(fields).Msg(msg)
}

func (l *commandLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error().Fields(fields).Msg(msg)
}

// renderJSON writes data to stdout as indented JSON.
func renderJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding to JSON: %w", err)
	}

	return nil
}

// renderYAML writes data to stdout as YAML.
func renderYAML(data interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding to YAML: %w", err)
	}

	return nil
}

// renderOutput dispatches on the configured output format, falling back
// to the provided table renderer.
func renderOutput(data interface{}, renderTable func() error) error {
	switch viper.GetString("output") {
	case constants.FormatJSON:
		return renderJSON(data)
	case constants.FormatYAML:
		return renderYAML(data)
	default:
		return renderTable()
	}
}

// renderKeyValueTable writes a two-column property table to stdout.
func renderKeyValueTable(rows [][]string) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	for _, row := range rows {
		_ = table.Append(row[0], row[1])
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// labelText extracts the first localized label, or N/A.
func labelText(label *dataverse.Label) string {
	if label == nil || len(label.LocalizedLabels) == 0 {
		return constants.NotAvailable
	}

	return label.LocalizedLabels[0].Label
}
