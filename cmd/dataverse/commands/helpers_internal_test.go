package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davwright/XB-DataverseTools/internal/constants"
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

func TestNormalizeEnvironmentURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare host", input: "myorg.crm.dynamics.com", expected: "https://myorg.crm.dynamics.com"},
		{name: "trailing slash", input: "https://myorg.crm.dynamics.com/", expected: "https://myorg.crm.dynamics.com"},
		{name: "already normalized", input: "https://myorg.crm.dynamics.com", expected: "https://myorg.crm.dynamics.com"},
		{name: "http preserved", input: "http://localhost:8080", expected: "http://localhost:8080"},
		{name: "empty", input: "", expected: ""},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.expected, normalizeEnvironmentURL(testCase.input))
		})
	}
}

func TestExtractDomain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "myorg", extractDomain("https://myorg.crm.dynamics.com"))
	assert.Equal(t, "dev", extractDomain("http://dev.example.com"))
	assert.Equal(t, "localhost", extractDomain("localhost"))
}

func TestParseOptions(t *testing.T) {
	t.Parallel()

	t.Run("valid pairs", func(t *testing.T) {
		t.Parallel()

		options, err := parseOptions([]string{"1=Active", "2=Inactive"})
		require.NoError(t, err)
		require.Len(t, options, 2)
		assert.Equal(t, 1, options[0].Value)
		assert.Equal(t, "Active", options[0].Label.LocalizedLabels[0].Label)
		assert.Equal(t, constants.DefaultLanguageCode, options[0].Label.LocalizedLabels[0].LanguageCode)
	})

	t.Run("missing separator", func(t *testing.T) {
		t.Parallel()

		_, err := parseOptions([]string{"Active"})
		require.ErrorIs(t, err, ErrInvalidOptionFormat)
	})

	t.Run("non-numeric value", func(t *testing.T) {
		t.Parallel()

		_, err := parseOptions([]string{"one=Active"})
		require.ErrorIs(t, err, ErrInvalidOptionFormat)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		options, err := parseOptions(nil)
		require.NoError(t, err)
		assert.Nil(t, options)
	})
}

func TestMaskConfig(t *testing.T) {
	t.Parallel()

	config := &Config{
		CurrentEnvironment: "dev",
		Environments: map[string]*EnvironmentConfig{
			"dev": {
				URL:          "https://dev.crm.dynamics.com",
				ClientSecret: "super-secret",
				Token:        "token-value",
			},
		},
	}

	masked := maskConfig(config)
	assert.Equal(t, constants.MaskedSecret, masked.Environments["dev"].ClientSecret)
	assert.Equal(t, constants.MaskedSecret, masked.Environments["dev"].Token)

	// The original is untouched.
	assert.Equal(t, "super-secret", config.Environments["dev"].ClientSecret)
}

//nolint:paralleltest // mutates global viper state
func TestResolveEnvironment(t *testing.T) {
	config := &Config{
		CurrentEnvironment: "dev",
		Environments: map[string]*EnvironmentConfig{
			"dev":  {URL: "https://dev.crm.dynamics.com"},
			"prod": {URL: "https://prod.crm.dynamics.com"},
		},
	}

	t.Run("current environment by default", func(t *testing.T) {
		viper.Set("environment", "")

		key, envConfig, err := resolveEnvironment(config)
		require.NoError(t, err)
		assert.Equal(t, "dev", key)
		assert.Equal(t, "https://dev.crm.dynamics.com", envConfig.URL)
	})

	t.Run("flag selects by short name", func(t *testing.T) {
		viper.Set("environment", "prod")
		defer viper.Set("environment", "")

		key, envConfig, err := resolveEnvironment(config)
		require.NoError(t, err)
		assert.Equal(t, "prod", key)
		assert.Equal(t, "https://prod.crm.dynamics.com", envConfig.URL)
	})

	t.Run("flag selects by URL", func(t *testing.T) {
		viper.Set("environment", "prod.crm.dynamics.com")
		defer viper.Set("environment", "")

		key, envConfig, err := resolveEnvironment(config)
		require.NoError(t, err)
		assert.Equal(t, "prod", key)
		assert.Equal(t, "https://prod.crm.dynamics.com", envConfig.URL)
	})

	t.Run("ad-hoc URL gets empty key", func(t *testing.T) {
		viper.Set("environment", "https://other.crm.dynamics.com")
		defer viper.Set("environment", "")

		key, envConfig, err := resolveEnvironment(config)
		require.NoError(t, err)
		assert.Empty(t, key)
		assert.Equal(t, "https://other.crm.dynamics.com", envConfig.URL)
	})

	t.Run("nothing configured", func(t *testing.T) {
		viper.Set("environment", "")

		_, _, err := resolveEnvironment(&Config{Environments: map[string]*EnvironmentConfig{}})
		require.ErrorIs(t, err, constants.ErrNoEnvironmentConfigured)
	})
}

type stubEnvironmentLister struct {
	environments []dataverse.Environment
	err          error
}

func (s *stubEnvironmentLister) ListEnvironments(ctx context.Context) ([]dataverse.Environment, error) {
	return s.environments, s.err
}

func TestEnvironmentsCommand(t *testing.T) {
	t.Parallel()

	t.Run("lists environments", func(t *testing.T) {
		t.Parallel()

		lister := &stubEnvironmentLister{
			environments: []dataverse.Environment{
				{DisplayName: "Dev", EnvironmentID: "env-1", EnvironmentURL: "https://dev.crm.dynamics.com", Type: "Sandbox"},
			},
		}

		cmd := newEnvironmentsCommand(lister)
		require.NoError(t, cmd.RunE(cmd, nil))
	})

	t.Run("propagates pac failure", func(t *testing.T) {
		t.Parallel()

		lister := &stubEnvironmentLister{err: errors.New("pac not logged in")}

		cmd := newEnvironmentsCommand(lister)
		err := cmd.RunE(cmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pac not logged in")
	})
}
