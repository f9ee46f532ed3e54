package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davwright/XB-DataverseTools/internal/auth"
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), nil)
	require.ErrorIs(t, err, dataverse.ErrConfigRequired)

	_, err = New(context.Background(), &dataverse.Config{})
	require.ErrorIs(t, err, dataverse.ErrAPIEndpointRequired)

	_, err = New(context.Background(), &dataverse.Config{
		APIEndpoint:  "https://org.crm.dynamics.com",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})
	require.ErrorIs(t, err, dataverse.ErrTenantIDRequired)
}

func TestNew_StaticToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "Bearer static-token", request.Header.Get("Authorization"))

		_, _ = writer.Write([]byte(`{"UserId":"u","BusinessUnitId":"b","OrganizationId":"o"}`))
	}))

	defer server.Close()

	client, err := New(context.Background(), &dataverse.Config{
		APIEndpoint: server.URL,
		AccessToken: "static-token",
	})
	require.NoError(t, err)

	_, err = client.Metadata().WhoAmI(context.Background())
	require.NoError(t, err)

	token, err := client.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static-token", token)
}

func TestNew_TokenManagerPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   *dataverse.Config
		expected interface{}
	}{
		{
			name: "static token only",
			config: &dataverse.Config{
				APIEndpoint: "https://org.crm.dynamics.com",
				AccessToken: "token",
			},
			expected: &auth.StaticTokenManager{},
		},
		{
			name: "token plus credentials",
			config: &dataverse.Config{
				APIEndpoint:  "https://org.crm.dynamics.com",
				AccessToken:  "token",
				TenantID:     "tenant",
				ClientID:     "client-id",
				ClientSecret: "client-secret",
			},
			expected: &auth.FallbackTokenManager{},
		},
		{
			name: "credentials only",
			config: &dataverse.Config{
				APIEndpoint:  "https://org.crm.dynamics.com",
				TenantID:     "tenant",
				ClientID:     "client-id",
				ClientSecret: "client-secret",
			},
			expected: &auth.ClientCredentialsTokenManager{},
		},
		{
			name: "explicit token URL instead of tenant",
			config: &dataverse.Config{
				APIEndpoint:  "https://org.crm.dynamics.com",
				TokenURL:     "https://login.example.com/token",
				ClientID:     "client-id",
				ClientSecret: "client-secret",
			},
			expected: &auth.ClientCredentialsTokenManager{},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			client, err := New(context.Background(), testCase.config)
			require.NoError(t, err)
			assert.IsType(t, testCase.expected, client.GetTokenManager())
		})
	}
}

func TestNew_NoCredentials(t *testing.T) {
	t.Parallel()

	client, err := New(context.Background(), &dataverse.Config{
		APIEndpoint: "https://org.crm.dynamics.com",
	})
	require.NoError(t, err)
	assert.Nil(t, client.GetTokenManager())

	_, err = client.GetToken(context.Background())
	require.ErrorIs(t, err, dataverse.ErrNoTokenManagerConfigured)
}

func TestAPIBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   *dataverse.Config
		expected string
	}{
		{
			name:     "default version",
			config:   &dataverse.Config{APIEndpoint: "https://org.crm.dynamics.com"},
			expected: "https://org.crm.dynamics.com/api/data/v9.2",
		},
		{
			name:     "trailing slash trimmed",
			config:   &dataverse.Config{APIEndpoint: "https://org.crm.dynamics.com/"},
			expected: "https://org.crm.dynamics.com/api/data/v9.2",
		},
		{
			name:     "explicit version",
			config:   &dataverse.Config{APIEndpoint: "https://org.crm.dynamics.com", APIVersion: "v9.1"},
			expected: "https://org.crm.dynamics.com/api/data/v9.1",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.expected, apiBaseURL(testCase.config))
		})
	}
}
