package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/davwright/XB-DataverseTools/internal/constants"
)

// OAuth2Config holds the client-credentials grant parameters for the
// Azure AD token endpoint.
type OAuth2Config struct {
	// TokenURL is the full OAuth2 token endpoint.
	TokenURL string
	// ClientID and ClientSecret identify the Azure AD application.
	ClientID     string
	ClientSecret string
	// Scopes requested with the grant. For Dataverse this is the single
	// "<environment-url>/.default" scope.
	Scopes []string
	// HTTPClient overrides the client used for token requests. Nil uses a
	// default with TokenHTTPTimeout.
	HTTPClient *http.Client
}

// ClientCredentialsTokenManager obtains and caches tokens via the OAuth2
// client-credentials grant.
type ClientCredentialsTokenManager struct {
	config *clientcredentials.Config
	client *http.Client
	store  *TokenStore
	mutex  sync.Mutex
}

// NewClientCredentialsTokenManager creates a manager for the given grant
// configuration.
func NewClientCredentialsTokenManager(config *OAuth2Config) *ClientCredentialsTokenManager {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.TokenHTTPTimeout}
	}

	return &ClientCredentialsTokenManager{
		config: &clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     config.TokenURL,
			Scopes:       config.Scopes,
		},
		client: httpClient,
		store:  NewTokenStore(),
	}
}

// NewDataverseTokenManager builds a client-credentials manager for a
// Dataverse environment: Azure AD v2 token endpoint derived from the
// tenant, scope "<environment-url>/.default".
func NewDataverseTokenManager(tenantID, clientID, clientSecret, environmentURL string) *ClientCredentialsTokenManager {
	return NewClientCredentialsTokenManager(&OAuth2Config{
		TokenURL:     fmt.Sprintf(constants.TokenEndpointFormat, tenantID),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{strings.TrimSuffix(environmentURL, "/") + "/.default"},
	})
}

// GetToken returns the cached token while valid, fetching a new one from
// the token endpoint otherwise.
func (m *ClientCredentialsTokenManager) GetToken(ctx context.Context) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	token, err := m.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	m.store.Set(token)

	return token.AccessToken, nil
}

// RefreshToken discards the cached token and fetches a new one.
func (m *ClientCredentialsTokenManager) RefreshToken(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	token, err := m.fetchToken(ctx)
	if err != nil {
		return err
	}

	m.store.Set(token)

	return nil
}

// SetToken manually installs an access token, bypassing the grant.
func (m *ClientCredentialsTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt})
}

func (m *ClientCredentialsTokenManager) fetchToken(ctx context.Context) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client)

	issued, err := m.config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting token: %w", err)
	}

	return &Token{
		AccessToken: issued.AccessToken,
		TokenType:   issued.TokenType,
		ExpiresAt:   issued.Expiry,
	}, nil
}
