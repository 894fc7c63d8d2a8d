package msgraph

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/personalweb03/services/internal/cloudfile"
)

// DefaultTenant is the authority for personal Microsoft accounts.
const DefaultTenant = "consumers"

var requiredScopes = []string{
	"https://graph.microsoft.com/Files.Read",
	"https://graph.microsoft.com/Files.Read.All",
	"offline_access",
}

func msEndpoint(tenantID, path string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/" + path
}

// oauth2Config returns the oauth2.Config for Microsoft Graph file access.
func oauth2Config(tenantID string, cred cloudfile.Credential, tokenURL string) *oauth2.Config {
	if tokenURL == "" {
		tokenURL = msEndpoint(tenantID, "token")
	}
	return &oauth2.Config{
		ClientID:     cred.ApplicationID,
		ClientSecret: cred.ClientSecret,
		Scopes:       requiredScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   msEndpoint(tenantID, "authorize"),
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Provider downloads OneDrive files through Microsoft Graph. It implements
// cloudfile.Provider.
type Provider struct {
	tenantID   string
	tokenURL   string
	graphURL   string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customises a Provider.
type Option func(*Provider)

// WithTenant overrides DefaultTenant.
func WithTenant(tenantID string) Option {
	return func(p *Provider) { p.tenantID = tenantID }
}

// WithTokenURL overrides the token endpoint derived from the tenant.
func WithTokenURL(u string) Option {
	return func(p *Provider) { p.tokenURL = u }
}

// WithGraphURL overrides the Graph API root.
func WithGraphURL(u string) Option {
	return func(p *Provider) { p.graphURL = u }
}

// WithHTTPClient sets the client used for both token and download calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) { p.httpClient = hc }
}

// NewProvider creates a Graph-backed provider.
func NewProvider(logger *zap.Logger, opts ...Option) *Provider {
	p := &Provider{
		tenantID:   DefaultTenant,
		graphURL:   graphBaseURL,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Authenticate exchanges the refresh token for a fresh access token. A
// rotated refresh token is reported through Session.Rotated.
func (p *Provider) Authenticate(ctx context.Context, cred cloudfile.Credential) (*cloudfile.Session, error) {
	p.logger.Info("Obtaining access token from Microsoft Graph API")

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	s, err := cloudfile.Refresh(ctx, oauth2Config(p.tenantID, cred, p.tokenURL), cred.RefreshToken)
	if err != nil {
		p.logger.Error("Failed to get access token", zap.Error(err))
		if authErr, ok := err.(*cloudfile.AuthError); ok && authErr.Expired() {
			p.logger.Error("Refresh token may have expired; run `pws auth` to obtain a new one")
		}
		return nil, err
	}

	p.logger.Info("Access token obtained successfully", zap.Time("expiry", s.Expiry))
	if s.Rotated {
		p.logger.Warn("New refresh token issued; the stored REFRESH_TOKEN must be updated")
	}
	return s, nil
}
