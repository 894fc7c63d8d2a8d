// Package gdrive implements cloudfile.Provider on top of the Google Drive v3
// API.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/personalweb03/services/internal/cloudfile"
	"github.com/personalweb03/services/internal/storage"
)

// Provider downloads files from Google Drive.
type Provider struct {
	tokenURL   string
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customises a Provider.
type Option func(*Provider)

// WithTokenURL overrides google.Endpoint.TokenURL.
func WithTokenURL(u string) Option {
	return func(p *Provider) { p.tokenURL = u }
}

// WithEndpoint overrides the Drive API base path.
func WithEndpoint(u string) Option {
	return func(p *Provider) { p.endpoint = u }
}

// WithHTTPClient sets the base client for token and API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) { p.httpClient = hc }
}

// NewProvider creates a Drive-backed provider.
func NewProvider(logger *zap.Logger, opts ...Option) *Provider {
	p := &Provider{httpClient: http.DefaultClient, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) config(cred cloudfile.Credential) *oauth2.Config {
	endpoint := google.Endpoint
	if p.tokenURL != "" {
		endpoint.TokenURL = p.tokenURL
	}
	return &oauth2.Config{
		ClientID:     cred.ApplicationID,
		ClientSecret: cred.ClientSecret,
		Scopes:       []string{drive.DriveReadonlyScope},
		Endpoint:     endpoint,
	}
}

// Authenticate exchanges the refresh token for an access token.
func (p *Provider) Authenticate(ctx context.Context, cred cloudfile.Credential) (*cloudfile.Session, error) {
	p.logger.Info("Obtaining access token from Google")
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	s, err := cloudfile.Refresh(ctx, p.config(cred), cred.RefreshToken)
	if err != nil {
		p.logger.Error("Failed to get access token", zap.Error(err))
		return nil, err
	}
	if s.Rotated {
		p.logger.Warn("New refresh token issued; the stored REFRESH_TOKEN must be updated")
	}
	return s, nil
}

// Download streams the media content of fileID to dest.
func (p *Provider) Download(ctx context.Context, s *cloudfile.Session, fileID, dest string) error {
	if s == nil || s.AccessToken == "" {
		p.logger.Error("No access token available")
		return &cloudfile.DownloadError{FileID: fileID, Err: cloudfile.ErrNoAccessToken}
	}

	hc := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, p.httpClient),
		oauth2.StaticTokenSource(s.OAuthToken()),
	)
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return &cloudfile.DownloadError{FileID: fileID, Err: fmt.Errorf("creating drive service: %w", err)}
	}

	p.logger.Info("Downloading file from Google Drive", zap.String("file_id", fileID), zap.String("dest", dest))
	resp, err := srv.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		dlErr := &cloudfile.DownloadError{FileID: fileID, Err: err}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			dlErr.StatusCode = gerr.Code
			dlErr.Body = gerr.Body
		}
		p.logger.Error("Failed to download file", zap.Int("status_code", dlErr.StatusCode), zap.Error(err))
		return dlErr
	}
	defer resp.Body.Close()

	n, err := storage.WriteStream(dest, resp.Body)
	if err != nil {
		return &cloudfile.DownloadError{FileID: fileID, Err: err}
	}
	p.logger.Info("File downloaded successfully", zap.Int64("bytes", n))
	return nil
}
