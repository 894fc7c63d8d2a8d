// Package cloudfile defines the contract shared by the cloud storage
// providers: trade a refresh token for a short-lived access token, then
// download one file by ID.
package cloudfile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Credential is the long-lived material needed to obtain an access token.
type Credential struct {
	ApplicationID string
	ClientSecret  string
	RefreshToken  string
}

// Session holds the short-lived access token for one run. It is never
// persisted.
type Session struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	// Rotated is set when the provider issued a refresh token different from
	// the one in the Credential. The old one may stop working, so callers
	// must store RefreshToken.
	Rotated bool
}

// Provider is implemented by each cloud storage backend.
type Provider interface {
	Authenticate(ctx context.Context, cred Credential) (*Session, error)
	Download(ctx context.Context, s *Session, fileID, dest string) error
}

// ErrNoAccessToken is returned by Download when the session has no token.
var ErrNoAccessToken = errors.New("no access token available")

// AuthError is returned when the token exchange fails.
type AuthError struct {
	Code        string
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("token exchange failed: %s - %s", e.Code, e.Description)
	}
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Expired reports whether the provider rejected the refresh token itself.
func (e *AuthError) Expired() bool {
	return e.Code == "invalid_grant"
}

// DownloadError is returned for a non-200 download response (StatusCode and
// Body set) or a transport failure (Err set).
type DownloadError struct {
	FileID     string
	StatusCode int
	Body       string
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("downloading %s: HTTP %d: %s", e.FileID, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("downloading %s: %v", e.FileID, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Refresh runs a refresh-token grant with cfg and converts the result into a
// Session. Provider failures come back as *AuthError.
func Refresh(ctx context.Context, cfg *oauth2.Config, refreshToken string) (*Session, error) {
	// An expired token forces the token source to hit the token endpoint.
	ts := cfg.TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	})
	tok, err := ts.Token()
	if err != nil {
		authErr := &AuthError{Err: err}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			authErr.Code = re.ErrorCode
			authErr.Description = re.ErrorDescription
		}
		return nil, authErr
	}
	if tok.AccessToken == "" {
		return nil, &AuthError{Err: errors.New("token response carried no access token")}
	}
	return &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		Rotated:      tok.RefreshToken != "" && tok.RefreshToken != refreshToken,
	}, nil
}

// OAuthToken converts a session back into an oauth2 token for use with
// oauth2.StaticTokenSource.
func (s *Session) OAuthToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: s.AccessToken,
		TokenType:   "Bearer",
		Expiry:      s.Expiry,
	}
}
