package msgraph

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/personalweb03/services/internal/cloudfile"
)

// DefaultRedirectURL must match the redirect URI registered for the app.
const DefaultRedirectURL = "http://localhost:8000"

// DefaultAuthTimeout bounds how long Authorize waits for the browser.
const DefaultAuthTimeout = 2 * time.Minute

const successPage = `<html><head><title>Authorization complete</title></head>
<body><h1>Authorization complete</h1><p>You can close this window and return to the terminal.</p></body></html>`

// ErrStateMismatch is reported when the callback carries an unexpected state.
var ErrStateMismatch = errors.New("oauth callback state mismatch")

// CallbackServer receives the authorization code redirected from the
// browser. Only the first callback is delivered.
type CallbackServer struct {
	path     string
	state    string
	codeChan chan string
	errChan  chan error
	logger   *zap.Logger
}

// NewCallbackServer creates a handler expecting callbacks on path with the
// given state value.
func NewCallbackServer(path, state string, logger *zap.Logger) *CallbackServer {
	if path == "" {
		path = "/"
	}
	return &CallbackServer{
		path:     path,
		state:    state,
		codeChan: make(chan string, 1),
		errChan:  make(chan error, 1),
		logger:   logger,
	}
}

func (s *CallbackServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != s.path {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		desc := q.Get("error_description")
		s.logger.Error("Authorization failed", zap.String("error", e), zap.String("description", desc))
		s.fail(fmt.Errorf("authorization failed: %s - %s", e, desc))
		http.Error(w, "Authorization failed: "+html.EscapeString(desc), http.StatusBadRequest)
		return
	}
	if q.Get("state") != s.state {
		s.logger.Error("Callback state mismatch")
		s.fail(ErrStateMismatch)
		http.Error(w, "Invalid state", http.StatusBadRequest)
		return
	}
	code := q.Get("code")
	if code == "" {
		s.fail(errors.New("no authorization code received"))
		http.Error(w, "No authorization code received", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, successPage)
	select {
	case s.codeChan <- code:
		s.logger.Info("Authorization code received")
	default:
	}
}

func (s *CallbackServer) fail(err error) {
	select {
	case s.errChan <- err:
	default:
	}
}

// Wait blocks until a code or an error arrives, or ctx ends.
func (s *CallbackServer) Wait(ctx context.Context) (string, error) {
	select {
	case code := <-s.codeChan:
		return code, nil
	case err := <-s.errChan:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}
}

// AuthorizeOptions configures the interactive flow.
type AuthorizeOptions struct {
	Credential  cloudfile.Credential
	RedirectURL string
	Timeout     time.Duration
	// OpenBrowser launches the system browser on the consent page.
	OpenBrowser bool
	// Out receives the consent URL and progress messages.
	Out io.Writer
}

// AuthCodeURL returns the consent page URL.
func (p *Provider) AuthCodeURL(cred cloudfile.Credential, redirectURL, state string) string {
	cfg := oauth2Config(p.tenantID, cred, p.tokenURL)
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens.
func (p *Provider) Exchange(ctx context.Context, cred cloudfile.Credential, redirectURL, code string) (*oauth2.Token, error) {
	cfg := oauth2Config(p.tenantID, cred, p.tokenURL)
	cfg.RedirectURL = redirectURL
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		authErr := &cloudfile.AuthError{Err: err}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			authErr.Code = re.ErrorCode
			authErr.Description = re.ErrorDescription
		}
		return nil, authErr
	}
	if tok.RefreshToken == "" {
		return nil, &cloudfile.AuthError{Err: errors.New("no refresh token returned; is offline_access granted?")}
	}
	return tok, nil
}

// Authorize runs the one-time authorization-code flow: it serves the
// redirect URI locally, sends the user to the consent page and exchanges the
// returned code. The resulting refresh token is what REFRESH_TOKEN expects.
func (p *Provider) Authorize(ctx context.Context, opts AuthorizeOptions) (*oauth2.Token, error) {
	if opts.RedirectURL == "" {
		opts.RedirectURL = DefaultRedirectURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultAuthTimeout
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	redirect, err := url.Parse(opts.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect URL: %w", err)
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}

	state := uuid.NewString()
	cb := NewCallbackServer(redirect.Path, state, p.logger)
	server := &http.Server{Handler: cb, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		p.logger.Info("Callback server started", zap.String("address", redirect.Host))
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			cb.fail(err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	authURL := p.AuthCodeURL(opts.Credential, opts.RedirectURL, state)
	fmt.Fprintf(opts.Out, "Open this URL in your browser to authorize:\n%s\n\n", authURL)
	if opts.OpenBrowser {
		if err := openBrowser(authURL); err != nil {
			p.logger.Warn("Failed to open browser", zap.Error(err))
		}
	}
	fmt.Fprintln(opts.Out, "Waiting for authorization...")

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	code, err := cb.Wait(waitCtx)
	if err != nil {
		return nil, err
	}
	return p.Exchange(ctx, opts.Credential, opts.RedirectURL, code)
}

func openBrowser(u string) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("xdg-open", u).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", u).Start()
	case "darwin":
		return exec.Command("open", u).Start()
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}
